package classpath

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/daimatz/classdump/pkg/classfile"
)

// Loader decodes classes from a Source by name and caches the result. It is
// safe for concurrent use.
type Loader struct {
	src  Source
	opts []classfile.Option

	mu    sync.Mutex
	cache map[string]*classfile.ClassFile
}

// NewLoader returns a Loader reading from src. opts are passed to every
// decode.
func NewLoader(src Source, opts ...classfile.Option) *Loader {
	return &Loader{
		src:   src,
		opts:  opts,
		cache: make(map[string]*classfile.ClassFile),
	}
}

// Load returns the decoded class with the given internal name.
func (l *Loader) Load(name string) (*classfile.ClassFile, error) {
	l.mu.Lock()
	cf, ok := l.cache[name]
	l.mu.Unlock()
	if ok {
		return cf, nil
	}

	cf, err := decode(l.src, name, l.opts)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	// Another goroutine may have won the race; keep its result.
	if prev, ok := l.cache[name]; ok {
		return prev, nil
	}
	l.cache[name] = cf
	return cf, nil
}

// Hierarchy returns name followed by its superclasses, ending at the first
// class without one. Superclasses missing from the source end the chain
// with an error.
func (l *Loader) Hierarchy(name string) ([]string, error) {
	chain := []string{name}
	for {
		cf, err := l.Load(name)
		if err != nil {
			return chain, err
		}
		super, err := cf.SuperClassName()
		if err != nil {
			return chain, fmt.Errorf("%s: resolving super_class: %w", name, err)
		}
		if super == "" {
			return chain, nil
		}
		for _, seen := range chain {
			if seen == super {
				return chain, fmt.Errorf("%s: circular superclass %s", name, super)
			}
		}
		chain = append(chain, super)
		name = super
	}
}

func decode(src Source, name string, opts []classfile.Option) (*classfile.ClassFile, error) {
	data, err := src.ReadClass(name)
	if err != nil {
		return nil, err
	}
	cf, err := classfile.Parse(data, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: decoding %s: %w", src.Name(), name, err)
	}
	if got, err := cf.ClassName(); err == nil && got != name {
		Logger().Warn("class name does not match its location",
			zap.String("source", src.Name()),
			zap.String("path", name),
			zap.String("class", got))
	}
	return cf, nil
}

// Result is the outcome of decoding one class in DecodeAll.
type Result struct {
	Name  string
	Class *classfile.ClassFile
	Err   error
}

// DecodeAll decodes every class in src using at most workers goroutines
// (GOMAXPROCS when workers <= 0). Results are in List order. A class that
// fails to decode is reported in its Result; DecodeAll itself fails only
// when the source cannot be listed or ctx is done.
func DecodeAll(ctx context.Context, src Source, workers int, opts ...classfile.Option) ([]Result, error) {
	names, err := src.List()
	if err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([]Result, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, name := range names {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			cf, err := decode(src, name, opts)
			results[i] = Result{Name: name, Class: cf, Err: err}
			if err != nil {
				Logger().Warn("failed to decode class",
					zap.String("source", src.Name()),
					zap.String("class", name),
					zap.Error(err))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	Logger().Debug("decoded source",
		zap.String("source", src.Name()),
		zap.Int("classes", len(names)),
		zap.Int("workers", workers))
	return results, nil
}
