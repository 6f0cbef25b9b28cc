// Package classpath locates class bytes in directories, jars and jmods and
// decodes them with package classfile.
package classpath

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// ErrNotFound is returned by Source.ReadClass when the source has no class
// with the requested name.
var ErrNotFound = errors.New("class not found")

// Source is a place class bytes come from. Class names are internal names
// such as "java/lang/Object".
type Source interface {
	Name() string
	// List returns every class name in the source, sorted.
	List() ([]string, error)
	ReadClass(name string) ([]byte, error)
}

// Dir is a directory tree of .class files laid out by package.
type Dir struct {
	Root string
}

func (d *Dir) Name() string { return d.Root }

func (d *Dir) List() ([]string, error) {
	var names []string
	err := filepath.WalkDir(d.Root, func(path string, e fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if e.IsDir() || !strings.HasSuffix(path, ".class") {
			return nil
		}
		rel, err := filepath.Rel(d.Root, path)
		if err != nil {
			return err
		}
		names = append(names, strings.TrimSuffix(filepath.ToSlash(rel), ".class"))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("dir: listing %s: %w", d.Root, err)
	}
	slices.Sort(names)
	return names, nil
}

func (d *Dir) ReadClass(name string) ([]byte, error) {
	path := filepath.Join(d.Root, filepath.FromSlash(name)+".class")
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("dir: %s in %s: %w", name, d.Root, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("dir: reading %s: %w", path, err)
	}
	return data, nil
}

// jmodMagic prefixes the zip payload of a .jmod file.
var jmodMagic = []byte("JM\x01\x00")

// Zip is a jar, or the zip payload of a jmod. The archive is held in memory
// and is safe for concurrent reads.
type Zip struct {
	path   string
	prefix string
	files  map[string]*zip.File
}

// OpenZip opens a jar or zip file whose entries are laid out by package.
func OpenZip(path string) (*Zip, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("zip: opening %s: %w", path, err)
	}
	return newZip(path, data, "")
}

// OpenJmod opens a JDK jmod file. Classes live under "classes/" in the zip
// that follows the 4-byte jmod header.
func OpenJmod(path string) (*Zip, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("jmod: opening %s: %w", path, err)
	}
	if !bytes.HasPrefix(data, jmodMagic) {
		return nil, fmt.Errorf("jmod: %s: missing JM header", path)
	}
	return newZip(path, data[len(jmodMagic):], "classes/")
}

func newZip(path string, data []byte, prefix string) (*Zip, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("zip: reading %s: %w", path, err)
	}
	z := &Zip{path: path, prefix: prefix, files: make(map[string]*zip.File)}
	for _, f := range r.File {
		name, ok := strings.CutPrefix(f.Name, prefix)
		if !ok || !strings.HasSuffix(name, ".class") {
			continue
		}
		z.files[strings.TrimSuffix(name, ".class")] = f
	}
	return z, nil
}

func (z *Zip) Name() string { return z.path }

func (z *Zip) List() ([]string, error) {
	names := make([]string, 0, len(z.files))
	for name := range z.files {
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

func (z *Zip) ReadClass(name string) ([]byte, error) {
	f, ok := z.files[name]
	if !ok {
		return nil, fmt.Errorf("zip: %s in %s: %w", name, z.path, ErrNotFound)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("zip: opening %s: %w", f.Name, err)
	}
	defer rc.Close()

	var b bytes.Buffer
	b.Grow(int(f.UncompressedSize64))
	if _, err := b.ReadFrom(rc); err != nil {
		return nil, fmt.Errorf("zip: reading %s: %w", f.Name, err)
	}
	return b.Bytes(), nil
}

// Path searches its sources in order; the first source holding a class
// wins.
type Path []Source

// Open returns the source for a single class path element: a directory, a
// .jmod file, or any other file read as a zip.
func Open(path string) (Source, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	switch {
	case info.IsDir():
		return &Dir{Root: path}, nil
	case strings.HasSuffix(path, ".jmod"):
		return OpenJmod(path)
	default:
		return OpenZip(path)
	}
}

// ParsePath opens each element of a list separated by os.PathListSeparator.
func ParsePath(list string) (Path, error) {
	var p Path
	for _, elem := range filepath.SplitList(list) {
		if elem == "" {
			continue
		}
		src, err := Open(elem)
		if err != nil {
			return nil, fmt.Errorf("classpath: %w", err)
		}
		p = append(p, src)
	}
	return p, nil
}

func (p Path) Name() string {
	names := make([]string, len(p))
	for i, src := range p {
		names[i] = src.Name()
	}
	return strings.Join(names, string(os.PathListSeparator))
}

// List returns the union of the sources' classes.
func (p Path) List() ([]string, error) {
	seen := make(map[string]bool)
	var names []string
	for _, src := range p {
		list, err := src.List()
		if err != nil {
			return nil, err
		}
		for _, name := range list {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	slices.Sort(names)
	return names, nil
}

func (p Path) ReadClass(name string) ([]byte, error) {
	for _, src := range p {
		data, err := src.ReadClass(name)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		return data, err
	}
	return nil, fmt.Errorf("classpath: %s: %w", name, ErrNotFound)
}
