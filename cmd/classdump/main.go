package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/daimatz/classdump/pkg/classfile"
	"github.com/daimatz/classdump/pkg/classpath"
	"github.com/daimatz/classdump/pkg/printer"
)

func findJmodPath() string {
	// 1. Explicit env var
	if env := os.Getenv("JAVA_BASE_JMOD"); env != "" {
		return env
	}
	// 2. JAVA_HOME
	if javaHome := os.Getenv("JAVA_HOME"); javaHome != "" {
		p := filepath.Join(javaHome, "jmods", "java.base.jmod")
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	// 3. Glob fallback
	matches, _ := filepath.Glob("/usr/lib/jvm/java-*-openjdk-*/jmods/java.base.jmod")
	if len(matches) > 0 {
		return matches[0]
	}
	return ""
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}

// useColor resolves a -color mode for w. In auto mode only a terminal gets
// colour; writers that are not files never do.
func useColor(mode string, w io.Writer) (bool, error) {
	switch mode {
	case "always":
		return true, nil
	case "never":
		return false, nil
	case "auto":
		f, ok := w.(*os.File)
		return ok && term.IsTerminal(int(f.Fd())), nil
	}
	return false, fmt.Errorf("unknown color mode %q (want auto, always or never)", mode)
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("classdump", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		format    = fs.String("format", "text", "Output format: text, json or yaml")
		classes   = fs.String("class", "", "Comma-separated internal class names to look up in the class path")
		cp        = fs.String("cp", "", "Class path: directories, jars and jmods separated by "+string(os.PathListSeparator))
		jmod      = fs.String("jmod", "", "java.base.jmod to append to the class path (default: JAVA_BASE_JMOD, then JAVA_HOME)")
		jdk       = fs.Bool("jdk", true, "Append the JDK's java.base.jmod to the class path when one is found")
		all       = fs.Bool("all", false, "Decode every class on the class path and report failures")
		hierarchy = fs.Bool("hierarchy", false, "With -class, print the superclass chain instead of the class")
		workers   = fs.Int("j", 0, "Parallel decodes for -all (default GOMAXPROCS)")
		verbose   = fs.Bool("v", false, "Verbose logging")
		color     = fs.String("color", "auto", "Colorize text output: auto, always or never")
	)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: classdump [flags] <file.class>...\n")
		fmt.Fprintf(stderr, "       classdump [flags] -cp <path> -class <name>[,<name>...]\n")
		fmt.Fprintf(stderr, "       classdump [flags] -cp <path> -all\n\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}

	outFormat, err := printer.ParseFormat(*format)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	colorOut, err := useColor(*color, stdout)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	colorErr, _ := useColor(*color, stderr)

	log, err := newLogger(*verbose)
	if err != nil {
		fmt.Fprintf(stderr, "Error: creating logger: %v\n", err)
		return 1
	}
	defer log.Sync()
	classpath.SetLogger(log)
	opts := []classfile.Option{classfile.WithLogger(log)}

	d := &dumper{
		stdout:   stdout,
		stderr:   stderr,
		format:   outFormat,
		outOpts:  printer.Options{Color: colorOut},
		errOpts:  printer.Options{Color: colorErr},
		decoding: opts,
	}

	if *classes == "" && !*all {
		if fs.NArg() == 0 {
			fs.Usage()
			return 2
		}
		return d.files(fs.Args())
	}

	path, err := classpath.ParsePath(*cp)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if *jmod == "" && *jdk {
		*jmod = findJmodPath()
	}
	if *jmod != "" {
		src, err := classpath.OpenJmod(*jmod)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		path = append(path, src)
	}
	if len(path) == 0 {
		fmt.Fprintf(stderr, "Error: empty class path. Use -cp, -jmod, JAVA_HOME or JAVA_BASE_JMOD.\n")
		return 2
	}
	log.Debug("class path", zap.String("path", path.Name()))

	if *all {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		return d.all(ctx, path, *workers)
	}
	return d.lookup(classpath.NewLoader(path, opts...), strings.Split(*classes, ","), *hierarchy)
}

type dumper struct {
	stdout   io.Writer
	stderr   io.Writer
	format   printer.Format
	outOpts  printer.Options
	errOpts  printer.Options
	decoding []classfile.Option
}

func (d *dumper) print(cf *classfile.ClassFile) bool {
	if err := printer.Print(d.stdout, cf, d.format, d.outOpts); err != nil {
		fmt.Fprintf(d.stderr, "Error: writing output: %v\n", err)
		return false
	}
	return true
}

func (d *dumper) fail(name string, err error) {
	if perr := printer.Error(d.stderr, name, err, d.errOpts); perr != nil {
		fmt.Fprintf(d.stderr, "%s: %v\n", name, err)
	}
}

func (d *dumper) files(paths []string) int {
	code := 0
	for _, path := range paths {
		cf, err := classfile.ParseFile(path, d.decoding...)
		if err != nil {
			d.fail(path, err)
			code = 1
			continue
		}
		if !d.print(cf) {
			return 1
		}
	}
	return code
}

func (d *dumper) lookup(l *classpath.Loader, names []string, hierarchy bool) int {
	code := 0
	for _, name := range names {
		name = strings.ReplaceAll(strings.TrimSpace(name), ".", "/")
		if name == "" {
			continue
		}
		if hierarchy {
			chain, err := l.Hierarchy(name)
			fmt.Fprintln(d.stdout, strings.Join(chain, " -> "))
			if err != nil {
				d.fail(name, err)
				code = 1
			}
			continue
		}
		cf, err := l.Load(name)
		if err != nil {
			d.fail(name, err)
			code = 1
			continue
		}
		if !d.print(cf) {
			return 1
		}
	}
	return code
}

func (d *dumper) all(ctx context.Context, src classpath.Source, workers int) int {
	results, err := classpath.DecodeAll(ctx, src, workers, d.decoding...)
	if err != nil {
		fmt.Fprintf(d.stderr, "Error: %v\n", err)
		return 1
	}
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			d.fail(r.Name, r.Err)
			failed++
		}
	}
	fmt.Fprintf(d.stdout, "%d classes, %d failed\n", len(results), failed)
	if failed > 0 {
		return 1
	}
	return 0
}
