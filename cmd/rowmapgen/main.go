// rowmapgen generates pojo property tables for the struct types of a Go
// package.
//
//	rowmapgen -dir ./models -types User,Address -snake
//
// With -diff, nothing is written and the differences to the files on disk
// are printed instead. With -watch, the package is regenerated whenever one
// of its source files changes.
//
// Defaults for -dir and -snake are read from ROWMAPGEN_DIR and
// ROWMAPGEN_SNAKE, which may be set in a .env file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/fatih/color"
	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/syssam/rowmap/compiler/gen"
	"github.com/syssam/rowmap/compiler/load"
)

// errStale is returned in diff mode when generated files are out of date.
var errStale = errors.New("generated files are out of date")

type options struct {
	dir     string
	pattern string
	types   []string
	snake   bool
	diff    bool
	watch   bool
	verbose bool
	header  string
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "rowmapgen: loading .env: %v\n", err)
		os.Exit(2)
	}
	opts, err := parseFlags(os.Args[1:], os.Getenv, os.Stderr)
	if err != nil {
		os.Exit(2)
	}
	color.NoColor = !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if opts.watch {
		err = watch(ctx, opts, os.Stdout)
	} else {
		err = run(ctx, opts, os.Stdout)
	}
	switch {
	case errors.Is(err, errStale):
		os.Exit(1)
	case err != nil && !errors.Is(err, context.Canceled):
		fmt.Fprintln(os.Stderr, color.RedString("rowmapgen: %v", err))
		os.Exit(1)
	}
}

func parseFlags(args []string, getenv func(string) string, stderr io.Writer) (*options, error) {
	opts := &options{pattern: "."}
	fs := flag.NewFlagSet("rowmapgen", flag.ContinueOnError)
	fs.SetOutput(stderr)
	dir := getenv("ROWMAPGEN_DIR")
	if dir == "" {
		dir = "."
	}
	snake, _ := strconv.ParseBool(getenv("ROWMAPGEN_SNAKE"))
	var typeNames string
	fs.StringVar(&opts.dir, "dir", dir, "directory of the package to load")
	fs.StringVar(&opts.pattern, "pattern", opts.pattern, "package pattern, relative to -dir")
	fs.StringVar(&typeNames, "types", "", "comma-separated struct types (default all exported structs)")
	fs.BoolVar(&opts.snake, "snake", snake, "declare snake_case column names")
	fs.BoolVar(&opts.diff, "diff", false, "print differences instead of writing files")
	fs.BoolVar(&opts.watch, "watch", false, "regenerate when source files change")
	fs.BoolVar(&opts.verbose, "v", false, "dump loaded struct descriptors")
	fs.StringVar(&opts.header, "header", "", "header comment of generated files")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	for _, name := range strings.Split(typeNames, ",") {
		if name = strings.TrimSpace(name); name != "" {
			opts.types = append(opts.types, name)
		}
	}
	if opts.diff && opts.watch {
		err := errors.New("-diff and -watch are mutually exclusive")
		fmt.Fprintln(stderr, err)
		return nil, err
	}
	return opts, nil
}

func run(ctx context.Context, opts *options, out io.Writer) error {
	structs, err := load.Load(ctx, opts.dir, opts.pattern, opts.types...)
	if err != nil {
		return err
	}
	if opts.verbose {
		dump(out, structs)
	}
	cfg := gen.Config{Snake: opts.snake, Header: opts.header}
	if opts.diff {
		files, err := gen.Files(ctx, structs, cfg)
		if err != nil {
			return err
		}
		return diff(out, files)
	}
	files, err := gen.Generate(ctx, structs, cfg)
	if err != nil {
		return err
	}
	for _, f := range files {
		fmt.Fprintln(out, color.GreenString("wrote"), f.Path)
	}
	return nil
}

func dump(out io.Writer, structs []*load.Struct) {
	cs := spew.ConfigState{Indent: "  ", DisablePointerAddresses: true, SortKeys: true}
	for _, s := range structs {
		fmt.Fprintln(out, color.CyanString(gen.Describe(s)))
		for _, f := range s.Fields {
			fmt.Fprintf(out, "  %s %s ", f.Name, f.TypeString())
			cs.Fdump(out, f.Tag)
		}
	}
}

// diff prints the differences between files and their versions on disk.
// It returns errStale if any file differs.
func diff(out io.Writer, files []*gen.File) error {
	dmp := diffmatchpatch.New()
	stale := false
	for _, f := range files {
		current, err := os.ReadFile(f.Path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		if string(current) == string(f.Content) {
			continue
		}
		stale = true
		diffs := dmp.DiffMain(string(current), string(f.Content), false)
		diffs = dmp.DiffCleanupSemantic(diffs)
		fmt.Fprintln(out, color.YellowString("--- %s", f.Path))
		fmt.Fprintln(out, dmp.DiffPrettyText(diffs))
	}
	if stale {
		return errStale
	}
	return nil
}

// isSource reports whether a change of path should trigger regeneration.
func isSource(path string) bool {
	base := filepath.Base(path)
	return strings.HasSuffix(base, ".go") &&
		!strings.HasSuffix(base, "_test.go") &&
		!strings.HasSuffix(base, "_rowmap.go") &&
		base != gen.RegisterFile
}

func watch(ctx context.Context, opts *options, out io.Writer) error {
	if err := run(ctx, opts, out); err != nil {
		fmt.Fprintln(out, color.RedString("rowmapgen: %v", err))
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(opts.dir); err != nil {
		return err
	}
	const debounce = 200 * time.Millisecond
	timer := time.NewTimer(debounce)
	timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) && isSource(ev.Name) {
				timer.Reset(debounce)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintln(out, color.RedString("rowmapgen: watch: %v", err))
		case <-timer.C:
			if err := run(ctx, opts, out); err != nil {
				fmt.Fprintln(out, color.RedString("rowmapgen: %v", err))
			}
		}
	}
}
