// Package gen generates pojo property tables for loaded struct types.
//
// For every struct a <type>_rowmap.go file is written next to its
// declaration, holding a constructor of its property table built with
// pojo.Declare. A rowmap_register.go file registers all of them:
//
//	types := pojo.NewTypes()
//	models.RegisterProperties(types)
package gen

import (
	"bytes"
	"context"
	"fmt"
	"go/types"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"github.com/dave/jennifer/jen"
	"github.com/go-openapi/inflect"
	"golang.org/x/sync/errgroup"

	"github.com/syssam/rowmap/compiler/load"
)

const (
	pojoPkg = "github.com/syssam/rowmap/pojo"

	// DefaultHeader is the header comment of generated files.
	DefaultHeader = "Code generated by rowmapgen. DO NOT EDIT."
	// RegisterFile is the name of the generated registration file.
	RegisterFile = "rowmap_register.go"
)

// Config configures the generator.
type Config struct {
	// Snake declares snake_case column names for fields without a col tag.
	Snake bool
	// Header overrides DefaultHeader.
	Header string
	// Workers limits the number of files rendered in parallel.
	// Defaults to GOMAXPROCS.
	Workers int
}

func (c Config) header() string {
	if c.Header != "" {
		return c.Header
	}
	return DefaultHeader
}

func (c Config) workers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// File is a rendered file.
type File struct {
	Path    string
	Content []byte
}

// FileName returns the name of the file generated for the struct.
func FileName(s *load.Struct) string {
	return inflect.Underscore(s.Name) + "_rowmap.go"
}

// Files renders the files for structs without writing them, sorted by
// path.
func Files(ctx context.Context, structs []*load.Struct, cfg Config) ([]*File, error) {
	if len(structs) == 0 {
		return nil, ErrNoStructs
	}
	var (
		mu    sync.Mutex
		files []*File
		pkgs  = make(map[string][]*load.Struct)
	)
	add := func(f *File) {
		mu.Lock()
		defer mu.Unlock()
		files = append(files, f)
	}
	errg, ctx := errgroup.WithContext(ctx)
	errg.SetLimit(cfg.workers())
	for _, s := range structs {
		pkgs[s.Dir] = append(pkgs[s.Dir], s)
		errg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			path := filepath.Join(s.Dir, FileName(s))
			content, err := render(structFile(s, cfg))
			if err != nil {
				return &GenerateError{Type: s.Name, File: path, Cause: err}
			}
			add(&File{Path: path, Content: content})
			return nil
		})
	}
	for dir, ss := range pkgs {
		errg.Go(func() error {
			path := filepath.Join(dir, RegisterFile)
			content, err := render(registerFile(ss, cfg))
			if err != nil {
				return &GenerateError{File: path, Cause: err}
			}
			add(&File{Path: path, Content: content})
			return nil
		})
	}
	if err := errg.Wait(); err != nil {
		return nil, err
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// Generate renders and writes the files for structs.
func Generate(ctx context.Context, structs []*load.Struct, cfg Config) ([]*File, error) {
	files, err := Files(ctx, structs, cfg)
	if err != nil {
		return nil, err
	}
	errg, _ := errgroup.WithContext(ctx)
	errg.SetLimit(cfg.workers())
	for _, f := range files {
		errg.Go(func() error {
			if err := os.WriteFile(f.Path, f.Content, 0o644); err != nil {
				return &GenerateError{File: f.Path, Cause: err}
			}
			return nil
		})
	}
	if err := errg.Wait(); err != nil {
		return nil, err
	}
	return files, nil
}

func render(f *jen.File) ([]byte, error) {
	var buf bytes.Buffer
	if err := f.Render(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func newFile(pkg string, cfg Config) *jen.File {
	f := jen.NewFile(pkg)
	f.HeaderComment(cfg.header())
	return f
}

// structFile emits:
//
//	func UserProperties() *pojo.Properties {
//		return pojo.Declare[User](
//			pojo.Field("ID", func(t *User, v int64) { t.ID = v }),
//			...
//		)
//	}
func structFile(s *load.Struct, cfg Config) *jen.File {
	f := newFile(s.PkgName, cfg)
	var decls []jen.Code
	for _, fd := range s.Fields {
		if fd.Tag.Unmappable {
			continue
		}
		setter := jen.Func().Params(
			jen.Id("t").Op("*").Id(s.Name),
			jen.Id("v").Add(typeCode(fd.Type, s.PkgPath)),
		).Block(jen.Id("t").Dot(fd.Name).Op("=").Id("v"))
		var opts []jen.Code
		switch {
		case fd.Tag.Column != "":
			opts = append(opts, jen.Qual(pojoPkg, "Column").Call(jen.Lit(fd.Tag.Column)))
		case cfg.Snake && !fd.Tag.Nested:
			opts = append(opts, jen.Qual(pojoPkg, "Column").Call(jen.Lit(inflect.Underscore(fd.Name))))
		}
		if fd.Tag.PropagateNull {
			opts = append(opts, jen.Qual(pojoPkg, "PropagateNull").Call())
		}
		if fd.Tag.Nested {
			args := append([]jen.Code{jen.Lit(fd.Name), jen.Lit(fd.Tag.Prefix), setter}, opts...)
			decls = append(decls, jen.Qual(pojoPkg, "NestedField").Call(args...))
			continue
		}
		args := append([]jen.Code{jen.Lit(fd.Name), setter}, opts...)
		decls = append(decls, jen.Qual(pojoPkg, "Field").Call(args...))
	}
	if s.NullMarker {
		decls = append(decls, jen.Qual(pojoPkg, "WithNullMarker").Types(jen.Id(s.Name)).Call(
			jen.Id(s.Name).Values().Dot("NullMarker").Call(),
		))
	}
	name := s.Name + "Properties"
	f.Commentf("%s returns the property table of %s.", name, s.Name)
	f.Func().Id(name).Params().Op("*").Qual(pojoPkg, "Properties").Block(
		jen.Return(jen.Qual(pojoPkg, "Declare").Types(jen.Id(s.Name)).Custom(jen.Options{
			Open:      "(",
			Close:     ")",
			Separator: ",",
			Multi:     true,
		}, decls...)),
	)
	return f
}

func registerFile(structs []*load.Struct, cfg Config) *jen.File {
	sort.Slice(structs, func(i, j int) bool { return structs[i].Name < structs[j].Name })
	f := newFile(structs[0].PkgName, cfg)
	calls := make([]jen.Code, len(structs))
	for i, s := range structs {
		calls[i] = jen.Id(s.Name + "Properties").Call()
	}
	f.Comment("RegisterProperties registers the generated property tables with types.")
	f.Func().Id("RegisterProperties").Params(jen.Id("types").Op("*").Qual(pojoPkg, "Types")).Block(
		jen.Id("types").Dot("Register").Custom(jen.Options{
			Open:      "(",
			Close:     ")",
			Separator: ",",
			Multi:     true,
		}, calls...),
	)
	return f
}

// typeCode returns the code of t as referenced from package pkg.
func typeCode(t types.Type, pkg string) jen.Code {
	switch t := t.(type) {
	case *types.Basic:
		return jen.Id(t.Name())
	case *types.Pointer:
		return jen.Op("*").Add(typeCode(t.Elem(), pkg))
	case *types.Slice:
		return jen.Index().Add(typeCode(t.Elem(), pkg))
	case *types.Array:
		return jen.Index(jen.Lit(int(t.Len()))).Add(typeCode(t.Elem(), pkg))
	case *types.Map:
		return jen.Map(typeCode(t.Key(), pkg)).Add(typeCode(t.Elem(), pkg))
	case *types.Alias:
		if t.Obj().Pkg() == nil {
			return jen.Id(t.Obj().Name())
		}
		return typeCode(types.Unalias(t), pkg)
	case *types.Named:
		obj := t.Obj()
		var c *jen.Statement
		switch {
		case obj.Pkg() == nil:
			c = jen.Id(obj.Name())
		case obj.Pkg().Path() == pkg:
			c = jen.Id(obj.Name())
		default:
			c = jen.Qual(obj.Pkg().Path(), obj.Name())
		}
		if args := t.TypeArgs(); args.Len() > 0 {
			codes := make([]jen.Code, args.Len())
			for i := range args.Len() {
				codes[i] = typeCode(args.At(i), pkg)
			}
			c = c.Types(codes...)
		}
		return c
	case *types.Interface:
		if t.Empty() {
			return jen.Id("any")
		}
	}
	return jen.Id(types.TypeString(t, func(p *types.Package) string {
		if p.Path() == pkg {
			return ""
		}
		return p.Name()
	}))
}

// Describe returns a one-line summary of a struct, used in verbose output.
func Describe(s *load.Struct) string {
	return fmt.Sprintf("%s.%s (%d fields)", s.PkgPath, s.Name, len(s.Fields))
}
