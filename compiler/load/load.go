// Package load loads the struct declarations rowmap property tables are
// generated from.
package load

import (
	"context"
	"errors"
	"fmt"
	"go/types"
	"path/filepath"
	"reflect"
	"slices"

	"golang.org/x/tools/go/packages"

	"github.com/syssam/rowmap/pojo"
)

// Mode is the information loaded from packages.
const Mode = packages.NeedName |
	packages.NeedFiles |
	packages.NeedTypes |
	packages.NeedImports

// Struct is an exported struct type loaded from a package.
type Struct struct {
	Name    string   `json:"name"`
	PkgPath string   `json:"pkg_path"`
	PkgName string   `json:"pkg_name"`
	Dir     string   `json:"dir"`
	Fields  []*Field `json:"fields,omitempty"`
	// NullMarker is set when the type has a NullMarker() string method.
	NullMarker bool `json:"null_marker,omitempty"`
}

// Field is an exported field of a loaded struct.
type Field struct {
	Name string     `json:"name"`
	Type types.Type `json:"-"`
	Tag  pojo.Tag   `json:"tag"`
}

// TypeString returns the type of the field qualified by package name.
func (f *Field) TypeString() string {
	return types.TypeString(f.Type, func(p *types.Package) string { return p.Name() })
}

// Load loads the packages matching pattern from dir and returns their
// exported struct types, sorted by name. If names are given, only those
// types are returned and each of them must exist.
func Load(ctx context.Context, dir, pattern string, names ...string) ([]*Struct, error) {
	cfg := &packages.Config{
		Context: ctx,
		Dir:     dir,
		Mode:    Mode,
	}
	pkgs, err := packages.Load(cfg, pattern)
	if err != nil {
		return nil, fmt.Errorf("load: loading packages: %w", err)
	}
	var errs []error
	packages.Visit(pkgs, nil, func(pkg *packages.Package) {
		for _, e := range pkg.Errors {
			errs = append(errs, e)
		}
	})
	if len(errs) > 0 {
		return nil, fmt.Errorf("load: package errors: %w", errors.Join(errs...))
	}
	var structs []*Struct
	for _, pkg := range pkgs {
		structs = append(structs, Package(pkg.Types, packageDir(pkg), names...)...)
	}
	for _, name := range names {
		if !slices.ContainsFunc(structs, func(s *Struct) bool { return s.Name == name }) {
			return nil, fmt.Errorf("load: type %q not found in %s", name, pattern)
		}
	}
	return structs, nil
}

// Package returns the exported, non-generic struct types declared in pkg,
// sorted by name. If names are given, only those types are returned.
func Package(pkg *types.Package, dir string, names ...string) []*Struct {
	var structs []*Struct
	scope := pkg.Scope()
	for _, name := range scope.Names() {
		if len(names) > 0 && !slices.Contains(names, name) {
			continue
		}
		tn, ok := scope.Lookup(name).(*types.TypeName)
		if !ok || !tn.Exported() || tn.IsAlias() {
			continue
		}
		named, ok := tn.Type().(*types.Named)
		if !ok || named.TypeParams().Len() > 0 {
			continue
		}
		st, ok := named.Underlying().(*types.Struct)
		if !ok {
			continue
		}
		structs = append(structs, &Struct{
			Name:       name,
			PkgPath:    pkg.Path(),
			PkgName:    pkg.Name(),
			Dir:        dir,
			Fields:     fields(st),
			NullMarker: hasNullMarker(named, pkg),
		})
	}
	return structs
}

func fields(st *types.Struct) []*Field {
	fs := make([]*Field, 0, st.NumFields())
	for i := range st.NumFields() {
		f := st.Field(i)
		if !f.Exported() {
			continue
		}
		fs = append(fs, &Field{
			Name: f.Name(),
			Type: f.Type(),
			Tag:  pojo.ParseTag(reflect.StructTag(st.Tag(i))),
		})
	}
	return fs
}

// hasNullMarker reports whether t has a value method NullMarker() string.
func hasNullMarker(t types.Type, pkg *types.Package) bool {
	obj, _, _ := types.LookupFieldOrMethod(t, false, pkg, "NullMarker")
	fn, ok := obj.(*types.Func)
	if !ok {
		return false
	}
	sig := fn.Type().(*types.Signature)
	if sig.Params().Len() != 0 || sig.Results().Len() != 1 {
		return false
	}
	res, ok := sig.Results().At(0).Type().(*types.Basic)
	return ok && res.Kind() == types.String
}

func packageDir(pkg *packages.Package) string {
	if len(pkg.GoFiles) > 0 {
		return filepath.Dir(pkg.GoFiles[0])
	}
	return ""
}
