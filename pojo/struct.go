package pojo

import (
	"fmt"
	"go/token"
	"reflect"
	"strings"

	"github.com/zoobzio/sentinel"

	"github.com/syssam/rowmap"
)

// Struct tag keys recognized on struct fields:
//
//	col:"name"            column name override; col:"-" excludes the field
//	nested:"prefix_"      maps the field as a nested object from prefixed columns
//	rowmap:"propagatenull" NULL in this field yields a nil object
//	rowmap:"-"            excludes the field
const (
	TagColumn = "col"
	TagNested = "nested"
	TagRowmap = "rowmap"
)

func init() {
	sentinel.Tag(TagColumn)
	sentinel.Tag(TagNested)
	sentinel.Tag(TagRowmap)
}

// NullMarked is implemented by struct types declaring a null marker column.
// It is called on the zero value.
type NullMarked interface {
	NullMarker() string
}

// Tag is the parsed mapping metadata of a struct field.
type Tag struct {
	Column        string
	Nested        bool
	Prefix        string
	PropagateNull bool
	Unmappable    bool
}

// ParseTag parses the mapping keys of a struct tag.
func ParseTag(tag reflect.StructTag) Tag {
	return parseTag(tag.Lookup)
}

func parseTag(lookup func(string) (string, bool)) Tag {
	var t Tag
	if col, ok := lookup(TagColumn); ok {
		if col == "-" {
			t.Unmappable = true
		} else {
			t.Column = col
		}
	}
	if prefix, ok := lookup(TagNested); ok {
		t.Nested = true
		t.Prefix = prefix
	}
	if opts, ok := lookup(TagRowmap); ok {
		for _, opt := range strings.Split(opts, ",") {
			switch strings.TrimSpace(opt) {
			case "-":
				t.Unmappable = true
			case "propagatenull":
				t.PropagateNull = true
			}
		}
	}
	return t
}

// Struct builds the property table of struct type T from its exported
// fields and their tags. Decls are applied afterwards and may add to or
// replace the scanned properties.
func Struct[T any](decls ...Decl[T]) *Properties {
	p := fromMetadata(reflect.TypeFor[T](), sentinel.Scan[T]())
	for _, decl := range decls {
		decl(p)
	}
	return p
}

// StructOf builds the property table of struct type t like Struct.
func StructOf(t reflect.Type) (*Properties, error) {
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("pojo: %s is not a struct", t)
	}
	return fromMetadata(t, *scanType(t)), nil
}

// scanType returns the sentinel metadata of t, scanning it by reflection
// when sentinel has not seen the type.
func scanType(rt reflect.Type) *sentinel.Metadata {
	if meta, ok := sentinel.Lookup(rt.String()); ok {
		return &meta
	}
	meta := sentinel.Metadata{
		TypeName:    rt.Name(),
		PackageName: rt.PkgPath(),
		Fields:      make([]sentinel.FieldMetadata, 0, rt.NumField()),
	}
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		if !sf.IsExported() {
			continue
		}
		fm := sentinel.FieldMetadata{
			Name:        sf.Name,
			Type:        sf.Type.String(),
			ReflectType: sf.Type,
			Index:       sf.Index,
			Tags:        make(map[string]string),
		}
		for _, key := range []string{TagColumn, TagNested, TagRowmap} {
			if v, ok := sf.Tag.Lookup(key); ok {
				fm.Tags[key] = v
			}
		}
		switch sf.Type.Kind() {
		case reflect.Struct:
			fm.Kind = sentinel.KindStruct
		case reflect.Ptr:
			fm.Kind = sentinel.KindPointer
		case reflect.Slice, reflect.Array:
			fm.Kind = sentinel.KindSlice
		case reflect.Map:
			fm.Kind = sentinel.KindMap
		case reflect.Interface:
			fm.Kind = sentinel.KindInterface
		default:
			fm.Kind = sentinel.KindScalar
		}
		meta.Fields = append(meta.Fields, fm)
	}
	return &meta
}

func fromMetadata(rt reflect.Type, meta sentinel.Metadata) *Properties {
	p := &Properties{typ: rt}
	if nm, ok := reflect.Zero(rt).Interface().(NullMarked); ok {
		p.nullMarker = nm.NullMarker()
	}
	for _, field := range meta.Fields {
		if !token.IsExported(field.Name) || field.ReflectType == nil {
			continue
		}
		tags := field.Tags
		tag := parseTag(func(key string) (string, bool) {
			v, ok := tags[key]
			return v, ok
		})
		index := field.Index
		p.props = append(p.props, &Property{
			Name:          field.Name,
			Type:          field.ReflectType,
			Column:        tag.Column,
			Nested:        tag.Nested,
			Prefix:        tag.Prefix,
			PropagateNull: tag.PropagateNull,
			Unmappable:    tag.Unmappable,
			set: func(target reflect.Value, v any) error {
				return rowmap.Assign(target.FieldByIndex(index), v)
			},
		})
	}
	return p
}
