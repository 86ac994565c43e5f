package pojo

import (
	"fmt"
	"reflect"

	"github.com/syssam/rowmap"
)

// Property describes one settable slot of a mapped type.
type Property struct {
	// Name is the declared name, matched against columns unless Column is set.
	Name string
	// Type is the type of the slot.
	Type reflect.Type
	// Column overrides the column name matched for the property.
	Column string
	// Nested marks a property mapped from the prefixed columns of the row
	// as an object of its own type.
	Nested bool
	// Prefix is appended to the enclosing prefix for nested properties.
	Prefix string
	// PropagateNull makes a NULL value for the property yield a nil object.
	PropagateNull bool
	// Unmappable excludes the property from mapping.
	Unmappable bool

	set func(target reflect.Value, v any) error
}

// ColumnName returns the column name the property is matched against,
// without any prefix.
func (p *Property) ColumnName() string {
	if p.Column != "" {
		return p.Column
	}
	return p.Name
}

// Properties is the property table of a type. Tables are immutable once built.
type Properties struct {
	typ        reflect.Type
	props      []*Property
	nullMarker string
}

// Type returns the described type.
func (p *Properties) Type() reflect.Type { return p.typ }

// Properties returns the properties in declaration order.
func (p *Properties) Properties() []*Property { return p.props }

// NullMarker returns the column whose NULL value marks the whole object
// absent, or "" if the type has none.
func (p *Properties) NullMarker() string { return p.nullMarker }

// Property returns the property with the given name.
func (p *Properties) Property(name string) (*Property, bool) {
	for _, prop := range p.props {
		if prop.Name == name {
			return prop, true
		}
	}
	return nil, false
}

// NewBuilder returns a builder for a fresh zero value of the type.
func (p *Properties) NewBuilder() *Builder {
	return &Builder{typ: p.typ, target: reflect.New(p.typ).Elem()}
}

// Builder accumulates property values for one object.
type Builder struct {
	typ    reflect.Type
	target reflect.Value
}

// Set stores v in the slot of p.
func (b *Builder) Set(p *Property, v any) error {
	if p.set == nil {
		return fmt.Errorf("pojo: property %s of %s is not settable", p.Name, b.typ)
	}
	return p.set(b.target, v)
}

// Build returns the built object as a value of the table's type.
func (b *Builder) Build() (any, error) {
	return b.target.Interface(), nil
}

// Decl declares part of the property table of T.
type Decl[T any] func(*Properties)

// FieldOption configures a declared property.
type FieldOption func(*Property)

// Column overrides the column name of a property.
func Column(name string) FieldOption {
	return func(p *Property) {
		p.Column = name
	}
}

// PropagateNull makes a NULL value of the property yield a nil object.
func PropagateNull() FieldOption {
	return func(p *Property) {
		p.PropagateNull = true
	}
}

// Unmappable excludes the property from mapping.
func Unmappable() FieldOption {
	return func(p *Property) {
		p.Unmappable = true
	}
}

// Declare builds the property table of T from explicit declarations.
//
//	pojo.Declare[User](
//	    pojo.Field("ID", func(u *User, v int64) { u.ID = v }),
//	    pojo.Field("Name", func(u *User, v string) { u.Name = v }, pojo.Column("full_name")),
//	    pojo.NestedField("Address", "addr_", func(u *User, v *Address) { u.Address = v }),
//	)
func Declare[T any](decls ...Decl[T]) *Properties {
	p := &Properties{typ: reflect.TypeFor[T]()}
	for _, decl := range decls {
		decl(p)
	}
	return p
}

// Field declares a property set through a typed setter. A later declaration
// with the same name replaces the earlier one.
func Field[T, V any](name string, set func(*T, V), opts ...FieldOption) Decl[T] {
	return func(p *Properties) {
		p.put(newField(name, set, opts))
	}
}

// NestedField declares a property mapped as an object of its own from the
// columns starting with prefix.
func NestedField[T, V any](name, prefix string, set func(*T, V), opts ...FieldOption) Decl[T] {
	return func(p *Properties) {
		prop := newField(name, set, opts)
		prop.Nested = true
		prop.Prefix = prefix
		p.put(prop)
	}
}

// WithNullMarker declares the column whose NULL value marks an object of
// type T absent. The column is matched by its full name.
func WithNullMarker[T any](column string) Decl[T] {
	return func(p *Properties) {
		p.nullMarker = column
	}
}

func newField[T, V any](name string, set func(*T, V), opts []FieldOption) *Property {
	prop := &Property{
		Name: name,
		Type: reflect.TypeFor[V](),
		set: func(target reflect.Value, v any) error {
			val, err := rowmap.As[V](v)
			if err != nil {
				return err
			}
			set(target.Addr().Interface().(*T), val)
			return nil
		},
	}
	for _, opt := range opts {
		opt(prop)
	}
	return prop
}

func (p *Properties) put(prop *Property) {
	for i, existing := range p.props {
		if existing.Name == prop.Name {
			p.props[i] = prop
			return
		}
	}
	p.props = append(p.props, prop)
}
