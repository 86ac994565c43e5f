package rowmap

import (
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"time"
)

var (
	scannerType = reflect.TypeFor[sql.Scanner]()
	timeType    = reflect.TypeFor[time.Time]()
	bytesType   = reflect.TypeFor[[]byte]()
	byteType    = reflect.TypeFor[byte]()
)

// scalars holds the mappers for unnamed basic types.
var scalars = map[reflect.Type]ColumnMapper{
	reflect.TypeFor[string]():  nullScan[string](),
	reflect.TypeFor[bool]():    nullScan[bool](),
	reflect.TypeFor[int]():     nullScan[int](),
	reflect.TypeFor[int8]():    nullScan[int8](),
	reflect.TypeFor[int16]():   nullScan[int16](),
	reflect.TypeFor[int32]():   nullScan[int32](),
	reflect.TypeFor[int64]():   nullScan[int64](),
	reflect.TypeFor[uint]():    nullScan[uint](),
	reflect.TypeFor[uint8]():   nullScan[uint8](),
	reflect.TypeFor[uint16]():  nullScan[uint16](),
	reflect.TypeFor[uint32]():  nullScan[uint32](),
	reflect.TypeFor[uint64]():  nullScan[uint64](),
	reflect.TypeFor[float32](): nullScan[float32](),
	reflect.TypeFor[float64](): nullScan[float64](),
	bytesType:                  nullScan[[]byte](),
	reflect.TypeFor[any]():     ColumnMapperFunc(rawColumn),
	timeType:                   ColumnMapperFunc(timeColumn),
}

// basics maps a basic kind to its unnamed type.
var basics = map[reflect.Kind]reflect.Type{
	reflect.String:  reflect.TypeFor[string](),
	reflect.Bool:    reflect.TypeFor[bool](),
	reflect.Int:     reflect.TypeFor[int](),
	reflect.Int8:    reflect.TypeFor[int8](),
	reflect.Int16:   reflect.TypeFor[int16](),
	reflect.Int32:   reflect.TypeFor[int32](),
	reflect.Int64:   reflect.TypeFor[int64](),
	reflect.Uint:    reflect.TypeFor[uint](),
	reflect.Uint8:   reflect.TypeFor[uint8](),
	reflect.Uint16:  reflect.TypeFor[uint16](),
	reflect.Uint32:  reflect.TypeFor[uint32](),
	reflect.Uint64:  reflect.TypeFor[uint64](),
	reflect.Float32: reflect.TypeFor[float32](),
	reflect.Float64: reflect.TypeFor[float64](),
}

// timeLayouts are tried in order when a time.Time column holds text.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	time.DateOnly,
}

type builtinFactory struct{}

// BuiltinColumnFactory returns the factory for scalar types, sql.Scanner
// implementations, pointers to mappable types and named basic kinds.
// Registries are seeded with it at the lowest priority.
func BuiltinColumnFactory() ColumnMapperFactory {
	return builtinFactory{}
}

func (builtinFactory) Build(t reflect.Type, ctx *Context) (ColumnMapper, bool) {
	if m, ok := scalars[t]; ok {
		return m, true
	}
	if reflect.PointerTo(t).Implements(scannerType) {
		return scanner{typ: t}, true
	}
	switch {
	case t.Kind() == reflect.Pointer:
		elem, ok := ctx.FindColumnMapperFor(t.Elem())
		if !ok {
			return nil, false
		}
		return pointer{typ: t, elem: elem}, true
	case t.Kind() == reflect.Slice && t.Elem() == byteType:
		return named{typ: t, base: scalars[bytesType]}, true
	}
	if base, ok := basics[t.Kind()]; ok && base != t {
		m, ok := ctx.FindColumnMapperFor(base)
		if !ok {
			return nil, false
		}
		return named{typ: t, base: m}, true
	}
	return nil, false
}

// nullScan returns a mapper converting raw values with the database/sql
// conversion rules. NULL maps to nil.
func nullScan[T any]() ColumnMapper {
	typ := reflect.TypeFor[T]()
	return ColumnMapperFunc(func(r Row, index int, _ *Context) (any, error) {
		raw, err := r.Get(index)
		if err != nil {
			return nil, err
		}
		var n sql.Null[T]
		if err := n.Scan(raw); err != nil {
			return nil, &ConversionError{Column: index, Type: typ, Err: err}
		}
		if !n.Valid {
			return nil, nil
		}
		return n.V, nil
	})
}

func rawColumn(r Row, index int, _ *Context) (any, error) {
	raw, err := r.Get(index)
	if err != nil {
		return nil, err
	}
	if b, ok := raw.([]byte); ok {
		return append([]byte(nil), b...), nil
	}
	return raw, nil
}

func timeColumn(r Row, index int, _ *Context) (any, error) {
	raw, err := r.Get(index)
	if err != nil {
		return nil, err
	}
	var s string
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return v, nil
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return nil, &ConversionError{Column: index, Type: timeType, Err: fmt.Errorf("unsupported value of type %T", raw)}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return nil, &ConversionError{Column: index, Type: timeType, Err: fmt.Errorf("unrecognized time format %q", s)}
}

// scanner maps a column through the sql.Scanner implemented by *T.
// Scan is called for NULL too, leaving the zero value to the implementation.
type scanner struct {
	typ reflect.Type
}

func (s scanner) MapColumn(r Row, index int, _ *Context) (any, error) {
	raw, err := r.Get(index)
	if err != nil {
		return nil, err
	}
	p := reflect.New(s.typ)
	if err := p.Interface().(sql.Scanner).Scan(raw); err != nil {
		return nil, &ConversionError{Column: index, Type: s.typ, Err: err}
	}
	return p.Elem().Interface(), nil
}

// pointer maps *T through the mapper for T. NULL maps to nil.
type pointer struct {
	typ  reflect.Type
	elem ColumnMapper
}

func (p pointer) MapColumn(r Row, index int, ctx *Context) (any, error) {
	v, err := p.elem.MapColumn(r, index, ctx)
	if err != nil {
		return nil, err
	}
	if v == nil || r.WasNull() {
		return nil, nil
	}
	ptr := reflect.New(p.typ.Elem())
	if err := Assign(ptr.Elem(), v); err != nil {
		return nil, &ConversionError{Column: index, Type: p.typ, Err: err}
	}
	return ptr.Interface(), nil
}

// named maps a named type through the mapper for its underlying basic type.
type named struct {
	typ  reflect.Type
	base ColumnMapper
}

func (n named) MapColumn(r Row, index int, ctx *Context) (any, error) {
	v, err := n.base.MapColumn(r, index, ctx)
	if err != nil || v == nil {
		return nil, err
	}
	rv := reflect.ValueOf(v)
	if !rv.Type().ConvertibleTo(n.typ) {
		return nil, &ConversionError{Column: index, Type: n.typ, Err: errors.New("incompatible base mapper result")}
	}
	return rv.Convert(n.typ).Interface(), nil
}
