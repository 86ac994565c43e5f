package rowmap

import (
	"database/sql"
	"fmt"
	"reflect"

	"github.com/lib/pq"
)

type arrayFactory struct{}

// ArrayColumnFactory returns the factory for slice and array types other
// than byte slices. Elements are mapped with the column mapper resolved for
// the element type. Column values may be []any, any other slice, or a
// Postgres array literal such as {1,2,NULL}.
func ArrayColumnFactory() ColumnMapperFactory {
	return arrayFactory{}
}

func (arrayFactory) Build(t reflect.Type, ctx *Context) (ColumnMapper, bool) {
	if t.Kind() != reflect.Slice && t.Kind() != reflect.Array {
		return nil, false
	}
	if t.Elem() == byteType {
		return nil, false
	}
	elem, ok := ctx.FindColumnMapperFor(t.Elem())
	if !ok {
		return nil, false
	}
	return &array{typ: t, elem: elem}, true
}

type array struct {
	typ  reflect.Type
	elem ColumnMapper
}

func (a *array) MapColumn(r Row, index int, ctx *Context) (any, error) {
	raw, err := r.Get(index)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	items, err := elements(raw)
	if err != nil {
		return nil, &ConversionError{Column: index, Type: a.typ, Err: err}
	}
	var out reflect.Value
	if a.typ.Kind() == reflect.Array {
		if len(items) > a.typ.Len() {
			return nil, &ConversionError{Column: index, Type: a.typ,
				Err: fmt.Errorf("%d elements do not fit in array of length %d", len(items), a.typ.Len())}
		}
		out = reflect.New(a.typ).Elem()
	} else {
		out = reflect.MakeSlice(a.typ, len(items), len(items))
	}
	row := &elementRow{}
	for i, item := range items {
		row.value = item
		v, err := a.elem.MapColumn(row, 0, ctx)
		if err != nil {
			return nil, &ConversionError{Column: index, Type: a.typ, Err: fmt.Errorf("element %d: %w", i, err)}
		}
		if err := Assign(out.Index(i), v); err != nil {
			return nil, &ConversionError{Column: index, Type: a.typ, Err: fmt.Errorf("element %d: %w", i, err)}
		}
	}
	return out.Interface(), nil
}

func elements(raw any) ([]any, error) {
	switch v := raw.(type) {
	case []any:
		return v, nil
	case string:
		return parseArray([]byte(v))
	case []byte:
		return parseArray(v)
	}
	rv := reflect.ValueOf(raw)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("unsupported array value of type %T", raw)
	}
	items := make([]any, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	return items, nil
}

// parseArray parses a one-dimensional Postgres array literal. NULL
// elements become nil, all others their text form.
func parseArray(src []byte) ([]any, error) {
	var ns []sql.NullString
	if err := (pq.GenericArray{A: &ns}).Scan(src); err != nil {
		return nil, err
	}
	items := make([]any, len(ns))
	for i, n := range ns {
		if n.Valid {
			items[i] = n.String
		}
	}
	return items, nil
}

// elementRow presents one array element as a single-column row.
type elementRow struct {
	value any
}

func (e *elementRow) Columns() []string { return []string{"element"} }
func (e *elementRow) Get(int) (any, error) { return e.value, nil }
func (e *elementRow) WasNull() bool { return e.value == nil }
