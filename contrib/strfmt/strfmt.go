// Package strfmt maps columns to the formatted string types of
// github.com/go-openapi/strfmt. Values are validated against their format
// before they are parsed.
package strfmt

import (
	"fmt"
	"reflect"
	"time"

	"github.com/go-openapi/strfmt"

	"github.com/syssam/rowmap"
)

var formats = map[reflect.Type]string{
	reflect.TypeFor[strfmt.DateTime](): "datetime",
	reflect.TypeFor[strfmt.Date]():     "date",
	reflect.TypeFor[strfmt.UUID]():     "uuid",
	reflect.TypeFor[strfmt.Email]():    "email",
	reflect.TypeFor[strfmt.Hostname](): "hostname",
	reflect.TypeFor[strfmt.URI]():      "uri",
}

// Factory returns a column mapper factory for the strfmt types DateTime,
// Date, UUID, Email, Hostname and URI, using strfmt.Default.
func Factory() rowmap.ColumnMapperFactory {
	return FactoryOf(strfmt.Default)
}

// FactoryOf is like Factory, but validates and parses with reg.
func FactoryOf(reg strfmt.Registry) rowmap.ColumnMapperFactory {
	return rowmap.ColumnMapperFactoryFunc(func(t reflect.Type, _ *rowmap.Context) (rowmap.ColumnMapper, bool) {
		name, ok := formats[t]
		if !ok || !reg.ContainsName(name) {
			return nil, false
		}
		return &mapper{typ: t, name: name, reg: reg}, true
	})
}

type mapper struct {
	typ  reflect.Type
	name string
	reg  strfmt.Registry
}

func (m *mapper) MapColumn(r rowmap.Row, index int, _ *rowmap.Context) (any, error) {
	v, err := r.Get(index)
	if err != nil {
		return nil, err
	}
	var s string
	switch v := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		switch m.name {
		case "datetime":
			return strfmt.DateTime(v), nil
		case "date":
			return strfmt.Date(v), nil
		}
		return nil, m.errorf(index, "cannot convert time.Time to %s", m.name)
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return nil, m.errorf(index, "cannot convert %T to %s", v, m.name)
	}
	if !m.reg.Validates(m.name, s) {
		return nil, m.errorf(index, "invalid %s %q", m.name, s)
	}
	out, err := m.reg.Parse(m.name, s)
	if err != nil {
		return nil, &rowmap.ConversionError{Column: index, Type: m.typ, Err: err}
	}
	return out, nil
}

func (m *mapper) errorf(index int, format string, args ...any) error {
	return &rowmap.ConversionError{Column: index, Type: m.typ, Err: fmt.Errorf(format, args...)}
}
