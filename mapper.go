package rowmap

import (
	"log/slog"
	"reflect"
)

// Row is the accessor over the current record of a tabular result.
//
// WasNull reports whether the value returned by the most recent Get was
// SQL NULL. It is the only reliable null signal for targets that have no
// nil value, such as int or string.
type Row interface {
	Columns() []string
	Get(index int) (any, error)
	WasNull() bool
}

type (
	// ColumnMapper converts the value of one column into a typed value.
	// Mappers return untyped nil for NULL when the target can hold nil.
	ColumnMapper interface {
		MapColumn(r Row, index int, ctx *Context) (any, error)
	}

	// RowMapper converts a full row into a typed value.
	RowMapper interface {
		MapRow(r Row, ctx *Context) (any, error)
	}

	// Specializer is implemented by row mappers that can precompute a
	// plan for the column shape of a result. The returned mapper is only
	// valid for rows with the same columns.
	Specializer interface {
		RowMapper
		Specialize(r Row, ctx *Context) (RowMapper, error)
	}

	// ColumnMapperFactory produces a column mapper for a type, or declines.
	ColumnMapperFactory interface {
		Build(t reflect.Type, ctx *Context) (ColumnMapper, bool)
	}

	// RowMapperFactory produces a row mapper for a type, or declines.
	RowMapperFactory interface {
		Build(t reflect.Type, ctx *Context) (RowMapper, bool)
	}
)

// ColumnMapperFunc type is an adapter to allow the use of ordinary
// functions as column mappers.
type ColumnMapperFunc func(r Row, index int, ctx *Context) (any, error)

// MapColumn returns f(r, index, ctx).
func (f ColumnMapperFunc) MapColumn(r Row, index int, ctx *Context) (any, error) {
	return f(r, index, ctx)
}

// RowMapperFunc type is an adapter to allow the use of ordinary
// functions as row mappers.
type RowMapperFunc func(r Row, ctx *Context) (any, error)

// MapRow returns f(r, ctx).
func (f RowMapperFunc) MapRow(r Row, ctx *Context) (any, error) {
	return f(r, ctx)
}

// ColumnMapperFactoryFunc type is an adapter to allow the use of ordinary
// functions as column mapper factories.
type ColumnMapperFactoryFunc func(t reflect.Type, ctx *Context) (ColumnMapper, bool)

// Build returns f(t, ctx).
func (f ColumnMapperFactoryFunc) Build(t reflect.Type, ctx *Context) (ColumnMapper, bool) {
	return f(t, ctx)
}

// RowMapperFactoryFunc type is an adapter to allow the use of ordinary
// functions as row mapper factories.
type RowMapperFactoryFunc func(t reflect.Type, ctx *Context) (RowMapper, bool)

// Build returns f(t, ctx).
func (f RowMapperFactoryFunc) Build(t reflect.Type, ctx *Context) (RowMapper, bool) {
	return f(t, ctx)
}

// singleColumn adapts a column mapper to a row mapper reading one column.
type singleColumn struct {
	mapper ColumnMapper
	index  int
}

// SingleColumn returns a row mapper that maps the column at index with m.
func SingleColumn(m ColumnMapper, index int) RowMapper {
	return singleColumn{mapper: m, index: index}
}

// MapRow maps the wrapped column.
func (s singleColumn) MapRow(r Row, ctx *Context) (any, error) {
	return s.mapper.MapColumn(r, s.index, ctx)
}

// exactColumnFactory matches a single type with a fixed mapper.
type exactColumnFactory struct {
	typ    reflect.Type
	mapper ColumnMapper
}

func (f exactColumnFactory) Build(t reflect.Type, _ *Context) (ColumnMapper, bool) {
	if t == f.typ {
		return f.mapper, true
	}
	return nil, false
}

// exactRowFactory matches a single type with a fixed mapper.
type exactRowFactory struct {
	typ    reflect.Type
	mapper RowMapper
}

func (f exactRowFactory) Build(t reflect.Type, _ *Context) (RowMapper, bool) {
	if t == f.typ {
		return f.mapper, true
	}
	return nil, false
}

// RegisterColumn registers a typed column mapping function for T.
func RegisterColumn[T any](r *Registry, fn func(r Row, index int, ctx *Context) (T, error)) {
	r.AddColumnMapper(reflect.TypeFor[T](), ColumnMapperFunc(func(row Row, index int, ctx *Context) (any, error) {
		v, err := fn(row, index, ctx)
		if err != nil {
			return nil, err
		}
		return v, nil
	}))
}

// RegisterRow registers a typed row mapping function for T.
func RegisterRow[T any](r *Registry, fn func(r Row, ctx *Context) (T, error)) {
	r.AddRowMapper(reflect.TypeFor[T](), RowMapperFunc(func(row Row, ctx *Context) (any, error) {
		v, err := fn(row, ctx)
		if err != nil {
			return nil, err
		}
		return v, nil
	}))
}

// Context carries the registry and logger used while mapping a result.
// Mappers and factories use it to resolve mappers for inner types.
type Context struct {
	registry *Registry
	logger   *slog.Logger
}

// ContextOption configures a Context.
type ContextOption func(*Context)

// WithContextLogger sets the logger used by mappers running under the context.
func WithContextLogger(l *slog.Logger) ContextOption {
	return func(c *Context) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewContext returns a mapping context bound to r.
func NewContext(r *Registry, opts ...ContextOption) *Context {
	c := &Context{registry: r, logger: r.logger}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Registry returns the registry the context resolves mappers from.
func (c *Context) Registry() *Registry { return c.registry }

// Logger returns the context logger.
func (c *Context) Logger() *slog.Logger { return c.logger }

// FindColumnMapperFor resolves a column mapper for t through the registry.
func (c *Context) FindColumnMapperFor(t reflect.Type) (ColumnMapper, bool) {
	return c.registry.FindColumnMapperFor(t, c)
}

// FindRowMapperFor resolves a row mapper for t through the registry.
func (c *Context) FindRowMapperFor(t reflect.Type) (RowMapper, bool) {
	return c.registry.FindRowMapperFor(t, c)
}

// MapperFor returns the row mapper registered for T.
func MapperFor[T any](ctx *Context) (RowMapper, error) {
	t := reflect.TypeFor[T]()
	m, ok := ctx.FindRowMapperFor(t)
	if !ok {
		return nil, &NoSuchMapperError{Type: t}
	}
	return m, nil
}

// Map maps a single row to T using the mapper registered for T.
func Map[T any](r Row, ctx *Context) (T, error) {
	m, err := MapperFor[T](ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	v, err := m.MapRow(r, ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	return As[T](v)
}

// As converts a mapped value to T. A nil value yields the zero T.
func As[T any](v any) (T, error) {
	var out T
	if v == nil {
		return out, nil
	}
	if t, ok := v.(T); ok {
		return t, nil
	}
	if err := Assign(reflect.ValueOf(&out).Elem(), v); err != nil {
		return out, err
	}
	return out, nil
}
