package pojo

import (
	"log/slog"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/syssam/rowmap"
)

// Factory is a rowmap.RowMapperFactory producing object graph mappers for
// the types its resolver knows, and for pointers to them.
type Factory struct {
	types   PropertyResolver
	config  atomic.Pointer[Config]
	logger  *slog.Logger
	mappers sync.Map // reflect.Type -> *Mapper
}

type options struct {
	config Config
	logger *slog.Logger
}

// Option configures a Factory.
type Option func(*options)

// WithStrictMatching sets Config.StrictMatching.
func WithStrictMatching(strict bool) Option {
	return func(o *options) {
		o.config.StrictMatching = strict
	}
}

// WithStrictColumnTypes sets Config.StrictColumnTypes.
func WithStrictColumnTypes(strict bool) Option {
	return func(o *options) {
		o.config.StrictColumnTypes = strict
	}
}

// WithMatchers replaces the column name matcher chain.
func WithMatchers(m ...ColumnNameMatcher) Option {
	return func(o *options) {
		o.config.Matchers = m
	}
}

// WithConfig replaces the whole configuration.
func WithConfig(cfg Config) Option {
	return func(o *options) {
		o.config = cfg
	}
}

// WithLogger sets the logger of the factory's mappers. By default mappers
// log through the logger of the mapping context.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// NewFactory returns a factory resolving properties through types.
func NewFactory(types PropertyResolver, opts ...Option) *Factory {
	o := options{config: DefaultConfig()}
	for _, opt := range opts {
		opt(&o)
	}
	f := &Factory{types: types, logger: o.logger}
	f.SetConfig(o.config)
	return f
}

// Config returns the current configuration.
func (f *Factory) Config() Config {
	return f.config.Load().clone()
}

// SetConfig replaces the configuration. Mappers pick it up on their next
// specialization.
func (f *Factory) SetConfig(cfg Config) {
	cfg = cfg.clone()
	f.config.Store(&cfg)
}

// Build returns the mapper for t when t, or the type t points to, has a
// property table.
func (f *Factory) Build(t reflect.Type, _ *rowmap.Context) (rowmap.RowMapper, bool) {
	elem := t
	if t.Kind() == reflect.Pointer {
		elem = t.Elem()
	}
	if _, ok := f.types.PropertiesOf(elem); !ok {
		return nil, false
	}
	m := f.mapperFor(elem)
	if elem != t {
		return &pointerMapper{mapper: m}, true
	}
	return m, true
}

// mapperFor returns the top-level mapper of t, so nested mapper caches
// survive registry cache clears.
func (f *Factory) mapperFor(t reflect.Type) *Mapper {
	if m, ok := f.mappers.Load(t); ok {
		return m.(*Mapper)
	}
	m, _ := f.mappers.LoadOrStore(t, f.NewMapper(t, ""))
	return m.(*Mapper)
}

// NewMapper returns a mapper of t reading the columns under prefix.
func (f *Factory) NewMapper(t reflect.Type, prefix string) *Mapper {
	return &Mapper{factory: f, typ: t, prefix: Fold(prefix)}
}

func (f *Factory) loggerFor(ctx *rowmap.Context) *slog.Logger {
	switch {
	case f.logger != nil:
		return f.logger
	case ctx != nil && ctx.Logger() != nil:
		return ctx.Logger()
	}
	return slog.Default()
}

// pointerMapper maps *T through the mapper of T.
type pointerMapper struct {
	mapper *Mapper
}

func (p *pointerMapper) MapRow(r rowmap.Row, ctx *rowmap.Context) (any, error) {
	sm, err := p.Specialize(r, ctx)
	if err != nil {
		return nil, err
	}
	return sm.MapRow(r, ctx)
}

func (p *pointerMapper) Specialize(r rowmap.Row, ctx *rowmap.Context) (rowmap.RowMapper, error) {
	sm, err := p.mapper.Specialize(r, ctx)
	if err != nil {
		return nil, err
	}
	return pointerTo{mapper: sm, typ: p.mapper.typ}, nil
}

type pointerTo struct {
	mapper rowmap.RowMapper
	typ    reflect.Type
}

func (p pointerTo) MapRow(r rowmap.Row, ctx *rowmap.Context) (any, error) {
	v, err := p.mapper.MapRow(r, ctx)
	if err != nil || v == nil {
		return nil, err
	}
	ptr := reflect.New(p.typ)
	ptr.Elem().Set(reflect.ValueOf(v))
	return ptr.Interface(), nil
}
