package rowmap

import (
	"log/slog"
	"reflect"
	"slices"
	"sync"
	"sync/atomic"
)

// Registry resolves types to row and column mappers.
//
// Factories are consulted most recently added first. Resolved mappers are
// cached per type; adding a factory clears the whole corresponding cache,
// since the new factory may claim any previously cached type. Writers
// insert and clear under one lock, but lookups never take it: a lookup
// may see the new factory before the clear happens, which at worst costs
// one extra resolution. Clone snapshots the lists and caches under the
// same lock, so a clone never holds entries resolved by factories it lacks
// beyond those of lookups already in flight.
//
// A Registry is safe for concurrent use.
type Registry struct {
	mu              sync.Mutex // serializes factory list writes
	rowFactories    atomic.Pointer[[]RowMapperFactory]
	rowCache        sync.Map // reflect.Type -> *rowEntry
	columnFactories atomic.Pointer[[]ColumnMapperFactory]
	columnCache     sync.Map // reflect.Type -> ColumnMapper
	logger          *slog.Logger
}

// rowEntry is a row cache slot. The goroutine that stored it computes the
// mapper and closes done; others wait on done.
type rowEntry struct {
	done   chan struct{}
	mapper RowMapper
	ok     bool
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the registry logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRegistry returns a registry seeded with the built-in scalar and array
// column factories at the lowest priority.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{logger: slog.Default()}
	rows := []RowMapperFactory{}
	columns := []ColumnMapperFactory{BuiltinColumnFactory(), ArrayColumnFactory()}
	r.rowFactories.Store(&rows)
	r.columnFactories.Store(&columns)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Clone returns an independent registry with a snapshot of the factory
// lists and caches. Later changes to either registry do not affect the other.
func (r *Registry) Clone() *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	rows := slices.Clone(*r.rowFactories.Load())
	columns := slices.Clone(*r.columnFactories.Load())

	c := &Registry{logger: r.logger}
	c.rowFactories.Store(&rows)
	c.columnFactories.Store(&columns)
	r.rowCache.Range(func(k, v any) bool {
		e := v.(*rowEntry)
		select {
		case <-e.done:
			if e.ok {
				c.rowCache.Store(k, e)
			}
		default:
			// Still being computed; the clone resolves it on demand.
		}
		return true
	})
	r.columnCache.Range(func(k, v any) bool {
		c.columnCache.Store(k, v)
		return true
	})
	return c
}

// AddRowMapper registers m as the row mapper for exactly t, at the highest priority.
func (r *Registry) AddRowMapper(t reflect.Type, m RowMapper) {
	r.AddRowMapperFactory(exactRowFactory{typ: t, mapper: m})
}

// AddRowMapperFactory registers f at the highest priority and clears the row cache.
func (r *Registry) AddRowMapperFactory(f RowMapperFactory) {
	r.mu.Lock()
	old := *r.rowFactories.Load()
	next := make([]RowMapperFactory, 0, len(old)+1)
	next = append(append(next, f), old...)
	r.rowFactories.Store(&next)
	r.rowCache.Clear()
	r.mu.Unlock()

	r.logger.Debug("row mapper factory registered", "factory", factoryName(f), "factories", len(next))
	emitFactoryAdded(kindRow, factoryName(f), len(next))
}

// AddColumnMapper registers m as the column mapper for exactly t, at the highest priority.
func (r *Registry) AddColumnMapper(t reflect.Type, m ColumnMapper) {
	r.AddColumnMapperFactory(exactColumnFactory{typ: t, mapper: m})
}

// AddColumnMapperFactory registers f at the highest priority and clears the column cache.
func (r *Registry) AddColumnMapperFactory(f ColumnMapperFactory) {
	r.mu.Lock()
	old := *r.columnFactories.Load()
	next := make([]ColumnMapperFactory, 0, len(old)+1)
	next = append(append(next, f), old...)
	r.columnFactories.Store(&next)
	r.columnCache.Clear()
	r.mu.Unlock()

	r.logger.Debug("column mapper factory registered", "factory", factoryName(f), "factories", len(next))
	emitFactoryAdded(kindColumn, factoryName(f), len(next))
}

// FindRowMapperFor resolves a row mapper for t. Row factories are tried
// first; failing those, a column mapper for t is wrapped to read the first
// column. Only positive results are cached.
//
// Population of the row cache is atomic per type: concurrent callers for
// the same type wait for the single resolution in flight. A row factory
// must therefore not resolve its own type through the registry.
func (r *Registry) FindRowMapperFor(t reflect.Type, ctx *Context) (RowMapper, bool) {
	if ctx == nil {
		ctx = NewContext(r)
	}
	e := &rowEntry{done: make(chan struct{})}
	if v, loaded := r.rowCache.LoadOrStore(t, e); loaded {
		cached := v.(*rowEntry)
		<-cached.done
		return cached.mapper, cached.ok
	}
	defer func() {
		if !e.ok {
			r.rowCache.CompareAndDelete(t, e)
		}
		close(e.done)
	}()
	e.mapper, e.ok = r.resolveRow(t, ctx)
	return e.mapper, e.ok
}

func (r *Registry) resolveRow(t reflect.Type, ctx *Context) (RowMapper, bool) {
	for _, f := range *r.rowFactories.Load() {
		if m, ok := f.Build(t, ctx); ok {
			return m, true
		}
	}
	if cm, ok := r.FindColumnMapperFor(t, ctx); ok {
		return SingleColumn(cm, 0), true
	}
	return nil, false
}

// FindColumnMapperFor resolves a column mapper for t.
//
// Building a mapper for one type may resolve mappers for inner types
// through the same registry (pointer targets, slice elements), so the
// cache is populated with a plain load, build, store sequence instead of
// an atomic compute-if-absent. Concurrent first lookups may both build;
// the mappers are equivalent and the last store wins.
func (r *Registry) FindColumnMapperFor(t reflect.Type, ctx *Context) (ColumnMapper, bool) {
	if v, ok := r.columnCache.Load(t); ok {
		return v.(ColumnMapper), true
	}
	if ctx == nil {
		ctx = NewContext(r)
	}
	for _, f := range *r.columnFactories.Load() {
		if m, ok := f.Build(t, ctx); ok {
			r.columnCache.Store(t, m)
			return m, true
		}
	}
	return nil, false
}

func factoryName(f any) string {
	return reflect.TypeOf(f).String()
}
