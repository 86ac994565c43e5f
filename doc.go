// Package rowmap converts tabular result rows into typed Go values.
//
// A Registry resolves a reflect.Type to a RowMapper or a ColumnMapper by
// consulting ordered factory chains, most recently added first. Resolved
// mappers are cached per type and the caches are cleared whenever a factory
// is added, so a late registration can override any earlier resolution.
//
// # Rows
//
// Mappers read rows through the Row interface. Get returns the raw value of
// a column and WasNull reports whether that value was NULL, which is the
// only NULL signal for targets such as int that cannot hold nil:
//
//	type Row interface {
//	    Columns() []string
//	    Get(index int) (any, error)
//	    WasNull() bool
//	}
//
// The dialect/sql and dialect/dynamodb packages adapt database results to
// this interface; Record is an in-memory implementation.
//
// # Resolution
//
// Registries are seeded with the built-in scalar and array column
// factories. Row lookups that no row factory claims fall back to a column
// mapper for the same type reading the first column:
//
//	reg := rowmap.NewRegistry()
//	rowmap.RegisterColumn(reg, func(r rowmap.Row, i int, _ *rowmap.Context) (Money, error) {
//	    v, err := r.Get(i)
//	    ...
//	})
//
//	ctx := rowmap.NewContext(reg)
//	m, err := rowmap.Map[Money](row, ctx)
//
// Column factories may resolve inner types through the Context while they
// build (a pointer's element, a slice's element), so column cache
// population is not atomic. Row cache population is atomic per type.
//
// # Object graphs
//
// The pojo package provides a RowMapperFactory deriving struct mappers from
// property tables, with column prefixes, nested objects and null
// propagation.
package rowmap
