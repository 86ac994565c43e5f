package rowmap

import "fmt"

// Record is an in-memory Row over a fixed list of column names and values.
// A nil value is reported as NULL.
//
// The dialect adapters scan each record of a result into a Record, which
// is reused for the next record. A Record is not safe for concurrent use.
type Record struct {
	columns []string
	values  []any
	wasNull bool
}

// NewRecord returns a record with the given columns and values.
func NewRecord(columns []string, values ...any) *Record {
	return &Record{columns: columns, values: values}
}

// Reset replaces the values of the record, keeping its columns.
func (r *Record) Reset(values []any) {
	r.values = values
	r.wasNull = false
}

// Columns returns the column names in result order.
func (r *Record) Columns() []string {
	return r.columns
}

// Values returns the current values.
func (r *Record) Values() []any {
	return r.values
}

// Get returns the value at index.
func (r *Record) Get(index int) (any, error) {
	if index < 0 || index >= len(r.values) {
		r.wasNull = false
		return nil, fmt.Errorf("rowmap: column index %d out of range [0,%d)", index, len(r.values))
	}
	v := r.values[index]
	r.wasNull = v == nil
	return v, nil
}

// WasNull reports whether the last value returned by Get was NULL.
func (r *Record) WasNull() bool {
	return r.wasNull
}
