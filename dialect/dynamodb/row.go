// Package dynamodb exposes DynamoDB items as rowmap rows.
//
// Attribute names play the role of column names. Numbers are read as
// int64 when they are integral and float64 otherwise; NULL and missing
// attributes are reported as NULL.
package dynamodb

import (
	"context"
	"fmt"
	"slices"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/syssam/rowmap"
)

// Item is a single DynamoDB item.
type Item = map[string]types.AttributeValue

// Row is a rowmap.Row over a DynamoDB item.
type Row struct {
	item    Item
	columns []string
	wasNull bool
}

// NewRow returns a row over item. The columns are the given attribute
// names, or all attribute names of the item in sorted order.
func NewRow(item Item, columns ...string) *Row {
	if len(columns) == 0 {
		columns = make([]string, 0, len(item))
		for name := range item {
			columns = append(columns, name)
		}
		slices.Sort(columns)
	}
	return &Row{item: item, columns: columns}
}

// Columns returns the attribute names of the row.
func (r *Row) Columns() []string {
	return r.columns
}

// Get unmarshals the attribute at index.
func (r *Row) Get(index int) (any, error) {
	r.wasNull = false
	if index < 0 || index >= len(r.columns) {
		return nil, fmt.Errorf("dialect/dynamodb: column index %d out of range [0,%d)", index, len(r.columns))
	}
	av, ok := r.item[r.columns[index]]
	if !ok {
		r.wasNull = true
		return nil, nil
	}
	var v any
	if err := attributevalue.UnmarshalWithOptions(av, &v, func(o *attributevalue.DecoderOptions) {
		o.UseNumber = true
	}); err != nil {
		return nil, fmt.Errorf("dialect/dynamodb: unmarshal attribute %q: %w", r.columns[index], err)
	}
	if n, ok := v.(attributevalue.Number); ok {
		if i, err := n.Int64(); err == nil {
			v = i
		} else if v, err = n.Float64(); err != nil {
			return nil, fmt.Errorf("dialect/dynamodb: attribute %q: %w", r.columns[index], err)
		}
	}
	r.wasNull = v == nil
	return v, nil
}

// WasNull reports whether the last value returned by Get was NULL or
// missing.
func (r *Row) WasNull() bool {
	return r.wasNull
}

// MapItems maps items to T with the mapper registered for T.
//
// When columns are given every item is read through the same columns and
// specializing mappers are specialized once. Otherwise each item is mapped
// against its own attributes.
func MapItems[T any](reg *rowmap.Registry, items []Item, columns ...string) ([]T, error) {
	ctx := rowmap.NewContext(reg)
	m, err := rowmap.MapperFor[T](ctx)
	if err != nil {
		return nil, err
	}
	vs := make([]T, 0, len(items))
	for i, item := range items {
		r := NewRow(item, columns...)
		if sp, ok := m.(rowmap.Specializer); ok && len(columns) > 0 && i == 0 {
			if m, err = sp.Specialize(r, ctx); err != nil {
				return nil, err
			}
		}
		v, err := m.MapRow(r, ctx)
		if err != nil {
			return nil, fmt.Errorf("dialect/dynamodb: mapping item %d: %w", i, err)
		}
		t, err := rowmap.As[T](v)
		if err != nil {
			return nil, err
		}
		vs = append(vs, t)
	}
	return vs, nil
}

// ScanAll runs a paginated Scan with input and maps every returned item
// to T.
func ScanAll[T any](ctx context.Context, reg *rowmap.Registry, client sdk.ScanAPIClient, input *sdk.ScanInput, columns ...string) ([]T, error) {
	var vs []T
	p := sdk.NewScanPaginator(client, input)
	for p.HasMorePages() {
		out, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("dialect/dynamodb: scan: %w", err)
		}
		page, err := MapItems[T](reg, out.Items, columns...)
		if err != nil {
			return nil, err
		}
		vs = append(vs, page...)
	}
	return vs, nil
}
