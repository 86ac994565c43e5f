package sql

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/syssam/rowmap"
	"github.com/syssam/rowmap/dialect"
)

// All runs the query on q and maps every returned row to T.
func All[T any](ctx context.Context, s *Scanner, q dialect.ExecQuerier, query string, args ...any) ([]T, error) {
	if args == nil {
		args = []any{}
	}
	rows := &Rows{}
	if err := q.Query(ctx, query, args, rows); err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAll[T](ctx, s, rows)
}

// One runs the query on q and maps its first row to T. It returns ErrNoRows
// if the query returned no rows.
func One[T any](ctx context.Context, s *Scanner, q dialect.ExecQuerier, query string, args ...any) (T, error) {
	var zero T
	vs, err := All[T](ctx, s, q, query, args...)
	if err != nil {
		return zero, err
	}
	if len(vs) == 0 {
		return zero, ErrNoRows
	}
	return vs[0], nil
}

// ScanAll maps all remaining rows of rows to T. Mappers implementing
// rowmap.Specializer are specialized once against the first row and the
// plan is reused for the rest of the result.
func ScanAll[T any](s *Scanner, rows *Rows) ([]T, error) {
	return scanAll[T](context.Background(), s, rows)
}

func scanAll[T any](ctx context.Context, s *Scanner, rows *Rows) (vs []T, err error) {
	var (
		typ         = reflect.TypeFor[T]()
		start       = time.Now()
		specialized bool
	)
	defer func() {
		s.record(ctx, typ, len(vs), specialized, start, err)
	}()
	mctx := rowmap.NewContext(s.registry)
	m, err := rowmap.MapperFor[T](mctx)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		r := rows.Row()
		if sp, ok := m.(rowmap.Specializer); ok && !specialized {
			if m, err = sp.Specialize(r, mctx); err != nil {
				return nil, err
			}
			specialized = true
		}
		v, err := m.MapRow(r, mctx)
		if err != nil {
			return nil, fmt.Errorf("dialect/sql: mapping row %d: %w", len(vs), err)
		}
		t, err := rowmap.As[T](v)
		if err != nil {
			return nil, err
		}
		vs = append(vs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return vs, nil
}

// IsNoRows reports whether err is ErrNoRows.
func IsNoRows(err error) bool {
	return errors.Is(err, ErrNoRows)
}
