package pojo

import (
	"context"
	"errors"
	"reflect"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/syssam/rowmap"
)

// MaxNestingDepth bounds the chain of nested properties a mapper follows.
// Nested properties with empty prefixes on a self-referential type would
// otherwise recurse without end.
const MaxNestingDepth = 32

// Mapper maps rows onto a type described by a property table.
//
// A Mapper keeps no per-row state. Child mappers of nested properties are
// created on first use and reused by later specializations; the plan
// itself is recomputed by every Specialize call.
type Mapper struct {
	factory *Factory
	typ     reflect.Type
	prefix  string
	nested  sync.Map // *Property -> *Mapper
}

// Type returns the mapped type.
func (m *Mapper) Type() reflect.Type { return m.typ }

// Prefix returns the case-folded column prefix.
func (m *Mapper) Prefix() string { return m.prefix }

// MapRow specializes the mapper for the columns of r and maps r.
// Callers mapping many rows of one result should Specialize once instead.
func (m *Mapper) MapRow(r rowmap.Row, ctx *rowmap.Context) (any, error) {
	sm, err := m.Specialize(r, ctx)
	if err != nil {
		return nil, err
	}
	return sm.MapRow(r, ctx)
}

// Specialize computes the property to column plan for the columns of r.
// The returned mapper is valid for rows with the same columns.
func (m *Mapper) Specialize(r rowmap.Row, ctx *rowmap.Context) (rowmap.RowMapper, error) {
	start := time.Now()
	cfg := m.factory.Config()
	labels := r.Columns()
	columns := make([]string, len(labels))
	unmatched := make([]int, len(labels))
	for i, c := range labels {
		columns[i] = Fold(c)
		unmatched[i] = i
	}

	p, ok, err := m.specialize(ctx, cfg, columns, &unmatched, 0)
	switch {
	case err != nil:
	case !ok:
		err = &rowmap.NoMatchingColumnsError{Type: m.typ}
	case cfg.StrictMatching:
		var leftover []string
		for _, i := range unmatched {
			if anyColumnStartsWith(columns[i:i+1], m.prefix, cfg.Matchers) {
				leftover = append(leftover, labels[i])
			}
		}
		if len(leftover) > 0 {
			err = &rowmap.LeftoverColumnsError{Type: m.typ, Columns: leftover}
		}
	}

	logger := m.factory.loggerFor(ctx)
	if err != nil {
		logger.Warn("row mapper specialization failed", "type", m.typ.String(), "columns", len(columns), "error", err)
		rowmap.EmitSpecialized(context.Background(), m.typ.String(), len(columns), 0, time.Since(start), err)
		return nil, err
	}
	logger.Debug("row mapper specialized", "type", m.typ.String(), "columns", len(columns),
		"properties", len(p.steps), "unmatched", len(unmatched))
	rowmap.EmitSpecialized(context.Background(), m.typ.String(), len(columns), len(p.steps), time.Since(start), nil)
	return p, nil
}

// specialize computes the plan of m against columns. Matched columns are
// removed from unmatched, the indices of unclaimed columns shared with
// nested mappers. It reports false when no property matched a non-empty
// column set.
func (m *Mapper) specialize(ctx *rowmap.Context, cfg Config, columns []string, unmatched *[]int, depth int) (*plan, bool, error) {
	if depth > MaxNestingDepth {
		return nil, false, &rowmap.NestedCycleError{Type: m.typ, Depth: depth}
	}
	props, ok := m.factory.types.PropertiesOf(m.typ)
	if !ok {
		return nil, false, &rowmap.NoPropertiesError{Type: m.typ}
	}

	var steps []step
	for _, prop := range props.Properties() {
		if prop.Unmappable {
			continue
		}
		if prop.Nested {
			nestedPrefix := m.prefix + Fold(prop.Prefix)
			if !anyColumnStartsWith(columns, nestedPrefix, cfg.Matchers) {
				continue
			}
			child := m.nestedMapper(prop, nestedPrefix)
			p, ok, err := child.specialize(ctx, cfg, columns, unmatched, depth+1)
			if err != nil {
				return nil, false, err
			}
			if ok {
				steps = append(steps, step{prop: prop, mapper: p, nillable: true})
			}
			continue
		}

		expected := m.prefix + prop.ColumnName()
		index, err := findColumnIndex(prop, expected, columns, cfg.Matchers)
		if err != nil {
			return nil, false, err
		}
		if index < 0 {
			continue
		}
		cm, ok := ctx.FindColumnMapperFor(prop.Type)
		if !ok {
			if cfg.StrictColumnTypes {
				return nil, false, &rowmap.NoSuchMapperError{Type: prop.Type, Property: prop.Name, Owner: m.typ}
			}
			cm = rowmap.ColumnMapperFunc(passThrough)
		}
		steps = append(steps, step{
			prop:     prop,
			mapper:   rowmap.SingleColumn(cm, index),
			single:   true,
			nillable: rowmap.Nillable(prop.Type),
		})
		if i := slices.Index(*unmatched, index); i >= 0 {
			*unmatched = slices.Delete(*unmatched, i, i+1)
		}
	}

	if len(steps) == 0 && len(columns) > 0 {
		return nil, false, nil
	}
	sort.SliceStable(steps, func(i, j int) bool {
		return !steps[i].prop.PropagateNull && steps[j].prop.PropagateNull
	})

	marker := -1
	if name := props.NullMarker(); name != "" {
		marker = slices.Index(columns, Fold(name))
		if marker < 0 {
			return nil, false, &rowmap.MissingColumnError{Type: m.typ, Column: name}
		}
	}
	return &plan{typ: m.typ, props: props, steps: steps, marker: marker}, true, nil
}

// nestedMapper returns the child mapper of prop, creating it on first use.
// Concurrent creators may both build one; the first stored wins.
func (m *Mapper) nestedMapper(prop *Property, prefix string) *Mapper {
	if v, ok := m.nested.Load(prop); ok {
		return v.(*Mapper)
	}
	t := prop.Type
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	v, _ := m.nested.LoadOrStore(prop, &Mapper{factory: m.factory, typ: t, prefix: prefix})
	return v.(*Mapper)
}

func passThrough(r rowmap.Row, index int, _ *rowmap.Context) (any, error) {
	return r.Get(index)
}

type step struct {
	prop     *Property
	mapper   rowmap.RowMapper
	single   bool
	nillable bool
}

// plan is a mapper specialized for one column set.
type plan struct {
	typ    reflect.Type
	props  *Properties
	steps  []step
	marker int
}

func (p *plan) MapRow(r rowmap.Row, ctx *rowmap.Context) (any, error) {
	if p.marker >= 0 {
		if _, err := r.Get(p.marker); err != nil {
			return nil, &rowmap.MappingError{Type: p.typ, Err: err}
		}
		if r.WasNull() {
			return nil, nil
		}
	}
	b := p.props.NewBuilder()
	for _, s := range p.steps {
		v, err := s.mapper.MapRow(r, ctx)
		if err != nil {
			return nil, wrap(p.typ, s.prop, err)
		}
		if rowmap.IsNil(v) || (s.single && !s.nillable && r.WasNull()) {
			if s.prop.PropagateNull {
				return nil, nil
			}
			continue
		}
		if err := b.Set(s.prop, v); err != nil {
			return nil, wrap(p.typ, s.prop, err)
		}
	}
	return b.Build()
}

func wrap(t reflect.Type, prop *Property, err error) error {
	var merr *rowmap.MappingError
	if errors.As(err, &merr) {
		return err
	}
	return &rowmap.MappingError{Type: t, Property: prop.Name, Err: err}
}
