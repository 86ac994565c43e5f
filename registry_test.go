package rowmap_test

import (
	"bytes"
	"log/slog"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/rowmap"
)

type money int64

func constColumn(v any) rowmap.ColumnMapper {
	return rowmap.ColumnMapperFunc(func(rowmap.Row, int, *rowmap.Context) (any, error) {
		return v, nil
	})
}

func constRow(v any) rowmap.RowMapper {
	return rowmap.RowMapperFunc(func(rowmap.Row, *rowmap.Context) (any, error) {
		return v, nil
	})
}

func mapColumn(t *testing.T, reg *rowmap.Registry, typ reflect.Type, values ...any) any {
	t.Helper()
	m, ok := reg.FindColumnMapperFor(typ, nil)
	require.True(t, ok, "no column mapper for %s", typ)
	cols := make([]string, len(values))
	for i := range cols {
		cols[i] = "c"
	}
	v, err := m.MapColumn(rowmap.NewRecord(cols, values...), 0, rowmap.NewContext(reg))
	require.NoError(t, err)
	return v
}

func mapRow(t *testing.T, reg *rowmap.Registry, typ reflect.Type, r rowmap.Row) any {
	t.Helper()
	m, ok := reg.FindRowMapperFor(typ, nil)
	require.True(t, ok, "no row mapper for %s", typ)
	v, err := m.MapRow(r, rowmap.NewContext(reg))
	require.NoError(t, err)
	return v
}

func TestRegistryPriority(t *testing.T) {
	t.Parallel()

	typ := reflect.TypeFor[money]()

	t.Run("Column", func(t *testing.T) {
		t.Parallel()
		reg := rowmap.NewRegistry()
		reg.AddColumnMapper(typ, constColumn(money(1)))
		reg.AddColumnMapper(typ, constColumn(money(2)))
		assert.Equal(t, money(2), mapColumn(t, reg, typ, int64(0)))
	})

	t.Run("Row", func(t *testing.T) {
		t.Parallel()
		reg := rowmap.NewRegistry()
		reg.AddRowMapper(typ, constRow(money(1)))
		reg.AddRowMapper(typ, constRow(money(2)))
		assert.Equal(t, money(2), mapRow(t, reg, typ, rowmap.NewRecord(nil)))
	})

	t.Run("UserFactoryOverridesBuiltin", func(t *testing.T) {
		t.Parallel()
		reg := rowmap.NewRegistry()
		assert.Equal(t, "x", mapColumn(t, reg, reflect.TypeFor[string](), "x"))
		reg.AddColumnMapper(reflect.TypeFor[string](), constColumn("override"))
		assert.Equal(t, "override", mapColumn(t, reg, reflect.TypeFor[string](), "x"))
	})
}

func TestRegistryCacheInvalidation(t *testing.T) {
	t.Parallel()

	typ := reflect.TypeFor[money]()
	reg := rowmap.NewRegistry()
	reg.AddRowMapper(typ, constRow(money(1)))
	assert.Equal(t, money(1), mapRow(t, reg, typ, rowmap.NewRecord(nil)))
	assert.Equal(t, money(1), mapRow(t, reg, typ, rowmap.NewRecord(nil)))

	reg.AddRowMapperFactory(rowmap.RowMapperFactoryFunc(func(t reflect.Type, _ *rowmap.Context) (rowmap.RowMapper, bool) {
		if t.Kind() != reflect.Int64 {
			return nil, false
		}
		return constRow(money(3)), true
	}))
	assert.Equal(t, money(3), mapRow(t, reg, typ, rowmap.NewRecord(nil)))

	// The column side is cleared independently.
	assert.Equal(t, money(9), mapColumn(t, reg, typ, int64(9)))
	reg.AddColumnMapper(typ, constColumn(money(4)))
	assert.Equal(t, money(4), mapColumn(t, reg, typ, int64(9)))
}

func TestRegistryRowFallsBackToColumn(t *testing.T) {
	t.Parallel()

	reg := rowmap.NewRegistry()
	r := rowmap.NewRecord([]string{"count", "ignored"}, int64(42), "x")
	assert.Equal(t, int64(42), mapRow(t, reg, reflect.TypeFor[int64](), r))

	_, ok := reg.FindRowMapperFor(reflect.TypeFor[chan int](), nil)
	assert.False(t, ok)
}

func TestRegistryNegativeResultsNotCached(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	reg := rowmap.NewRegistry()
	reg.AddRowMapperFactory(rowmap.RowMapperFactoryFunc(func(reflect.Type, *rowmap.Context) (rowmap.RowMapper, bool) {
		calls.Add(1)
		return nil, false
	}))
	typ := reflect.TypeFor[chan int]()
	for range 3 {
		_, ok := reg.FindRowMapperFor(typ, nil)
		assert.False(t, ok)
	}
	assert.EqualValues(t, 3, calls.Load())
}

func TestRegistryRowCacheSingleComputation(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	release := make(chan struct{})
	typ := reflect.TypeFor[money]()
	reg := rowmap.NewRegistry()
	reg.AddRowMapperFactory(rowmap.RowMapperFactoryFunc(func(t reflect.Type, _ *rowmap.Context) (rowmap.RowMapper, bool) {
		if t != typ {
			return nil, false
		}
		calls.Add(1)
		<-release
		return constRow(money(5)), true
	}))

	var wg sync.WaitGroup
	results := make([]bool, 16)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, results[i] = reg.FindRowMapperFor(typ, nil)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, calls.Load())
	for _, ok := range results {
		assert.True(t, ok)
	}
}

func TestRegistryColumnIdempotence(t *testing.T) {
	t.Parallel()

	reg := rowmap.NewRegistry()
	typ := reflect.TypeFor[[]int]()
	var wg sync.WaitGroup
	mappers := make([]rowmap.ColumnMapper, 16)
	for i := range mappers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			mappers[i], _ = reg.FindColumnMapperFor(typ, nil)
		}()
	}
	wg.Wait()

	ctx := rowmap.NewContext(reg)
	for _, m := range mappers {
		require.NotNil(t, m)
		v, err := m.MapColumn(rowmap.NewRecord([]string{"ids"}, "{1,2,3}"), 0, ctx)
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2, 3}, v)
	}
}

func TestRegistryReentrantResolution(t *testing.T) {
	t.Parallel()

	reg := rowmap.NewRegistry()
	rowmap.RegisterColumn(reg, func(r rowmap.Row, i int, _ *rowmap.Context) (money, error) {
		v, err := r.Get(i)
		if err != nil || v == nil {
			return 0, err
		}
		return money(v.(int64) * 100), nil
	})

	got := mapColumn(t, reg, reflect.TypeFor[[]*money](), []any{int64(1), nil, int64(3)})
	require.IsType(t, []*money{}, got)
	vals := got.([]*money)
	require.Len(t, vals, 3)
	assert.Equal(t, money(100), *vals[0])
	assert.Nil(t, vals[1])
	assert.Equal(t, money(300), *vals[2])
}

func TestRegistryClone(t *testing.T) {
	t.Parallel()

	typ := reflect.TypeFor[money]()
	src := rowmap.NewRegistry()
	src.AddColumnMapper(typ, constColumn(money(1)))
	assert.Equal(t, money(1), mapColumn(t, src, typ, int64(0)))

	clone := src.Clone()
	assert.Equal(t, money(1), mapColumn(t, clone, typ, int64(0)))

	clone.AddColumnMapper(typ, constColumn(money(2)))
	assert.Equal(t, money(2), mapColumn(t, clone, typ, int64(0)))
	assert.Equal(t, money(1), mapColumn(t, src, typ, int64(0)))

	src.AddRowMapper(typ, constRow(money(3)))
	assert.Equal(t, money(3), mapRow(t, src, typ, rowmap.NewRecord(nil)))
	assert.Equal(t, money(2), mapRow(t, clone, typ, rowmap.NewRecord([]string{"c"}, int64(0))))
}

func TestRegistryCloneDuringRegistration(t *testing.T) {
	t.Parallel()

	typ := reflect.TypeFor[money]()
	src := rowmap.NewRegistry(rowmap.WithLogger(slog.New(slog.DiscardHandler)))
	src.AddColumnMapper(typ, constColumn(money(0)))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 1; i <= 200; i++ {
			src.AddColumnMapper(typ, constColumn(money(i)))
			src.FindColumnMapperFor(typ, nil)
		}
	}()

	declines := rowmap.ColumnMapperFactoryFunc(func(reflect.Type, *rowmap.Context) (rowmap.ColumnMapper, bool) {
		return nil, false
	})
	for range 200 {
		clone := src.Clone()
		cached := mapColumn(t, clone, typ, int64(0))
		// Clearing the clone's cache resolves again from its own factories.
		clone.AddColumnMapperFactory(declines)
		assert.Equal(t, cached, mapColumn(t, clone, typ, int64(0)))
	}
	wg.Wait()
}

func TestRegistryLogsRegistration(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	reg := rowmap.NewRegistry(rowmap.WithLogger(logger))
	reg.AddColumnMapper(reflect.TypeFor[money](), constColumn(money(0)))
	assert.True(t, strings.Contains(buf.String(), "column mapper factory registered"))
	assert.Same(t, logger, rowmap.NewContext(reg).Logger())
}
