package rowmap_test

import (
	"database/sql"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/rowmap"
)

type status string

type blob []byte

func TestBuiltinScalars(t *testing.T) {
	t.Parallel()

	reg := rowmap.NewRegistry()
	tests := []struct {
		name string
		typ  reflect.Type
		raw  any
		want any
	}{
		{"StringFromBytes", reflect.TypeFor[string](), []byte("henning"), "henning"},
		{"IntFromInt64", reflect.TypeFor[int](), int64(7), 7},
		{"Int32FromString", reflect.TypeFor[int32](), "12", int32(12)},
		{"Uint16FromInt64", reflect.TypeFor[uint16](), int64(65535), uint16(65535)},
		{"Float64FromBytes", reflect.TypeFor[float64](), []byte("2.5"), 2.5},
		{"BoolFromInt64", reflect.TypeFor[bool](), int64(1), true},
		{"BytesFromString", reflect.TypeFor[[]byte](), "raw", []byte("raw")},
		{"Any", reflect.TypeFor[any](), int64(3), int64(3)},
		{"Named", reflect.TypeFor[status](), "active", status("active")},
		{"NamedBytes", reflect.TypeFor[blob](), "xyz", blob("xyz")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, mapColumn(t, reg, tt.typ, tt.raw))
		})
	}
}

func TestBuiltinNull(t *testing.T) {
	t.Parallel()

	reg := rowmap.NewRegistry()
	for _, typ := range []reflect.Type{
		reflect.TypeFor[string](),
		reflect.TypeFor[int64](),
		reflect.TypeFor[time.Time](),
		reflect.TypeFor[*int](),
		reflect.TypeFor[status](),
		reflect.TypeFor[[]string](),
	} {
		assert.Nil(t, mapColumn(t, reg, typ, nil), typ.String())
	}
}

func TestBuiltinConversionError(t *testing.T) {
	t.Parallel()

	reg := rowmap.NewRegistry()
	m, ok := reg.FindColumnMapperFor(reflect.TypeFor[int](), nil)
	require.True(t, ok)
	_, err := m.MapColumn(rowmap.NewRecord([]string{"n"}, "seven"), 0, rowmap.NewContext(reg))
	var cerr *rowmap.ConversionError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, 0, cerr.Column)
	assert.Equal(t, reflect.TypeFor[int](), cerr.Type)
}

func TestBuiltinTime(t *testing.T) {
	t.Parallel()

	reg := rowmap.NewRegistry()
	typ := reflect.TypeFor[time.Time]()
	want := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)

	assert.Equal(t, want, mapColumn(t, reg, typ, want))
	assert.Equal(t, want, mapColumn(t, reg, typ, "2024-03-01T10:30:00Z"))
	assert.Equal(t, want, mapColumn(t, reg, typ, []byte("2024-03-01 10:30:00")))
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), mapColumn(t, reg, typ, "2024-03-01"))

	m, _ := reg.FindColumnMapperFor(typ, nil)
	_, err := m.MapColumn(rowmap.NewRecord([]string{"at"}, "yesterday"), 0, rowmap.NewContext(reg))
	assert.Error(t, err)
}

func TestBuiltinScanner(t *testing.T) {
	t.Parallel()

	reg := rowmap.NewRegistry()
	id := uuid.New()

	assert.Equal(t, id, mapColumn(t, reg, reflect.TypeFor[uuid.UUID](), id.String()))
	assert.Equal(t, uuid.Nil, mapColumn(t, reg, reflect.TypeFor[uuid.UUID](), nil))
	assert.Equal(t, sql.NullString{String: "x", Valid: true}, mapColumn(t, reg, reflect.TypeFor[sql.NullString](), "x"))
	assert.Equal(t, sql.NullInt64{}, mapColumn(t, reg, reflect.TypeFor[sql.NullInt64](), nil))

	got := mapColumn(t, reg, reflect.TypeFor[*uuid.UUID](), id.String())
	require.IsType(t, &uuid.UUID{}, got)
	assert.Equal(t, id, *got.(*uuid.UUID))
	assert.Nil(t, mapColumn(t, reg, reflect.TypeFor[*uuid.UUID](), nil))
}

func TestBuiltinPointer(t *testing.T) {
	t.Parallel()

	reg := rowmap.NewRegistry()
	got := mapColumn(t, reg, reflect.TypeFor[*int](), int64(5))
	require.IsType(t, new(int), got)
	assert.Equal(t, 5, *got.(*int))

	got = mapColumn(t, reg, reflect.TypeFor[**string](), "deep")
	require.IsType(t, new(*string), got)
	assert.Equal(t, "deep", **got.(**string))
}

func TestArrayColumns(t *testing.T) {
	t.Parallel()

	reg := rowmap.NewRegistry()
	tests := []struct {
		name string
		typ  reflect.Type
		raw  any
		want any
	}{
		{"PostgresLiteral", reflect.TypeFor[[]int64](), "{1,2,3}", []int64{1, 2, 3}},
		{"PostgresLiteralBytes", reflect.TypeFor[[]string](), []byte(`{a,"b c",NULL}`), []string{"a", "b c", ""}},
		{"PostgresNullElement", reflect.TypeFor[[]*string](), "{a,NULL}", []*string{ptr("a"), nil}},
		{"EmptyLiteral", reflect.TypeFor[[]int](), "{}", []int{}},
		{"AnySlice", reflect.TypeFor[[]float64](), []any{1.5, int64(2)}, []float64{1.5, 2}},
		{"TypedSlice", reflect.TypeFor[[]string](), []string{"x", "y"}, []string{"x", "y"}},
		{"FixedArray", reflect.TypeFor[[3]int](), []any{int64(1), int64(2)}, [3]int{1, 2, 0}},
		{"NamedElements", reflect.TypeFor[[]status](), "{on,off}", []status{"on", "off"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, mapColumn(t, reg, tt.typ, tt.raw))
		})
	}
}

func TestArrayColumnErrors(t *testing.T) {
	t.Parallel()

	reg := rowmap.NewRegistry()
	ctx := rowmap.NewContext(reg)

	m, ok := reg.FindColumnMapperFor(reflect.TypeFor[[2]int](), nil)
	require.True(t, ok)
	_, err := m.MapColumn(rowmap.NewRecord([]string{"a"}, "{1,2,3}"), 0, ctx)
	assert.ErrorContains(t, err, "do not fit")

	m, ok = reg.FindColumnMapperFor(reflect.TypeFor[[]int](), nil)
	require.True(t, ok)
	_, err = m.MapColumn(rowmap.NewRecord([]string{"a"}, int64(1)), 0, ctx)
	assert.ErrorContains(t, err, "unsupported array value")

	_, ok = reg.FindColumnMapperFor(reflect.TypeFor[[]chan int](), nil)
	assert.False(t, ok)
}

func ptr[T any](v T) *T { return &v }
