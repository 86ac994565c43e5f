package pojo_test

import (
	"reflect"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/rowmap"
	"github.com/syssam/rowmap/pojo"
)

type User struct {
	ID   int
	Name string
}

type Address struct {
	ID     int64
	Street string
}

func (Address) NullMarker() string { return "addr_id" }

type Person struct {
	ID      int
	Name    string
	Address *Address `nested:"addr_"`
}

type Contact struct {
	ID       int    `rowmap:"propagatenull"`
	FullName string `col:"full_name"`
	Secret   string `col:"-"`
	Cache    []byte `rowmap:"-"`
}

// Node nests itself under an empty prefix.
type Node struct {
	ID   int
	Next *Node
}

type Named struct {
	FirstName string
}

type Loose struct {
	ID    int
	Attrs map[string]any
}

type cents int64

type Price struct {
	Amount cents `rowmap:"propagatenull"`
	Label  string
}

func newRegistry(types *pojo.Types, opts ...pojo.Option) (*rowmap.Registry, *pojo.Factory) {
	reg := rowmap.NewRegistry()
	f := pojo.NewFactory(types, opts...)
	reg.AddRowMapperFactory(f)
	return reg, f
}

func structTypes() *pojo.Types {
	types := pojo.NewTypes()
	types.Register(
		pojo.Struct[User](),
		pojo.Struct[Address](),
		pojo.Struct[Person](),
		pojo.Struct[Contact](),
		pojo.Declare(
			pojo.Field("ID", func(n *Node, v int) { n.ID = v }),
			pojo.NestedField("Next", "", func(n *Node, v *Node) { n.Next = v }),
		),
		pojo.Struct[Named](),
		pojo.Struct[Loose](),
		pojo.Struct[Price](),
	)
	return types
}

func record(cols []string, values ...any) *rowmap.Record {
	return rowmap.NewRecord(cols, values...)
}

func TestBasicMapping(t *testing.T) {
	t.Parallel()

	reg, _ := newRegistry(structTypes(), pojo.WithStrictMatching(true))
	ctx := rowmap.NewContext(reg)

	got, err := rowmap.Map[User](record([]string{"id", "name"}, int64(7), "Henning"), ctx)
	require.NoError(t, err)
	assert.Equal(t, User{ID: 7, Name: "Henning"}, got)

	// Column names are matched case-insensitively.
	got, err = rowmap.Map[User](record([]string{"ID", "NAME"}, int64(8), "Jo"), ctx)
	require.NoError(t, err)
	assert.Equal(t, User{ID: 8, Name: "Jo"}, got)

	ptr, err := rowmap.Map[*User](record([]string{"id", "name"}, int64(9), "Al"), ctx)
	require.NoError(t, err)
	require.NotNil(t, ptr)
	assert.Equal(t, User{ID: 9, Name: "Al"}, *ptr)
}

func TestStrictLeftover(t *testing.T) {
	t.Parallel()

	row := record([]string{"id", "name", "extra"}, int64(1), "a", "x")

	reg, _ := newRegistry(structTypes(), pojo.WithStrictMatching(true))
	_, err := rowmap.Map[User](row, rowmap.NewContext(reg))
	require.True(t, rowmap.IsLeftoverColumns(err))
	var lerr *rowmap.LeftoverColumnsError
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, []string{"extra"}, lerr.Columns)
	assert.Equal(t, reflect.TypeFor[User](), lerr.Type)

	// Leftovers keep the labels of the result set.
	_, err = rowmap.Map[User](record([]string{"ID", "Name", "Extra"}, int64(1), "a", "x"), rowmap.NewContext(reg))
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, []string{"Extra"}, lerr.Columns)
	assert.Contains(t, err.Error(), "[Extra]")

	reg, _ = newRegistry(structTypes(), pojo.WithStrictMatching(false))
	got, err := rowmap.Map[User](row, rowmap.NewContext(reg))
	require.NoError(t, err)
	assert.Equal(t, User{ID: 1, Name: "a"}, got)
}

func TestNullMarker(t *testing.T) {
	t.Parallel()

	reg, _ := newRegistry(structTypes())
	ctx := rowmap.NewContext(reg)
	cols := []string{"id", "name", "addr_id", "addr_street"}

	got, err := rowmap.Map[Person](record(cols, int64(1), "a", nil, "Main St"), ctx)
	require.NoError(t, err)
	assert.Equal(t, Person{ID: 1, Name: "a"}, got)
	assert.Nil(t, got.Address)

	got, err = rowmap.Map[Person](record(cols, int64(1), "a", int64(5), "Main St"), ctx)
	require.NoError(t, err)
	require.NotNil(t, got.Address)
	assert.Equal(t, Address{ID: 5, Street: "Main St"}, *got.Address)
}

func TestNullMarkerMissing(t *testing.T) {
	t.Parallel()

	reg, _ := newRegistry(structTypes())
	_, err := rowmap.Map[Person](record([]string{"id", "addr_street"}, int64(1), "Main St"), rowmap.NewContext(reg))
	var merr *rowmap.MissingColumnError
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, "addr_id", merr.Column)
}

func TestPrefixScoping(t *testing.T) {
	t.Parallel()

	cols := []string{"id", "name", "street", "addr_id", "addr_street"}
	row := record(cols, int64(1), "a", "Elsewhere", int64(2), "Main St")

	reg, _ := newRegistry(structTypes())
	got, err := rowmap.Map[Person](row, rowmap.NewContext(reg))
	require.NoError(t, err)
	require.NotNil(t, got.Address)
	assert.Equal(t, "Main St", got.Address.Street)

	reg, _ = newRegistry(structTypes(), pojo.WithStrictMatching(true))
	_, err = rowmap.Map[Person](row, rowmap.NewContext(reg))
	var lerr *rowmap.LeftoverColumnsError
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, []string{"street"}, lerr.Columns)
}

func TestNestedSkippedWithoutPrefixedColumns(t *testing.T) {
	t.Parallel()

	reg, _ := newRegistry(structTypes(), pojo.WithStrictMatching(true))
	got, err := rowmap.Map[Person](record([]string{"id", "name"}, int64(3), "c"), rowmap.NewContext(reg))
	require.NoError(t, err)
	assert.Equal(t, Person{ID: 3, Name: "c"}, got)
}

func TestNoMatchingColumns(t *testing.T) {
	t.Parallel()

	reg, _ := newRegistry(structTypes())
	ctx := rowmap.NewContext(reg)

	_, err := rowmap.Map[Named](record([]string{"id", "name"}, int64(1), "a"), ctx)
	assert.True(t, rowmap.IsNoMatchingColumns(err))

	got, err := rowmap.Map[Named](record(nil), ctx)
	require.NoError(t, err)
	assert.Equal(t, Named{}, got)
}

func TestPropagateNull(t *testing.T) {
	t.Parallel()

	reg, _ := newRegistry(structTypes())
	ctx := rowmap.NewContext(reg)
	cols := []string{"id", "full_name", "secret"}

	got, err := rowmap.Map[*Contact](record(cols, nil, "Ann", "s"), ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = rowmap.Map[*Contact](record(cols, int64(4), "Ann", "s"), ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, Contact{ID: 4, FullName: "Ann"}, *got)
}

func TestPropagateNullWasNull(t *testing.T) {
	t.Parallel()

	reg, _ := newRegistry(structTypes())
	// Maps NULL to the zero value, leaving WasNull as the only signal.
	rowmap.RegisterColumn(reg, func(r rowmap.Row, i int, _ *rowmap.Context) (cents, error) {
		v, err := r.Get(i)
		if err != nil || v == nil {
			return 0, err
		}
		return cents(v.(int64)), nil
	})
	ctx := rowmap.NewContext(reg)

	got, err := rowmap.Map[*Price](record([]string{"amount", "label"}, nil, "free"), ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = rowmap.Map[*Price](record([]string{"amount", "label"}, int64(0), "free"), ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, Price{Amount: 0, Label: "free"}, *got)
}

func TestUnmappable(t *testing.T) {
	t.Parallel()

	reg, _ := newRegistry(structTypes(), pojo.WithStrictMatching(true))
	_, err := rowmap.Map[Contact](record([]string{"id", "full_name", "cache"}, int64(1), "a", []byte("x")), rowmap.NewContext(reg))
	var lerr *rowmap.LeftoverColumnsError
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, []string{"cache"}, lerr.Columns)
}

func TestAmbiguousColumn(t *testing.T) {
	t.Parallel()

	reg, _ := newRegistry(structTypes())
	_, err := rowmap.Map[Named](record([]string{"first_name", "firstname"}, "a", "b"), rowmap.NewContext(reg))
	var aerr *rowmap.AmbiguousColumnError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, "FirstName", aerr.Property)
	assert.Equal(t, []string{"first_name", "firstname"}, aerr.Columns)
	assert.ErrorIs(t, err, rowmap.ErrAmbiguousColumn)

	got, err := rowmap.Map[Named](record([]string{"first_name"}, "a"), rowmap.NewContext(reg))
	require.NoError(t, err)
	assert.Equal(t, Named{FirstName: "a"}, got)
}

func TestStrictColumnTypes(t *testing.T) {
	t.Parallel()

	row := record([]string{"id", "attrs"}, int64(1), map[string]any{"k": "v"})

	reg, _ := newRegistry(structTypes())
	_, err := rowmap.Map[Loose](row, rowmap.NewContext(reg))
	var nerr *rowmap.NoSuchMapperError
	require.ErrorAs(t, err, &nerr)
	assert.Equal(t, "Attrs", nerr.Property)
	assert.Equal(t, reflect.TypeFor[Loose](), nerr.Owner)

	reg, _ = newRegistry(structTypes(), pojo.WithStrictColumnTypes(false))
	got, err := rowmap.Map[Loose](row, rowmap.NewContext(reg))
	require.NoError(t, err)
	assert.Equal(t, Loose{ID: 1, Attrs: map[string]any{"k": "v"}}, got)
}

func TestNestedCycle(t *testing.T) {
	t.Parallel()

	reg, _ := newRegistry(structTypes())
	_, err := rowmap.Map[Node](record([]string{"id"}, int64(1)), rowmap.NewContext(reg))
	var cerr *rowmap.NestedCycleError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, pojo.MaxNestingDepth+1, cerr.Depth)
}

func TestConversionFailureIsMappingError(t *testing.T) {
	t.Parallel()

	reg, _ := newRegistry(structTypes())
	_, err := rowmap.Map[User](record([]string{"id", "name"}, "seven", "a"), rowmap.NewContext(reg))
	var merr *rowmap.MappingError
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, "ID", merr.Property)
	assert.Equal(t, reflect.TypeFor[User](), merr.Type)
}

func TestDeclaredProperties(t *testing.T) {
	t.Parallel()

	types := pojo.NewTypes()
	pojo.Register(types,
		pojo.Field("ID", func(u *User, v int) { u.ID = v }, pojo.Column("user_id")),
		pojo.Field("Name", func(u *User, v string) { u.Name = "Mx. " + v }),
	)
	reg, _ := newRegistry(types)
	got, err := rowmap.Map[User](record([]string{"user_id", "name"}, int64(2), "Lee"), rowmap.NewContext(reg))
	require.NoError(t, err)
	assert.Equal(t, User{ID: 2, Name: "Mx. Lee"}, got)
}

func TestSpecializeOnce(t *testing.T) {
	t.Parallel()

	reg, f := newRegistry(structTypes())
	ctx := rowmap.NewContext(reg)
	m := f.NewMapper(reflect.TypeFor[Person](), "")
	cols := []string{"id", "name", "addr_id", "addr_street"}

	sm, err := m.Specialize(record(cols, int64(0), "", int64(0), ""), ctx)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]any, 8)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := sm.MapRow(record(cols, int64(i), "n", int64(i), "s"), ctx)
			assert.NoError(t, err)
			results[i] = v
		}()
	}
	wg.Wait()
	for i, v := range results {
		require.IsType(t, Person{}, v)
		p := v.(Person)
		assert.Equal(t, i, p.ID)
		require.NotNil(t, p.Address)
		assert.Equal(t, int64(i), p.Address.ID)
	}
}

func TestPrefixedMapper(t *testing.T) {
	t.Parallel()

	reg, f := newRegistry(structTypes(), pojo.WithStrictMatching(true))
	m := f.NewMapper(reflect.TypeFor[User](), "U_")
	assert.Equal(t, "u_", m.Prefix())

	// Columns outside the prefix are not leftovers of this mapper.
	v, err := m.MapRow(record([]string{"u_id", "u_name", "other"}, int64(1), "a", "x"), rowmap.NewContext(reg))
	require.NoError(t, err)
	assert.Equal(t, User{ID: 1, Name: "a"}, v)
}

func TestSetConfig(t *testing.T) {
	t.Parallel()

	reg, f := newRegistry(structTypes())
	ctx := rowmap.NewContext(reg)
	row := record([]string{"id", "name", "extra"}, int64(1), "a", "x")

	_, err := rowmap.Map[User](row, ctx)
	require.NoError(t, err)

	cfg := f.Config()
	cfg.StrictMatching = true
	f.SetConfig(cfg)
	_, err = rowmap.Map[User](row, ctx)
	assert.True(t, rowmap.IsLeftoverColumns(err))
}

func TestFactoryDeclinesUnknownTypes(t *testing.T) {
	t.Parallel()

	f := pojo.NewFactory(pojo.NewTypes())
	_, ok := f.Build(reflect.TypeFor[User](), nil)
	assert.False(t, ok)

	f = pojo.NewFactory(pojo.NewTypes(pojo.WithAutoScan()))
	_, ok = f.Build(reflect.TypeFor[User](), nil)
	assert.True(t, ok)
	_, ok = f.Build(reflect.TypeFor[*User](), nil)
	assert.True(t, ok)
}
