// Package pojo maps rows onto structs described by property tables.
//
// A property table lists the settable properties of a type together with
// their mapping metadata. Tables are declared explicitly, scanned from
// struct tags, or generated by rowmapgen:
//
//	type Address struct {
//	    ID     int64
//	    Street string
//	}
//
//	func (Address) NullMarker() string { return "addr_id" }
//
//	type User struct {
//	    ID      int64
//	    Name    string   `col:"full_name"`
//	    Address *Address `nested:"addr_"`
//	    Cache   []byte   `col:"-"`
//	}
//
//	types := pojo.NewTypes()
//	types.Register(pojo.Struct[User](), pojo.Struct[Address]())
//
//	reg := rowmap.NewRegistry()
//	reg.AddRowMapperFactory(pojo.NewFactory(types, pojo.WithStrictMatching(true)))
//
// # Specialization
//
// A Mapper matches properties to the columns of a result through a chain
// of column name matchers. Nested properties read the columns starting
// with their prefix; when no column does, the property is left unset. A
// NULL null marker column, or a NULL value of a propagate-null property,
// makes the whole object nil.
//
// Specialize computes the plan for one column set. MapRow specializes on
// every call, so callers mapping many rows should specialize once; the
// dialect/sql helpers do.
package pojo
