// Package codec provides column mappers for values stored in an encoded
// form, such as JSON documents in a text column.
//
//	reg.AddColumnMapperFactory(codec.JSON[Settings]())
//	reg.AddColumnMapperFactory(codec.Msgpack[[]Event]())
//
// Each factory matches exactly one type. A NULL column maps to nil.
package codec

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/vmihailenco/msgpack/v5"
	"go.mongodb.org/mongo-driver/bson"
	"gopkg.in/yaml.v3"

	"github.com/syssam/rowmap"
)

// Codec decodes column values.
type Codec interface {
	ContentType() string
	Unmarshal(data []byte, v any) error
}

type jsonCodec struct{}

func (jsonCodec) ContentType() string { return "application/json" }

func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

type msgpackCodec struct{}

func (msgpackCodec) ContentType() string { return "application/msgpack" }

func (msgpackCodec) Unmarshal(data []byte, v any) error { return msgpack.Unmarshal(data, v) }

type yamlCodec struct{}

func (yamlCodec) ContentType() string { return "application/yaml" }

func (yamlCodec) Unmarshal(data []byte, v any) error { return yaml.Unmarshal(data, v) }

type bsonCodec struct{}

func (bsonCodec) ContentType() string { return "application/bson" }

func (bsonCodec) Unmarshal(data []byte, v any) error { return bson.Unmarshal(data, v) }

// JSON returns a factory decoding JSON columns into T.
func JSON[T any]() rowmap.ColumnMapperFactory { return For[T](jsonCodec{}) }

// Msgpack returns a factory decoding MessagePack columns into T.
func Msgpack[T any]() rowmap.ColumnMapperFactory { return For[T](msgpackCodec{}) }

// YAML returns a factory decoding YAML columns into T.
func YAML[T any]() rowmap.ColumnMapperFactory { return For[T](yamlCodec{}) }

// BSON returns a factory decoding BSON documents into T.
func BSON[T any]() rowmap.ColumnMapperFactory { return For[T](bsonCodec{}) }

// For returns a factory decoding columns into T with c.
func For[T any](c Codec) rowmap.ColumnMapperFactory {
	return &factory[T]{typ: reflect.TypeFor[T](), codec: c}
}

type factory[T any] struct {
	typ   reflect.Type
	codec Codec
}

func (f *factory[T]) Build(t reflect.Type, _ *rowmap.Context) (rowmap.ColumnMapper, bool) {
	if t != f.typ {
		return nil, false
	}
	return f, true
}

func (f *factory[T]) MapColumn(r rowmap.Row, index int, _ *rowmap.Context) (any, error) {
	v, err := r.Get(index)
	if err != nil {
		return nil, err
	}
	var data []byte
	switch v := v.(type) {
	case nil:
		return nil, nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return nil, &rowmap.ConversionError{
			Column: index,
			Type:   f.typ,
			Err:    fmt.Errorf("cannot decode %s from %T", f.codec.ContentType(), v),
		}
	}
	var out T
	if err := f.codec.Unmarshal(data, &out); err != nil {
		return nil, &rowmap.ConversionError{Column: index, Type: f.typ, Err: err}
	}
	return out, nil
}
