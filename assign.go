package rowmap

import (
	"reflect"
)

// Assign stores v into dst, which must be settable.
//
// Besides plain assignability it dereferences or allocates one level of
// pointer, and converts between numeric kinds, between named and unnamed
// types of the same kind, and between string and []byte. A nil v (or a
// nil pointer) stores the zero value.
func Assign(dst reflect.Value, v any) error {
	if v == nil {
		dst.SetZero()
		return nil
	}
	src := reflect.ValueOf(v)
	dt := dst.Type()
	if src.Type().AssignableTo(dt) {
		dst.Set(src)
		return nil
	}
	if src.Kind() == reflect.Pointer {
		if src.IsNil() {
			dst.SetZero()
			return nil
		}
		if dt.Kind() != reflect.Pointer {
			return Assign(dst, src.Elem().Interface())
		}
	}
	if dt.Kind() == reflect.Pointer {
		p := reflect.New(dt.Elem())
		if err := Assign(p.Elem(), v); err != nil {
			return err
		}
		dst.Set(p)
		return nil
	}
	if convertible(src.Type(), dt) {
		dst.Set(src.Convert(dt))
		return nil
	}
	return &UnassignableError{From: src.Type(), To: dt}
}

// convertible limits reflect conversions to the lossless-in-spirit ones;
// reflect would otherwise happily turn an int into a one-rune string.
func convertible(from, to reflect.Type) bool {
	if !from.ConvertibleTo(to) {
		return false
	}
	fk, tk := from.Kind(), to.Kind()
	switch {
	case fk == tk:
		return true
	case isNumeric(fk) && isNumeric(tk):
		return true
	case fk == reflect.String && tk == reflect.Slice, fk == reflect.Slice && tk == reflect.String:
		return isBytes(from) || isBytes(to)
	}
	return false
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func isBytes(t reflect.Type) bool {
	return t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8
}

// Nillable reports whether values of t can be nil.
func Nillable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return true
	}
	return false
}

// IsNil reports whether v is nil or a typed nil pointer.
func IsNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}
