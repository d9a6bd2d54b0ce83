package resolve

import (
	"math"
	"reflect"
)

// Coerce converts v to a value of type t.
//
// A nil v becomes the zero value of t. Assignable values are stored as t, so
// interface-typed results keep their static type. Numeric values convert to
// other numeric kinds only when the value survives the conversion unchanged:
// no overflow, no sign change and no lost fraction. Values convert between
// named types of the same kind. Anything else is a ValueError.
func Coerce(v any, t reflect.Type) (reflect.Value, error) {
	if t == nil {
		return reflect.ValueOf(v), nil
	}
	if v == nil {
		return reflect.Zero(t), nil
	}
	rv := reflect.ValueOf(v)
	if rv.Type() == t {
		return rv, nil
	}
	if rv.Type().AssignableTo(t) {
		out := reflect.New(t).Elem()
		out.Set(rv)
		return out, nil
	}
	if convertible(rv.Type(), t) {
		out := rv.Convert(t)
		if isNumeric(rv.Kind()) && !lossless(rv, out) {
			return reflect.Value{}, &ValueError{Got: rv.Type(), Want: t, Lossy: true}
		}
		return out, nil
	}
	return reflect.Value{}, &ValueError{Got: rv.Type(), Want: t}
}

// CoerceTo is Coerce for callers that want the converted value boxed again.
func CoerceTo(v any, t reflect.Type) (any, error) {
	rv, err := Coerce(v, t)
	if err != nil {
		return nil, err
	}
	if !rv.IsValid() {
		return nil, nil
	}
	return rv.Interface(), nil
}

// Assignable reports whether v can be passed as a t without conversion.
// nil fits every type that has a nil value.
func Assignable(v any, t reflect.Type) bool {
	if v == nil {
		switch t.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Slice, reflect.Map,
			reflect.Chan, reflect.Func, reflect.UnsafePointer:
			return true
		}
		return false
	}
	return reflect.TypeOf(v).AssignableTo(t)
}

func convertible(from, to reflect.Type) bool {
	if !from.ConvertibleTo(to) {
		return false
	}
	if isNumeric(from.Kind()) && isNumeric(to.Kind()) {
		return true
	}
	// int to string is convertible in Go but yields a rune, never wanted here.
	return from.Kind() == to.Kind()
}

// lossless reports whether out, converted from in, holds the same number.
func lossless(in, out reflect.Value) bool {
	if negative(in) != negative(out) {
		return false
	}
	if isFloat(in.Kind()) && math.IsNaN(in.Float()) {
		return isFloat(out.Kind())
	}
	return out.Convert(in.Type()).Equal(in)
}

func negative(v reflect.Value) bool {
	switch {
	case v.CanInt():
		return v.Int() < 0
	case v.CanFloat():
		return v.Float() < 0
	}
	return false
}

func isFloat(k reflect.Kind) bool {
	return k == reflect.Float32 || k == reflect.Float64
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}
