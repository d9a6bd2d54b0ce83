// Package unsafeutil provides unsafe operations for reflection code paths.
package unsafeutil

import (
	"reflect"
	"unsafe"
)

// Field returns the named field of the struct v points to, readable and
// settable even when the field is unexported.
//
// SAFETY: v must be an addressable struct value or a non-nil pointer to one.
// The returned value aliases the struct's memory and must not outlive it.
func Field(v reflect.Value, name string) (reflect.Value, bool) {
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return reflect.Value{}, false
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct || !v.CanAddr() {
		return reflect.Value{}, false
	}
	f := v.FieldByName(name)
	if !f.IsValid() {
		return reflect.Value{}, false
	}
	if f.CanInterface() {
		return f, true
	}
	return reflect.NewAt(f.Type(), unsafe.Pointer(f.UnsafeAddr())).Elem(), true
}
