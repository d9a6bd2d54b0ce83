package resolve

import (
	"errors"
	"reflect"
	"strings"
)

var (
	// ErrBinding is wrapped by every BindingError.
	ErrBinding = errors.New("resolve: binding failed")

	// ErrSignatureNotFound reports that no candidate matched the requested shape.
	ErrSignatureNotFound = errors.New("resolve: signature not found")

	// ErrSpecialization reports that a template could not be bound to concrete types,
	// or that the bound function is incompatible with the requested shape.
	ErrSpecialization = errors.New("resolve: specialization failed")

	// ErrIncompatibleValue reports a value that cannot be coerced to a declared type.
	ErrIncompatibleValue = errors.New("resolve: incompatible value")

	// ErrNotFunc is returned when a registered value is not a function.
	ErrNotFunc = errors.New("resolve: not a function")
)

// BindingError describes a failed lookup or specialization.
type BindingError struct {
	// Target is the type the lookup ran against.
	Target reflect.Type

	Name   string
	Return reflect.Type
	Params []reflect.Type

	// Reason is an optional detail appended to the message.
	Reason string

	// Err is ErrSignatureNotFound or ErrSpecialization.
	Err error
}

// Error implements the error interface.
func (e *BindingError) Error() string {
	// Example: resolve: signature not found: exec(*db.Command, []interface {}) on *db.Layer
	var b strings.Builder
	if e.Err != nil {
		b.WriteString(e.Err.Error())
	} else {
		b.WriteString(ErrBinding.Error())
	}
	b.WriteString(": ")
	b.WriteString(Shape(e.Name, e.Return, e.Params))
	if e.Target != nil {
		b.WriteString(" on " + e.Target.String())
	}
	if e.Reason != "" {
		b.WriteString(": " + e.Reason)
	}
	return b.String()
}

// Unwrap returns ErrBinding and the specific cause.
func (e *BindingError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrBinding}
	}
	return []error{ErrBinding, e.Err}
}

// ValueError reports a value that cannot be coerced to Want.
type ValueError struct {
	Got  reflect.Type
	Want reflect.Type
	// Lossy is set when the types convert but the value would change.
	Lossy bool
}

// Error implements the error interface.
func (e *ValueError) Error() string {
	// Example: resolve: incompatible value: string is not assignable to int
	got := "nil"
	if e.Got != nil {
		got = e.Got.String()
	}
	if e.Lossy {
		// Example: resolve: incompatible value: int does not fit in int8
		return ErrIncompatibleValue.Error() + ": " + got + " does not fit in " + e.Want.String()
	}
	return ErrIncompatibleValue.Error() + ": " + got + " is not assignable to " + e.Want.String()
}

// Unwrap returns ErrIncompatibleValue.
func (e *ValueError) Unwrap() error { return ErrIncompatibleValue }

// Shape renders a requested signature; nil slots print as "?".
func Shape(name string, ret reflect.Type, params []reflect.Type) string {
	var b strings.Builder
	b.WriteString(name)
	b.WriteByte('(')
	for i, p := range params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(typeName(p))
	}
	b.WriteByte(')')
	switch {
	case ret == nil:
	case ret == Void:
		b.WriteString(" void")
	default:
		b.WriteString(" " + typeName(ret))
	}
	return b.String()
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "?"
	}
	if i, ok := TypeArgIndex(t); ok {
		return "T" + string(rune('0'+i))
	}
	return t.String()
}
