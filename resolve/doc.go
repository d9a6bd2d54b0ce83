// Package resolve finds functions by name and shape on a target type.
//
// A Set holds the candidates for one target: its exported methods, registered
// static functions taking the target as first argument, free functions such as
// constructors, and generic templates. Lookups match arity and parameter and
// result types, where a requested parameter type must be assignable to the
// declared one and a declared result must be assignable to the requested one.
// The first compatible candidate wins.
//
// Unexported methods are invisible to reflection; register them as statics.
package resolve
