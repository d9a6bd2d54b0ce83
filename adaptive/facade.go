package adaptive

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/sghaida/adaptive/contract"
)

type facade struct {
	contract *contract.Interface
	wrap     func(Dispatcher) any
}

var facades = struct {
	sync.RWMutex
	byType map[reflect.Type]facade
}{byType: map[reflect.Type]facade{}}

// RegisterFacade registers the contract of Go interface I and a constructor
// for a typed facade forwarding I's methods to a Dispatcher. Generated code
// calls it from init.
func RegisterFacade[I any](c *contract.Interface, wrap func(Dispatcher) I) error {
	t := reflect.TypeFor[I]()
	if t.Kind() != reflect.Interface {
		return configErr(t.String(), "facade target must be an interface type")
	}
	if c == nil || wrap == nil {
		return configErr(t.String(), "facade needs a contract and a wrap function")
	}

	facades.Lock()
	defer facades.Unlock()
	if _, dup := facades.byType[t]; dup {
		return &DuplicateNameError{Module: "facades", Name: t.String()}
	}
	facades.byType[t] = facade{contract: c, wrap: func(d Dispatcher) any { return wrap(d) }}
	return nil
}

// MustRegisterFacade is RegisterFacade panicking on error.
func MustRegisterFacade[I any](c *contract.Interface, wrap func(Dispatcher) I) {
	if err := RegisterFacade(c, wrap); err != nil {
		panic(err)
	}
}

// ContractFor returns the contract registered for Go interface I.
func ContractFor[I any]() (*contract.Interface, bool) {
	facades.RLock()
	defer facades.RUnlock()
	fc, ok := facades.byType[reflect.TypeFor[I]()]
	return fc.contract, ok
}

// As returns d as an I. A d that already is an I is returned as is; otherwise
// the registered facade wraps it, provided d implements I's contract.
func As[I any](d Dispatcher) (I, error) {
	var zero I
	if v, ok := d.(I); ok {
		return v, nil
	}
	t := reflect.TypeFor[I]()

	facades.RLock()
	fc, ok := facades.byType[t]
	facades.RUnlock()
	if !ok {
		return zero, configErr(t.String(), "no facade registered")
	}
	if impl, ok := d.(interface {
		Implements(*contract.Interface) bool
	}); ok && !impl.Implements(fc.contract) {
		return zero, fmt.Errorf("%w: instance does not implement %s", ErrUnknownMember, fc.contract)
	}
	return fc.wrap(d).(I), nil
}

// CreateAs implements I's registered contract with f and returns a new
// instance through its facade.
func CreateAs[I, T any](f *Factory[T], args ...any) (I, error) {
	var zero I
	c, ok := ContractFor[I]()
	if !ok {
		return zero, configErr(reflect.TypeFor[I]().String(), "no facade registered")
	}
	in, err := f.Create(c, args...)
	if err != nil {
		return zero, err
	}
	return As[I](in)
}

// Result converts the untyped result of a dispatched call to R. Generated
// facades use it for methods with an error result.
func Result[R any](v any, err error) (R, error) {
	var zero R
	if err != nil || v == nil {
		return zero, err
	}
	r, ok := v.(R)
	if !ok {
		return zero, fmt.Errorf("%w: got %T, want %s", ErrReturnType, v, reflect.TypeFor[R]())
	}
	return r, nil
}

// MustResult is Result panicking on error, for methods without an error result.
func MustResult[R any](v any, err error) R {
	r, err := Result[R](v, err)
	if err != nil {
		panic(err)
	}
	return r
}
