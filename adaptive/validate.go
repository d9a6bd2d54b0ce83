package adaptive

import (
	"fmt"
	"reflect"

	"github.com/sghaida/adaptive/contract"
)

// ValidateVoidReturn rejects methods that return a value.
func ValidateVoidReturn() func(*contract.Method) error {
	return func(m *contract.Method) error {
		if m.Return != nil {
			return fmt.Errorf("returns %s, want nothing", m.Return)
		}
		return nil
	}
}

// ValidateReturn rejects methods whose result cannot be produced as a t.
func ValidateReturn(t reflect.Type) func(*contract.Method) error {
	return func(m *contract.Method) error {
		if m.Return == nil || !t.AssignableTo(m.Return) {
			return fmt.Errorf("returns %v, want %s", m.Return, t)
		}
		return nil
	}
}

// ValidateParams rejects methods whose parameters are not exactly types.
// A nil entry accepts any parameter type at that position.
func ValidateParams(types ...reflect.Type) func(*contract.Method) error {
	return func(m *contract.Method) error {
		if len(m.Params) != len(types) {
			return fmt.Errorf("takes %d parameters, want %d", len(m.Params), len(types))
		}
		for i, want := range types {
			if want != nil && m.Params[i].Type != want {
				return fmt.Errorf("parameter %q is %s, want %s", m.Params[i].Name, m.Params[i].Type, want)
			}
		}
		return nil
	}
}
