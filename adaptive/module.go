package adaptive

import (
	"maps"
	"slices"
	"sync"

	"github.com/sghaida/adaptive/contract"
)

// Module is the namespace synthesized types and ad hoc interfaces are defined in.
//
// Names are unique within a module: defining a name twice is an error, the
// way a runtime type system refuses a second type with the same name. The type
// cache of every factory bound to the module lives here.
type Module struct {
	name string

	mu         sync.RWMutex
	types      map[string]any
	interfaces map[string]*contract.Interface
}

var defaultModule = NewModule("adaptive")

// DefaultModule returns the module factories use unless WithModule is given.
func DefaultModule() *Module { return defaultModule }

// NewModule returns an empty module.
func NewModule(name string) *Module {
	return &Module{
		name:       name,
		types:      map[string]any{},
		interfaces: map[string]*contract.Interface{},
	}
}

// Name returns the module name.
func (m *Module) Name() string { return m.name }

// Get returns the synthesized type defined under name. The value is a *Type[T]
// for the factory's base type T; see LookupType for a typed accessor.
func (m *Module) Get(name string) (any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.types[name]
	return v, ok
}

// Names returns the defined type names in sorted order.
func (m *Module) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Sorted(maps.Keys(m.types))
}

// Len returns the number of defined types.
func (m *Module) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.types)
}

// define stores a type under name; a taken name is a DuplicateNameError.
func (m *Module) define(name string, t any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.types[name]; dup {
		return &DuplicateNameError{Module: m.name, Name: name}
	}
	m.types[name] = t
	return nil
}

// DefineInterface defines an ad hoc property-only interface in the module.
// See contract.Define.
func (m *Module) DefineInterface(name string, parent *contract.Interface, props ...contract.PropertyDescriptor) (*contract.Interface, error) {
	it, err := contract.Define(name, parent, props...)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.interfaces[name]; dup {
		return nil, &DuplicateNameError{Module: m.name, Name: name}
	}
	m.interfaces[name] = it
	return it, nil
}

// Interface returns an interface defined with DefineInterface.
func (m *Module) Interface(name string) (*contract.Interface, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	it, ok := m.interfaces[name]
	return it, ok
}

// LookupType returns the type defined under name if it was synthesized for
// base type T.
func LookupType[T any](m *Module, name string) (*Type[T], bool) {
	v, ok := m.Get(name)
	if !ok {
		return nil, false
	}
	t, ok := v.(*Type[T])
	return t, ok
}
