package contract

import "reflect"

// PropertyDescriptor describes one property of an ad hoc interface.
type PropertyDescriptor struct {
	Name     string
	Type     reflect.Type
	CanRead  bool
	CanWrite bool
}

// Prop returns a read/write descriptor.
func Prop(name string, t reflect.Type) PropertyDescriptor {
	return PropertyDescriptor{Name: name, Type: t, CanRead: true, CanWrite: true}
}

// Define builds a property-only interface called name, optionally extending
// parent. Each property exposes exactly the accessors its descriptor asks for.
//
// Ad hoc interfaces carry no Go type; they are consumed through the dispatch
// API (Instance.Get and Instance.Set) rather than a facade.
func Define(name string, parent *Interface, props ...PropertyDescriptor) (*Interface, error) {
	b := NewBuilder(name)
	if parent != nil {
		b.Extends(parent)
	}
	for _, p := range props {
		b.Property(&Property{Name: p.Name, Type: p.Type, CanRead: p.CanRead, CanWrite: p.CanWrite})
	}
	return b.Build()
}
