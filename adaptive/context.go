package adaptive

import (
	"reflect"

	"github.com/sghaida/adaptive/contract"
	"github.com/sghaida/adaptive/resolve"
)

// buildContext is the part of a member context shared by all member kinds.
// It lives for one member of one synthesis pass.
type buildContext[T any] struct {
	typ      *Type[T]
	resolver *resolve.Set
}

// TypeName returns the name of the type being synthesized.
func (c *buildContext[T]) TypeName() string { return c.typ.name }

// Base returns the base struct type.
func (c *buildContext[T]) Base() reflect.Type { return c.typ.base }

// Resolver returns the candidate set of the base type.
func (c *buildContext[T]) Resolver() *resolve.Set { return c.resolver }

// Slot allocates a per-instance state slot and returns its index.
func (c *buildContext[T]) Slot() int {
	i := c.typ.slots
	c.typ.slots++
	return i
}

// Static registers a type-level initializer. It runs once when synthesis
// completes; its value is read back with Type.Static on the returned index.
func (c *buildContext[T]) Static(init func() (any, error)) int {
	c.typ.staticInits = append(c.typ.staticInits, init)
	return len(c.typ.staticInits) - 1
}

// OnInit appends fn to the per-instance initializer. Initializers run in
// registration order after the base constructor.
func (c *buildContext[T]) OnInit(fn func(*Instance[T]) error) {
	c.typ.inits = append(c.typ.inits, fn)
}

// bind finds a named handler function on the base type: an instance method or
// a registered static, specialized to the requested shape.
func (c *buildContext[T]) bind(name string, ret reflect.Type, params ...reflect.Type) (*resolve.Func, error) {
	for _, f := range c.resolver.Candidates(name) {
		if f.Kind == resolve.Free || !f.Matches(ret, params...) {
			continue
		}
		return resolve.Specialize(f, c.resolver.Target(), ret, params...)
	}
	return nil, &BindingError{Target: c.resolver.Target(), Name: name, Return: ret, Params: params, Err: resolve.ErrSignatureNotFound}
}

// MethodContext is handed to a MethodStrategy. The strategy sets Invoke.
type MethodContext[T any] struct {
	*buildContext[T]

	Method *contract.Method
	Invoke Invoke[T]
}

// PropertyContext is handed to property strategies and decorators. A terminal
// strategy sets Get and Set for the accessors the property declares;
// decorators wrap them.
type PropertyContext[T any] struct {
	*buildContext[T]

	Property *contract.Property
	Get      Getter[T]
	Set      Setter[T]
}

// EventContext is handed to an EventStrategy. The strategy sets Add and Remove.
type EventContext[T any] struct {
	*buildContext[T]

	Event  *contract.Event
	Add    Subscriber[T]
	Remove Subscriber[T]
}
