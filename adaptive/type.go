package adaptive

import (
	"fmt"
	"reflect"
	"slices"
	"sync"

	"github.com/sghaida/adaptive/contract"
	"github.com/sghaida/adaptive/resolve"
)

// Invoke is an emitted method body. args are already converted to the
// declared parameter types; a variadic tail arrives as one slice.
type Invoke[T any] func(in *Instance[T], args []any) (any, error)

// Getter is an emitted property read accessor.
type Getter[T any] func(in *Instance[T]) (any, error)

// Setter is an emitted property write accessor. value already has the
// property type.
type Setter[T any] func(in *Instance[T], value any) error

// Subscriber is an emitted event accessor.
type Subscriber[T any] func(in *Instance[T], handler any) error

type methodImpl[T any] struct {
	method *contract.Method
	invoke Invoke[T]
}

type propertyImpl[T any] struct {
	prop *contract.Property
	get  Getter[T]
	set  Setter[T]
}

type eventImpl[T any] struct {
	event  *contract.Event
	add    Subscriber[T]
	remove Subscriber[T]
}

// Type is a synthesized implementation of a contract over base type T.
// It is immutable once Implement returns it.
type Type[T any] struct {
	name     string
	contract *contract.Interface
	base     reflect.Type

	implemented []*contract.Interface
	skipped     []*contract.Interface

	order   []*contract.Method
	methods map[string][]*methodImpl[T]
	props   map[string]*propertyImpl[T]
	events  map[string]*eventImpl[T]

	// baseMethods dispatch members of skipped interfaces to T's own methods.
	baseMethods map[string]*resolve.Func

	inits       []func(*Instance[T]) error
	staticInits []func() (any, error)
	statics     []any
	slots       int
	ctors       []*resolve.Func
}

func newType[T any](name string, it *contract.Interface, base reflect.Type) *Type[T] {
	return &Type[T]{
		name:        name,
		contract:    it,
		base:        base,
		methods:     map[string][]*methodImpl[T]{},
		props:       map[string]*propertyImpl[T]{},
		events:      map[string]*eventImpl[T]{},
		baseMethods: map[string]*resolve.Func{},
	}
}

// Name returns the type name it is defined under in its module.
func (t *Type[T]) Name() string { return t.name }

// Contract returns the contract the type was synthesized for.
func (t *Type[T]) Contract() *contract.Interface { return t.contract }

// Base returns the base struct type.
func (t *Type[T]) Base() reflect.Type { return t.base }

// Implemented lists the interfaces of the closure the type implements itself.
func (t *Type[T]) Implemented() []*contract.Interface { return slices.Clone(t.implemented) }

// Skipped lists the interfaces of the closure the base type already satisfied.
func (t *Type[T]) Skipped() []*contract.Interface { return slices.Clone(t.skipped) }

// Methods lists the implemented methods in emission order, including
// accessor methods when properties and events are implemented by methods.
func (t *Type[T]) Methods() []*contract.Method { return slices.Clone(t.order) }

// Static returns the static metadata stored in slot i.
func (t *Type[T]) Static(i int) any { return t.statics[i] }

// Implements reports whether every interface in the closure of it is
// implemented or skipped by t.
func (t *Type[T]) Implements(it *contract.Interface) bool {
	for _, c := range it.Closure() {
		if !slices.ContainsFunc(t.implemented, sameContract(c)) && !slices.ContainsFunc(t.skipped, sameContract(c)) {
			return false
		}
	}
	return true
}

func sameContract(a *contract.Interface) func(*contract.Interface) bool {
	return func(b *contract.Interface) bool {
		return a == b || (a.QualifiedName() == b.QualifiedName() && a.Fingerprint() == b.Fingerprint())
	}
}

// New constructs an instance: the first constructor accepting args builds the
// base value, then the per-instance initializer runs.
func (t *Type[T]) New(args ...any) (*Instance[T], error) {
	types := make([]reflect.Type, len(args))
	for i, a := range args {
		if a != nil {
			types[i] = reflect.TypeOf(a)
		}
	}
	var ctor *resolve.Func
	for _, c := range t.ctors {
		if c.Matches(nil, types...) {
			ctor = c
			break
		}
	}
	if ctor == nil {
		return nil, &BindingError{Target: reflect.PointerTo(t.base), Name: ctorName, Params: types, Err: resolve.ErrSignatureNotFound}
	}

	v, err := ctor.Call(args...)
	if err != nil {
		return nil, err
	}
	base, _ := v.(*T)
	if base == nil {
		return nil, fmt.Errorf("%w: constructor for %s returned nil", ErrConfiguration, t.base)
	}

	in := &Instance[T]{typ: t, base: base, slots: make([]any, t.slots)}
	for _, init := range t.inits {
		if err := init(in); err != nil {
			return nil, err
		}
	}
	return in, nil
}

func (t *Type[T]) addMethod(m *contract.Method, inv Invoke[T]) {
	t.methods[m.Name] = append(t.methods[m.Name], &methodImpl[T]{method: m, invoke: inv})
	t.order = append(t.order, m)
}

func (t *Type[T]) memberCount() int {
	return len(t.order) + len(t.props) + len(t.events)
}

// Dispatcher is the untyped call surface of a synthesized instance. Generated
// facades forward to it.
type Dispatcher interface {
	Call(name string, args ...any) (any, error)
	Get(name string) (any, error)
	Set(name string, value any) error
	Subscribe(name string, handler any) error
	Unsubscribe(name string, handler any) error
}

// Instance is one value of a synthesized type: a base value plus the state
// slots the member strategies allocated.
type Instance[T any] struct {
	typ  *Type[T]
	base *T

	mu    sync.Mutex
	slots []any
}

var _ Dispatcher = (*Instance[struct{}])(nil)

// Base returns the base value.
func (in *Instance[T]) Base() *T { return in.base }

// Type returns the synthesized type.
func (in *Instance[T]) Type() *Type[T] { return in.typ }

// Implements reports whether the instance's type implements it.
func (in *Instance[T]) Implements(it *contract.Interface) bool { return in.typ.Implements(it) }

// Slot returns the state stored in slot i.
func (in *Instance[T]) Slot(i int) any {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.slots[i]
}

// SetSlot stores v in slot i.
func (in *Instance[T]) SetSlot(i int, v any) {
	in.mu.Lock()
	in.slots[i] = v
	in.mu.Unlock()
}

// Call invokes the method called name. Among overloads the first one whose
// parameters take args without conversion wins; failing that, the first one
// args convert to without loss. Property and event accessor names are
// accepted too, so X, SetX, AddX and RemoveX reach the member directly.
func (in *Instance[T]) Call(name string, args ...any) (any, error) {
	t := in.typ
	if impls := t.methods[name]; len(impls) > 0 {
		for _, mi := range impls {
			if !assignableArgs(mi.method, args) {
				continue
			}
			if packed, err := packArgs(mi.method, args); err == nil {
				return mi.invoke(in, packed)
			}
		}
		var lastErr error
		for _, mi := range impls {
			packed, err := packArgs(mi.method, args)
			if err != nil {
				lastErr = err
				continue
			}
			return mi.invoke(in, packed)
		}
		return nil, lastErr
	}
	if f, ok := t.baseMethods[name]; ok {
		return f.Call(append([]any{in.base}, args...)...)
	}
	return in.callAccessor(name, args)
}

func (in *Instance[T]) callAccessor(name string, args []any) (any, error) {
	t := in.typ
	want := func(n int) error {
		if len(args) != n {
			return fmt.Errorf("%w: %s takes %d, got %d", ErrArgumentCount, name, n, len(args))
		}
		return nil
	}
	if _, ok := t.props[name]; ok {
		if err := want(0); err != nil {
			return nil, err
		}
		return in.Get(name)
	}
	for prop := range t.props {
		if name == contract.SetterName(prop) {
			if err := want(1); err != nil {
				return nil, err
			}
			return nil, in.Set(prop, args[0])
		}
	}
	for evt := range t.events {
		switch name {
		case contract.AdderName(evt):
			if err := want(1); err != nil {
				return nil, err
			}
			return nil, in.Subscribe(evt, args[0])
		case contract.RemoverName(evt):
			if err := want(1); err != nil {
				return nil, err
			}
			return nil, in.Unsubscribe(evt, args[0])
		}
	}
	return nil, &UnknownMemberError{Type: t.name, Member: name, Kind: contract.KindMethod}
}

// Get reads property name. With properties implemented by methods the
// getter method is called instead.
func (in *Instance[T]) Get(name string) (any, error) {
	if p, ok := in.typ.props[name]; ok && p.get != nil {
		return p.get(in)
	}
	if len(in.typ.methods[name]) > 0 {
		return in.Call(name)
	}
	if f, ok := in.typ.baseMethods[name]; ok {
		return f.Call(in.base)
	}
	return nil, &UnknownMemberError{Type: in.typ.name, Member: name, Kind: contract.KindProperty}
}

// Set writes property name. value is converted to the property type first.
func (in *Instance[T]) Set(name string, value any) error {
	if p, ok := in.typ.props[name]; ok && p.set != nil {
		v, err := resolve.CoerceTo(value, p.prop.Type)
		if err != nil {
			return err
		}
		return p.set(in, v)
	}
	if len(in.typ.methods[contract.SetterName(name)]) > 0 {
		_, err := in.Call(contract.SetterName(name), value)
		return err
	}
	if f, ok := in.typ.baseMethods[contract.SetterName(name)]; ok {
		_, err := f.Call(in.base, value)
		return err
	}
	return &UnknownMemberError{Type: in.typ.name, Member: name, Kind: contract.KindProperty}
}

// Subscribe adds handler to event name.
func (in *Instance[T]) Subscribe(name string, handler any) error {
	if e, ok := in.typ.events[name]; ok {
		h, err := resolve.CoerceTo(handler, e.event.Handler)
		if err != nil {
			return err
		}
		return e.add(in, h)
	}
	if len(in.typ.methods[contract.AdderName(name)]) > 0 {
		_, err := in.Call(contract.AdderName(name), handler)
		return err
	}
	if f, ok := in.typ.baseMethods[contract.AdderName(name)]; ok {
		_, err := f.Call(in.base, handler)
		return err
	}
	return &UnknownMemberError{Type: in.typ.name, Member: name, Kind: contract.KindEvent}
}

// Unsubscribe removes handler from event name.
func (in *Instance[T]) Unsubscribe(name string, handler any) error {
	if e, ok := in.typ.events[name]; ok {
		h, err := resolve.CoerceTo(handler, e.event.Handler)
		if err != nil {
			return err
		}
		return e.remove(in, h)
	}
	if len(in.typ.methods[contract.RemoverName(name)]) > 0 {
		_, err := in.Call(contract.RemoverName(name), handler)
		return err
	}
	if f, ok := in.typ.baseMethods[contract.RemoverName(name)]; ok {
		_, err := f.Call(in.base, handler)
		return err
	}
	return &UnknownMemberError{Type: in.typ.name, Member: name, Kind: contract.KindEvent}
}

// packArgs converts call arguments to the declared parameter types and
// collects a variadic tail into one slice.
func packArgs(m *contract.Method, args []any) ([]any, error) {
	n := len(m.Params)
	if m.Variadic {
		last := m.Params[n-1].Type
		if len(args) == n && args[n-1] != nil && reflect.TypeOf(args[n-1]).AssignableTo(last) {
			return coerceAll(m, args)
		}
		if len(args) < n-1 {
			return nil, fmt.Errorf("%w: %s takes at least %d, got %d", ErrArgumentCount, m, n-1, len(args))
		}
		tail := reflect.MakeSlice(last, 0, len(args)-n+1)
		for _, a := range args[n-1:] {
			v, err := resolve.Coerce(a, last.Elem())
			if err != nil {
				return nil, err
			}
			tail = reflect.Append(tail, v)
		}
		packed := append(slices.Clone(args[:n-1]), tail.Interface())
		return coerceAll(m, packed)
	}
	if len(args) != n {
		return nil, fmt.Errorf("%w: %s takes %d, got %d", ErrArgumentCount, m, n, len(args))
	}
	return coerceAll(m, args)
}

// assignableArgs reports whether args fit m's parameters as they are.
func assignableArgs(m *contract.Method, args []any) bool {
	n := len(m.Params)
	fixed := n
	if m.Variadic {
		fixed = n - 1
	}
	if len(args) < fixed || (!m.Variadic && len(args) != n) {
		return false
	}
	for i := range fixed {
		if !resolve.Assignable(args[i], m.Params[i].Type) {
			return false
		}
	}
	if !m.Variadic {
		return true
	}
	last := m.Params[n-1].Type
	if len(args) == n && args[n-1] != nil && reflect.TypeOf(args[n-1]).AssignableTo(last) {
		return true
	}
	for _, a := range args[fixed:] {
		if !resolve.Assignable(a, last.Elem()) {
			return false
		}
	}
	return true
}

func coerceAll(m *contract.Method, args []any) ([]any, error) {
	out := make([]any, len(args))
	for i, a := range args {
		v, err := resolve.CoerceTo(a, m.Params[i].Type)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
