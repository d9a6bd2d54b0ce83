package contract

import (
	"crypto/sha256"
	"encoding/hex"
	"go/token"
	"reflect"
	"slices"
	"strings"
)

// Kind classifies a contract member.
type Kind uint8

const (
	KindMethod Kind = iota + 1
	KindProperty
	KindEvent
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindMethod:
		return "method"
	case KindProperty:
		return "property"
	case KindEvent:
		return "event"
	default:
		return "member"
	}
}

// Member is implemented by *Method, *Property and *Event.
type Member interface {
	MemberName() string
	Kind() Kind
	Declaring() *Interface
	Tag(key string) (string, bool)
}

// Param is one method parameter.
//
// ByRef and Out mark by-reference and output-reference parameters. They can be
// described but are never implementable; synthesis rejects them.
type Param struct {
	Name  string
	Type  reflect.Type
	ByRef bool
	Out   bool
}

// Method describes one method shape.
type Method struct {
	Name   string
	Params []Param

	// Return is the declared result type, nil for a method returning nothing.
	Return reflect.Type

	// Err reports a trailing error result.
	Err bool

	// Variadic marks the last parameter as a variadic slice.
	Variadic bool

	Tags map[string]string

	declaring *Interface
	accessor  Member
}

// MemberName implements Member.
func (m *Method) MemberName() string { return m.Name }

// Kind implements Member.
func (m *Method) Kind() Kind { return KindMethod }

// Declaring returns the interface that declares the method.
func (m *Method) Declaring() *Interface { return m.declaring }

// Tag returns the value of a tag attached to the method.
func (m *Method) Tag(key string) (string, bool) {
	v, ok := m.Tags[key]
	return v, ok
}

// Accessor returns the property or event this method is an accessor of, or nil
// for plain methods.
func (m *Method) Accessor() Member { return m.accessor }

// ParamTypes returns the declared parameter types in order.
func (m *Method) ParamTypes() []reflect.Type {
	out := make([]reflect.Type, len(m.Params))
	for i, p := range m.Params {
		out[i] = p.Type
	}
	return out
}

// Signature returns the shape of the method without its declaring interface,
// e.g. "Add(int, int) (int, error)".
func (m *Method) Signature() string {
	var b strings.Builder
	b.WriteString(m.Name)
	b.WriteByte('(')
	for i, p := range m.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		switch {
		case p.Out:
			b.WriteString("out ")
		case p.ByRef:
			b.WriteString("ref ")
		}
		if m.Variadic && i == len(m.Params)-1 && p.Type != nil && p.Type.Kind() == reflect.Slice {
			b.WriteString("..." + typeString(p.Type.Elem()))
			continue
		}
		b.WriteString(typeString(p.Type))
	}
	b.WriteByte(')')
	switch {
	case m.Return != nil && m.Err:
		b.WriteString(" (" + typeString(m.Return) + ", error)")
	case m.Return != nil:
		b.WriteString(" " + typeString(m.Return))
	case m.Err:
		b.WriteString(" error")
	}
	return b.String()
}

// String returns the qualified method shape, e.g. "Calc.Add(int, int) int".
func (m *Method) String() string {
	return qualify(m.declaring, m.Signature())
}

// Property describes a property: a typed value with optional read and write accessors.
type Property struct {
	Name     string
	Type     reflect.Type
	CanRead  bool
	CanWrite bool

	// Index lists index parameter types. Indexed properties can be described
	// but are never implementable.
	Index []reflect.Type

	Tags map[string]string

	declaring *Interface
}

// MemberName implements Member.
func (p *Property) MemberName() string { return p.Name }

// Kind implements Member.
func (p *Property) Kind() Kind { return KindProperty }

// Declaring returns the interface that declares the property.
func (p *Property) Declaring() *Interface { return p.declaring }

// Tag returns the value of a tag attached to the property.
func (p *Property) Tag(key string) (string, bool) {
	v, ok := p.Tags[key]
	return v, ok
}

// Indexed reports whether the property takes index parameters.
func (p *Property) Indexed() bool { return len(p.Index) > 0 }

// Getter returns the accessor method reading the property, or nil when the
// property is write-only.
func (p *Property) Getter() *Method {
	if !p.CanRead {
		return nil
	}
	return &Method{Name: p.Name, Return: p.Type, Tags: p.Tags, declaring: p.declaring, accessor: p}
}

// Setter returns the accessor method writing the property, or nil when the
// property is read-only.
func (p *Property) Setter() *Method {
	if !p.CanWrite {
		return nil
	}
	return &Method{
		Name:      SetterName(p.Name),
		Params:    []Param{{Name: "value", Type: p.Type}},
		Tags:      p.Tags,
		declaring: p.declaring,
		accessor:  p,
	}
}

// String returns the qualified property name and type.
func (p *Property) String() string {
	return qualify(p.declaring, p.Name+" "+typeString(p.Type))
}

// Event describes a subscribable event. Handler is the type of the values
// passed to subscribe and unsubscribe, usually a func or listener interface.
type Event struct {
	Name    string
	Handler reflect.Type
	Tags    map[string]string

	declaring *Interface
}

// MemberName implements Member.
func (e *Event) MemberName() string { return e.Name }

// Kind implements Member.
func (e *Event) Kind() Kind { return KindEvent }

// Declaring returns the interface that declares the event.
func (e *Event) Declaring() *Interface { return e.declaring }

// Tag returns the value of a tag attached to the event.
func (e *Event) Tag(key string) (string, bool) {
	v, ok := e.Tags[key]
	return v, ok
}

// Adder returns the accessor method subscribing a handler.
func (e *Event) Adder() *Method {
	return &Method{
		Name:      AdderName(e.Name),
		Params:    []Param{{Name: "handler", Type: e.Handler}},
		Tags:      e.Tags,
		declaring: e.declaring,
		accessor:  e,
	}
}

// Remover returns the accessor method unsubscribing a handler.
func (e *Event) Remover() *Method {
	return &Method{
		Name:      RemoverName(e.Name),
		Params:    []Param{{Name: "handler", Type: e.Handler}},
		Tags:      e.Tags,
		declaring: e.declaring,
		accessor:  e,
	}
}

// String returns the qualified event name and handler type.
func (e *Event) String() string {
	return qualify(e.declaring, e.Name+" "+typeString(e.Handler))
}

// SetterName returns the accessor method name writing property name.
func SetterName(name string) string { return "Set" + name }

// AdderName returns the accessor method name subscribing to event name.
func AdderName(name string) string { return "Add" + name }

// RemoverName returns the accessor method name unsubscribing from event name.
func RemoverName(name string) string { return "Remove" + name }

// Interface is a contract: member shapes plus the interfaces it extends.
type Interface struct {
	Name    string
	PkgPath string

	Extends    []*Interface
	Methods    []*Method
	Properties []*Property
	Events     []*Event

	// GoType is the Go interface type this contract mirrors, if any.
	GoType reflect.Type

	fingerprint string
}

// QualifiedName returns PkgPath.Name, or Name when PkgPath is empty.
func (i *Interface) QualifiedName() string {
	if i.PkgPath == "" {
		return i.Name
	}
	return i.PkgPath + "." + i.Name
}

// Public reports whether the contract is exported.
func (i *Interface) Public() bool { return token.IsExported(i.Name) }

// String implements fmt.Stringer.
func (i *Interface) String() string { return i.QualifiedName() }

// Closure returns every interface i transitively extends followed by i itself.
// Ancestors come first, depth first in declaration order, without duplicates.
func (i *Interface) Closure() []*Interface {
	var out []*Interface
	seen := make(map[*Interface]struct{})
	var walk func(*Interface)
	walk = func(it *Interface) {
		if _, ok := seen[it]; ok {
			return
		}
		seen[it] = struct{}{}
		for _, parent := range it.Extends {
			walk(parent)
		}
		out = append(out, it)
	}
	walk(i)
	return out
}

// Inherits reports whether other is i or one of its ancestors.
func (i *Interface) Inherits(other *Interface) bool {
	for _, it := range i.Closure() {
		if it == other {
			return true
		}
	}
	return false
}

// Empty reports whether i declares no members of its own.
func (i *Interface) Empty() bool {
	return len(i.Methods) == 0 && len(i.Properties) == 0 && len(i.Events) == 0
}

// MethodsNamed returns the methods declared by i (not its ancestors) with the given name.
func (i *Interface) MethodsNamed(name string) []*Method {
	var out []*Method
	for _, m := range i.Methods {
		if m.Name == name {
			out = append(out, m)
		}
	}
	return out
}

// Property returns the property declared by i with the given name.
func (i *Interface) Property(name string) (*Property, bool) {
	for _, p := range i.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}

// Event returns the event declared by i with the given name.
func (i *Interface) Event(name string) (*Event, bool) {
	for _, e := range i.Events {
		if e.Name == name {
			return e, true
		}
	}
	return nil, false
}

// Fingerprint is a stable hash of the shapes of the whole closure.
// Two contracts with identical names and shapes share a fingerprint.
func (i *Interface) Fingerprint() string {
	if i.fingerprint != "" {
		return i.fingerprint
	}
	return i.computeFingerprint()
}

func (i *Interface) computeFingerprint() string {
	var b strings.Builder
	for _, it := range i.Closure() {
		b.WriteString(it.QualifiedName())
		b.WriteByte('{')
		for _, m := range it.Methods {
			b.WriteString(m.Signature())
			writeTags(&b, m.Tags)
			b.WriteByte(';')
		}
		for _, p := range it.Properties {
			b.WriteString(p.Name + " " + typeString(p.Type))
			if p.CanRead {
				b.WriteString(" get")
			}
			if p.CanWrite {
				b.WriteString(" set")
			}
			writeTags(&b, p.Tags)
			b.WriteByte(';')
		}
		for _, e := range it.Events {
			b.WriteString("event " + e.Name + " " + typeString(e.Handler))
			writeTags(&b, e.Tags)
			b.WriteByte(';')
		}
		b.WriteByte('}')
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:8])
}

func writeTags(b *strings.Builder, tags map[string]string) {
	if len(tags) == 0 {
		return
	}
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	b.WriteByte('[')
	for _, k := range keys {
		b.WriteString(k + "=" + tags[k] + ",")
	}
	b.WriteByte(']')
}

func qualify(decl *Interface, s string) string {
	if decl == nil {
		return s
	}
	return decl.Name + "." + s
}

func typeString(t reflect.Type) string {
	if t == nil {
		return "?"
	}
	return t.String()
}
