package contract

import (
	"errors"
	"go/token"
	"maps"
	"reflect"
	"strconv"
)

// ErrInvalidContract is the sentinel wrapped by InvalidContractError.
var ErrInvalidContract = errors.New("contract: invalid contract")

// InvalidContractError reports a malformed contract description.
type InvalidContractError struct {
	Interface string
	Member    string
	Reason    string
}

// Error implements the error interface.
func (e *InvalidContractError) Error() string {
	// Example: contract: invalid contract "Calc": member "Add": parameter 0 has no type
	msg := "contract: invalid contract " + strconv.Quote(e.Interface)
	if e.Member != "" {
		msg += ": member " + strconv.Quote(e.Member)
	}
	return msg + ": " + e.Reason
}

// Unwrap returns ErrInvalidContract.
func (e *InvalidContractError) Unwrap() error { return ErrInvalidContract }

// Builder assembles an Interface.
//
// Builder methods record the first error and keep returning the builder, so a
// description can be written as one chain and checked once in Build.
type Builder struct {
	it  *Interface
	err error
}

// NewBuilder starts a contract named name.
func NewBuilder(name string) *Builder {
	return &Builder{it: &Interface{Name: name}}
}

// PkgPath sets the package path used to qualify the contract name.
func (b *Builder) PkgPath(path string) *Builder {
	b.it.PkgPath = path
	return b
}

// GoType records the Go interface type this contract mirrors.
func (b *Builder) GoType(t reflect.Type) *Builder {
	if b.err == nil && t != nil && t.Kind() != reflect.Interface {
		b.err = &InvalidContractError{Interface: b.it.Name, Reason: "go type " + t.String() + " is not an interface"}
	}
	b.it.GoType = t
	return b
}

// Extends appends parent contracts.
func (b *Builder) Extends(parents ...*Interface) *Builder {
	for _, p := range parents {
		if p == nil {
			b.fail("", "nil parent interface")
			continue
		}
		b.it.Extends = append(b.it.Extends, p)
	}
	return b
}

// Method appends a method. The descriptor is copied.
func (b *Builder) Method(m *Method) *Builder {
	if m == nil {
		b.fail("", "nil method")
		return b
	}
	cp := *m
	cp.Params = append([]Param(nil), m.Params...)
	cp.Tags = maps.Clone(m.Tags)
	b.it.Methods = append(b.it.Methods, &cp)
	return b
}

// Func is shorthand for Method with unnamed parameters.
func (b *Builder) Func(name string, ret reflect.Type, params ...reflect.Type) *Builder {
	m := &Method{Name: name, Return: ret}
	for i, t := range params {
		m.Params = append(m.Params, Param{Name: "arg" + strconv.Itoa(i), Type: t})
	}
	return b.Method(m)
}

// Property appends a property. The descriptor is copied.
func (b *Builder) Property(p *Property) *Builder {
	if p == nil {
		b.fail("", "nil property")
		return b
	}
	cp := *p
	cp.Index = append([]reflect.Type(nil), p.Index...)
	cp.Tags = maps.Clone(p.Tags)
	b.it.Properties = append(b.it.Properties, &cp)
	return b
}

// Prop is shorthand for a read/write property.
func (b *Builder) Prop(name string, t reflect.Type) *Builder {
	return b.Property(&Property{Name: name, Type: t, CanRead: true, CanWrite: true})
}

// Event appends an event. The descriptor is copied.
func (b *Builder) Event(e *Event) *Builder {
	if e == nil {
		b.fail("", "nil event")
		return b
	}
	cp := *e
	cp.Tags = maps.Clone(e.Tags)
	b.it.Events = append(b.it.Events, &cp)
	return b
}

// Build validates the description and returns the finished contract.
// The builder must not be used afterwards.
func (b *Builder) Build() (*Interface, error) {
	if b.err != nil {
		return nil, b.err
	}
	it := b.it
	if !isIdent(it.Name) {
		return nil, &InvalidContractError{Interface: it.Name, Reason: "name is not a valid identifier"}
	}

	signatures := make(map[string]struct{}, len(it.Methods))
	for _, m := range it.Methods {
		if !isIdent(m.Name) {
			return nil, &InvalidContractError{Interface: it.Name, Member: m.Name, Reason: "name is not a valid identifier"}
		}
		for i, p := range m.Params {
			if p.Type == nil {
				return nil, &InvalidContractError{Interface: it.Name, Member: m.Name, Reason: "parameter " + strconv.Itoa(i) + " has no type"}
			}
		}
		if m.Variadic {
			if len(m.Params) == 0 || m.Params[len(m.Params)-1].Type.Kind() != reflect.Slice {
				return nil, &InvalidContractError{Interface: it.Name, Member: m.Name, Reason: "variadic method must end with a slice parameter"}
			}
		}
		sig := overloadKey(m)
		if _, dup := signatures[sig]; dup {
			return nil, &InvalidContractError{Interface: it.Name, Member: m.Name, Reason: "duplicate method signature"}
		}
		signatures[sig] = struct{}{}
		m.declaring = it
	}

	names := make(map[string]struct{}, len(it.Properties)+len(it.Events))
	for _, p := range it.Properties {
		if !isIdent(p.Name) {
			return nil, &InvalidContractError{Interface: it.Name, Member: p.Name, Reason: "name is not a valid identifier"}
		}
		if p.Type == nil {
			return nil, &InvalidContractError{Interface: it.Name, Member: p.Name, Reason: "property has no type"}
		}
		if !p.CanRead && !p.CanWrite {
			return nil, &InvalidContractError{Interface: it.Name, Member: p.Name, Reason: "property has neither getter nor setter"}
		}
		if _, dup := names[p.Name]; dup {
			return nil, &InvalidContractError{Interface: it.Name, Member: p.Name, Reason: "duplicate member name"}
		}
		names[p.Name] = struct{}{}
		p.declaring = it
	}
	for _, e := range it.Events {
		if !isIdent(e.Name) {
			return nil, &InvalidContractError{Interface: it.Name, Member: e.Name, Reason: "name is not a valid identifier"}
		}
		if e.Handler == nil {
			return nil, &InvalidContractError{Interface: it.Name, Member: e.Name, Reason: "event has no handler type"}
		}
		if _, dup := names[e.Name]; dup {
			return nil, &InvalidContractError{Interface: it.Name, Member: e.Name, Reason: "duplicate member name"}
		}
		names[e.Name] = struct{}{}
		e.declaring = it
	}

	it.fingerprint = it.computeFingerprint()
	return it, nil
}

// MustBuild is like Build but panics on error. It is meant for package-level
// contract variables, including generated ones.
func MustBuild(b *Builder) *Interface {
	it, err := b.Build()
	if err != nil {
		panic(err)
	}
	return it
}

func (b *Builder) fail(member, reason string) {
	if b.err == nil {
		b.err = &InvalidContractError{Interface: b.it.Name, Member: member, Reason: reason}
	}
}

func overloadKey(m *Method) string {
	key := m.Name + "("
	for _, p := range m.Params {
		key += p.Type.String() + ","
	}
	return key + ")"
}

func isIdent(name string) bool {
	return name != "" && token.IsIdentifier(name)
}
