package resolve

import (
	"reflect"
	"strconv"
	"strings"
)

const maxTypeArgs = 3

type (
	typeArg0 struct{}
	typeArg1 struct{}
	typeArg2 struct{}
)

// Type argument placeholders used in Template slots.
var (
	T0 = reflect.TypeFor[typeArg0]()
	T1 = reflect.TypeFor[typeArg1]()
	T2 = reflect.TypeFor[typeArg2]()
)

var typeArgs = [maxTypeArgs]reflect.Type{T0, T1, T2}

// TypeArgIndex reports whether t is a placeholder and which one.
func TypeArgIndex(t reflect.Type) (int, bool) {
	if t == nil {
		return 0, false
	}
	for i, a := range typeArgs {
		if t == a {
			return i, true
		}
	}
	return 0, false
}

func isTypeArg(t reflect.Type) bool {
	_, ok := TypeArgIndex(t)
	return ok
}

type instantiation [maxTypeArgs]reflect.Type

func (in instantiation) String(arity int) string {
	parts := make([]string, arity)
	for i := range arity {
		parts[i] = typeName(in[i])
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Template is a generic candidate with an explicit binding table.
//
// Go cannot instantiate a generic function at run time, so every
// instantiation a caller needs is bound up front:
//
//	get := resolve.NewTemplate("get", resolve.Static, resolve.T0, stateType).
//		MustBind(getValue[int]).
//		MustBind(getValue[string])
//
// Slots holding T0, T1 or T2 are type parameters; other slots must match the
// bound function exactly. Specialize picks the instantiation from concrete
// parameter types, or from the return type when no parameter slot is generic.
type Template struct {
	Name string
	Kind Kind
	In   []reflect.Type
	Out  reflect.Type

	arity int
	table map[instantiation]*Func
}

// NewTemplate declares a template. Kind must be Static or Free; for Static
// templates In excludes the leading target parameter.
func NewTemplate(name string, kind Kind, out reflect.Type, in ...reflect.Type) *Template {
	t := &Template{Name: name, Kind: kind, In: in, Out: out, table: make(map[instantiation]*Func)}
	for _, slot := range append([]reflect.Type{out}, in...) {
		if i, ok := TypeArgIndex(slot); ok && i+1 > t.arity {
			t.arity = i + 1
		}
	}
	return t
}

// Arity returns the number of type parameters.
func (t *Template) Arity() int { return t.arity }

// Bind adds one instantiation. The type arguments are read off fn's signature.
func (t *Template) Bind(fn any) error {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return ErrNotFunc
	}
	skip := 0
	if t.Kind == Static {
		skip = 1
		if v.Type().NumIn() == 0 {
			return t.bindErr("missing target parameter")
		}
	}
	f, ok := newFunc(t.Name, t.Kind, v, skip)
	if !ok {
		return t.bindErr("unsupported results")
	}
	if len(f.In) != len(t.In) {
		return t.bindErr("arity mismatch")
	}

	var args instantiation
	bind := func(slot, got reflect.Type) bool {
		k, generic := TypeArgIndex(slot)
		if !generic {
			return slot == got
		}
		if args[k] != nil && args[k] != got {
			return false
		}
		args[k] = got
		return true
	}
	for i, slot := range t.In {
		if !bind(slot, f.In[i]) {
			return t.bindErr("parameter " + strconv.Itoa(i) + " does not fit the template")
		}
	}
	switch {
	case t.Out == nil && f.Out != nil, t.Out != nil && f.Out == nil:
		return t.bindErr("result does not fit the template")
	case t.Out != nil && !bind(t.Out, f.Out):
		return t.bindErr("result does not fit the template")
	}
	for i := range t.arity {
		if args[i] == nil {
			return t.bindErr("type argument T" + strconv.Itoa(i) + " is not used")
		}
	}
	if _, dup := t.table[args]; dup {
		return t.bindErr("duplicate instantiation " + args.String(t.arity))
	}
	f.template = t
	t.table[args] = f
	return nil
}

// MustBind is like Bind but panics on error.
func (t *Template) MustBind(fn any) *Template {
	if err := t.Bind(fn); err != nil {
		panic(err)
	}
	return t
}

// Lookup returns the instantiation for the given type arguments.
func (t *Template) Lookup(args ...reflect.Type) (*Func, bool) {
	var key instantiation
	copy(key[:], args)
	f, ok := t.table[key]
	return f, ok
}

func (t *Template) candidate() *Func {
	return &Func{Name: t.Name, Kind: t.Kind, In: t.In, Out: t.Out, template: t}
}

func (t *Template) bindErr(reason string) error {
	return &BindingError{Name: t.Name, Return: t.Out, Params: t.In, Err: ErrSpecialization, Reason: reason}
}

// Specialize turns f into a concrete func for the requested shape.
//
// For a template candidate the type arguments are bound positionally from
// params, falling back to ret for a generic result, and the matching
// instantiation is taken from the template's table. The result is then
// checked against ret and params again; func-typed parameters are exempt from
// that check. A concrete f is only checked.
func Specialize(f *Func, target, ret reflect.Type, params ...reflect.Type) (*Func, error) {
	fail := func(reason string) error {
		name := ""
		if f != nil {
			name = f.Name
		}
		return &BindingError{Target: target, Name: name, Return: ret, Params: params, Err: ErrSpecialization, Reason: reason}
	}
	if f == nil {
		return nil, fail("no candidate")
	}
	if !f.Generic() {
		if !matches(f, ret, params, true) {
			return nil, fail("signature incompatible")
		}
		return f, nil
	}

	tpl := f.template
	var args instantiation
	for i, slot := range tpl.In {
		k, generic := TypeArgIndex(slot)
		if !generic || i >= len(params) || params[i] == nil {
			continue
		}
		if args[k] != nil && args[k] != params[i] {
			return nil, fail("conflicting bindings for T" + strconv.Itoa(k))
		}
		args[k] = params[i]
	}
	if k, generic := TypeArgIndex(tpl.Out); generic && args[k] == nil && ret != nil && ret != Void {
		args[k] = ret
	}
	for i := range tpl.arity {
		if args[i] == nil {
			return nil, fail("cannot infer T" + strconv.Itoa(i))
		}
	}

	bound, ok := tpl.table[args]
	if !ok {
		return nil, fail("no instantiation for " + args.String(tpl.arity))
	}
	if tpl.Kind == Static && target != nil {
		if target.Kind() != reflect.Pointer {
			target = reflect.PointerTo(target)
		}
		if !target.AssignableTo(bound.fn.Type().In(0)) {
			return nil, fail("instantiation does not accept the target")
		}
	}
	if !matches(bound, ret, params, true) {
		return nil, fail("bound signature incompatible")
	}
	return bound, nil
}
