package resolve

import (
	"reflect"
	"strings"
)

// Kind tells how a Func relates to the target type.
type Kind uint8

const (
	// Instance is a method of the target; its receiver is implicit.
	Instance Kind = iota + 1
	// Static is a registered function whose first parameter receives the
	// target instance.
	Static
	// Free is a registered function with no implicit parameter, such as a
	// constructor.
	Free
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case Instance:
		return "instance"
	case Static:
		return "static"
	case Free:
		return "free"
	default:
		return "unknown"
	}
}

type voidMarker struct{}

// Void requests a function returning nothing. A nil return type matches any result.
var Void = reflect.TypeFor[voidMarker]()

var errorType = reflect.TypeFor[error]()

// Func is a resolved candidate.
type Func struct {
	Name string
	Kind Kind

	// In lists the declared parameters, without the receiver of Instance
	// and Static funcs.
	In []reflect.Type

	// Out is the declared result, nil when the func returns nothing (or only an error).
	Out reflect.Type

	// Err reports a trailing error result.
	Err bool

	Variadic bool

	fn       reflect.Value
	template *Template
}

// Template returns the template this func was specialized from, or the
// template itself for an unbound template candidate.
func (f *Func) Template() *Template { return f.template }

// Generic reports whether f is an unbound template candidate.
func (f *Func) Generic() bool { return f.template != nil && !f.fn.IsValid() }

// Type returns the underlying function type, receiver included.
func (f *Func) Type() reflect.Type {
	if !f.fn.IsValid() {
		return nil
	}
	return f.fn.Type()
}

// String renders the func shape, e.g. "static exec(*db.Command, []interface {}) interface {}".
func (f *Func) String() string {
	var b strings.Builder
	b.WriteString(f.Kind.String() + " ")
	ret := f.Out
	if ret == nil {
		ret = Void
	}
	b.WriteString(Shape(f.Name, ret, f.In))
	if f.Err {
		b.WriteString(" error")
	}
	return b.String()
}

// Matches reports whether f fits ret and params under the rules of Set.Find.
func (f *Func) Matches(ret reflect.Type, params ...reflect.Type) bool {
	return matches(f, ret, params, false)
}

// Call invokes f. For Instance and Static funcs the first argument is the
// receiver. Arguments are coerced to the declared parameter types; a variadic
// tail may be passed either spread or as one non-nil slice.
func (f *Func) Call(args ...any) (any, error) {
	if f.Generic() {
		return nil, &BindingError{Name: f.Name, Err: ErrSpecialization, Reason: "template called without specialization"}
	}
	ft := f.fn.Type()
	n := ft.NumIn()
	spread := ft.IsVariadic() && len(args) == n && isSliceFor(args[n-1], ft.In(n-1))
	if !ft.IsVariadic() || spread {
		if len(args) != n {
			return nil, &BindingError{Name: f.Name, Params: typesOf(args), Err: ErrSignatureNotFound, Reason: "wrong argument count"}
		}
	} else if len(args) < n-1 {
		return nil, &BindingError{Name: f.Name, Params: typesOf(args), Err: ErrSignatureNotFound, Reason: "too few arguments"}
	}

	in := make([]reflect.Value, len(args))
	for i, a := range args {
		want := paramAt(ft, i, spread)
		v, err := Coerce(a, want)
		if err != nil {
			return nil, err
		}
		in[i] = v
	}

	var out []reflect.Value
	if spread {
		out = f.fn.CallSlice(in)
	} else {
		out = f.fn.Call(in)
	}
	return splitResults(out, f.Out != nil, f.Err)
}

func paramAt(ft reflect.Type, i int, spread bool) reflect.Type {
	n := ft.NumIn()
	if ft.IsVariadic() && !spread && i >= n-1 {
		return ft.In(n - 1).Elem()
	}
	return ft.In(i)
}

func isSliceFor(a any, slice reflect.Type) bool {
	return a != nil && reflect.TypeOf(a).AssignableTo(slice)
}

func splitResults(out []reflect.Value, hasValue, hasErr bool) (any, error) {
	var val any
	var err error
	if hasErr {
		if e := out[len(out)-1]; !e.IsNil() {
			err = e.Interface().(error)
		}
	}
	if hasValue {
		val = out[0].Interface()
	}
	return val, err
}

func typesOf(args []any) []reflect.Type {
	out := make([]reflect.Type, len(args))
	for i, a := range args {
		if a != nil {
			out[i] = reflect.TypeOf(a)
		}
	}
	return out
}

// newFunc describes fn, skipping the first skip parameters.
func newFunc(name string, kind Kind, fn reflect.Value, skip int) (*Func, bool) {
	ft := fn.Type()
	f := &Func{Name: name, Kind: kind, Variadic: ft.IsVariadic(), fn: fn}
	for i := skip; i < ft.NumIn(); i++ {
		f.In = append(f.In, ft.In(i))
	}
	switch ft.NumOut() {
	case 0:
	case 1:
		if ft.Out(0) == errorType {
			f.Err = true
		} else {
			f.Out = ft.Out(0)
		}
	case 2:
		if ft.Out(1) != errorType {
			return nil, false
		}
		f.Out, f.Err = ft.Out(0), true
	default:
		return nil, false
	}
	return f, true
}

// Set holds the candidates visible on one target type.
//
// A Set is filled during setup and read concurrently afterwards; Add methods
// must not race with Find.
type Set struct {
	target    reflect.Type
	instance  []*Func
	statics   []*Func
	frees     []*Func
	templates []*Func
}

// NewSet collects the exported methods of target. A struct type is replaced
// by its pointer type so pointer-receiver methods are included.
func NewSet(target reflect.Type) *Set {
	if target.Kind() != reflect.Pointer {
		target = reflect.PointerTo(target)
	}
	s := &Set{target: target}
	for i := range target.NumMethod() {
		m := target.Method(i)
		if f, ok := newFunc(m.Name, Instance, m.Func, 1); ok {
			s.instance = append(s.instance, f)
		}
	}
	return s
}

// Target returns the pointer type the set resolves against.
func (s *Set) Target() reflect.Type { return s.target }

// AddStatic registers fn as a static candidate. Its first parameter must
// accept the target.
func (s *Set) AddStatic(name string, fn any) error {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return ErrNotFunc
	}
	ft := v.Type()
	if ft.NumIn() == 0 || !s.target.AssignableTo(ft.In(0)) {
		return &BindingError{Target: s.target, Name: name, Err: ErrSignatureNotFound, Reason: "first parameter must accept the target"}
	}
	f, ok := newFunc(name, Static, v, 1)
	if !ok {
		return &BindingError{Target: s.target, Name: name, Err: ErrSignatureNotFound, Reason: "unsupported results"}
	}
	s.statics = append(s.statics, f)
	return nil
}

// AddFree registers fn as a free candidate.
func (s *Set) AddFree(name string, fn any) error {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return ErrNotFunc
	}
	f, ok := newFunc(name, Free, v, 0)
	if !ok {
		return &BindingError{Target: s.target, Name: name, Err: ErrSignatureNotFound, Reason: "unsupported results"}
	}
	s.frees = append(s.frees, f)
	return nil
}

// AddTemplate registers a template candidate. Templates are searched after
// every concrete candidate.
func (s *Set) AddTemplate(t *Template) {
	s.templates = append(s.templates, t.candidate())
}

// Candidates returns every candidate called name, in search order.
func (s *Set) Candidates(name string) []*Func {
	var out []*Func
	for _, group := range [][]*Func{s.instance, s.statics, s.frees, s.templates} {
		for _, f := range group {
			if f.Name == name {
				out = append(out, f)
			}
		}
	}
	return out
}

// Find returns the first candidate named name whose shape is compatible with
// ret and params, or nil. Candidates are tried instance methods first, then
// statics, frees and templates, each in registration order. A nil ret or
// param is a wildcard; Void requires no result.
//
// The first compatible candidate wins; overloads are not ranked.
func (s *Set) Find(name string, ret reflect.Type, params ...reflect.Type) *Func {
	for _, f := range s.Candidates(name) {
		if matches(f, ret, params, false) {
			return f
		}
	}
	return nil
}

// FindOrErr is Find returning a BindingError wrapping ErrSignatureNotFound.
func (s *Set) FindOrErr(name string, ret reflect.Type, params ...reflect.Type) (*Func, error) {
	if f := s.Find(name, ret, params...); f != nil {
		return f, nil
	}
	return nil, &BindingError{Target: s.target, Name: name, Return: ret, Params: params, Err: ErrSignatureNotFound}
}

// Compatible reports whether a slot declared as declared can accept a value of
// type desired. A nil desired type and a template type argument slot accept anything.
func Compatible(declared, desired reflect.Type) bool {
	if desired == nil {
		return true
	}
	if _, ok := TypeArgIndex(declared); ok {
		return true
	}
	return declared != nil && desired.AssignableTo(declared)
}

func matches(f *Func, ret reflect.Type, params []reflect.Type, exemptFuncs bool) bool {
	if len(f.In) != len(params) {
		return false
	}
	for i, want := range params {
		decl := f.In[i]
		if exemptFuncs && want != nil && want.Kind() == reflect.Func && decl.Kind() == reflect.Func {
			continue
		}
		if !Compatible(decl, want) {
			return false
		}
	}
	switch {
	case ret == nil:
		return true
	case ret == Void:
		return f.Out == nil
	case f.Out == nil:
		return false
	case isTypeArg(f.Out):
		return true
	default:
		return Compatible(ret, f.Out)
	}
}
