package contract

import (
	"reflect"
	"strconv"
	"strings"
)

var errorType = reflect.TypeFor[error]()

// Option configures FromType.
type Option func(*reflectConfig)

type reflectConfig struct {
	name      string
	accessors bool
	parents   []*Interface
	tags      map[string]map[string]string
	params    map[string][]string
}

// WithName overrides the contract name, which defaults to the Go type name.
func WithName(name string) Option {
	return func(c *reflectConfig) { c.name = name }
}

// WithAccessors turns accessor method pairs into properties and events:
// X() T with SetX(T) becomes property X, AddX(H) with RemoveX(H) becomes event X.
// A lone getter stays a plain method.
func WithAccessors() Option {
	return func(c *reflectConfig) { c.accessors = true }
}

// WithExtends declares parent contracts. Go flattens embedded interfaces, so
// members already described by a parent's closure are dropped from the result.
func WithExtends(parents ...*Interface) Option {
	return func(c *reflectConfig) { c.parents = append(c.parents, parents...) }
}

// WithTag attaches a tag to the member called name. Properties and events are
// addressed by their own name, not their accessor names.
func WithTag(name, key, value string) Option {
	return func(c *reflectConfig) {
		if c.tags == nil {
			c.tags = make(map[string]map[string]string)
		}
		if c.tags[name] == nil {
			c.tags[name] = make(map[string]string)
		}
		c.tags[name][key] = value
	}
}

// WithParamNames names the parameters of method name, which reflection
// reports only by position. The count must match the method's.
func WithParamNames(name string, params ...string) Option {
	return func(c *reflectConfig) {
		if c.params == nil {
			c.params = make(map[string][]string)
		}
		c.params[name] = params
	}
}

// FromType describes the Go interface type t.
//
// Methods are listed in the order reflect reports them, which is by name.
// Results may be (), (T), (error) or (T, error); any other result list is
// rejected with an InvalidContractError.
func FromType(t reflect.Type, opts ...Option) (*Interface, error) {
	if t == nil || t.Kind() != reflect.Interface {
		name := "<nil>"
		if t != nil {
			name = t.String()
		}
		return nil, &InvalidContractError{Interface: name, Reason: "not an interface type"}
	}
	cfg := reflectConfig{name: t.Name()}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.name == "" {
		return nil, &InvalidContractError{Interface: t.String(), Reason: "anonymous interface needs WithName"}
	}

	inherited := make(map[string]struct{})
	for _, p := range cfg.parents {
		if p == nil {
			continue
		}
		for _, name := range accessorNames(p) {
			inherited[name] = struct{}{}
		}
	}

	var methods []*Method
	for i := range t.NumMethod() {
		rm := t.Method(i)
		if _, ok := inherited[rm.Name]; ok {
			continue
		}
		m, err := methodFromFunc(rm.Name, rm.Type)
		if err != nil {
			return nil, &InvalidContractError{Interface: cfg.name, Member: rm.Name, Reason: err.Error()}
		}
		if names, ok := cfg.params[rm.Name]; ok {
			if len(names) != len(m.Params) {
				return nil, &InvalidContractError{
					Interface: cfg.name,
					Member:    rm.Name,
					Reason:    "got " + strconv.Itoa(len(names)) + " parameter names for " + strconv.Itoa(len(m.Params)) + " parameters",
				}
			}
			for i, n := range names {
				m.Params[i].Name = n
			}
		}
		methods = append(methods, m)
	}

	b := NewBuilder(cfg.name).PkgPath(t.PkgPath()).GoType(t).Extends(cfg.parents...)
	if cfg.accessors {
		var props []*Property
		var events []*Event
		methods, props, events = splitAccessors(methods)
		for _, p := range props {
			p.Tags = cfg.tags[p.Name]
			b.Property(p)
		}
		for _, e := range events {
			e.Tags = cfg.tags[e.Name]
			b.Event(e)
		}
	}
	for _, m := range methods {
		m.Tags = cfg.tags[m.Name]
		b.Method(m)
	}
	return b.Build()
}

// MustFromType is like FromType but panics on error.
func MustFromType(t reflect.Type, opts ...Option) *Interface {
	it, err := FromType(t, opts...)
	if err != nil {
		panic(err)
	}
	return it
}

type resultShapeError string

func (e resultShapeError) Error() string { return string(e) }

func methodFromFunc(name string, ft reflect.Type) (*Method, error) {
	m := &Method{Name: name, Variadic: ft.IsVariadic()}
	for i := range ft.NumIn() {
		m.Params = append(m.Params, Param{Name: "arg" + strconv.Itoa(i), Type: ft.In(i)})
	}
	switch ft.NumOut() {
	case 0:
	case 1:
		if ft.Out(0) == errorType {
			m.Err = true
		} else {
			m.Return = ft.Out(0)
		}
	case 2:
		if ft.Out(1) != errorType {
			return nil, resultShapeError("second result must be error")
		}
		m.Return = ft.Out(0)
		m.Err = true
	default:
		return nil, resultShapeError("too many results (" + strconv.Itoa(ft.NumOut()) + ")")
	}
	return m, nil
}

func splitAccessors(methods []*Method) ([]*Method, []*Property, []*Event) {
	byName := make(map[string]*Method, len(methods))
	for _, m := range methods {
		byName[m.Name] = m
	}
	used := make(map[string]struct{})
	var props []*Property
	var events []*Event

	for _, m := range methods {
		if len(m.Params) != 0 || m.Return == nil || m.Err {
			continue
		}
		set, ok := byName[SetterName(m.Name)]
		if !ok || len(set.Params) != 1 || set.Return != nil || set.Err || set.Variadic || set.Params[0].Type != m.Return {
			continue
		}
		props = append(props, &Property{Name: m.Name, Type: m.Return, CanRead: true, CanWrite: true})
		used[m.Name] = struct{}{}
		used[set.Name] = struct{}{}
	}

	for _, m := range methods {
		name, ok := strings.CutPrefix(m.Name, "Add")
		if !ok || name == "" || !isHandlerAccessor(m) {
			continue
		}
		rem, ok := byName[RemoverName(name)]
		if !ok || !isHandlerAccessor(rem) || rem.Params[0].Type != m.Params[0].Type {
			continue
		}
		if _, taken := used[m.Name]; taken {
			continue
		}
		events = append(events, &Event{Name: name, Handler: m.Params[0].Type})
		used[m.Name] = struct{}{}
		used[rem.Name] = struct{}{}
	}

	rest := methods[:0:0]
	for _, m := range methods {
		if _, ok := used[m.Name]; !ok {
			rest = append(rest, m)
		}
	}
	return rest, props, events
}

func isHandlerAccessor(m *Method) bool {
	if len(m.Params) != 1 || m.Return != nil || m.Err || m.Variadic {
		return false
	}
	k := m.Params[0].Type.Kind()
	return k == reflect.Func || k == reflect.Interface || k == reflect.Chan
}

// accessorNames lists the Go method names a contract's closure occupies.
func accessorNames(it *Interface) []string {
	var out []string
	for _, c := range it.Closure() {
		for _, m := range c.Methods {
			out = append(out, m.Name)
		}
		for _, p := range c.Properties {
			if p.CanRead {
				out = append(out, p.Name)
			}
			if p.CanWrite {
				out = append(out, SetterName(p.Name))
			}
		}
		for _, e := range c.Events {
			out = append(out, AdderName(e.Name), RemoverName(e.Name))
		}
	}
	return out
}
