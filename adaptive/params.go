package adaptive

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"sync"

	"github.com/stoewer/go-strcase"

	"github.com/sghaida/adaptive/contract"
)

// Object is the empty base of argument containers.
type Object struct{}

// ArgPacker collapses the arguments of a call into one instance with a
// property per parameter, so a single value can carry them to code that
// works on names rather than positions.
type ArgPacker struct {
	module  *Module
	factory *Factory[Object]

	mu        sync.Mutex
	contracts map[*contract.Method]*contract.Interface
}

// NewArgPacker returns a packer defining its containers in mod.
func NewArgPacker(mod *Module, opts ...Option) (*ArgPacker, error) {
	if mod == nil {
		mod = DefaultModule()
	}
	f, err := NewFactory[Object](append(slices.Clip(opts), WithModule(mod))...)
	if err != nil {
		return nil, err
	}
	f.Properties(nil).UsingBackingField()
	return &ArgPacker{
		module:    mod,
		factory:   f,
		contracts: map[*contract.Method]*contract.Interface{},
	}, nil
}

// ParamName returns the property name carrying parameter i of m.
func ParamName(m *contract.Method, i int) string {
	if name := m.Params[i].Name; name != "" && name != "_" {
		return strcase.UpperCamelCase(name)
	}
	return "Arg" + strconv.Itoa(i)
}

// ParamsInterface returns the container interface for m, defining it in the
// module on first use. It is named after the declaring interface and the
// method, e.g. UserRepoFindArgs.
func (p *ArgPacker) ParamsInterface(m *contract.Method) (*contract.Interface, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if it, ok := p.contracts[m]; ok {
		return it, nil
	}

	props := make([]contract.PropertyDescriptor, len(m.Params))
	for i, param := range m.Params {
		props[i] = contract.Prop(ParamName(m, i), param.Type)
	}
	prefix := ""
	if d := m.Declaring(); d != nil {
		prefix = d.Name + "_"
	}
	base := strcase.UpperCamelCase(prefix + m.Name + "_args")

	// Overloads share a base name; later ones get a numeric suffix.
	for n := 1; ; n++ {
		name := base
		if n > 1 {
			name += strconv.Itoa(n)
		}
		it, err := p.module.DefineInterface(name, nil, props...)
		if errors.Is(err, ErrDuplicateName) {
			continue
		}
		if err != nil {
			return nil, err
		}
		p.contracts[m] = it
		return it, nil
	}
}

// PackArgs returns a container holding args under m's parameter names.
// args are in declared form: a variadic tail is one slice.
func (p *ArgPacker) PackArgs(m *contract.Method, args []any) (*Instance[Object], error) {
	if len(args) != len(m.Params) {
		return nil, fmt.Errorf("%w: %s takes %d, got %d", ErrArgumentCount, m, len(m.Params), len(args))
	}
	it, err := p.ParamsInterface(m)
	if err != nil {
		return nil, err
	}
	in, err := p.factory.Create(it)
	if err != nil {
		return nil, err
	}
	for i, a := range args {
		if err := in.Set(ParamName(m, i), a); err != nil {
			return nil, err
		}
	}
	return in, nil
}
