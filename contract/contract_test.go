package contract_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sghaida/adaptive/contract"
)

var (
	intType    = reflect.TypeFor[int]()
	stringType = reflect.TypeFor[string]()
)

type Named interface {
	Name() string
	SetName(string)
}

type Greeter interface {
	Named
	Greet(greeting string) (string, error)
	AddGreeted(func(string))
	RemoveGreeted(func(string))
}

type badResults interface {
	Pair() (int, int)
}

func buildBase(t *testing.T) *contract.Interface {
	t.Helper()
	it, err := contract.NewBuilder("Base").
		PkgPath("example.com/shapes").
		Func("Ping", nil).
		Build()
	require.NoError(t, err)
	return it
}

//
// -----------------------------------------------------------------------------
// Builder
// -----------------------------------------------------------------------------

// TestBuilder_Build verifies a valid description builds and members know their declaring interface.
func TestBuilder_Build(t *testing.T) {
	t.Parallel()

	it, err := contract.NewBuilder("Calc").
		Func("Add", intType, intType, intType).
		Prop("Total", intType).
		Event(&contract.Event{Name: "Changed", Handler: reflect.TypeFor[func()]()}).
		Build()
	require.NoError(t, err)

	require.Len(t, it.Methods, 1)
	assert.Same(t, it, it.Methods[0].Declaring())
	assert.Equal(t, "Add(int, int) int", it.Methods[0].Signature())
	assert.Equal(t, "Calc.Add(int, int) int", it.Methods[0].String())

	p, ok := it.Property("Total")
	require.True(t, ok)
	assert.Same(t, it, p.Declaring())
	assert.Equal(t, contract.KindProperty, p.Kind())

	e, ok := it.Event("Changed")
	require.True(t, ok)
	assert.Equal(t, "AddChanged", e.Adder().Name)
	assert.Equal(t, "RemoveChanged", e.Remover().Name)
	assert.Same(t, e, e.Adder().Accessor())
}

// TestBuilder_Invalid verifies malformed descriptions fail with InvalidContractError.
func TestBuilder_Invalid(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		b    *contract.Builder
	}{
		{"bad name", contract.NewBuilder("not valid")},
		{"nil param type", contract.NewBuilder("C").Func("M", nil, nil)},
		{"duplicate overload", contract.NewBuilder("C").Func("M", nil, intType).Func("M", intType, intType)},
		{"variadic without slice", contract.NewBuilder("C").Method(&contract.Method{Name: "M", Variadic: true, Params: []contract.Param{{Name: "a", Type: intType}}})},
		{"property without type", contract.NewBuilder("C").Property(&contract.Property{Name: "P", CanRead: true})},
		{"property without accessors", contract.NewBuilder("C").Property(&contract.Property{Name: "P", Type: intType})},
		{"duplicate member", contract.NewBuilder("C").Prop("P", intType).Event(&contract.Event{Name: "P", Handler: reflect.TypeFor[func()]()})},
		{"event without handler", contract.NewBuilder("C").Event(&contract.Event{Name: "E"})},
		{"go type not interface", contract.NewBuilder("C").GoType(intType)},
		{"nil parent", contract.NewBuilder("C").Extends(nil)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			it, err := tc.b.Build()
			require.Error(t, err)
			assert.Nil(t, it)
			assert.True(t, errors.Is(err, contract.ErrInvalidContract))

			var ice *contract.InvalidContractError
			require.True(t, errors.As(err, &ice))
		})
	}
}

// TestBuilder_OverloadsAllowed verifies methods may share a name when their parameters differ.
func TestBuilder_OverloadsAllowed(t *testing.T) {
	t.Parallel()

	it, err := contract.NewBuilder("Printer").
		Func("Print", nil, intType).
		Func("Print", nil, stringType).
		Build()
	require.NoError(t, err)
	assert.Len(t, it.MethodsNamed("Print"), 2)
}

// TestMustBuild_Panics verifies MustBuild panics with the build error.
func TestMustBuild_Panics(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { contract.MustBuild(contract.NewBuilder("")) })
}

//
// -----------------------------------------------------------------------------
// Closure / Fingerprint
// -----------------------------------------------------------------------------

// TestClosure_AncestorsFirst verifies the closure lists ancestors depth first without duplicates.
func TestClosure_AncestorsFirst(t *testing.T) {
	t.Parallel()

	a := contract.MustBuild(contract.NewBuilder("A").Func("A", nil))
	b := contract.MustBuild(contract.NewBuilder("B").Extends(a).Func("B", nil))
	c := contract.MustBuild(contract.NewBuilder("C").Extends(a).Func("C", nil))
	d := contract.MustBuild(contract.NewBuilder("D").Extends(b, c).Func("D", nil))

	assert.Equal(t, []*contract.Interface{a, b, c, d}, d.Closure())
	assert.True(t, d.Inherits(a))
	assert.True(t, d.Inherits(d))
	assert.False(t, b.Inherits(c))
}

// TestFingerprint_StableAndShapeSensitive verifies equal shapes hash equally and any change alters the hash.
func TestFingerprint_StableAndShapeSensitive(t *testing.T) {
	t.Parallel()

	base := buildBase(t)
	mk := func(ret reflect.Type, tag string) *contract.Interface {
		m := &contract.Method{Name: "Get", Return: ret}
		if tag != "" {
			m.Tags = map[string]string{"sql": tag}
		}
		return contract.MustBuild(contract.NewBuilder("Repo").Extends(base).Method(m))
	}

	x, y := mk(intType, ""), mk(intType, "")
	assert.Equal(t, x.Fingerprint(), y.Fingerprint())
	assert.Len(t, x.Fingerprint(), 16)

	assert.NotEqual(t, x.Fingerprint(), mk(stringType, "").Fingerprint())
	assert.NotEqual(t, x.Fingerprint(), mk(intType, "select 1").Fingerprint())
}

// TestPublic verifies exported names are public.
func TestPublic(t *testing.T) {
	t.Parallel()

	assert.True(t, contract.MustBuild(contract.NewBuilder("Repo")).Public())
	assert.False(t, contract.MustBuild(contract.NewBuilder("repo")).Public())
}

// TestProperty_Accessors verifies getter and setter shapes follow the Go accessor convention.
func TestProperty_Accessors(t *testing.T) {
	t.Parallel()

	it := contract.MustBuild(contract.NewBuilder("P").
		Property(&contract.Property{Name: "Size", Type: intType, CanRead: true}))
	p, _ := it.Property("Size")

	g := p.Getter()
	require.NotNil(t, g)
	assert.Equal(t, "Size() int", g.Signature())
	assert.Nil(t, p.Setter())
}

//
// -----------------------------------------------------------------------------
// FromType
// -----------------------------------------------------------------------------

// TestFromType_Accessors verifies accessor pairs become properties and events and parents are subtracted.
func TestFromType_Accessors(t *testing.T) {
	t.Parallel()

	named, err := contract.FromType(reflect.TypeFor[Named](), contract.WithAccessors())
	require.NoError(t, err)
	require.Len(t, named.Properties, 1)
	assert.Empty(t, named.Methods)
	assert.Equal(t, "Name", named.Properties[0].Name)

	greeter, err := contract.FromType(reflect.TypeFor[Greeter](),
		contract.WithAccessors(),
		contract.WithExtends(named),
		contract.WithTag("Greet", "log", "info"),
	)
	require.NoError(t, err)
	assert.Equal(t, []*contract.Interface{named, greeter}, greeter.Closure())
	assert.Empty(t, greeter.Properties)

	require.Len(t, greeter.Methods, 1)
	m := greeter.Methods[0]
	assert.Equal(t, "Greet", m.Name)
	assert.Equal(t, stringType, m.Return)
	assert.True(t, m.Err)
	v, ok := m.Tag("log")
	assert.True(t, ok)
	assert.Equal(t, "info", v)

	e, ok := greeter.Event("Greeted")
	require.True(t, ok)
	assert.Equal(t, reflect.TypeFor[func(string)](), e.Handler)
	assert.Equal(t, reflect.TypeFor[Greeter](), greeter.GoType)
}

// TestFromType_PlainMethods verifies that without WithAccessors every method stays a method.
func TestFromType_PlainMethods(t *testing.T) {
	t.Parallel()

	it, err := contract.FromType(reflect.TypeFor[Named]())
	require.NoError(t, err)
	assert.Len(t, it.Methods, 2)
	assert.Empty(t, it.Properties)
	assert.Equal(t, "github.com/sghaida/adaptive/contract_test.Named", it.QualifiedName())
}

// TestFromType_ParamNames verifies parameter names can be supplied and must match the arity.
func TestFromType_ParamNames(t *testing.T) {
	t.Parallel()

	it, err := contract.FromType(reflect.TypeFor[Greeter](), contract.WithParamNames("Greet", "greeting"))
	require.NoError(t, err)
	greet := it.MethodsNamed("Greet")
	require.Len(t, greet, 1)
	assert.Equal(t, "greeting", greet[0].Params[0].Name)

	set := it.MethodsNamed("SetName")
	require.Len(t, set, 1)
	assert.Equal(t, "arg0", set[0].Params[0].Name)

	_, err = contract.FromType(reflect.TypeFor[Greeter](), contract.WithParamNames("Greet", "a", "b"))
	require.ErrorIs(t, err, contract.ErrInvalidContract)
}

// TestFromType_Rejects verifies non-interfaces and unsupported result lists are rejected.
func TestFromType_Rejects(t *testing.T) {
	t.Parallel()

	_, err := contract.FromType(intType)
	require.ErrorIs(t, err, contract.ErrInvalidContract)

	_, err = contract.FromType(reflect.TypeFor[badResults]())
	var ice *contract.InvalidContractError
	require.ErrorAs(t, err, &ice)
	assert.Equal(t, "Pair", ice.Member)

	_, err = contract.FromType(reflect.TypeFor[interface{ M() }]())
	require.ErrorIs(t, err, contract.ErrInvalidContract)

	it, err := contract.FromType(reflect.TypeFor[interface{ M() }](), contract.WithName("Anon"))
	require.NoError(t, err)
	assert.Equal(t, "Anon", it.Name)
}

//
// -----------------------------------------------------------------------------
// Define
// -----------------------------------------------------------------------------

// TestDefine_ExactAccessors verifies an ad hoc interface exposes exactly the requested accessors.
func TestDefine_ExactAccessors(t *testing.T) {
	t.Parallel()

	parent := buildBase(t)
	it, err := contract.Define("QueryArgs", parent,
		contract.Prop("ID", intType),
		contract.PropertyDescriptor{Name: "Label", Type: stringType, CanRead: true},
	)
	require.NoError(t, err)
	require.Len(t, it.Properties, 2)
	assert.Equal(t, []*contract.Interface{parent, it}, it.Closure())

	id, _ := it.Property("ID")
	assert.NotNil(t, id.Getter())
	assert.NotNil(t, id.Setter())

	label, _ := it.Property("Label")
	assert.NotNil(t, label.Getter())
	assert.Nil(t, label.Setter())
}

// TestDefine_Invalid verifies descriptor errors surface from Define.
func TestDefine_Invalid(t *testing.T) {
	t.Parallel()

	_, err := contract.Define("Args", nil, contract.PropertyDescriptor{Name: "X", Type: intType})
	require.ErrorIs(t, err, contract.ErrInvalidContract)

	_, err = contract.Define("Args", nil, contract.Prop("X", intType), contract.Prop("X", stringType))
	require.ErrorIs(t, err, contract.ErrInvalidContract)
}
