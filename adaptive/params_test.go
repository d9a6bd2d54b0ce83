package adaptive_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sghaida/adaptive/adaptive"
	"github.com/sghaida/adaptive/contract"
)

func userRepo() *contract.Interface {
	return contract.MustBuild(contract.NewBuilder("UserRepo").
		Method(&contract.Method{
			Name:   "Find",
			Params: []contract.Param{{Name: "id", Type: intType}, {Name: "name", Type: stringType}},
			Return: anyType,
		}).
		Method(&contract.Method{
			Name:   "Find",
			Params: []contract.Param{{Name: "id", Type: intType}},
			Return: anyType,
		}).
		Func("Count", intType))
}

// TestArgPacker verifies call arguments are packed into a container with one property per parameter.
func TestArgPacker(t *testing.T) {
	t.Parallel()

	mod := adaptive.NewModule(t.Name())
	p, err := adaptive.NewArgPacker(mod)
	require.NoError(t, err)

	repo := userRepo()
	find := repo.Methods[0]

	it, err := p.ParamsInterface(find)
	require.NoError(t, err)
	assert.Equal(t, "UserRepoFindArgs", it.Name)
	require.Len(t, it.Properties, 2)
	assert.Equal(t, "Id", it.Properties[0].Name)
	assert.Equal(t, intType, it.Properties[0].Type)

	again, err := p.ParamsInterface(find)
	require.NoError(t, err)
	assert.Same(t, it, again)

	overload, err := p.ParamsInterface(repo.Methods[1])
	require.NoError(t, err)
	assert.Equal(t, "UserRepoFindArgs2", overload.Name)

	in, err := p.PackArgs(find, []any{7, "ada"})
	require.NoError(t, err)
	assert.True(t, in.Implements(it))

	v, err := in.Get(adaptive.ParamName(find, 0))
	require.NoError(t, err)
	assert.Equal(t, 7, v)
	v, err = in.Get("Name")
	require.NoError(t, err)
	assert.Equal(t, "ada", v)

	_, err = p.PackArgs(find, []any{7})
	require.ErrorIs(t, err, adaptive.ErrArgumentCount)

	_, err = p.PackArgs(find, []any{"seven", "ada"})
	require.Error(t, err)

	empty, err := p.PackArgs(repo.Methods[2], nil)
	require.NoError(t, err)
	assert.Empty(t, empty.Type().Methods())
}

// TestParamName verifies unnamed parameters get positional names.
func TestParamName(t *testing.T) {
	t.Parallel()

	m := &contract.Method{Name: "Exec", Params: []contract.Param{{Name: "query_text"}, {}, {Name: "_"}}}
	assert.Equal(t, "QueryText", adaptive.ParamName(m, 0))
	assert.Equal(t, "Arg1", adaptive.ParamName(m, 1))
	assert.Equal(t, "Arg2", adaptive.ParamName(m, 2))
}

// TestModule_Names verifies the module lists types sorted and rejects foreign lookups.
func TestModule_Names(t *testing.T) {
	t.Parallel()

	f, mod := newCounterFactory(t)
	f.Methods(nil).UsingSharedExecutor(nil, countArgs)

	a, err := f.Implement(calculator())
	require.NoError(t, err)
	b, err := f.Implement(contract.MustBuild(contract.NewBuilder("Pinger").Func("Ping", nil)))
	require.NoError(t, err)

	names := mod.Names()
	assert.ElementsMatch(t, []string{a.Name(), b.Name()}, names)
	assert.IsNonDecreasing(t, names)
	assert.Equal(t, t.Name(), mod.Name())

	_, ok := adaptive.LookupType[Greeter](mod, a.Name())
	assert.False(t, ok, "type was synthesized for another base")
	_, ok = mod.Get("nope")
	assert.False(t, ok)
}
