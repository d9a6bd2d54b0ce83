package adaptive_test

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sghaida/adaptive/adaptive"
	"github.com/sghaida/adaptive/contract"
)

// Account is forwarded to by AccountProxy.
type Account interface {
	Balance() int
	Deposit(n int) (int, error)
	Owner() string
	SetOwner(owner string)
}

type account struct {
	balance int
	owner   string
}

func (a *account) Balance() int { return a.balance }

func (a *account) Deposit(n int) (int, error) {
	if n <= 0 {
		return a.balance, errors.New("deposit must be positive")
	}
	a.balance += n
	return a.balance, nil
}

func (a *account) Owner() string         { return a.owner }
func (a *account) SetOwner(owner string) { a.owner = owner }

// AccountProxy holds the forwarding target in an unexported field.
type AccountProxy struct {
	target Account
}

func newAccountProxy(a Account) *AccountProxy { return &AccountProxy{target: a} }

//
// -----------------------------------------------------------------------------
// Proxy
// -----------------------------------------------------------------------------

// TestProxyFactory_Forwards verifies methods and property accessors reach the target.
func TestProxyFactory_Forwards(t *testing.T) {
	t.Parallel()

	f, err := adaptive.NewProxyFactory[AccountProxy]("target",
		adaptive.WithModule(adaptive.NewModule(t.Name())),
		adaptive.WithConstructors(newAccountProxy),
	)
	require.NoError(t, err)

	it := contract.MustFromType(reflect.TypeFor[Account](), contract.WithAccessors())
	require.Len(t, it.Properties, 1)

	acc := &account{balance: 10, owner: "ada"}
	in, err := f.Create(it, acc)
	require.NoError(t, err)

	got, err := in.Call("Deposit", 5)
	require.NoError(t, err)
	assert.Equal(t, 15, got)
	assert.Equal(t, 15, acc.balance)

	_, err = in.Call("Deposit", -1)
	require.EqualError(t, err, "deposit must be positive")

	got, err = in.Get("Owner")
	require.NoError(t, err)
	assert.Equal(t, "ada", got)

	require.NoError(t, in.Set("Owner", "bob"))
	assert.Equal(t, "bob", acc.owner)
}

// TestProxyFactory_NilTarget verifies a nil target fails at call time.
func TestProxyFactory_NilTarget(t *testing.T) {
	t.Parallel()

	f, err := adaptive.NewProxyFactory[AccountProxy]("target",
		adaptive.WithModule(adaptive.NewModule(t.Name())),
		adaptive.WithConstructors(newAccountProxy),
	)
	require.NoError(t, err)

	in, err := f.Create(contract.MustFromType(reflect.TypeFor[Account]()), nil)
	require.NoError(t, err)

	_, err = in.Call("Balance")
	require.ErrorIs(t, err, adaptive.ErrNilTarget)
}

// TestProxyFactory_Selector verifies a selector maps members to differently named target methods.
func TestProxyFactory_Selector(t *testing.T) {
	t.Parallel()

	f, err := adaptive.NewFactory[AccountProxy](
		adaptive.WithModule(adaptive.NewModule(t.Name())),
		adaptive.WithConstructors(newAccountProxy),
	)
	require.NoError(t, err)
	f.Methods(nil).UsingTargetSelector("target", func(m *contract.Method) string {
		return m.Name[len("Get"):]
	})

	it := contract.MustBuild(contract.NewBuilder("Ledger").Func("GetBalance", intType))
	in, err := f.Create(it, &account{balance: 3})
	require.NoError(t, err)

	got, err := in.Call("GetBalance")
	require.NoError(t, err)
	assert.Equal(t, 3, got)

	mismatch := contract.MustBuild(contract.NewBuilder("Broken").Func("GetBalance", stringType))
	_, err = f.Implement(mismatch)
	require.ErrorIs(t, err, adaptive.ErrBinding, "int result does not fit string")
}

// TestProxyFactory_UnknownTarget verifies a missing source is reported when the factory is built.
func TestProxyFactory_UnknownTarget(t *testing.T) {
	t.Parallel()

	_, err := adaptive.NewProxyFactory[AccountProxy]("missing")
	require.ErrorIs(t, err, adaptive.ErrBinding)
}

//
// -----------------------------------------------------------------------------
// DTO
// -----------------------------------------------------------------------------

// Model records change notifications.
type Model struct {
	events []string
}

func (m *Model) OnChanging(p *contract.Property, v any) {
	m.events = append(m.events, fmt.Sprintf("changing %s to %v", p.Name, v))
}

func (m *Model) OnChanged(p *contract.Property, v any) {
	m.events = append(m.events, fmt.Sprintf("changed %s", p.Name))
}

// TestDTOFactory_Notifies verifies writes are stored and bracketed by the named hooks.
func TestDTOFactory_Notifies(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		changing string
		changed  string
		want     []string
	}{
		{
			name:     "both hooks",
			changing: "OnChanging",
			changed:  "OnChanged",
			want:     []string{"changing Name to ada", "changed Name"},
		},
		{
			name:    "changed only",
			changed: "OnChanged",
			want:    []string{"changed Name"},
		},
		{
			name: "no hooks",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f, err := adaptive.NewDTOFactory[Model](tt.changing, tt.changed,
				adaptive.WithModule(adaptive.NewModule(t.Name())))
			require.NoError(t, err)

			in, err := f.Create(person())
			require.NoError(t, err)
			require.NoError(t, in.Set("Name", "ada"))

			got, err := in.Get("Name")
			require.NoError(t, err)
			assert.Equal(t, "ada", got)
			assert.Equal(t, tt.want, in.Base().events)
		})
	}
}

// TestDTOFactory_UnknownHook verifies hook names are checked when the factory is built.
func TestDTOFactory_UnknownHook(t *testing.T) {
	t.Parallel()

	_, err := adaptive.NewDTOFactory[Model]("OnChanging", "OnSaved")
	require.ErrorIs(t, err, adaptive.ErrBinding)
}

// TestDefineInterface_DTO verifies an ad hoc interface defined in a module drives a DTO.
func TestDefineInterface_DTO(t *testing.T) {
	t.Parallel()

	mod := adaptive.NewModule(t.Name())
	it, err := mod.DefineInterface("Point", nil,
		contract.Prop("X", intType),
		contract.PropertyDescriptor{Name: "Label", Type: stringType, CanRead: true},
	)
	require.NoError(t, err)

	_, err = mod.DefineInterface("Point", nil, contract.Prop("Y", intType))
	require.ErrorIs(t, err, adaptive.ErrDuplicateName)

	got, ok := mod.Interface("Point")
	require.True(t, ok)
	assert.Same(t, it, got)

	f, err := adaptive.NewDTOFactory[Model]("", "OnChanged", adaptive.WithModule(mod))
	require.NoError(t, err)
	in, err := f.Create(it)
	require.NoError(t, err)

	require.NoError(t, in.Set("X", 4))
	v, err := in.Get("X")
	require.NoError(t, err)
	assert.Equal(t, 4, v)
	require.ErrorIs(t, in.Set("Label", "p"), adaptive.ErrUnknownMember, "read-only")
	assert.Equal(t, []string{"changed X"}, in.Base().events)
}
