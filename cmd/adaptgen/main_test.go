package main

import (
	"context"
	"fmt"
	"go/parser"
	"go/token"
	"go/types"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const shopSrc = `package shop

import (
	"context"
	"io"
	"time"
)

type Item struct{ SKU string }

// Catalog is a test interface.
type Catalog interface {
	Find(ctx context.Context, sku string) (*Item, error)
	List(skus ...string) []Item
	Ping() error
	Reset()
	TTL() time.Duration
	SetTTL(d time.Duration)
	AddWatcher(fn func(Item))
	RemoveWatcher(fn func(Item))
}

// Store embeds a standard and a local interface.
type Store interface {
	io.Closer
	Catalog
	Save(item Item) error
}

type Number interface{ ~int | ~float64 }

type Pair interface {
	Split() (int, int)
}

type notExported interface{ X() }

type Plain struct{}
`

// writeModule lays out a throwaway module with package shop and returns its directory.
func writeModule(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "go.mod"), []byte("module example.com/shop\n\ngo 1.22\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "shop.go"), []byte(shopSrc), 0o644))
	return dir
}

// -------------------------
// loadTarget
// -------------------------

// TestLoadTarget_Named verifies requested interfaces are described with their method shapes.
func TestLoadTarget_Named(t *testing.T) {
	t.Parallel()
	dir := writeModule(t)

	tg, err := loadTarget(context.Background(), zerolog.Nop(), dir, filepath.Join(dir, defaultOut), []string{"Catalog"})
	require.NoError(t, err)
	assert.Equal(t, "shop", tg.Name)
	assert.Equal(t, "example.com/shop", tg.Path)
	require.Len(t, tg.Interfaces, 1)

	byName := map[string]*method{}
	for _, m := range tg.Interfaces[0].Methods {
		byName[m.Name] = m
	}
	require.Len(t, byName, 8)

	find := byName["Find"]
	assert.True(t, find.Err)
	assert.Equal(t, "*example.com/shop.Item", find.Result.String())
	assert.Equal(t, []string{"ctx", "sku"}, []string{find.Params[0].Name, find.Params[1].Name})
	assert.True(t, find.Named)
	assert.False(t, byName["Ping"].Named)

	assert.True(t, byName["List"].Variadic)
	assert.True(t, byName["Ping"].Err)
	assert.Nil(t, byName["Ping"].Result)
	assert.Nil(t, byName["Reset"].Result)
	assert.False(t, byName["Reset"].Err)
}

// TestLoadTarget_All verifies the default selection skips interfaces that cannot be described.
func TestLoadTarget_All(t *testing.T) {
	t.Parallel()
	dir := writeModule(t)

	tg, err := loadTarget(context.Background(), zerolog.Nop(), dir, filepath.Join(dir, defaultOut), nil)
	require.NoError(t, err)
	require.Len(t, tg.Interfaces, 2)
	assert.Equal(t, "Catalog", tg.Interfaces[0].Name)
	assert.Equal(t, "Store", tg.Interfaces[1].Name)
}

// TestLoadTarget_Parents verifies embedded interfaces are kept as parents and their methods marked inherited.
func TestLoadTarget_Parents(t *testing.T) {
	t.Parallel()
	dir := writeModule(t)

	tg, err := loadTarget(context.Background(), zerolog.Nop(), dir, filepath.Join(dir, defaultOut), []string{"Store"})
	require.NoError(t, err)
	require.Len(t, tg.Interfaces, 1)
	store := tg.Interfaces[0]

	assert.Equal(t, []parent{
		{Name: "Closer", Path: "io"},
		{Name: "Catalog", Path: "example.com/shop"},
	}, store.Parents)

	own := []string{}
	for _, m := range store.Methods {
		if !m.Inherited {
			own = append(own, m.Name)
		}
	}
	assert.Equal(t, []string{"Save"}, own)
	assert.Len(t, store.Methods, 10, "the facade still needs every method")
}

// TestLoadTarget_Errors verifies explicit requests for unusable types fail.
func TestLoadTarget_Errors(t *testing.T) {
	t.Parallel()
	dir := writeModule(t)

	tests := []struct {
		name string
		want string
	}{
		{name: "Missing", want: "no type Missing"},
		{name: "Plain", want: "not an interface type"},
		{name: "Number", want: "constraint interfaces"},
		{name: "Pair", want: "second result must be error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := loadTarget(context.Background(), zerolog.Nop(), dir, filepath.Join(dir, defaultOut), []string{tt.name})
			require.ErrorContains(t, err, tt.want)
		})
	}
}

// -------------------------
// generate
// -------------------------

// TestGenerate verifies the rendered file declares the contract, the facade and its registration.
func TestGenerate(t *testing.T) {
	t.Parallel()
	dir := writeModule(t)

	tg, err := loadTarget(context.Background(), zerolog.Nop(), dir, filepath.Join(dir, defaultOut), []string{"Catalog"})
	require.NoError(t, err)

	src, err := generate(tg, genOptions{
		Accessors: true,
		Tags:      map[string]map[string]map[string]string{"Catalog": {"Find": {"cache": "1m"}}},
	})
	require.NoError(t, err)
	out := string(src)

	for _, want := range []string{
		"// Code generated by adaptgen. DO NOT EDIT.",
		"package shop",
		`"github.com/sghaida/adaptive/adaptive"`,
		`var CatalogContract = contract.MustFromType(reflect.TypeFor[Catalog](), contract.WithAccessors(), contract.WithTag("Find", "cache", "1m"), `,
		`contract.WithParamNames("Find", "ctx", "sku")`,
		`contract.WithParamNames("List", "skus")`,
		`contract.WithParamNames("SetTTL", "d")`,
		"type catalogFacade struct {",
		"d adaptive.Dispatcher",
		`func (fc catalogFacade) Find(ctx context.Context, sku string) (*Item, error) {`,
		`return adaptive.Result[*Item](fc.d.Call("Find", ctx, sku))`,
		`func (fc catalogFacade) List(skus ...string) []Item {`,
		`return adaptive.MustResult[[]Item](fc.d.Call("List", skus))`,
		`_, err := fc.d.Call("Ping")`,
		`if _, err := fc.d.Call("Reset"); err != nil {`,
		`func (fc catalogFacade) AddWatcher(fn func(Item)) {`,
		`func (fc catalogFacade) TTL() time.Duration {`,
		"adaptive.MustRegisterFacade(CatalogContract, func(d adaptive.Dispatcher) Catalog {",
		"return catalogFacade{d: d}",
	} {
		assert.Contains(t, out, want)
	}

	_, err = parser.ParseFile(token.NewFileSet(), "gen.go", src, parser.AllErrors)
	require.NoError(t, err)
}

// TestGenerate_Extends verifies embedded interfaces become contract parents so the base can satisfy them.
func TestGenerate_Extends(t *testing.T) {
	t.Parallel()
	dir := writeModule(t)

	tests := []struct {
		name  string
		names []string
		want  string
	}{
		{
			name:  "parent generated alongside",
			names: []string{"Catalog", "Store"},
			want:  `var StoreContract = contract.MustFromType(reflect.TypeFor[Store](), contract.WithExtends(contract.MustFromType(reflect.TypeFor[io.Closer]()), CatalogContract), contract.WithParamNames("Save", "item"))`,
		},
		{
			name:  "parent described from its type",
			names: []string{"Store"},
			want:  `var StoreContract = contract.MustFromType(reflect.TypeFor[Store](), contract.WithExtends(contract.MustFromType(reflect.TypeFor[io.Closer]()), contract.MustFromType(reflect.TypeFor[Catalog]())), contract.WithParamNames("Save", "item"))`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tg, err := loadTarget(context.Background(), zerolog.Nop(), dir, filepath.Join(dir, defaultOut), tt.names)
			require.NoError(t, err)

			src, err := generate(tg, genOptions{})
			require.NoError(t, err)
			out := string(src)
			assert.Contains(t, out, tt.want)
			assert.Contains(t, out, `func (fc storeFacade) Close() error {`)
			assert.Contains(t, out, `func (fc storeFacade) Find(ctx context.Context, sku string) (*Item, error) {`)

			_, err = parser.ParseFile(token.NewFileSet(), "gen.go", src, parser.AllErrors)
			require.NoError(t, err)
		})
	}
}

// TestTypeCode verifies go/types values are spelled as Go source.
func TestTypeCode(t *testing.T) {
	t.Parallel()

	intT := types.Typ[types.Int]
	tests := []struct {
		name string
		in   types.Type
		want string
	}{
		{name: "basic", in: intT, want: "int"},
		{name: "slice", in: types.NewSlice(intT), want: "[]int"},
		{name: "array", in: types.NewArray(intT, 4), want: "[4]int"},
		{name: "map", in: types.NewMap(types.Typ[types.String], intT), want: "map[string]int"},
		{name: "pointer", in: types.NewPointer(intT), want: "*int"},
		{name: "recv chan", in: types.NewChan(types.RecvOnly, intT), want: "<-chan int"},
		{name: "error", in: errorType, want: "error"},
		{name: "empty interface", in: types.NewInterfaceType(nil, nil), want: "any"},
		{
			name: "func",
			in: types.NewSignatureType(nil, nil, nil,
				types.NewTuple(types.NewParam(token.NoPos, nil, "", intT)),
				types.NewTuple(types.NewParam(token.NoPos, nil, "", errorType)), false),
			want: "func(int) error",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			code, err := typeCode(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, fmt.Sprintf("%#v", code))
		})
	}

	_, err := typeCode(types.NewStruct([]*types.Var{types.NewField(token.NoPos, nil, "A", intT, false)}, nil))
	require.Error(t, err)
}

// -------------------------
// run
// -------------------------

// TestRun_ConfigFile verifies a job file drives generation and regeneration over stale output.
func TestRun_ConfigFile(t *testing.T) {
	t.Parallel()
	dir := writeModule(t)

	cfg := filepath.Join(dir, "adaptgen.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte(`jobs:
  - dir: .
    out: catalog_gen.go
    interfaces: [Catalog]
    accessors: true
`), 0o644))

	require.NoError(t, run([]string{"--config", cfg}))
	first, err := os.ReadFile(filepath.Join(dir, "catalog_gen.go"))
	require.NoError(t, err)
	assert.Contains(t, string(first), "CatalogContract")

	// The generated file imports packages the throwaway module cannot resolve.
	require.NoError(t, run([]string{"--config", cfg}))
	second, err := os.ReadFile(filepath.Join(dir, "catalog_gen.go"))
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}

// TestRun_Flags verifies a single job can be described with flags.
func TestRun_Flags(t *testing.T) {
	t.Parallel()
	dir := writeModule(t)

	require.NoError(t, run([]string{"--dir", dir, "--interfaces", "Catalog"}))
	_, err := os.Stat(filepath.Join(dir, defaultOut))
	require.NoError(t, err)

	require.Error(t, run([]string{"--dir", dir, "--interfaces", "Plain"}))
	require.Error(t, run([]string{"unexpected"}))
}

// TestRun_Env verifies ADAPTGEN_* variables stand in for flags.
func TestRun_Env(t *testing.T) {
	dir := writeModule(t)
	t.Setenv("ADAPTGEN_DIR", dir)
	t.Setenv("ADAPTGEN_OUT", "env_gen.go")

	require.NoError(t, run(nil))
	_, err := os.Stat(filepath.Join(dir, "env_gen.go"))
	require.NoError(t, err)
}

// TestReadJobs verifies defaults and directory resolution in job files.
func TestReadJobs(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	tests := []struct {
		name    string
		body    string
		want    []job
		wantErr string
	}{
		{
			name: "defaults",
			body: "jobs:\n  - interfaces: [A]\n",
			want: []job{{Dir: dir, Out: defaultOut, Interfaces: []string{"A"}}},
		},
		{
			name: "relative dir and tags",
			body: "jobs:\n  - dir: store\n    out: x.go\n    tags:\n      Repo:\n        Find:\n          sql: SELECT 1\n",
			want: []job{{
				Dir:  filepath.Join(dir, "store"),
				Out:  "x.go",
				Tags: map[string]map[string]map[string]string{"Repo": {"Find": {"sql": "SELECT 1"}}},
			}},
		},
		{name: "empty", body: "jobs: []\n", wantErr: "no jobs"},
		{name: "malformed", body: "jobs: {", wantErr: "parse"},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			path := filepath.Join(dir, fmt.Sprintf("jobs%d.yaml", i))
			require.NoError(t, os.WriteFile(path, []byte(tt.body), 0o644))

			got, err := readJobs(path)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
