package main

import (
	"context"
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog"
	"golang.org/x/tools/go/packages"
)

// target is the package a job generates into.
type target struct {
	Name       string
	Path       string
	Interfaces []*iface
}

type iface struct {
	Name    string
	Methods []*method
	// Parents are the named interfaces embedded in the declaration.
	Parents []parent
}

// parent is an embedded interface, referred to by package path and name.
// Path is empty for the predeclared error.
type parent struct {
	Name string
	Path string
}

type method struct {
	Name     string
	Params   []param
	Variadic bool
	Result   types.Type
	Err      bool
	// Named is set when the source names at least one parameter.
	Named bool
	// Inherited is set for methods that come from a parent.
	Inherited bool
}

type param struct {
	// Name is the identifier used in the facade, Label the name the
	// contract carries.
	Name  string
	Label string
	Type  types.Type
}

// reserved names cannot be used for facade method parameters.
var reserved = map[string]bool{"fc": true, "err": true, "adaptive": true, "contract": true, "reflect": true}

var errorType = types.Universe.Lookup("error").Type()

// loadTarget type-checks the package in dir and collects the named
// interfaces, or every exported interface when names is empty. out is
// blanked during loading so a stale generated file cannot break the build.
func loadTarget(ctx context.Context, log zerolog.Logger, dir, out string, names []string) (*target, error) {
	cfg := &packages.Config{
		Context: ctx,
		Dir:     dir,
		Mode:    packages.NeedName | packages.NeedTypes | packages.NeedFiles,
	}
	if name, ok := packageClause(out); ok {
		abs, err := filepath.Abs(out)
		if err != nil {
			return nil, err
		}
		cfg.Overlay = map[string][]byte{abs: []byte("package " + name + "\n")}
	}

	pkgs, err := packages.Load(cfg, ".")
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", dir, err)
	}
	if len(pkgs) != 1 {
		return nil, fmt.Errorf("load %s: want one package, got %d", dir, len(pkgs))
	}
	pkg := pkgs[0]
	if len(pkg.Errors) > 0 {
		errs := make([]error, 0, len(pkg.Errors))
		for _, e := range pkg.Errors {
			errs = append(errs, e)
		}
		return nil, fmt.Errorf("load %s: %w", dir, errors.Join(errs...))
	}

	t := &target{Name: pkg.Name, Path: pkg.PkgPath}
	scope := pkg.Types.Scope()

	if len(names) == 0 {
		for _, name := range scope.Names() {
			if !ast.IsExported(name) {
				continue
			}
			tn, ok := scope.Lookup(name).(*types.TypeName)
			if !ok || tn.IsAlias() {
				continue
			}
			if _, ok := tn.Type().Underlying().(*types.Interface); !ok {
				continue
			}
			it, err := describe(tn)
			if err != nil {
				log.Debug().Str("interface", name).Err(err).Msg("skipped")
				continue
			}
			t.Interfaces = append(t.Interfaces, it)
		}
		return t, nil
	}

	for _, name := range names {
		tn, ok := scope.Lookup(name).(*types.TypeName)
		if !ok {
			return nil, fmt.Errorf("%s: no type %s", t.Path, name)
		}
		it, err := describe(tn)
		if err != nil {
			return nil, err
		}
		t.Interfaces = append(t.Interfaces, it)
	}
	return t, nil
}

func describe(tn *types.TypeName) (*iface, error) {
	named, ok := tn.Type().(*types.Named)
	if !ok {
		return nil, fmt.Errorf("%s: not a defined type", tn.Name())
	}
	if named.TypeParams().Len() > 0 {
		return nil, fmt.Errorf("%s: generic interfaces are not supported", tn.Name())
	}
	it, ok := named.Underlying().(*types.Interface)
	if !ok {
		return nil, fmt.Errorf("%s: not an interface type", tn.Name())
	}
	if !it.IsMethodSet() {
		return nil, fmt.Errorf("%s: constraint interfaces are not supported", tn.Name())
	}

	out := &iface{Name: tn.Name()}
	inherited := make(map[string]bool)
	for i := range it.NumEmbeddeds() {
		pn, ok := types.Unalias(it.EmbeddedType(i)).(*types.Named)
		if !ok || pn.TypeArgs().Len() > 0 {
			continue
		}
		pi, ok := pn.Underlying().(*types.Interface)
		if !ok || pi.NumMethods() == 0 {
			continue
		}
		p := parent{Name: pn.Obj().Name()}
		if pkg := pn.Obj().Pkg(); pkg != nil {
			p.Path = pkg.Path()
		}
		out.Parents = append(out.Parents, p)
		for j := range pi.NumMethods() {
			inherited[pi.Method(j).Name()] = true
		}
	}

	for i := range it.NumMethods() {
		fn := it.Method(i)
		if !fn.Exported() {
			return nil, fmt.Errorf("%s.%s: unexported method", tn.Name(), fn.Name())
		}
		m, err := describeMethod(fn)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", tn.Name(), fn.Name(), err)
		}
		m.Inherited = inherited[m.Name]
		out.Methods = append(out.Methods, m)
	}
	return out, nil
}

func describeMethod(fn *types.Func) (*method, error) {
	sig := fn.Type().(*types.Signature)
	m := &method{Name: fn.Name(), Variadic: sig.Variadic()}

	seen := make(map[string]bool)
	for i := range sig.Params().Len() {
		v := sig.Params().At(i)
		label := v.Name()
		if label == "" || label == "_" {
			label = "arg" + strconv.Itoa(i)
		} else {
			m.Named = true
		}
		name := label
		if reserved[name] || seen[name] {
			name = "arg" + strconv.Itoa(i)
		}
		seen[name] = true
		m.Params = append(m.Params, param{Name: name, Label: label, Type: v.Type()})
	}

	res := sig.Results()
	switch res.Len() {
	case 0:
	case 1:
		if types.Identical(res.At(0).Type(), errorType) {
			m.Err = true
		} else {
			m.Result = res.At(0).Type()
		}
	case 2:
		if !types.Identical(res.At(1).Type(), errorType) {
			return nil, errors.New("second result must be error")
		}
		m.Result = res.At(0).Type()
		m.Err = true
	default:
		return nil, fmt.Errorf("too many results (%d)", res.Len())
	}
	return m, nil
}

// packageClause reports the package name of an existing Go file.
func packageClause(path string) (string, bool) {
	src, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	f, err := parser.ParseFile(token.NewFileSet(), path, src, parser.PackageClauseOnly)
	if err != nil {
		return "", false
	}
	return f.Name.Name, true
}
