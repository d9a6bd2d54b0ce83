package main

import (
	"bytes"
	"fmt"
	"go/types"
	"slices"

	"github.com/dave/jennifer/jen"
	"github.com/stoewer/go-strcase"
)

const (
	adaptivePkg = "github.com/sghaida/adaptive/adaptive"
	contractPkg = "github.com/sghaida/adaptive/contract"
)

// genOptions controls how contracts are described.
type genOptions struct {
	Accessors bool
	// Tags maps interface name to member name to tag key and value.
	Tags map[string]map[string]map[string]string
}

// generate renders the contract variables, facades and facade registrations
// for every interface of t.
func generate(t *target, opts genOptions) ([]byte, error) {
	f := jen.NewFilePathName(t.Path, t.Name)
	f.HeaderComment("Code generated by adaptgen. DO NOT EDIT.")
	f.ImportName(adaptivePkg, "adaptive")
	f.ImportName(contractPkg, "contract")

	for _, it := range t.Interfaces {
		if err := emitInterface(f, t, it, opts); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Render(&buf); err != nil {
		return nil, fmt.Errorf("render %s: %w", t.Path, err)
	}
	return buf.Bytes(), nil
}

func contractName(it *iface) string { return it.Name + "Contract" }

func facadeName(it *iface) string { return strcase.LowerCamelCase(it.Name + "Facade") }

func emitInterface(f *jen.File, t *target, it *iface, opts genOptions) error {
	self := jen.Qual(t.Path, it.Name)

	args := []jen.Code{jen.Qual("reflect", "TypeFor").Types(self.Clone()).Call()}
	if len(it.Parents) > 0 {
		parents := make([]jen.Code, 0, len(it.Parents))
		for _, p := range it.Parents {
			parents = append(parents, parentCode(t, p))
		}
		args = append(args, jen.Qual(contractPkg, "WithExtends").Call(parents...))
	}
	if opts.Accessors {
		args = append(args, jen.Qual(contractPkg, "WithAccessors").Call())
	}
	args = append(args, tagOptions(opts.Tags[it.Name])...)
	for _, m := range it.Methods {
		if !m.Named || m.Inherited {
			continue
		}
		names := []jen.Code{jen.Lit(m.Name)}
		for _, p := range m.Params {
			names = append(names, jen.Lit(p.Label))
		}
		args = append(args, jen.Qual(contractPkg, "WithParamNames").Call(names...))
	}

	f.Commentf("%s describes %s for synthesis.", contractName(it), it.Name)
	f.Var().Id(contractName(it)).Op("=").Qual(contractPkg, "MustFromType").Call(args...)
	f.Line()

	f.Commentf("%s forwards %s to a synthesized instance.", facadeName(it), it.Name)
	f.Type().Id(facadeName(it)).Struct(
		jen.Id("d").Qual(adaptivePkg, "Dispatcher"),
	)
	f.Line()

	for _, m := range it.Methods {
		if err := emitMethod(f, it, m); err != nil {
			return fmt.Errorf("%s.%s: %w", it.Name, m.Name, err)
		}
	}

	f.Func().Id("init").Params().Block(
		jen.Qual(adaptivePkg, "MustRegisterFacade").Call(
			jen.Id(contractName(it)),
			jen.Func().Params(jen.Id("d").Qual(adaptivePkg, "Dispatcher")).Add(self.Clone()).Block(
				jen.Return(jen.Id(facadeName(it)).Values(jen.Dict{jen.Id("d"): jen.Id("d")})),
			),
		),
	)
	f.Line()
	return nil
}

// parentCode refers to the contract of p: the generated variable when p is
// generated by the same job, a contract built from the Go type otherwise.
func parentCode(t *target, p parent) jen.Code {
	if p.Path == t.Path && slices.ContainsFunc(t.Interfaces, func(it *iface) bool { return it.Name == p.Name }) {
		return jen.Id(p.Name + "Contract")
	}
	return jen.Qual(contractPkg, "MustFromType").Call(
		jen.Qual("reflect", "TypeFor").Types(jen.Qual(p.Path, p.Name)).Call(),
	)
}

func tagOptions(tags map[string]map[string]string) []jen.Code {
	var out []jen.Code
	members := make([]string, 0, len(tags))
	for m := range tags {
		members = append(members, m)
	}
	slices.Sort(members)
	for _, m := range members {
		keys := make([]string, 0, len(tags[m]))
		for k := range tags[m] {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			out = append(out, jen.Qual(contractPkg, "WithTag").Call(jen.Lit(m), jen.Lit(k), jen.Lit(tags[m][k])))
		}
	}
	return out
}

func emitMethod(f *jen.File, it *iface, m *method) error {
	params := make([]jen.Code, 0, len(m.Params))
	callArgs := []jen.Code{jen.Lit(m.Name)}
	for i, p := range m.Params {
		pt := p.Type
		if m.Variadic && i == len(m.Params)-1 {
			pt = pt.(*types.Slice).Elem()
		}
		code, err := typeCode(pt)
		if err != nil {
			return err
		}
		if m.Variadic && i == len(m.Params)-1 {
			code = jen.Op("...").Add(code)
		}
		params = append(params, jen.Id(p.Name).Add(code))
		callArgs = append(callArgs, jen.Id(p.Name))
	}

	call := jen.Id("fc").Dot("d").Dot("Call").Call(callArgs...)
	var results []jen.Code
	var body []jen.Code

	switch {
	case m.Result == nil && !m.Err:
		body = append(body, jen.If(jen.List(jen.Id("_"), jen.Err()).Op(":=").Add(call), jen.Err().Op("!=").Nil()).Block(
			jen.Panic(jen.Err()),
		))
	case m.Result == nil:
		results = append(results, jen.Error())
		body = append(body,
			jen.List(jen.Id("_"), jen.Err()).Op(":=").Add(call),
			jen.Return(jen.Err()),
		)
	default:
		rt, err := typeCode(m.Result)
		if err != nil {
			return err
		}
		results = append(results, rt)
		conv := "MustResult"
		if m.Err {
			results = append(results, jen.Error())
			conv = "Result"
		}
		body = append(body, jen.Return(jen.Qual(adaptivePkg, conv).Types(rt.Clone()).Call(call)))
	}

	fn := f.Func().Params(jen.Id("fc").Id(facadeName(it))).Id(m.Name).Params(params...)
	if len(results) > 0 {
		fn.Params(results...)
	}
	fn.Block(body...)
	f.Line()
	return nil
}

// typeCode spells t as jennifer code, qualifying named types by package path.
func typeCode(t types.Type) (*jen.Statement, error) {
	switch t := t.(type) {
	case *types.Basic:
		return jen.Id(t.Name()), nil
	case *types.Alias:
		obj := t.Obj()
		if obj.Pkg() == nil {
			return jen.Id(obj.Name()), nil
		}
		return jen.Qual(obj.Pkg().Path(), obj.Name()), nil
	case *types.Named:
		obj := t.Obj()
		var s *jen.Statement
		if obj.Pkg() == nil {
			s = jen.Id(obj.Name())
		} else {
			s = jen.Qual(obj.Pkg().Path(), obj.Name())
		}
		if args := t.TypeArgs(); args.Len() > 0 {
			codes := make([]jen.Code, 0, args.Len())
			for a := range args.Types() {
				c, err := typeCode(a)
				if err != nil {
					return nil, err
				}
				codes = append(codes, c)
			}
			s = s.Types(codes...)
		}
		return s, nil
	case *types.Pointer:
		elem, err := typeCode(t.Elem())
		if err != nil {
			return nil, err
		}
		return jen.Op("*").Add(elem), nil
	case *types.Slice:
		elem, err := typeCode(t.Elem())
		if err != nil {
			return nil, err
		}
		return jen.Index().Add(elem), nil
	case *types.Array:
		elem, err := typeCode(t.Elem())
		if err != nil {
			return nil, err
		}
		return jen.Index(jen.Lit(int(t.Len()))).Add(elem), nil
	case *types.Map:
		key, err := typeCode(t.Key())
		if err != nil {
			return nil, err
		}
		elem, err := typeCode(t.Elem())
		if err != nil {
			return nil, err
		}
		return jen.Map(key).Add(elem), nil
	case *types.Chan:
		elem, err := typeCode(t.Elem())
		if err != nil {
			return nil, err
		}
		switch t.Dir() {
		case types.SendOnly:
			return jen.Chan().Op("<-").Add(elem), nil
		case types.RecvOnly:
			return jen.Op("<-").Chan().Add(elem), nil
		default:
			return jen.Chan().Add(elem), nil
		}
	case *types.Signature:
		in, err := tupleCode(t.Params(), t.Variadic())
		if err != nil {
			return nil, err
		}
		out, err := tupleCode(t.Results(), false)
		if err != nil {
			return nil, err
		}
		fn := jen.Func().Params(in...)
		switch len(out) {
		case 0:
			return fn, nil
		case 1:
			return fn.Add(out[0]), nil
		}
		return fn.Params(out...), nil
	case *types.Interface:
		if t.Empty() {
			return jen.Any(), nil
		}
		return nil, fmt.Errorf("unsupported literal interface type %s", t)
	case *types.Struct:
		if t.NumFields() == 0 {
			return jen.Struct(), nil
		}
		return nil, fmt.Errorf("unsupported literal struct type %s", t)
	default:
		return nil, fmt.Errorf("unsupported type %s", t)
	}
}

func tupleCode(tup *types.Tuple, variadic bool) ([]jen.Code, error) {
	out := make([]jen.Code, 0, tup.Len())
	for i := range tup.Len() {
		vt := tup.At(i).Type()
		last := variadic && i == tup.Len()-1
		if last {
			vt = vt.(*types.Slice).Elem()
		}
		c, err := typeCode(vt)
		if err != nil {
			return nil, err
		}
		if last {
			c = jen.Op("...").Add(c)
		}
		out = append(out, c)
	}
	return out, nil
}
