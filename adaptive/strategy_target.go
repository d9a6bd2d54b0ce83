package adaptive

import (
	"fmt"
	"reflect"

	"github.com/sghaida/adaptive/contract"
	"github.com/sghaida/adaptive/internal/unsafeutil"
	"github.com/sghaida/adaptive/resolve"
)

type targetFetch[T any] func(in *Instance[T]) (reflect.Value, error)

// Target forwards methods to an object fetched from the base value. source
// names a field of the base struct (exported or not), or an instance method or
// static taking no arguments. The method called selector(m), or m's own name
// when selector is nil, is resolved on the target's static type during
// synthesis. When that type is an interface lacking the method, resolution is
// deferred to the target's dynamic type at call time.
func Target[T any](source string, selector func(*contract.Method) string) MethodStrategy[T] {
	return func(ctx *MethodContext[T]) error {
		fetch, static, err := targetFetcher(ctx.buildContext, source)
		if err != nil {
			return err
		}
		m := ctx.Method
		name := m.Name
		if selector != nil {
			name = selector(m)
		}

		if tm, ok := static.MethodByName(name); ok {
			skip := 1
			if static.Kind() == reflect.Interface {
				skip = 0
			}
			if !forwardable(tm.Type, skip, m) {
				return &BindingError{Target: static, Name: name, Return: m.Return, Params: m.ParamTypes(), Err: resolve.ErrSignatureNotFound, Reason: "target method has a different shape"}
			}
		} else if static.Kind() != reflect.Interface {
			return &BindingError{Target: static, Name: name, Return: m.Return, Params: m.ParamTypes(), Err: resolve.ErrSignatureNotFound, Reason: "target has no such method"}
		}

		ctx.Invoke = func(in *Instance[T], args []any) (any, error) {
			tv, err := fetch(in)
			if err != nil {
				return nil, err
			}
			if tv.Kind() == reflect.Interface {
				tv = tv.Elem()
			}
			if !tv.IsValid() || isNil(tv) {
				return nil, fmt.Errorf("%w: %s.%s", ErrNilTarget, ctx.Base(), source)
			}
			fn := tv.MethodByName(name)
			if !fn.IsValid() {
				return nil, &BindingError{Target: tv.Type(), Name: name, Return: m.Return, Params: m.ParamTypes(), Err: resolve.ErrSignatureNotFound, Reason: "dynamic target has no such method"}
			}
			return callForward(fn, args)
		}
		return nil
	}
}

// targetFetcher resolves source on the base type and returns an accessor for
// the target plus the target's static type.
func targetFetcher[T any](c *buildContext[T], source string) (targetFetch[T], reflect.Type, error) {
	if sf, ok := c.Base().FieldByName(source); ok {
		static := sf.Type
		addr := static.Kind() == reflect.Struct
		if addr {
			static = reflect.PointerTo(static)
		}
		return func(in *Instance[T]) (reflect.Value, error) {
			fv, ok := unsafeutil.Field(reflect.ValueOf(in.Base()), source)
			if !ok {
				return reflect.Value{}, fmt.Errorf("%w: %s.%s", ErrNilTarget, c.Base(), source)
			}
			if addr {
				return fv.Addr(), nil
			}
			return fv, nil
		}, static, nil
	}

	f, err := c.bind(source, nil)
	if err != nil {
		return nil, nil, err
	}
	if f.Out == nil {
		return nil, nil, &BindingError{Target: c.resolver.Target(), Name: source, Err: resolve.ErrSignatureNotFound, Reason: "target accessor returns nothing"}
	}
	return func(in *Instance[T]) (reflect.Value, error) {
		v, err := f.Call(in.Base())
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(v), nil
	}, f.Out, nil
}

// forwardable reports whether a target method of type ft (with skip leading
// receiver parameters) can serve m: same arity and variadic-ness, every
// declared parameter assignable to the target's, and a result assignable to
// m's when m returns one.
func forwardable(ft reflect.Type, skip int, m *contract.Method) bool {
	if ft.NumIn()-skip != len(m.Params) || ft.IsVariadic() != m.Variadic {
		return false
	}
	for i, p := range m.Params {
		if !p.Type.AssignableTo(ft.In(i + skip)) {
			return false
		}
	}
	if m.Return == nil {
		return true
	}
	return ft.NumOut() > 0 && ft.Out(0) != errorType && ft.Out(0).AssignableTo(m.Return)
}

var errorType = reflect.TypeFor[error]()

// callForward calls fn with args already in declared form and splits a
// trailing error result off.
func callForward(fn reflect.Value, args []any) (any, error) {
	ft := fn.Type()
	if len(args) != ft.NumIn() {
		return nil, fmt.Errorf("%w: target %s takes %d, got %d", ErrArgumentCount, ft, ft.NumIn(), len(args))
	}
	in := make([]reflect.Value, len(args))
	for i, a := range args {
		v, err := resolve.Coerce(a, ft.In(i))
		if err != nil {
			return nil, err
		}
		in[i] = v
	}
	var out []reflect.Value
	if ft.IsVariadic() {
		out = fn.CallSlice(in)
	} else {
		out = fn.Call(in)
	}

	var err error
	if n := len(out); n > 0 && ft.Out(n-1) == errorType {
		if e := out[n-1]; !e.IsNil() {
			err = e.Interface().(error)
		}
		out = out[:n-1]
	}
	if len(out) == 0 {
		return nil, err
	}
	return out[0].Interface(), err
}

func isNil(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return v.IsNil()
	default:
		return false
	}
}
