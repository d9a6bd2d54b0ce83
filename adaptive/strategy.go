package adaptive

import (
	"reflect"

	"github.com/sghaida/adaptive/contract"
	"github.com/sghaida/adaptive/resolve"
)

// MethodStrategy emits a method body.
type MethodStrategy[T any] func(ctx *MethodContext[T]) error

// PropertyStrategy emits property accessors. It is a terminal strategy.
type PropertyStrategy[T any] func(ctx *PropertyContext[T]) error

// PropertyDecorator wraps accessors already emitted by a terminal strategy.
type PropertyDecorator[T any] func(ctx *PropertyContext[T]) error

// EventStrategy emits event accessors.
type EventStrategy[T any] func(ctx *EventContext[T]) error

var (
	methodDescType   = reflect.TypeFor[*contract.Method]()
	propertyDescType = reflect.TypeFor[*contract.Property]()
	eventDescType    = reflect.TypeFor[*contract.Event]()
	argsType         = reflect.TypeFor[[]any]()
)

// stateOf arranges for init to run once per instance and returns the accessor
// for its result. A nil init yields the zero state and allocates nothing.
func stateOf[T, S, D any](c *buildContext[T], init func(*T, D) (S, error), desc D) func(*Instance[T]) S {
	if init == nil {
		return func(*Instance[T]) S {
			var zero S
			return zero
		}
	}
	slot := c.Slot()
	c.OnInit(func(in *Instance[T]) error {
		s, err := init(in.Base(), desc)
		if err != nil {
			return err
		}
		in.SetSlot(slot, s)
		return nil
	})
	return func(in *Instance[T]) S {
		s, _ := in.Slot(slot).(S)
		return s
	}
}

// namedState is stateOf for a resolved init function. The returned accessor
// yields the leading arguments of every handler call: the base value and, when
// there is an init function, its state.
func namedState[T any](c *buildContext[T], init *resolve.Func, desc any) func(*Instance[T]) []any {
	if init == nil {
		return func(in *Instance[T]) []any { return []any{in.Base()} }
	}
	slot := c.Slot()
	c.OnInit(func(in *Instance[T]) error {
		s, err := init.Call(in.Base(), desc)
		if err != nil {
			return err
		}
		in.SetSlot(slot, s)
		return nil
	})
	return func(in *Instance[T]) []any { return []any{in.Base(), in.Slot(slot)} }
}

// bindInit resolves a named init function taking the member descriptor.
// An empty name means no init. The init must return a state.
func bindInit[T any](c *buildContext[T], name string, desc reflect.Type) (*resolve.Func, reflect.Type, error) {
	if name == "" {
		return nil, nil, nil
	}
	f, err := c.bind(name, nil, desc)
	if err != nil {
		return nil, nil, err
	}
	if f.Out == nil {
		return nil, nil, &BindingError{Target: c.resolver.Target(), Name: name, Params: []reflect.Type{desc}, Err: resolve.ErrSignatureNotFound, Reason: "init must return a state"}
	}
	return f, f.Out, nil
}

// withState prepends state to params when there is one.
func withState(state reflect.Type, params ...reflect.Type) []reflect.Type {
	if state == nil {
		return params
	}
	return append([]reflect.Type{state}, params...)
}

// SharedExecutor implements methods with one executor shared by every member
// it matches. init runs once per instance and member; its state is handed to
// exec together with the call arguments. A nil init gives exec the zero state.
func SharedExecutor[T, S any](init func(*T, *contract.Method) (S, error), exec func(*T, S, []any) (any, error)) MethodStrategy[T] {
	return func(ctx *MethodContext[T]) error {
		if exec == nil {
			return configErr(ctx.Method.String(), "shared executor without exec function")
		}
		state := stateOf(ctx.buildContext, init, ctx.Method)
		ctx.Invoke = func(in *Instance[T], args []any) (any, error) {
			return exec(in.Base(), state(in), args)
		}
		return nil
	}
}

// Executor implements methods with one executor that receives the member
// descriptor from the type's static metadata instead of per-instance state.
func Executor[T any](exec func(*T, *contract.Method, []any) (any, error)) MethodStrategy[T] {
	return func(ctx *MethodContext[T]) error {
		if exec == nil {
			return configErr(ctx.Method.String(), "executor without exec function")
		}
		m := ctx.Method
		idx := ctx.Static(func() (any, error) { return m, nil })
		ctx.Invoke = func(in *Instance[T], args []any) (any, error) {
			desc, _ := in.Type().Static(idx).(*contract.Method)
			return exec(in.Base(), desc, args)
		}
		return nil
	}
}

// SharedExecutorNamed is SharedExecutor with functions looked up on the base
// type by name. init takes *contract.Method and returns the state; exec takes
// the state and []any. Without init, exec takes *contract.Method instead of
// a state. Either may be an instance method, a static or a template.
func SharedExecutorNamed[T any](initName, execName string) MethodStrategy[T] {
	return func(ctx *MethodContext[T]) error {
		initFn, state, err := bindInit(ctx.buildContext, initName, methodDescType)
		if err != nil {
			return err
		}
		var execFn *resolve.Func
		if state != nil {
			execFn, err = ctx.bind(execName, nil, state, argsType)
		} else {
			execFn, err = ctx.bind(execName, nil, methodDescType, argsType)
		}
		if err != nil {
			return err
		}

		m := ctx.Method
		lead := namedState(ctx.buildContext, initFn, m)
		ctx.Invoke = func(in *Instance[T], args []any) (any, error) {
			call := lead(in)
			if initFn == nil {
				call = append(call, m)
			}
			return execFn.Call(append(call, args)...)
		}
		return nil
	}
}
