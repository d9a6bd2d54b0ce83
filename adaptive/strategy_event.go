package adaptive

import (
	"github.com/sghaida/adaptive/contract"
	"github.com/sghaida/adaptive/resolve"
)

// AdderRemover implements events through add and remove functions sharing a
// per-instance state made by init.
func AdderRemover[T, S any](init func(*T, *contract.Event) (S, error), add, remove func(*T, S, any) error) EventStrategy[T] {
	return func(ctx *EventContext[T]) error {
		if add == nil || remove == nil {
			return configErr(ctx.Event.String(), "adder/remover needs both functions")
		}
		state := stateOf(ctx.buildContext, init, ctx.Event)
		ctx.Add = func(in *Instance[T], h any) error { return add(in.Base(), state(in), h) }
		ctx.Remove = func(in *Instance[T], h any) error { return remove(in.Base(), state(in), h) }
		return nil
	}
}

// AdderRemoverNamed is AdderRemover with functions looked up on the base type
// by name. init takes *contract.Event; add and remove take the state and the
// handler. An empty init name drops the state parameter.
func AdderRemoverNamed[T any](initName, addName, removeName string) EventStrategy[T] {
	return func(ctx *EventContext[T]) error {
		e := ctx.Event
		initFn, state, err := bindInit(ctx.buildContext, initName, eventDescType)
		if err != nil {
			return err
		}
		addFn, err := ctx.bind(addName, resolve.Void, withState(state, e.Handler)...)
		if err != nil {
			return err
		}
		removeFn, err := ctx.bind(removeName, resolve.Void, withState(state, e.Handler)...)
		if err != nil {
			return err
		}

		lead := namedState(ctx.buildContext, initFn, e)
		ctx.Add = func(in *Instance[T], h any) error {
			_, err := addFn.Call(append(lead(in), h)...)
			return err
		}
		ctx.Remove = func(in *Instance[T], h any) error {
			_, err := removeFn.Call(append(lead(in), h)...)
			return err
		}
		return nil
	}
}
