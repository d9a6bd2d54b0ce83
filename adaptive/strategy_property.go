package adaptive

import (
	"errors"
	"reflect"

	"github.com/sghaida/adaptive/contract"
	"github.com/sghaida/adaptive/resolve"
)

// GetterSetter implements properties through get and set functions sharing a
// per-instance state made by init. Only the accessors the property declares
// are emitted, so get may be nil for write-only properties and set for
// read-only ones.
func GetterSetter[T, S any](init func(*T, *contract.Property) (S, error), get func(*T, S) (any, error), set func(*T, S, any) error) PropertyStrategy[T] {
	return func(ctx *PropertyContext[T]) error {
		p := ctx.Property
		if p.CanRead && get == nil {
			return configErr(p.String(), "readable property without get function")
		}
		if p.CanWrite && set == nil {
			return configErr(p.String(), "writable property without set function")
		}
		state := stateOf(ctx.buildContext, init, p)
		if p.CanRead {
			ctx.Get = func(in *Instance[T]) (any, error) {
				return get(in.Base(), state(in))
			}
		}
		if p.CanWrite {
			ctx.Set = func(in *Instance[T], v any) error {
				return set(in.Base(), state(in), v)
			}
		}
		return nil
	}
}

// GetterSetterNamed is GetterSetter with functions looked up on the base type
// by name. init takes *contract.Property; get takes the state and returns the
// value; set takes the state and the value. An empty init name drops the state
// parameter. get and set may be templates, specialized per property type.
func GetterSetterNamed[T any](initName, getName, setName string) PropertyStrategy[T] {
	return func(ctx *PropertyContext[T]) error {
		p := ctx.Property
		initFn, state, err := bindInit(ctx.buildContext, initName, propertyDescType)
		if err != nil {
			return err
		}

		var getFn, setFn *resolve.Func
		if p.CanRead {
			getFn, err = ctx.bind(getName, p.Type, withState(state)...)
			if errors.Is(err, resolve.ErrSignatureNotFound) {
				// Untyped getters return any; the result is converted on the way out.
				getFn, err = ctx.bind(getName, nil, withState(state)...)
			}
			if err != nil {
				return err
			}
		}
		if p.CanWrite {
			setFn, err = ctx.bind(setName, resolve.Void, withState(state, p.Type)...)
			if err != nil {
				return err
			}
		}

		lead := namedState(ctx.buildContext, initFn, p)
		if getFn != nil {
			ctx.Get = func(in *Instance[T]) (any, error) {
				return getFn.Call(lead(in)...)
			}
		}
		if setFn != nil {
			ctx.Set = func(in *Instance[T], v any) error {
				_, err := setFn.Call(append(lead(in), v)...)
				return err
			}
		}
		return nil
	}
}

// BackingField implements properties with one private per-instance slot,
// initialized to the zero value of the property type.
func BackingField[T any]() PropertyStrategy[T] {
	return func(ctx *PropertyContext[T]) error {
		p := ctx.Property
		slot := ctx.Slot()
		zero := reflect.Zero(p.Type).Interface()
		ctx.OnInit(func(in *Instance[T]) error {
			in.SetSlot(slot, zero)
			return nil
		})
		if p.CanRead {
			ctx.Get = func(in *Instance[T]) (any, error) { return in.Slot(slot), nil }
		}
		if p.CanWrite {
			ctx.Set = func(in *Instance[T], v any) error {
				in.SetSlot(slot, v)
				return nil
			}
		}
		return nil
	}
}

// GetInspector calls inspect with every value the getter produces, after the
// getter and before the value is returned. Write-only properties are left alone.
func GetInspector[T any](inspect func(*T, *contract.Property, any)) PropertyDecorator[T] {
	return func(ctx *PropertyContext[T]) error {
		if inspect == nil {
			return configErr(ctx.Property.String(), "nil get inspector")
		}
		if ctx.Get == nil {
			return nil
		}
		inner, p := ctx.Get, ctx.Property
		ctx.Get = func(in *Instance[T]) (any, error) {
			v, err := inner(in)
			if err != nil {
				return nil, err
			}
			inspect(in.Base(), p, v)
			return v, nil
		}
		return nil
	}
}

// SetInspector calls pre before and post after the setter stores a value.
// Either may be nil. Read-only properties are left alone.
func SetInspector[T any](pre, post func(*T, *contract.Property, any)) PropertyDecorator[T] {
	return func(ctx *PropertyContext[T]) error {
		if ctx.Set == nil || (pre == nil && post == nil) {
			return nil
		}
		inner, p := ctx.Set, ctx.Property
		ctx.Set = func(in *Instance[T], v any) error {
			if pre != nil {
				pre(in.Base(), p, v)
			}
			if err := inner(in, v); err != nil {
				return err
			}
			if post != nil {
				post(in.Base(), p, v)
			}
			return nil
		}
		return nil
	}
}

// GetInspectorNamed is GetInspector with the inspector looked up on the base
// type by name. It takes *contract.Property and the value and may be a
// template specialized per property type.
func GetInspectorNamed[T any](name string) PropertyDecorator[T] {
	return func(ctx *PropertyContext[T]) error {
		if ctx.Get == nil {
			return nil
		}
		p := ctx.Property
		fn, err := ctx.bind(name, resolve.Void, propertyDescType, p.Type)
		if err != nil {
			return err
		}
		inner := ctx.Get
		ctx.Get = func(in *Instance[T]) (any, error) {
			v, err := inner(in)
			if err != nil {
				return nil, err
			}
			if _, err := fn.Call(in.Base(), p, v); err != nil {
				return nil, err
			}
			return v, nil
		}
		return nil
	}
}

// SetInspectorNamed is SetInspector with the hooks looked up on the base type
// by name. An empty name omits that hook.
func SetInspectorNamed[T any](preName, postName string) PropertyDecorator[T] {
	return func(ctx *PropertyContext[T]) error {
		if ctx.Set == nil {
			return nil
		}
		p := ctx.Property
		var pre, post *resolve.Func
		var err error
		if preName != "" {
			if pre, err = ctx.bind(preName, resolve.Void, propertyDescType, p.Type); err != nil {
				return err
			}
		}
		if postName != "" {
			if post, err = ctx.bind(postName, resolve.Void, propertyDescType, p.Type); err != nil {
				return err
			}
		}
		if pre == nil && post == nil {
			return nil
		}
		inner := ctx.Set
		ctx.Set = func(in *Instance[T], v any) error {
			if pre != nil {
				if _, err := pre.Call(in.Base(), p, v); err != nil {
					return err
				}
			}
			if err := inner(in, v); err != nil {
				return err
			}
			if post != nil {
				_, err := post.Call(in.Base(), p, v)
				return err
			}
			return nil
		}
		return nil
	}
}
