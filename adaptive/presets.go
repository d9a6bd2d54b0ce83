package adaptive

import "slices"

// NewProxyFactory returns a factory whose types forward every member to the
// object held in target, a field, method or static of T. Properties and events
// are forwarded through their accessor methods.
func NewProxyFactory[T any](target string, opts ...Option) (*Factory[T], error) {
	f, err := NewFactory[T](append(slices.Clip(opts), WithSecondaryByMethods(true))...)
	if err != nil {
		return nil, err
	}
	f.Methods(nil).UsingTarget(target)
	if err := f.Err(); err != nil {
		return nil, err
	}
	return f, nil
}

// NewDTOFactory returns a factory whose types store every property in a
// backing field and call changing before and changed after each write. Both
// are looked up on T by name and take *contract.Property and the new value;
// either name may be empty.
func NewDTOFactory[T any](changing, changed string, opts ...Option) (*Factory[T], error) {
	f, err := NewFactory[T](opts...)
	if err != nil {
		return nil, err
	}
	f.Properties(nil).UsingBackingField().WithSetInspectorNamed(changing, changed)
	if err := f.Err(); err != nil {
		return nil, err
	}
	return f, nil
}
