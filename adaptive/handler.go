package adaptive

import (
	"errors"
	"reflect"
	"strconv"

	"github.com/sghaida/adaptive/contract"
	"github.com/sghaida/adaptive/resolve"
)

// handlerBase carries what every handler builder shares: the owning factory,
// a label used in error messages and the errors recorded so far.
type handlerBase[T any] struct {
	f     *Factory[T]
	label string
	errs  []error
}

// Err returns the configuration errors recorded on this handler.
func (h *handlerBase[T]) Err() error { return errors.Join(h.errs...) }

// fail records err on the handler and, while the factory is still open, on
// the factory too.
func (h *handlerBase[T]) fail(err error) {
	if h.f.isSealed() {
		h.reject(err)
		return
	}
	h.errs = append(h.errs, err)
	h.f.fail(err)
}

// reject records err on the handler alone. Used once the factory is sealed,
// so a late mistake does not break contracts the factory already serves.
func (h *handlerBase[T]) reject(err error) {
	h.errs = append(h.errs, err)
}

// frozen records an error and reports true once the factory is sealed.
func (h *handlerBase[T]) frozen() bool {
	if !h.f.isSealed() {
		return false
	}
	h.reject(configErr(h.label, "modified after the first Implement"))
	return true
}

// requireNames records a BindingError for every non-empty name with no
// candidate on the base type.
func (h *handlerBase[T]) requireNames(names ...string) {
	for _, name := range names {
		if name == "" || len(h.f.resolver.Candidates(name)) > 0 {
			continue
		}
		h.fail(&BindingError{
			Target: reflect.PointerTo(h.f.base),
			Name:   name,
			Err:    resolve.ErrSignatureNotFound,
			Reason: h.label,
		})
	}
}

// setTerminal stores s in *slot unless it is nil or a terminal strategy is set.
func setTerminal[T, S any](h *handlerBase[T], slot *S, s S, isNil, isSet bool) {
	switch {
	case h.frozen():
	case isNil:
		h.fail(configErr(h.label, "nil strategy"))
	case isSet:
		h.fail(configErr(h.label, "second terminal strategy"))
	default:
		*slot = s
	}
}

// addValidator chains fn after the validators already in *slot.
func addValidator[T, M any](h *handlerBase[T], slot *func(M) error, fn func(M) error) {
	switch {
	case h.frozen():
	case fn == nil:
		h.fail(configErr(h.label, "nil validator"))
	default:
		*slot = chain(*slot, fn)
	}
}

// MethodHandler is one method registration: a predicate, an optional
// validator and one terminal strategy. Builder methods record configuration
// mistakes on the factory and keep returning the handler.
type MethodHandler[T any] struct {
	handlerBase[T]

	pred     func(*contract.Method) bool
	validate func(*contract.Method) error
	strategy MethodStrategy[T]
}

func (h *MethodHandler[T]) accepts(m *contract.Method) bool { return h.pred == nil || h.pred(m) }

// Using sets the terminal strategy.
func (h *MethodHandler[T]) Using(s MethodStrategy[T]) *MethodHandler[T] {
	setTerminal(&h.handlerBase, &h.strategy, s, s == nil, h.strategy != nil)
	return h
}

// UsingSharedExecutor sets a SharedExecutor with an untyped state.
func (h *MethodHandler[T]) UsingSharedExecutor(init func(*T, *contract.Method) (any, error), exec func(*T, any, []any) (any, error)) *MethodHandler[T] {
	return h.Using(SharedExecutor(init, exec))
}

// UsingSharedExecutorNamed sets a SharedExecutorNamed strategy. The names must
// exist on the base type.
func (h *MethodHandler[T]) UsingSharedExecutorNamed(initName, execName string) *MethodHandler[T] {
	h.requireNames(initName, execName)
	return h.Using(SharedExecutorNamed[T](initName, execName))
}

// UsingExecutor sets an Executor.
func (h *MethodHandler[T]) UsingExecutor(exec func(*T, *contract.Method, []any) (any, error)) *MethodHandler[T] {
	return h.Using(Executor(exec))
}

// UsingTarget forwards every matched method to the same-named method of the
// object source refers to.
func (h *MethodHandler[T]) UsingTarget(source string) *MethodHandler[T] {
	return h.UsingTargetSelector(source, nil)
}

// UsingTargetSelector is UsingTarget with selector picking the target method name.
func (h *MethodHandler[T]) UsingTargetSelector(source string, selector func(*contract.Method) string) *MethodHandler[T] {
	if _, ok := h.f.base.FieldByName(source); !ok {
		h.requireNames(source)
	}
	return h.Using(Target[T](source, selector))
}

// WithValidator adds a shape check run before the strategy. A rejection fails
// synthesis with a ShapeError. Several validators run in order.
func (h *MethodHandler[T]) WithValidator(fn func(*contract.Method) error) *MethodHandler[T] {
	addValidator(&h.handlerBase, &h.validate, fn)
	return h
}

// PropertyHandler is one property registration: a predicate, an optional
// validator, one terminal strategy and any number of decorators applied in
// attachment order.
type PropertyHandler[T any] struct {
	handlerBase[T]

	pred       func(*contract.Property) bool
	validate   func(*contract.Property) error
	strategy   PropertyStrategy[T]
	decorators []PropertyDecorator[T]
}

func (h *PropertyHandler[T]) accepts(p *contract.Property) bool { return h.pred == nil || h.pred(p) }

// Using sets the terminal strategy.
func (h *PropertyHandler[T]) Using(s PropertyStrategy[T]) *PropertyHandler[T] {
	setTerminal(&h.handlerBase, &h.strategy, s, s == nil, h.strategy != nil)
	return h
}

// Decorate attaches a decorator. A terminal strategy must already be set.
func (h *PropertyHandler[T]) Decorate(d PropertyDecorator[T]) *PropertyHandler[T] {
	switch {
	case h.frozen():
	case d == nil:
		h.fail(configErr(h.label, "nil decorator"))
	case h.strategy == nil:
		h.fail(configErr(h.label, "decorator attached before a terminal strategy"))
	default:
		h.decorators = append(h.decorators, d)
	}
	return h
}

// UsingGetterSetter sets a GetterSetter with an untyped state.
func (h *PropertyHandler[T]) UsingGetterSetter(init func(*T, *contract.Property) (any, error), get func(*T, any) (any, error), set func(*T, any, any) error) *PropertyHandler[T] {
	return h.Using(GetterSetter(init, get, set))
}

// UsingGetterSetterNamed sets a GetterSetterNamed strategy.
func (h *PropertyHandler[T]) UsingGetterSetterNamed(initName, getName, setName string) *PropertyHandler[T] {
	h.requireNames(initName, getName, setName)
	return h.Using(GetterSetterNamed[T](initName, getName, setName))
}

// UsingBackingField sets a BackingField strategy.
func (h *PropertyHandler[T]) UsingBackingField() *PropertyHandler[T] {
	return h.Using(BackingField[T]())
}

// WithGetInspector attaches a GetInspector.
func (h *PropertyHandler[T]) WithGetInspector(inspect func(*T, *contract.Property, any)) *PropertyHandler[T] {
	return h.Decorate(GetInspector(inspect))
}

// WithGetInspectorNamed attaches a GetInspectorNamed decorator.
func (h *PropertyHandler[T]) WithGetInspectorNamed(name string) *PropertyHandler[T] {
	h.requireNames(name)
	return h.Decorate(GetInspectorNamed[T](name))
}

// WithSetInspector attaches a SetInspector.
func (h *PropertyHandler[T]) WithSetInspector(pre, post func(*T, *contract.Property, any)) *PropertyHandler[T] {
	return h.Decorate(SetInspector(pre, post))
}

// WithSetInspectorNamed attaches a SetInspectorNamed decorator.
func (h *PropertyHandler[T]) WithSetInspectorNamed(preName, postName string) *PropertyHandler[T] {
	h.requireNames(preName, postName)
	return h.Decorate(SetInspectorNamed[T](preName, postName))
}

// WithValidator adds a shape check run before the strategy.
func (h *PropertyHandler[T]) WithValidator(fn func(*contract.Property) error) *PropertyHandler[T] {
	addValidator(&h.handlerBase, &h.validate, fn)
	return h
}

// EventHandler is one event registration.
type EventHandler[T any] struct {
	handlerBase[T]

	pred     func(*contract.Event) bool
	validate func(*contract.Event) error
	strategy EventStrategy[T]
}

func (h *EventHandler[T]) accepts(e *contract.Event) bool { return h.pred == nil || h.pred(e) }

// Using sets the terminal strategy.
func (h *EventHandler[T]) Using(s EventStrategy[T]) *EventHandler[T] {
	setTerminal(&h.handlerBase, &h.strategy, s, s == nil, h.strategy != nil)
	return h
}

// UsingAdderRemover sets an AdderRemover with an untyped state.
func (h *EventHandler[T]) UsingAdderRemover(init func(*T, *contract.Event) (any, error), add, remove func(*T, any, any) error) *EventHandler[T] {
	return h.Using(AdderRemover(init, add, remove))
}

// UsingAdderRemoverNamed sets an AdderRemoverNamed strategy.
func (h *EventHandler[T]) UsingAdderRemoverNamed(initName, addName, removeName string) *EventHandler[T] {
	h.requireNames(initName, addName, removeName)
	return h.Using(AdderRemoverNamed[T](initName, addName, removeName))
}

// WithValidator adds a shape check run before the strategy.
func (h *EventHandler[T]) WithValidator(fn func(*contract.Event) error) *EventHandler[T] {
	addValidator(&h.handlerBase, &h.validate, fn)
	return h
}

// Methods registers a method handler for the methods pred accepts; a nil pred
// accepts every method. Handlers are tried in registration order and the
// first accepting one wins, so catch-all handlers belong last.
func (f *Factory[T]) Methods(pred func(*contract.Method) bool) *MethodHandler[T] {
	h := &MethodHandler[T]{pred: pred}
	h.handlerBase = handlerBase[T]{f: f, label: "method handler #" + strconv.Itoa(len(f.methods)+1)}
	f.attach(&h.handlerBase, func() { f.methods = append(f.methods, h) })
	return h
}

// MethodsTagged registers a method handler for methods carrying tag key. pred,
// if not nil, further filters on the method and the tag value.
func (f *Factory[T]) MethodsTagged(key string, pred func(*contract.Method, string) bool) *MethodHandler[T] {
	return f.Methods(func(m *contract.Method) bool {
		v, ok := m.Tag(key)
		return ok && (pred == nil || pred(m, v))
	})
}

// Properties registers a property handler for the properties pred accepts.
func (f *Factory[T]) Properties(pred func(*contract.Property) bool) *PropertyHandler[T] {
	h := &PropertyHandler[T]{pred: pred}
	h.handlerBase = handlerBase[T]{f: f, label: "property handler #" + strconv.Itoa(len(f.props)+1)}
	f.attach(&h.handlerBase, func() { f.props = append(f.props, h) })
	return h
}

// Events registers an event handler for the events pred accepts.
func (f *Factory[T]) Events(pred func(*contract.Event) bool) *EventHandler[T] {
	h := &EventHandler[T]{pred: pred}
	h.handlerBase = handlerBase[T]{f: f, label: "event handler #" + strconv.Itoa(len(f.events)+1)}
	f.attach(&h.handlerBase, func() { f.events = append(f.events, h) })
	return h
}

func (f *Factory[T]) matchMethod(m *contract.Method) *MethodHandler[T] {
	for _, h := range f.methods {
		if h.accepts(m) {
			return h
		}
	}
	return nil
}

func (f *Factory[T]) matchProperty(p *contract.Property) *PropertyHandler[T] {
	for _, h := range f.props {
		if h.accepts(p) {
			return h
		}
	}
	return nil
}

func (f *Factory[T]) matchEvent(e *contract.Event) *EventHandler[T] {
	for _, h := range f.events {
		if h.accepts(e) {
			return h
		}
	}
	return nil
}

func chain[M any](first, next func(M) error) func(M) error {
	if first == nil {
		return next
	}
	return func(m M) error {
		if err := first(m); err != nil {
			return err
		}
		return next(m)
	}
}
