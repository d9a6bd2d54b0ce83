package adaptive

import (
	"errors"
	"fmt"
	"go/token"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/sghaida/adaptive/contract"
	"github.com/sghaida/adaptive/resolve"
)

// ctorName is the resolver name constructors are registered under.
const ctorName = "new"

// Factory synthesizes types implementing contracts over the base struct T.
//
// Handlers are registered first; the first successful Implement seals the
// factory and later registrations fail. Implement and Create are safe for concurrent use.
type Factory[T any] struct {
	id       uuid.UUID
	base     reflect.Type
	opts     options
	resolver *resolve.Set
	ctors    []*resolve.Func
	log      zerolog.Logger

	mu       sync.Mutex
	errs     []error
	sealed   bool
	built    bool
	inflight int

	methods []*MethodHandler[T]
	props   []*PropertyHandler[T]
	events  []*EventHandler[T]

	group singleflight.Group
}

// NewFactory returns a factory for base type T, which must be an exported
// struct type.
func NewFactory[T any](opts ...Option) (*Factory[T], error) {
	base := reflect.TypeFor[T]()
	if base.Kind() != reflect.Struct || !token.IsExported(base.Name()) {
		return nil, configErr(base.String(), "base type must be an exported struct")
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	f := &Factory[T]{
		id:       uuid.New(),
		base:     base,
		opts:     o,
		resolver: resolve.NewSet(base),
	}
	f.log = o.logger.With().
		Str("factory", f.id.String()).
		Str("base", base.String()).
		Logger()

	for _, s := range o.statics {
		if err := f.resolver.AddStatic(s.name, s.fn); err != nil {
			return nil, fmt.Errorf("adaptive: static %q: %w", s.name, err)
		}
	}
	for _, tpl := range o.templates {
		if tpl == nil {
			return nil, configErr(base.String(), "nil template")
		}
		f.resolver.AddTemplate(tpl)
	}

	ctors := o.ctors
	if len(ctors) == 0 {
		ctors = []any{func() *T { return new(T) }}
	}
	for _, c := range ctors {
		if err := f.resolver.AddFree(ctorName, c); err != nil {
			return nil, fmt.Errorf("adaptive: constructor %T: %w", c, err)
		}
	}
	ptr := reflect.PointerTo(base)
	for _, c := range f.resolver.Candidates(ctorName) {
		if c.Kind != resolve.Free || c.Generic() {
			continue
		}
		if c.Out != ptr {
			return nil, configErr(c.String(), "constructor must return "+ptr.String())
		}
		f.ctors = append(f.ctors, c)
	}
	return f, nil
}

// MustNewFactory is NewFactory panicking on error.
func MustNewFactory[T any](opts ...Option) *Factory[T] {
	f, err := NewFactory[T](opts...)
	if err != nil {
		panic(err)
	}
	return f
}

// ID returns the factory identity. It is part of every type name the factory
// defines.
func (f *Factory[T]) ID() uuid.UUID { return f.id }

// Base returns the base struct type.
func (f *Factory[T]) Base() reflect.Type { return f.base }

// Module returns the module synthesized types are defined in.
func (f *Factory[T]) Module() *Module { return f.opts.module }

// Resolver returns the candidate set named strategies bind against.
func (f *Factory[T]) Resolver() *resolve.Set { return f.resolver }

// Err returns every configuration error recorded so far, plus one for each
// handler still lacking a terminal strategy.
func (f *Factory[T]) Err() error {
	f.mu.Lock()
	errs := slices.Clone(f.errs)
	f.mu.Unlock()

	for _, h := range f.methods {
		if h.strategy == nil {
			errs = append(errs, configErr(h.label, "no terminal strategy"))
		}
	}
	for _, h := range f.props {
		if h.strategy == nil {
			errs = append(errs, configErr(h.label, "no terminal strategy"))
		}
	}
	for _, h := range f.events {
		if h.strategy == nil {
			errs = append(errs, configErr(h.label, "no terminal strategy"))
		}
	}
	return errors.Join(errs...)
}

func (f *Factory[T]) fail(err error) {
	f.mu.Lock()
	f.errs = append(f.errs, err)
	f.mu.Unlock()
}

func (f *Factory[T]) isSealed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sealed
}

// begin seals the factory for the duration of an Implement call.
func (f *Factory[T]) begin() {
	f.mu.Lock()
	f.sealed = true
	f.inflight++
	f.mu.Unlock()
}

// end keeps the factory sealed once any type was built. Until then the last
// failing call reopens registration so the configuration can be fixed.
func (f *Factory[T]) end(ok bool) {
	f.mu.Lock()
	f.inflight--
	if ok {
		f.built = true
	}
	if !f.built && f.inflight == 0 {
		f.sealed = false
	}
	f.mu.Unlock()
}

// attach runs add unless the factory is sealed, in which case the handler is
// left detached and the mistake recorded on the handler only.
func (f *Factory[T]) attach(h *handlerBase[T], add func()) {
	f.mu.Lock()
	if !f.sealed {
		add()
		f.mu.Unlock()
		return
	}
	f.mu.Unlock()
	h.reject(configErr(h.label, "registered after the first Implement"))
}

func (f *Factory[T]) typeName(it *contract.Interface) string {
	return "adaptive_" + strings.ReplaceAll(f.id.String(), "-", "") + "_" + f.base.Name() + "_" + it.Fingerprint()
}

// Implement returns a type implementing it and every interface it extends.
//
// With type caching on (the default) the result is defined in the factory's
// module and reused by later calls for a contract with the same fingerprint;
// concurrent calls for one contract synthesize once. Failed syntheses are
// never cached. With caching off every call returns a fresh type that is not
// defined in the module.
//
// The first successful call closes registration. Before that, a failed call
// leaves the factory open, so missing handlers can be added and the call
// retried. Errors recorded at registration stay until a new factory is made.
func (f *Factory[T]) Implement(it *contract.Interface) (*Type[T], error) {
	if it == nil {
		return nil, configErr(f.base.String(), "nil contract")
	}
	if !it.Public() {
		return nil, configErr(it.QualifiedName(), "contract is not public")
	}
	f.begin()
	t, err := f.implement(it)
	f.end(err == nil)
	return t, err
}

func (f *Factory[T]) implement(it *contract.Interface) (*Type[T], error) {
	if err := f.Err(); err != nil {
		return nil, err
	}

	name := f.typeName(it)
	if !f.opts.cacheTypes {
		return f.build(it, name+"_"+strings.ReplaceAll(uuid.NewString(), "-", ""))
	}
	if t, ok := f.cached(name); ok {
		return t, nil
	}

	v, err, _ := f.group.Do(name, func() (any, error) {
		if t, ok := f.cached(name); ok {
			return t, nil
		}
		t, err := f.build(it, name)
		if err != nil {
			return nil, err
		}
		if err := f.opts.module.define(name, t); err != nil {
			return nil, err
		}
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Type[T]), nil
}

// Create implements it and constructs an instance from args.
func (f *Factory[T]) Create(it *contract.Interface, args ...any) (*Instance[T], error) {
	t, err := f.Implement(it)
	if err != nil {
		return nil, err
	}
	return t.New(args...)
}

func (f *Factory[T]) cached(name string) (*Type[T], bool) {
	t, ok := LookupType[T](f.opts.module, name)
	if ok {
		f.opts.metrics.hit(f.base.String())
		f.log.Debug().Str("type", name).Msg("type cache hit")
	}
	return t, ok
}

// build runs one synthesis pass. Panics raised by strategies or user
// callbacks are returned as ErrSynthesisPanic.
func (f *Factory[T]) build(it *contract.Interface, name string) (t *Type[T], err error) {
	start := time.Now()
	log := f.log.With().Str("contract", it.QualifiedName()).Str("type", name).Logger()
	log.Debug().Msg("synthesizing type")

	defer func() {
		if rec := recover(); rec != nil {
			t = nil
			err = fmt.Errorf("%w: %v", ErrSynthesisPanic, rec)
		}
		f.opts.metrics.done(f.base.String(), start, err)
		if err != nil {
			log.Debug().Err(err).Msg("synthesis failed")
			return
		}
		log.Debug().
			Int("members", t.memberCount()).
			Int("skipped", len(t.skipped)).
			Dur("took", time.Since(start)).
			Msg("type synthesized")
	}()

	return f.synthesize(it, name)
}

func (f *Factory[T]) synthesize(it *contract.Interface, name string) (*Type[T], error) {
	t := newType[T](name, it, f.base)
	for _, c := range it.Closure() {
		if f.baseSatisfies(c) {
			t.skipped = append(t.skipped, c)
			f.linkBase(t, c)
			continue
		}
		t.implemented = append(t.implemented, c)
		for _, m := range c.Methods {
			if err := f.emitMethod(t, m); err != nil {
				return nil, err
			}
		}
		for _, p := range c.Properties {
			if err := f.emitProperty(t, p); err != nil {
				return nil, err
			}
		}
		for _, e := range c.Events {
			if err := f.emitEvent(t, e); err != nil {
				return nil, err
			}
		}
	}

	t.statics = make([]any, len(t.staticInits))
	for i, init := range t.staticInits {
		v, err := init()
		if err != nil {
			return nil, fmt.Errorf("adaptive: static initializer of %s: %w", name, err)
		}
		t.statics[i] = v
	}
	t.ctors = f.ctors
	return t, nil
}

// baseSatisfies reports whether *T already implements every member c declares.
// A contract mirroring a Go interface is checked with reflect; others are
// matched structurally against the exported methods of *T.
func (f *Factory[T]) baseSatisfies(c *contract.Interface) bool {
	if c.Empty() {
		return true
	}
	if c.GoType != nil && c.GoType.Kind() == reflect.Interface {
		return reflect.PointerTo(f.base).Implements(c.GoType)
	}
	for _, m := range accessorMethods(c) {
		if f.baseMethod(m, true) == nil {
			return false
		}
	}
	return true
}

// linkBase routes every member of a skipped interface to T's own method.
func (f *Factory[T]) linkBase(t *Type[T], c *contract.Interface) {
	for _, m := range accessorMethods(c) {
		if bm := f.baseMethod(m, false); bm != nil {
			t.baseMethods[m.Name] = bm
		}
	}
}

// baseMethod returns the instance method of *T implementing m. Unless exact
// is set, a same-named method with the same arity is accepted.
func (f *Factory[T]) baseMethod(m *contract.Method, exact bool) *resolve.Func {
	var loose *resolve.Func
	for _, c := range f.resolver.Candidates(m.Name) {
		if c.Kind != resolve.Instance {
			continue
		}
		if sameShape(c, m) {
			return c
		}
		if loose == nil && len(c.In) == len(m.Params) {
			loose = c
		}
	}
	if exact {
		return nil
	}
	return loose
}

func sameShape(f *resolve.Func, m *contract.Method) bool {
	if len(f.In) != len(m.Params) || f.Out != m.Return || f.Err != m.Err || f.Variadic != m.Variadic {
		return false
	}
	for i, p := range m.Params {
		if f.In[i] != p.Type {
			return false
		}
	}
	return true
}

// accessorMethods lists the methods of c followed by the accessor methods of
// its properties and events.
func accessorMethods(c *contract.Interface) []*contract.Method {
	out := slices.Clone(c.Methods)
	for _, p := range c.Properties {
		if g := p.Getter(); g != nil {
			out = append(out, g)
		}
		if s := p.Setter(); s != nil {
			out = append(out, s)
		}
	}
	for _, e := range c.Events {
		out = append(out, e.Adder(), e.Remover())
	}
	return out
}

func (f *Factory[T]) context(t *Type[T]) *buildContext[T] {
	return &buildContext[T]{typ: t, resolver: f.resolver}
}

func (f *Factory[T]) emitMethod(t *Type[T], m *contract.Method) error {
	decl := declName(m.Declaring())
	for _, p := range m.Params {
		if p.ByRef || p.Out {
			return &ShapeError{Interface: decl, Member: m.Name, Reason: "by-reference parameter " + strconv.Quote(p.Name)}
		}
	}
	h := f.matchMethod(m)
	if h == nil {
		return &UnmatchedMemberError{Interface: decl, Member: m.Name, Kind: contract.KindMethod}
	}
	if h.validate != nil {
		if err := h.validate(m); err != nil {
			return &ShapeError{Interface: decl, Member: m.Name, Reason: "rejected by " + h.label, Err: err}
		}
	}

	ctx := &MethodContext[T]{buildContext: f.context(t), Method: m}
	if err := h.strategy(ctx); err != nil {
		return fmt.Errorf("adaptive: implementing %s: %w", m, err)
	}
	if ctx.Invoke == nil {
		return configErr(h.label, "strategy emitted no body for "+m.String())
	}
	t.addMethod(m, returning(m, ctx.Invoke))
	return nil
}

func (f *Factory[T]) emitProperty(t *Type[T], p *contract.Property) error {
	decl := declName(p.Declaring())
	if p.Indexed() {
		return &ShapeError{Interface: decl, Member: p.Name, Reason: "indexed property"}
	}
	if f.opts.secondary {
		for _, acc := range []*contract.Method{p.Getter(), p.Setter()} {
			if acc == nil {
				continue
			}
			if err := f.emitMethod(t, acc); err != nil {
				return err
			}
		}
		return nil
	}

	h := f.matchProperty(p)
	if h == nil {
		return &UnmatchedMemberError{Interface: decl, Member: p.Name, Kind: contract.KindProperty}
	}
	if h.validate != nil {
		if err := h.validate(p); err != nil {
			return &ShapeError{Interface: decl, Member: p.Name, Reason: "rejected by " + h.label, Err: err}
		}
	}

	ctx := &PropertyContext[T]{buildContext: f.context(t), Property: p}
	if err := h.strategy(ctx); err != nil {
		return fmt.Errorf("adaptive: implementing %s: %w", p, err)
	}
	if p.CanRead && ctx.Get == nil {
		return configErr(h.label, "strategy emitted no getter for "+p.String())
	}
	if p.CanWrite && ctx.Set == nil {
		return configErr(h.label, "strategy emitted no setter for "+p.String())
	}
	if ctx.Get != nil {
		ctx.Get = coercedGetter(p, ctx.Get)
	}
	for _, d := range h.decorators {
		if err := d(ctx); err != nil {
			return fmt.Errorf("adaptive: decorating %s: %w", p, err)
		}
	}
	t.props[p.Name] = &propertyImpl[T]{prop: p, get: ctx.Get, set: ctx.Set}
	return nil
}

func (f *Factory[T]) emitEvent(t *Type[T], e *contract.Event) error {
	if f.opts.secondary {
		if err := f.emitMethod(t, e.Adder()); err != nil {
			return err
		}
		return f.emitMethod(t, e.Remover())
	}

	decl := declName(e.Declaring())
	h := f.matchEvent(e)
	if h == nil {
		return &UnmatchedMemberError{Interface: decl, Member: e.Name, Kind: contract.KindEvent}
	}
	if h.validate != nil {
		if err := h.validate(e); err != nil {
			return &ShapeError{Interface: decl, Member: e.Name, Reason: "rejected by " + h.label, Err: err}
		}
	}

	ctx := &EventContext[T]{buildContext: f.context(t), Event: e}
	if err := h.strategy(ctx); err != nil {
		return fmt.Errorf("adaptive: implementing %s: %w", e, err)
	}
	if ctx.Add == nil || ctx.Remove == nil {
		return configErr(h.label, "strategy emitted no adder or remover for "+e.String())
	}
	t.events[e.Name] = &eventImpl[T]{event: e, add: ctx.Add, remove: ctx.Remove}
	return nil
}

// returning adapts a body to m's result: the value is dropped when m returns
// nothing and converted to the declared type otherwise.
func returning[T any](m *contract.Method, inv Invoke[T]) Invoke[T] {
	if m.Return == nil {
		return func(in *Instance[T], args []any) (any, error) {
			_, err := inv(in, args)
			return nil, err
		}
	}
	return func(in *Instance[T], args []any) (any, error) {
		v, err := inv(in, args)
		if err != nil {
			return nil, err
		}
		out, err := resolve.CoerceTo(v, m.Return)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrReturnType, m, err)
		}
		return out, nil
	}
}

func coercedGetter[T any](p *contract.Property, get Getter[T]) Getter[T] {
	return func(in *Instance[T]) (any, error) {
		v, err := get(in)
		if err != nil {
			return nil, err
		}
		out, err := resolve.CoerceTo(v, p.Type)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrReturnType, p, err)
		}
		return out, nil
	}
}

func declName(it *contract.Interface) string {
	if it == nil {
		return ""
	}
	return it.QualifiedName()
}
