package adaptive

import (
	"github.com/rs/zerolog"

	"github.com/sghaida/adaptive/resolve"
)

// Option configures a Factory.
type Option func(*options)

type namedFunc struct {
	name string
	fn   any
}

type options struct {
	module     *Module
	logger     zerolog.Logger
	metrics    *Metrics
	ctors      []any
	statics    []namedFunc
	templates  []*resolve.Template
	cacheTypes bool
	secondary  bool
}

func defaultOptions() options {
	return options{
		module:     DefaultModule(),
		logger:     zerolog.Nop(),
		cacheTypes: true,
	}
}

// WithModule defines synthesized types in m instead of DefaultModule.
func WithModule(m *Module) Option {
	return func(o *options) {
		if m != nil {
			o.module = m
		}
	}
}

// WithLogger sets the logger for synthesis events. The default discards.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics records synthesis counters on m.
func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithConstructors registers constructors for the base type T. Each must be a
// func returning *T or (*T, error). Without constructors new(T) is used.
func WithConstructors(ctors ...any) Option {
	return func(o *options) { o.ctors = append(o.ctors, ctors...) }
}

// WithStatics registers functions under name for named strategies. Each
// function takes *T as its first parameter; several functions under one name
// are overloads, tried in the given order.
func WithStatics(name string, fns ...any) Option {
	return func(o *options) {
		for _, fn := range fns {
			o.statics = append(o.statics, namedFunc{name: name, fn: fn})
		}
	}
}

// WithTemplates registers generic handler templates for named strategies.
func WithTemplates(tpls ...*resolve.Template) Option {
	return func(o *options) { o.templates = append(o.templates, tpls...) }
}

// WithCacheTypes controls type reuse. With caching off every Implement call
// produces a new type. The default is on.
func WithCacheTypes(on bool) Option {
	return func(o *options) { o.cacheTypes = on }
}

// WithSecondaryByMethods implements properties and events through their
// accessor methods, matched by method handlers instead of property and event
// handlers.
func WithSecondaryByMethods(on bool) Option {
	return func(o *options) { o.secondary = on }
}
