// Package adaptive is the root of a runtime interface-synthesis toolkit for Go.
//
// Instead of writing one implementation per interface, you register rules on
// a factory: which members a rule handles, and which strategy produces their
// behaviour. The factory then builds an implementation of any interface
// contract whose members those rules cover.
//
// Packages:
//   - contract: interface contracts (methods, properties, events), from Go
//     interface types or built by hand
//   - resolve: name- and signature-based lookup of functions on a base type,
//     including generic templates
//   - adaptive: factories, handlers, strategies and synthesized types
//   - cmd/adaptgen: generates typed facades so synthesized instances can be
//     used as the real Go interfaces
//   - examples/sqllayer, examples/loglayer: data access and logging layers
//     built on the factory
package adaptive
