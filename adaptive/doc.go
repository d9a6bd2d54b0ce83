// Package adaptive synthesizes implementations of interface contracts at
// runtime.
//
// A Factory over a base struct T holds ordered handler registrations. Each
// handler pairs a predicate over member metadata with a strategy that emits
// the member body. Named strategies bind exported methods of *T, or statics
// registered with WithStatics:
//
//	f, _ := adaptive.NewFactory[Repo]()
//	f.MethodsTagged("sql", nil).UsingSharedExecutorNamed("Prepare", "Exec")
//	f.Properties(nil).UsingBackingField().WithSetInspectorNamed("", "Changed")
//	in, err := f.Create(contract.MustFromType(reflect.TypeFor[UserRepo]()))
//
// Go cannot add methods to a type while the program runs, so a synthesized
// Type is a dispatch table and an Instance answers Call, Get, Set, Subscribe
// and Unsubscribe. cmd/adaptgen generates typed facades that make an Instance
// usable as the real Go interface; see As and CreateAs.
//
// Synthesis visits the contract closure ancestors first. Interfaces the base
// already satisfies are skipped and dispatch to T's own methods. For every
// other member the first matching handler is used; a member no handler
// matches fails synthesis. Types are cached per factory and contract
// fingerprint in a Module unless WithCacheTypes(false) is given.
package adaptive
