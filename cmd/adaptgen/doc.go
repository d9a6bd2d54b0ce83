// Command adaptgen generates typed facades for Go interfaces so instances
// synthesized by package adaptive can be used as those interfaces.
//
// For every selected interface I in the target package it writes:
//
//   - IContract, the contract describing I (contract.MustFromType)
//   - an unexported facade type implementing I by forwarding each method
//     to an adaptive.Dispatcher
//   - an init function registering the facade, which enables
//     adaptive.As[I] and adaptive.CreateAs[I, T]
//
// Usage
//
//	adaptgen --dir ./store --interfaces UserRepo,OrderRepo --accessors
//
// Flags may also be given as ADAPTGEN_* environment variables
// (ADAPTGEN_DIR, ADAPTGEN_OUT, ...). A YAML job file runs several jobs and
// can attach member tags:
//
//	jobs:
//	  - dir: ./store
//	    interfaces: [UserRepo]
//	    tags:
//	      UserRepo:
//	        FindByID:
//	          sql: SELECT id, name FROM users WHERE id = :id
//
// Methods may return nothing, a value, an error, or a value and an error.
// A facade method without an error result panics when the call fails.
//
// The output file (adaptive_gen.go by default) is ignored while the package
// is loaded, so regenerating after an interface changes works even when the
// previous output no longer compiles.
package main
