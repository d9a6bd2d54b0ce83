// Package contract models interface contracts: member shapes with no behaviour.
//
// A contract is an Interface with methods, properties and events, plus the
// interfaces it extends. Go interfaces only carry methods, so properties and
// events are expressed here explicitly and map onto Go accessor methods:
//
//   - property X of type T: getter X() T, setter SetX(T)
//   - event X with handler type H: AddX(H), RemoveX(H)
//
// Contracts can be built three ways:
//
//   - NewBuilder for hand-written descriptors (tags, by-reference parameters, overloads)
//   - FromType for an existing Go interface type via reflection
//   - Define for small ad hoc property-only interfaces created on demand
//
// Contracts are immutable once built and safe to share between goroutines.
package contract
