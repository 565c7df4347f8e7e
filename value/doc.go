// Package value implements the runtime operator dispatch engine.
//
// This package contains:
//   - TypeID registry with prototypes for every installed representation
//   - Dense operation tables indexed by operator and type ids
//   - The Dispatcher: exact lookup, single-hop conversion fallback, retry
//   - Class-level dispatch overrides
//   - The reference-counted, copy-on-write Value handle and narrowing
//
// Concrete representations live outside this package and are plugged in
// through the Register* methods on Dispatcher, normally from a single
// install routine run before any evaluation starts.
package value
