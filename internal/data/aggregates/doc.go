// Package aggregates contains infrastructure implementations of domain aggregate contracts.
//
// Implementations compose a store.Store and own the unit-of-work boundary for
// every invariant-critical write, whichever backend serves it.
package aggregates
