// Package catalog owns the ordered set of command definitions an operator
// can send.
//
// Ownership boundary:
// - definition model and structural validation
// - the built-in default set
// - load-with-fallback and save against a persistence.Store
//
// A catalog is never empty after Load: a missing, unreadable or empty store
// yields the default set. Persisted entries and defaults are never merged.
// Indexes are always dense, 1..N, in insertion order.
package catalog
