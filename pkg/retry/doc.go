// Package retry provides bounded retry with pluggable backoff strategies.
//
// It is used by the lookup coordinator to re-attempt checkpoint store
// writes that fail with a PersistenceError, so a briefly unavailable
// database defers an in-flight result instead of losing it. Lookup
// resolves themselves are never retried here; the state machine handles
// those on later passes.
package retry
