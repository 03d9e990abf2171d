// Package identity mints and names the stable identifiers the rest of the
// core depends on: EntityId (a 128-bit opaque handle), IdGenerator (a
// feature-scoped sequence of deterministic ids), and NamingContext (the
// derivation of a TopoId's local_id from a topological-neighbourhood seed).
//
// Every derivation goes through UUID v5 (SHA-1 of a namespace + byte
// sequence), so two runs given the same seeds produce bit-identical ids
// regardless of host, process, or goroutine scheduling. Counter bytes are
// always big-endian; nothing here reads wall-clock time or process entropy
// except EntityId.New, which is explicitly the "user created this, mint a
// fresh random id" case.
package identity
