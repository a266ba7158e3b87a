// Package store holds the in-process entity store: a model store keyed by
// type and id, and a collection store keyed by type and params.
//
// Both stores sit on a Backend, a flat bucket/key/value table of canonical
// JSON. Two backends exist:
//
//   - MemoryBackend: a map behind a mutex
//   - SQLiteBackend: an entries table, opened on ":memory:" by default
//
// # Keys
//
// Model slots are "<type>:<id>" where type is the underscored type name and
// id is the raw string or the canonical number ("9", never "9.0").
// Collection slots are "<type>:<canonical JSON of params>", with empty
// params written as "{}".
//
// # Values
//
// Values are canonical JSON. Reads decode integral numbers to int64, so a
// bag read back from either backend compares equal to the same bag
// written from Go code with int64 values.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes (file DSNs only)
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON
package store
