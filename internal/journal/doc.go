// Package journal provides SQLite-backed storage for runtime trace events.
//
// A journal is an append-only log of runs. Each run holds the events one
// runtime reported through its Tracer, keyed by (run_id, seq).
//
// The journal records what happened for later inspection. It never holds
// runtime state and nothing is restored from it.
//
// # Critical Patterns
//
// Logical time only:
//   - Events are ordered by seq (the runtime's logical clock), never by
//     wall time
//   - Run IDs are UUIDv7, so listing runs by ID lists them by start
//
// Deterministic reads:
//   - ReadRun orders by seq ASC
//   - ListRuns orders by id ASC COLLATE BINARY
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package journal
