// Package runtime implements the sdb reactive runtime.
//
// The runtime owns every contextualized context, matches them against the
// dependency slots of registered behaviors, keeps the instances it
// assembles, and drives them with a discrete update loop.
//
// ARCHITECTURE:
//
// Single-Writer Tick Loop:
// All registry and buffer mutations happen through the Runtime's own
// methods, called from one goroutine. Nothing blocks and nothing runs in
// the background; the embedding application calls Update at its own cadence.
//
// Flow:
//  1. Initialize builds one factory per behavior and assembles behaviors
//     that need no existing contexts.
//  2. Contextualize registers a context, binds its cells, and offers it to
//     every factory requiring its type. Complete sets are assembled at once.
//  3. Cell mutations append change records to an ordered buffer.
//  4. Update snapshots and clears the buffer, then invokes the change
//     operations of every instance bound to each changed context.
//  5. Decontextualize tears down every instance bound to the context and
//     frees the instance's other contexts for future assemblies.
//
// CRITICAL PATTERNS:
//
// Deferred propagation:
// Mutations made by operations during Update are recorded for the NEXT
// Update. A chain of N hops settles in exactly N ticks.
//
// Stable handles:
// Contexts are stored in an arena keyed by monotonically increasing
// handles that are never reused. Instance records and change records hold
// handles, so a stale record can never address a newer context.
//
// Logical clock:
// Change records and trace events are stamped from Clock.Next(). Ordering
// never depends on wall time.
package runtime
