// Package state provides observable state cells.
//
// A cell holds a value (Cell) or an ordered list of values (ListCell) and
// notifies a single bound observer exactly once per mutation that changes
// the value. Setting a cell to a value equal to its current value is a no-op.
//
// The runtime binds every cell of a contextualized context so that each
// mutation becomes a change record; application code only reads and writes.
//
// Cells are not safe for concurrent use. They are owned by the runtime's
// single-writer update loop like everything else in a context.
package state
