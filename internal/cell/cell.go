// Package cell implements the shared cell table: process-global,
// read/write-lock-guarded slots used for cross-thread communication,
// module-level values, and the recursion-safe "current function"
// reference, per spec.md §3 and §5.
package cell

import "sync"

// Value is the inert payload a cell holds: either a scalar (int/float/
// bool/byte/char packed as bits) or an object-pool reference index,
// discriminated by IsObject so the VM's tag table stays consistent with
// what a register holding the same value would carry.
type Value struct {
	Bits     uint64
	IsObject bool
}

// Table is the shared cell table. Every cell is an independent
// reader/writer lock (spec.md §5 "each cell is an independent
// reader/writer lock"), sized up front by the caller of NewTable; the
// compiler does not assign cells to bindings.
type Table struct {
	cells []cellSlot
}

type cellSlot struct {
	mu  sync.RWMutex
	val Value
}

func NewTable(size int) *Table {
	return &Table{cells: make([]cellSlot, size)}
}

func (t *Table) Read(index int32) Value {
	c := &t.cells[index]
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.val
}

func (t *Table) Write(index int32, v Value) {
	c := &t.cells[index]
	c.mu.Lock()
	c.val = v
	c.mu.Unlock()
}

// Len reports how many cells the table holds, for bounds-checking
// CELL-kind addresses against register_count-style invariants before a
// VM run starts.
func (t *Table) Len() int {
	return len(t.cells)
}
