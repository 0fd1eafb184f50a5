// Package irq holds the software interrupt tables and a simulated CPU
// interrupt subsystem that second-level controllers hang off.
package irq

import (
	"fmt"
	"sync"
)

// Handler is an interrupt service routine. It receives the argument it was
// connected with.
type Handler func(arg any)

// Entry is one slot of a dispatch table.
type Entry struct {
	Handler Handler
	Arg     any
}

// Table maps interrupt numbers to handlers. It is populated before the
// controllers that consult it are armed and is safe for concurrent lookup.
type Table struct {
	mu      sync.RWMutex
	entries []Entry
}

// NewTable returns a table with size empty slots.
func NewTable(size int) *Table {
	return &Table{entries: make([]Entry, size)}
}

// Len returns the number of slots.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Connect installs h in slot n.
func (t *Table) Connect(n uint32, h Handler, arg any) error {
	if h == nil {
		return fmt.Errorf("irq: nil handler for slot %d", n)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if int(n) >= len(t.entries) {
		return fmt.Errorf("irq: slot %d out of range (table has %d slots)", n, len(t.entries))
	}
	if t.entries[n].Handler != nil {
		return fmt.Errorf("irq: slot %d already connected", n)
	}
	t.entries[n] = Entry{Handler: h, Arg: arg}
	return nil
}

// Disconnect clears slot n.
func (t *Table) Disconnect(n uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if int(n) < len(t.entries) {
		t.entries[n] = Entry{}
	}
}

// Lookup returns the entry in slot n, if one is connected.
func (t *Table) Lookup(n uint32) (Entry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if int(n) >= len(t.entries) {
		return Entry{}, false
	}
	e := t.entries[n]
	return e, e.Handler != nil
}
