// Package mmio provides ordered 32-bit register access for memory-mapped devices.
//
// Every Load32/Store32 is performed exactly once, in program order. Backing
// stores use sync/atomic so the compiler can neither merge nor drop accesses.
package mmio

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"sync/atomic"
)

// Handler dispatches a raw access to whatever device decodes addr.
// *chipset.Chipset implements Handler.
type Handler interface {
	HandleMMIO(addr uint64, data []byte, isWrite bool) error
}

// Bus performs little-endian word accesses through a Handler.
type Bus struct {
	h      Handler
	logger *slog.Logger

	faults atomic.Uint64
}

// NewBus creates a bus over h. A nil logger uses slog.Default.
func NewBus(h Handler, logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{h: h, logger: logger}
}

// Read32 reads a word from the bus
func (b *Bus) Read32(addr uint64) (uint32, error) {
	if addr%4 != 0 {
		return 0, fmt.Errorf("mmio: unaligned read at 0x%x", addr)
	}
	var buf [4]byte
	if err := b.h.HandleMMIO(addr, buf[:], false); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

// Write32 writes a word to the bus
func (b *Bus) Write32(addr uint64, value uint32) error {
	if addr%4 != 0 {
		return fmt.Errorf("mmio: unaligned write at 0x%x", addr)
	}
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], value)
	return b.h.HandleMMIO(addr, buf[:], true)
}

// Load32 reads a word the way a CPU load does: a bus fault is counted and
// logged and the load returns 0.
func (b *Bus) Load32(addr uint64) uint32 {
	v, err := b.Read32(addr)
	if err != nil {
		b.fault("load", addr, err)
		return 0
	}
	return v
}

// Store32 writes a word; faults are counted and logged.
func (b *Bus) Store32(addr uint64, value uint32) {
	if err := b.Write32(addr, value); err != nil {
		b.fault("store", addr, err)
	}
}

// Faults returns the number of accesses that did not reach a device.
func (b *Bus) Faults() uint64 {
	return b.faults.Load()
}

func (b *Bus) fault(op string, addr uint64, err error) {
	b.faults.Add(1)
	b.logger.Error("mmio bus fault", "op", op, "addr", fmt.Sprintf("0x%x", addr), "err", err)
}
