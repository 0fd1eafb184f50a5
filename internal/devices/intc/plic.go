// Package intc models a PLIC-class interrupt controller device: the
// register file a driver talks to, per-source gateways with edge and level
// semantics, and the output line into the CPU.
package intc

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/tinyrange/plic/internal/chipset"
)

// PLIC register offsets
const (
	PLICPriorityBase  = 0x000000 // Priority registers
	PLICPendingBase   = 0x001000 // Pending bits
	PLICTriggerBase   = 0x001080 // Trigger type bits (1 = edge)
	PLICEnableBase    = 0x002000 // Enable bits, context 0
	PLICThresholdBase = 0x200000 // Threshold, context 0
	PLICClaimOffset   = 0x4      // Claim/complete, relative to threshold

	PLICSize = 0x400000
)

// PLICMaxSources is the maximum number of interrupt sources including 0.
const PLICMaxSources = 1024

// Options configures a PLIC model.
type Options struct {
	Base       uint64
	NumSources uint32
	// PriorityBits is the implemented width of priority and threshold
	// registers. Defaults to 3.
	PriorityBits uint
	// Output is driven high while a claimable source exists.
	Output chipset.Line
}

// PLIC implements the Platform Level Interrupt Controller with a single
// target context.
type PLIC struct {
	mu sync.Mutex

	base     uint64
	n        uint32
	prioMask uint32
	out      chipset.Line

	priority  []uint32
	pending   []uint32
	trigger   []uint32
	enable    []uint32
	inService []uint32
	input     []uint32
	threshold uint32

	claims    uint64
	completes uint64
}

// New creates a PLIC model.
func New(opts Options) (*PLIC, error) {
	if opts.NumSources == 0 || opts.NumSources > PLICMaxSources {
		return nil, fmt.Errorf("plic model: invalid source count %d", opts.NumSources)
	}
	bits := opts.PriorityBits
	if bits == 0 {
		bits = 3
	}
	if bits > 32 {
		return nil, fmt.Errorf("plic model: invalid priority width %d", bits)
	}
	out := opts.Output
	if out == nil {
		out = chipset.DetachedLine()
	}
	words := int(opts.NumSources+31) / 32
	return &PLIC{
		base:      opts.Base,
		n:         opts.NumSources,
		prioMask:  uint32(uint64(1)<<bits - 1),
		out:       out,
		priority:  make([]uint32, opts.NumSources),
		pending:   make([]uint32, words),
		trigger:   make([]uint32, words),
		enable:    make([]uint32, words),
		inService: make([]uint32, words),
		input:     make([]uint32, words),
	}, nil
}

func testBit(words []uint32, source uint32) bool {
	return words[source/32]&(1<<(source%32)) != 0
}

func setBit(words []uint32, source uint32, on bool) {
	if on {
		words[source/32] |= 1 << (source % 32)
	} else {
		words[source/32] &^= 1 << (source % 32)
	}
}

func (p *PLIC) validSource(source uint32) bool {
	return source != 0 && source < p.n
}

// Start implements chipset.Device.
func (p *PLIC) Start() error { return nil }

// Stop implements chipset.Device.
func (p *PLIC) Stop() error { return nil }

// Reset clears all registers and gateway state. Trigger types are kept:
// they describe how sources are wired, not software state.
func (p *PLIC) Reset() error {
	p.mu.Lock()
	clear(p.priority)
	clear(p.pending)
	clear(p.enable)
	clear(p.inService)
	clear(p.input)
	p.threshold = 0
	p.mu.Unlock()

	p.updateInterrupt()
	return nil
}

// SupportsMmio implements chipset.Device.
func (p *PLIC) SupportsMmio() *chipset.MmioIntercept {
	return &chipset.MmioIntercept{
		Regions: []chipset.Region{{Address: p.base, Size: PLICSize}},
		Handler: p,
	}
}

// ReadMMIO implements chipset.MmioHandler.
func (p *PLIC) ReadMMIO(addr uint64, data []byte) error {
	if len(data) != 4 {
		return fmt.Errorf("plic model: invalid read size %d at 0x%x", len(data), addr)
	}
	offset := addr - p.base

	p.mu.Lock()
	val, claimed := p.readLocked(offset)
	p.mu.Unlock()

	if claimed {
		p.updateInterrupt()
	}
	binary.LittleEndian.PutUint32(data, val)
	return nil
}

func (p *PLIC) readLocked(offset uint64) (uint32, bool) {
	switch {
	case offset < PLICPendingBase:
		source := offset / 4
		if source < uint64(p.n) {
			return p.priority[source], false
		}

	case offset >= PLICPendingBase && offset < PLICTriggerBase:
		word := (offset - PLICPendingBase) / 4
		if word < uint64(len(p.pending)) {
			return p.pending[word], false
		}

	case offset >= PLICTriggerBase && offset < PLICEnableBase:
		word := (offset - PLICTriggerBase) / 4
		if word < uint64(len(p.trigger)) {
			return p.trigger[word], false
		}

	case offset >= PLICEnableBase && offset < PLICThresholdBase:
		word := (offset - PLICEnableBase) / 4
		if word < uint64(len(p.enable)) {
			return p.enable[word], false
		}

	case offset == PLICThresholdBase:
		return p.threshold, false

	case offset == PLICThresholdBase+PLICClaimOffset:
		return p.claim(), true
	}

	return 0, false
}

// WriteMMIO implements chipset.MmioHandler.
func (p *PLIC) WriteMMIO(addr uint64, data []byte) error {
	if len(data) != 4 {
		return fmt.Errorf("plic model: invalid write size %d at 0x%x", len(data), addr)
	}
	offset := addr - p.base
	value := binary.LittleEndian.Uint32(data)

	p.mu.Lock()
	p.writeLocked(offset, value)
	p.mu.Unlock()

	p.updateInterrupt()
	return nil
}

func (p *PLIC) writeLocked(offset uint64, value uint32) {
	switch {
	case offset < PLICPendingBase:
		source := offset / 4
		if p.validSource(uint32(source)) { // Source 0 is reserved
			p.priority[source] = value & p.prioMask
		}

	case offset >= PLICTriggerBase && offset < PLICEnableBase:
		word := (offset - PLICTriggerBase) / 4
		if word < uint64(len(p.trigger)) {
			p.trigger[word] = value &^ 1 // bit 0 is source 0
		}

	case offset >= PLICEnableBase && offset < PLICThresholdBase:
		word := (offset - PLICEnableBase) / 4
		if word < uint64(len(p.enable)) {
			p.enable[word] = value &^ boolToBit(word == 0)
		}

	case offset == PLICThresholdBase:
		p.threshold = value & p.prioMask

	case offset == PLICThresholdBase+PLICClaimOffset:
		p.complete(value)
	}
}

func boolToBit(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

// SetOutput rewires the line driven towards the CPU.
func (p *PLIC) SetOutput(out chipset.Line) {
	if out == nil {
		out = chipset.DetachedLine()
	}
	p.mu.Lock()
	p.out = out
	p.mu.Unlock()

	p.updateInterrupt()
}

// SetTrigger configures how source is wired: edge (true) or level.
func (p *PLIC) SetTrigger(source uint32, edge bool) {
	if !p.validSource(source) {
		return
	}
	p.mu.Lock()
	setBit(p.trigger, source, edge)
	p.mu.Unlock()
}

// SetIRQ drives the input of source's gateway. Edge sources latch a pending
// request on each rising edge, even while in service. Level sources become
// pending while asserted and not in service; once pending they stay pending
// until claimed.
func (p *PLIC) SetIRQ(source uint32, level bool) {
	if !p.validSource(source) {
		return
	}

	p.mu.Lock()
	rising := level && !testBit(p.input, source)
	setBit(p.input, source, level)
	if testBit(p.trigger, source) {
		if rising {
			setBit(p.pending, source, true)
		}
	} else if level && !testBit(p.inService, source) {
		setBit(p.pending, source, true)
	}
	p.mu.Unlock()

	p.updateInterrupt()
}

// Pulse asserts and releases source's input.
func (p *PLIC) Pulse(source uint32) {
	p.SetIRQ(source, true)
	p.SetIRQ(source, false)
}

// claim claims the highest priority pending interrupt. Ties go to the
// lowest source id.
func (p *PLIC) claim() uint32 {
	var bestSource uint32
	var bestPriority uint32

	for source := uint32(1); source < p.n; source++ {
		if !p.claimable(source) {
			continue
		}
		if priority := p.priority[source]; priority > bestPriority {
			bestPriority = priority
			bestSource = source
		}
	}

	if bestSource != 0 {
		setBit(p.pending, bestSource, false)
		setBit(p.inService, bestSource, true)
		p.claims++
	}
	return bestSource
}

func (p *PLIC) claimable(source uint32) bool {
	return testBit(p.pending, source) &&
		testBit(p.enable, source) &&
		!testBit(p.inService, source) &&
		p.priority[source] > p.threshold
}

// complete signals completion of interrupt handling. Completions for a
// source that is not in service are ignored.
func (p *PLIC) complete(source uint32) {
	if !p.validSource(source) || !testBit(p.inService, source) {
		return
	}
	setBit(p.inService, source, false)
	p.completes++

	// A level source still asserted is requested again.
	if !testBit(p.trigger, source) && testBit(p.input, source) {
		setBit(p.pending, source, true)
	}
}

// updateInterrupt drives the output line. It is called without p.mu held so
// that the CPU may trap straight back into the device.
func (p *PLIC) updateInterrupt() {
	p.mu.Lock()
	level := p.hasPendingInterrupt()
	out := p.out
	p.mu.Unlock()

	out.SetLevel(level)
}

func (p *PLIC) hasPendingInterrupt() bool {
	for source := uint32(1); source < p.n; source++ {
		if p.claimable(source) {
			return true
		}
	}
	return false
}

// Pending reports source's pending bit.
func (p *PLIC) Pending(source uint32) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.validSource(source) && testBit(p.pending, source)
}

// InService reports whether source has been claimed and not yet completed.
func (p *PLIC) InService(source uint32) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.validSource(source) && testBit(p.inService, source)
}

// Stats returns the number of successful claims and completions.
func (p *PLIC) Stats() (claims, completes uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.claims, p.completes
}

var _ chipset.Device = (*PLIC)(nil)
