package intc

import (
	"encoding/binary"
	"testing"

	"github.com/tinyrange/plic/internal/chipset"
)

const testBase = 0x0c00_0000

type lineWatch struct {
	level bool
	edges int
}

func newTestPLIC(t *testing.T, sources uint32) (*PLIC, *lineWatch) {
	t.Helper()
	line := &lineWatch{}
	p, err := New(Options{
		Base:       testBase,
		NumSources: sources,
		Output: chipset.LineFunc(func(level bool) {
			if level && !line.level {
				line.edges++
			}
			line.level = level
		}),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p, line
}

func write(t *testing.T, p *PLIC, offset uint64, value uint32) {
	t.Helper()
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], value)
	if err := p.WriteMMIO(testBase+offset, buf[:]); err != nil {
		t.Fatalf("write 0x%x: %v", offset, err)
	}
}

func read(t *testing.T, p *PLIC, offset uint64) uint32 {
	t.Helper()
	var buf [4]byte
	if err := p.ReadMMIO(testBase+offset, buf[:]); err != nil {
		t.Fatalf("read 0x%x: %v", offset, err)
	}
	return binary.LittleEndian.Uint32(buf[:])
}

const claimOffset = PLICThresholdBase + PLICClaimOffset

func arm(t *testing.T, p *PLIC, source, priority uint32) {
	t.Helper()
	write(t, p, PLICPriorityBase+4*uint64(source), priority)
	word := PLICEnableBase + 4*uint64(source/32)
	write(t, p, uint64(word), read(t, p, uint64(word))|1<<(source%32))
}

func TestClaimPicksHighestPriority(t *testing.T) {
	p, line := newTestPLIC(t, 8)
	arm(t, p, 2, 3)
	arm(t, p, 5, 6)
	arm(t, p, 6, 6)

	p.SetIRQ(2, true)
	p.SetIRQ(5, true)
	p.SetIRQ(6, true)
	if !line.level {
		t.Fatalf("output not asserted")
	}

	// 5 and 6 tie; the lower id wins.
	for _, want := range []uint32{5, 6, 2} {
		if got := read(t, p, claimOffset); got != want {
			t.Fatalf("claim = %d, want %d", got, want)
		}
	}
	if got := read(t, p, claimOffset); got != 0 {
		t.Fatalf("claim with nothing pending = %d, want 0", got)
	}
	if line.level {
		t.Fatalf("output still asserted with everything in service")
	}
}

func TestThresholdMasksLowPriority(t *testing.T) {
	p, line := newTestPLIC(t, 4)
	arm(t, p, 1, 2)
	write(t, p, PLICThresholdBase, 2)
	p.SetIRQ(1, true)
	if line.level {
		t.Fatalf("source at threshold priority asserted the output")
	}
	write(t, p, PLICThresholdBase, 1)
	if !line.level {
		t.Fatalf("lowering the threshold did not assert the output")
	}
}

func TestLevelSourceRePendsWhileAsserted(t *testing.T) {
	p, _ := newTestPLIC(t, 4)
	arm(t, p, 3, 1)
	p.SetIRQ(3, true)

	if got := read(t, p, claimOffset); got != 3 {
		t.Fatalf("claim = %d", got)
	}
	if p.Pending(3) || !p.InService(3) {
		t.Fatalf("claimed source should be in service and not pending")
	}
	write(t, p, claimOffset, 3)
	if !p.Pending(3) {
		t.Fatalf("still-asserted level source not pending after completion")
	}

	if got := read(t, p, claimOffset); got != 3 {
		t.Fatalf("second claim = %d", got)
	}
	p.SetIRQ(3, false)
	write(t, p, claimOffset, 3)
	if p.Pending(3) || p.InService(3) {
		t.Fatalf("deasserted source pending after completion")
	}
}

func TestEdgeSourceLatchesDuringService(t *testing.T) {
	p, _ := newTestPLIC(t, 4)
	p.SetTrigger(1, true)
	arm(t, p, 1, 1)

	p.Pulse(1)
	if got := read(t, p, claimOffset); got != 1 {
		t.Fatalf("claim = %d", got)
	}
	write(t, p, claimOffset, 1)

	// An edge arriving while in service is latched and claimable after
	// completion.
	if got := read(t, p, PLICTriggerBase); got != 1<<1 {
		t.Fatalf("trigger word = 0x%x", got)
	}
	p.Pulse(1)
	if got := read(t, p, claimOffset); got != 1 {
		t.Fatalf("claim = %d", got)
	}
	p.Pulse(1)
	if !p.Pending(1) {
		t.Fatalf("edge during service was not latched")
	}
	write(t, p, claimOffset, 1)
	if got := read(t, p, claimOffset); got != 1 {
		t.Fatalf("latched edge not claimable, claim = %d", got)
	}

	claims, completes := p.Stats()
	if claims != 3 || completes != 2 {
		t.Fatalf("Stats() = %d, %d", claims, completes)
	}
}

func TestCompleteOfIdleSourceIsIgnored(t *testing.T) {
	p, _ := newTestPLIC(t, 4)
	arm(t, p, 2, 1)
	write(t, p, claimOffset, 2)
	write(t, p, claimOffset, 99)
	if _, completes := p.Stats(); completes != 0 {
		t.Fatalf("idle completion counted")
	}
}

func TestRegisterMasks(t *testing.T) {
	p, _ := newTestPLIC(t, 40)

	write(t, p, PLICPriorityBase+4, 0xff)
	if got := read(t, p, PLICPriorityBase+4); got != 7 {
		t.Fatalf("priority = %d, want 3-bit mask 7", got)
	}
	write(t, p, PLICPriorityBase, 5)
	if got := read(t, p, PLICPriorityBase); got != 0 {
		t.Fatalf("source 0 priority is writable")
	}
	write(t, p, PLICEnableBase, 0xffffffff)
	if got := read(t, p, PLICEnableBase); got != 0xfffffffe {
		t.Fatalf("enable word 0 = 0x%x, source 0 must stay disabled", got)
	}
	write(t, p, PLICEnableBase+4, 0x1)
	if got := read(t, p, PLICEnableBase+4); got != 0x1 {
		t.Fatalf("enable word 1 = 0x%x", got)
	}
	if got := read(t, p, PLICEnableBase+0x100); got != 0 {
		t.Fatalf("unimplemented enable word = 0x%x", got)
	}
	if err := p.ReadMMIO(testBase, make([]byte, 2)); err == nil {
		t.Fatalf("narrow read accepted")
	}
}

func TestResetClearsState(t *testing.T) {
	p, line := newTestPLIC(t, 4)
	p.SetTrigger(2, true)
	arm(t, p, 2, 4)
	p.Pulse(2)
	if !line.level {
		t.Fatalf("output not asserted")
	}
	if err := p.Reset(); err != nil {
		t.Fatal(err)
	}
	if line.level || p.Pending(2) || read(t, p, PLICPriorityBase+8) != 0 {
		t.Fatalf("state survived Reset")
	}
	if read(t, p, PLICTriggerBase) != 1<<2 {
		t.Fatalf("trigger wiring lost on Reset")
	}
}

func TestNewValidatesOptions(t *testing.T) {
	if _, err := New(Options{NumSources: 0}); err == nil {
		t.Fatalf("zero sources accepted")
	}
	if _, err := New(Options{NumSources: PLICMaxSources + 1}); err == nil {
		t.Fatalf("too many sources accepted")
	}
	if _, err := New(Options{NumSources: 4, PriorityBits: 33}); err == nil {
		t.Fatalf("oversized priority accepted")
	}
}
