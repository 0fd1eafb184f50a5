package irq

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/tinyrange/plic/internal/chipset"
)

// Key is the token returned by CPU.Lock and consumed by CPU.Unlock.
type Key uint32

// DefaultTrapLimit bounds how many traps one delivery pass may take before
// the line is considered stuck.
const DefaultTrapLimit = 1 << 16

// CPU models the interrupt side of a single hart: a set of first-level
// lines with connected handlers, a global interrupt mask and a trap context
// that runs one handler at a time.
type CPU struct {
	mu sync.Mutex

	// critical serialises Lock/Unlock sections across goroutines.
	critical sync.Mutex

	lines  map[uint32]*cpuLine
	masked bool
	inTrap bool

	traps  uint64
	faults []error

	logger    *slog.Logger
	trapLimit int

	// OnFatal, when set, is called after a fatal condition is recorded.
	OnFatal func(error)
}

type cpuLine struct {
	handler Handler
	arg     any
	enabled bool
	level   bool
}

// NewCPU returns a CPU with all lines disabled and interrupts unmasked.
func NewCPU(logger *slog.Logger) *CPU {
	if logger == nil {
		logger = slog.Default()
	}
	return &CPU{
		lines:     make(map[uint32]*cpuLine),
		logger:    logger,
		trapLimit: DefaultTrapLimit,
	}
}

// SetTrapLimit overrides DefaultTrapLimit.
func (c *CPU) SetTrapLimit(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.trapLimit = n
}

func (c *CPU) line(n uint32) *cpuLine {
	l := c.lines[n]
	if l == nil {
		l = &cpuLine{}
		c.lines[n] = l
	}
	return l
}

// Connect installs the handler for first-level line n.
func (c *CPU) Connect(n uint32, h Handler, arg any) error {
	if h == nil {
		return fmt.Errorf("irq: nil handler for cpu line %d", n)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	l := c.line(n)
	if l.handler != nil {
		return fmt.Errorf("irq: cpu line %d already connected", n)
	}
	l.handler = h
	l.arg = arg
	return nil
}

// Enable unmasks line n. A line that is already asserted traps immediately.
func (c *CPU) Enable(n uint32) error {
	c.mu.Lock()
	l := c.line(n)
	if l.handler == nil {
		c.mu.Unlock()
		return fmt.Errorf("irq: enable of unconnected cpu line %d", n)
	}
	l.enabled = true
	c.mu.Unlock()

	c.deliver()
	return nil
}

// Disable masks line n.
func (c *CPU) Disable(n uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.line(n).enabled = false
}

// IsEnabled reports whether line n is unmasked.
func (c *CPU) IsEnabled(n uint32) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	l := c.lines[n]
	return l != nil && l.enabled
}

// Lock masks interrupt delivery until the matching Unlock. It is a global,
// non-reentrant critical section: do not nest it on one goroutine.
func (c *CPU) Lock() Key {
	c.critical.Lock()
	c.mu.Lock()
	var key Key
	if c.masked {
		key = 1
	}
	c.masked = true
	c.mu.Unlock()
	return key
}

// Unlock restores the mask state saved in key and delivers anything that
// was asserted while masked.
func (c *CPU) Unlock(key Key) {
	c.mu.Lock()
	c.masked = key != 0
	c.mu.Unlock()
	c.critical.Unlock()

	c.deliver()
}

// SetIRQ implements chipset.InterruptSink.
func (c *CPU) SetIRQ(n uint32, level bool) {
	c.mu.Lock()
	c.line(n).level = level
	c.mu.Unlock()

	if level {
		c.deliver()
	}
}

// Traps returns the number of handler invocations so far.
func (c *CPU) Traps() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.traps
}

// Fatal is the platform's fatal-interrupt path. The condition is recorded,
// logged and handed to OnFatal; the trap that raised it is abandoned.
func (c *CPU) Fatal(err error) {
	c.mu.Lock()
	c.faults = append(c.faults, err)
	hook := c.OnFatal
	c.mu.Unlock()

	c.logger.Error("fatal interrupt condition", "err", err)
	if hook != nil {
		hook(err)
	}
}

// Faults returns every condition passed to Fatal.
func (c *CPU) Faults() []error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]error(nil), c.faults...)
}

// nextLocked returns the lowest numbered asserted, enabled, connected line.
func (c *CPU) nextLocked() (*cpuLine, uint32, bool) {
	var ready []uint32
	for n, l := range c.lines {
		if l.level && l.enabled && l.handler != nil {
			ready = append(ready, n)
		}
	}
	if len(ready) == 0 {
		return nil, 0, false
	}
	sort.Slice(ready, func(i, j int) bool { return ready[i] < ready[j] })
	return c.lines[ready[0]], ready[0], true
}

// deliver runs the trap loop until no enabled line is asserted. Only one
// goroutine is ever inside the loop; others just update line state and
// leave the re-check to it.
func (c *CPU) deliver() {
	c.mu.Lock()
	if c.inTrap || c.masked {
		c.mu.Unlock()
		return
	}
	c.inTrap = true
	limit := c.trapLimit
	c.mu.Unlock()

	taken := 0
	for {
		c.mu.Lock()
		l, n, ok := c.nextLocked()
		if !ok || c.masked {
			c.inTrap = false
			c.mu.Unlock()
			return
		}
		if taken >= limit {
			c.inTrap = false
			c.mu.Unlock()
			c.logger.Error("interrupt storm, leaving line asserted", "line", n, "traps", taken)
			return
		}
		c.traps++
		h, arg := l.handler, l.arg
		c.mu.Unlock()

		taken++
		h(arg)
	}
}

var _ chipset.InterruptSink = (*CPU)(nil)
