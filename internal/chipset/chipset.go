package chipset

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
)

// ErrUnmapped is returned for accesses no device decodes.
var ErrUnmapped = errors.New("no device at address")

// Chipset is a built set of devices with a fixed address map and line
// routing.
type Chipset struct {
	devices map[string]Device
	order   []string
	regions []binding
	sinks   map[uint32]InterruptSink

	mu     sync.Mutex
	levels map[uint32]bool

	accesses atomic.Uint64
}

// Start starts devices in registration order.
func (c *Chipset) Start() error {
	for _, name := range c.order {
		if err := c.devices[name].Start(); err != nil {
			return fmt.Errorf("chipset: start device %q: %w", name, err)
		}
	}
	return nil
}

// Stop stops devices in reverse registration order.
func (c *Chipset) Stop() error {
	for i := len(c.order) - 1; i >= 0; i-- {
		name := c.order[i]
		if err := c.devices[name].Stop(); err != nil {
			return fmt.Errorf("chipset: stop device %q: %w", name, err)
		}
	}
	return nil
}

// Reset resets every device.
func (c *Chipset) Reset() error {
	for _, name := range c.order {
		if err := c.devices[name].Reset(); err != nil {
			return fmt.Errorf("chipset: reset device %q: %w", name, err)
		}
	}
	return nil
}

// Device returns the device registered under name.
func (c *Chipset) Device(name string) (Device, bool) {
	dev, ok := c.devices[name]
	return dev, ok
}

// HandleMMIO dispatches one access to the device whose region contains it.
// Accesses that straddle a region boundary are not decoded.
func (c *Chipset) HandleMMIO(addr uint64, data []byte, isWrite bool) error {
	i := sort.Search(len(c.regions), func(i int) bool {
		return c.regions[i].region.End() > addr
	})
	if i == len(c.regions) || !c.regions[i].region.Contains(addr, len(data)) {
		return fmt.Errorf("chipset: %d-byte access at 0x%x: %w", len(data), addr, ErrUnmapped)
	}
	c.accesses.Add(1)
	if isWrite {
		return c.regions[i].handler.WriteMMIO(addr, data)
	}
	return c.regions[i].handler.ReadMMIO(addr, data)
}

// Accesses returns the number of decoded MMIO accesses.
func (c *Chipset) Accesses() uint64 {
	return c.accesses.Load()
}

// Line returns a handle driving interrupt line n. Only level changes reach
// the line's sink; lines without a sink are dropped.
func (c *Chipset) Line(n uint32) Line {
	return LineFunc(func(high bool) { c.setLevel(n, high) })
}

// Level reports the level last driven on line n.
func (c *Chipset) Level(n uint32) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.levels[n]
}

func (c *Chipset) setLevel(n uint32, high bool) {
	c.mu.Lock()
	changed := c.levels[n] != high
	c.levels[n] = high
	sink := c.sinks[n]
	c.mu.Unlock()

	if changed && sink != nil {
		sink.SetIRQ(n, high)
	}
}
