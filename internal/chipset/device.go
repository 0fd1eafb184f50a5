// Package chipset wires simulated devices into a physical address space and
// routes their output lines to interrupt sinks.
package chipset

// Region is a physical address window claimed by a device.
type Region struct {
	Address uint64
	Size    uint64
}

// End returns the first address past the region.
func (r Region) End() uint64 { return r.Address + r.Size }

// Contains reports whether an access of n bytes at addr lies inside the region.
func (r Region) Contains(addr uint64, n int) bool {
	end := addr + uint64(n)
	if end < addr {
		return false
	}
	return addr >= r.Address && end <= r.End()
}

func (r Region) overlaps(o Region) bool {
	return r.Address < o.End() && o.Address < r.End()
}

// MmioHandler handles reads and writes to memory-mapped regions.
// Addresses are absolute physical addresses.
type MmioHandler interface {
	ReadMMIO(addr uint64, data []byte) error
	WriteMMIO(addr uint64, data []byte) error
}

// MmioIntercept describes the MMIO regions a device serves and the handler for them.
type MmioIntercept struct {
	Regions []Region
	Handler MmioHandler
}

// Device is a chipset device with a lifecycle and, optionally, registers.
type Device interface {
	Start() error
	Stop() error
	Reset() error

	// SupportsMmio returns nil for devices without registers.
	SupportsMmio() *MmioIntercept
}

// InterruptSink receives level changes of an interrupt line.
type InterruptSink interface {
	SetIRQ(line uint32, level bool)
}

// Line is a device's output wire.
type Line interface {
	SetLevel(high bool)
}

// LineFunc adapts a function to Line.
type LineFunc func(high bool)

func (f LineFunc) SetLevel(high bool) { f(high) }

type detachedLine struct{}

func (detachedLine) SetLevel(bool) {}

// DetachedLine returns a Line that goes nowhere.
func DetachedLine() Line { return detachedLine{} }
