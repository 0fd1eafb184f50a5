package chipset

import (
	"fmt"
	"sort"
)

type binding struct {
	region  Region
	owner   string
	handler MmioHandler
}

// Builder collects devices, address decoding and line routing before the
// chipset is frozen by Build.
type Builder struct {
	devices map[string]Device
	order   []string
	regions []binding
	sinks   map[uint32]InterruptSink
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		devices: make(map[string]Device),
		sinks:   make(map[uint32]InterruptSink),
	}
}

// AddDevice registers dev under name and maps its MMIO regions.
func (b *Builder) AddDevice(name string, dev Device) error {
	switch {
	case name == "":
		return fmt.Errorf("device name is empty")
	case dev == nil:
		return fmt.Errorf("device %q is nil", name)
	}
	if _, exists := b.devices[name]; exists {
		return fmt.Errorf("device %q already registered", name)
	}

	if intercept := dev.SupportsMmio(); intercept != nil {
		if intercept.Handler == nil {
			return fmt.Errorf("device %q provided MMIO regions with nil handler", name)
		}
		for _, r := range intercept.Regions {
			if err := b.MapRegion(r, intercept.Handler, name); err != nil {
				return err
			}
		}
	}

	b.devices[name] = dev
	b.order = append(b.order, name)
	return nil
}

// MapRegion decodes accesses inside r to h. owner names the mapping in
// errors.
func (b *Builder) MapRegion(r Region, h MmioHandler, owner string) error {
	if h == nil {
		return fmt.Errorf("%s: MMIO handler for 0x%x is nil", owner, r.Address)
	}
	if r.Size == 0 || r.End() < r.Address {
		return fmt.Errorf("%s: invalid MMIO region 0x%x size 0x%x", owner, r.Address, r.Size)
	}
	for _, existing := range b.regions {
		if r.overlaps(existing.region) {
			return fmt.Errorf("%s: MMIO region 0x%x-0x%x overlaps %s at 0x%x-0x%x",
				owner, r.Address, r.End()-1,
				existing.owner, existing.region.Address, existing.region.End()-1)
		}
	}
	b.regions = append(b.regions, binding{region: r, owner: owner, handler: h})
	return nil
}

// ConnectLine routes interrupt line n to sink. Each line has one sink.
func (b *Builder) ConnectLine(n uint32, sink InterruptSink) error {
	if sink == nil {
		return fmt.Errorf("interrupt sink for line %d is nil", n)
	}
	if _, exists := b.sinks[n]; exists {
		return fmt.Errorf("interrupt line %d already connected", n)
	}
	b.sinks[n] = sink
	return nil
}

// Build freezes the layout. The builder may be discarded afterwards.
func (b *Builder) Build() (*Chipset, error) {
	regions := append([]binding(nil), b.regions...)
	sort.Slice(regions, func(i, j int) bool {
		return regions[i].region.Address < regions[j].region.Address
	})

	c := &Chipset{
		devices: make(map[string]Device, len(b.devices)),
		order:   append([]string(nil), b.order...),
		regions: regions,
		sinks:   make(map[uint32]InterruptSink, len(b.sinks)),
		levels:  make(map[uint32]bool),
	}
	for name, dev := range b.devices {
		c.devices[name] = dev
	}
	for n, sink := range b.sinks {
		c.sinks[n] = sink
	}
	return c, nil
}
