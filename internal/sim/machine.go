// Package sim assembles a simulated platform: PLIC device models on a
// chipset, a CPU interrupt subsystem, and driver instances talking to the
// models over MMIO.
package sim

import (
	"fmt"
	"log/slog"
	"math/bits"

	"github.com/tinyrange/plic/internal/chipset"
	"github.com/tinyrange/plic/internal/devices/intc"
	"github.com/tinyrange/plic/internal/irq"
	"github.com/tinyrange/plic/internal/mmio"
	"github.com/tinyrange/plic/internal/plic"
	"github.com/tinyrange/plic/internal/trace"
)

// Options tunes machine construction.
type Options struct {
	Logger *slog.Logger
	// Trace receives every controller event, handler run and fault. A
	// recorder is created when nil.
	Trace *trace.Recorder
	// TableSize overrides the second-level table size.
	TableSize int
	// ModelSources gives a device model more (or fewer) sources than its
	// driver is configured with, keyed by controller name.
	ModelSources map[string]uint32
	// PriorityBits is the implemented priority width of every model. When
	// zero each model gets the width its controller's MaxPriority needs.
	PriorityBits uint
}

// Machine is a booted-or-bootable simulated platform.
type Machine struct {
	Chipset *chipset.Chipset
	CPU     *irq.CPU
	Bus     *mmio.Bus
	Table   *irq.Table
	Group   *plic.Group
	Trace   *trace.Recorder

	devices map[string]*intc.PLIC
	logger  *slog.Logger
}

// New builds a machine with one device model and one driver per config.
func New(cfgs []plic.Config, opts Options) (*Machine, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	rec := opts.Trace
	if rec == nil {
		rec = trace.NewRecorder()
	}

	m := &Machine{
		CPU:     irq.NewCPU(logger),
		Trace:   rec,
		devices: make(map[string]*intc.PLIC),
		logger:  logger,
	}

	builder := chipset.NewBuilder()
	for i := range cfgs {
		if err := cfgs[i].Validate(); err != nil {
			return nil, err
		}
		cfg := cfgs[i]
		sources := cfg.NumSources
		if n, ok := opts.ModelSources[cfg.Name]; ok {
			sources = n
		}
		width, err := priorityBits(cfg, opts.PriorityBits)
		if err != nil {
			return nil, err
		}
		dev, err := intc.New(intc.Options{
			Base:         cfg.BaseAddress,
			NumSources:   sources,
			PriorityBits: width,
		})
		if err != nil {
			return nil, fmt.Errorf("sim: %s: %w", cfg.Name, err)
		}
		if err := builder.AddDevice(cfg.Name, dev); err != nil {
			return nil, fmt.Errorf("sim: %w", err)
		}
		if err := builder.ConnectLine(cfg.ParentIRQ, m.CPU); err != nil {
			return nil, fmt.Errorf("sim: %s: %w", cfg.Name, err)
		}
		m.devices[cfg.Name] = dev
	}

	cs, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("sim: %w", err)
	}
	m.Chipset = cs
	m.Bus = mmio.NewBus(cs, logger)

	size := opts.TableSize
	for _, cfg := range cfgs {
		size = max(size, int(cfg.TableOffset+cfg.NumSources))
	}
	m.Table = irq.NewTable(size)

	m.Group, err = plic.NewGroup(cfgs, func(cfg plic.Config) plic.Options {
		return plic.Options{
			Registers: m.Bus,
			Table:     m.Table,
			Parent:    m.CPU,
			Locker:    m.CPU,
			Logger:    logger,
			Fatal:     m.fatal(cfg.Name),
			Observer:  rec.Observe,
		}
	})
	if err != nil {
		return nil, err
	}

	for _, c := range m.Group.Controllers() {
		m.devices[c.Name()].SetOutput(cs.Line(c.Config().ParentIRQ))
	}
	return m, nil
}

// priorityBits picks the model's priority width for cfg. Without an explicit
// width the model is made just wide enough for MaxPriority.
func priorityBits(cfg plic.Config, want uint) (uint, error) {
	if want == 0 {
		return uint(max(bits.Len32(cfg.MaxPriority), 1)), nil
	}
	if want < 32 && cfg.MaxPriority > 1<<want-1 {
		return 0, fmt.Errorf("%w: %s: max-priority %d does not fit in %d priority bits",
			plic.ErrConfig, cfg.Name, cfg.MaxPriority, want)
	}
	return want, nil
}

func (m *Machine) fatal(name string) func(error) {
	return func(err error) {
		m.Trace.Note(name, trace.KindFault, 0, err.Error())
		m.CPU.Fatal(err)
	}
}

// Boot starts the chipset and initializes every controller.
func (m *Machine) Boot() error {
	if err := m.Chipset.Start(); err != nil {
		return err
	}
	return m.Group.InitAll()
}

// Controller returns the driver instance called name. An empty name selects
// the first controller.
func (m *Machine) Controller(name string) (*plic.Controller, error) {
	if name == "" {
		ctrls := m.Group.Controllers()
		if len(ctrls) == 0 {
			return nil, fmt.Errorf("sim: no controllers")
		}
		return ctrls[0], nil
	}
	c, ok := m.Group.Controller(name)
	if !ok {
		return nil, fmt.Errorf("sim: unknown controller %q", name)
	}
	return c, nil
}

// Device returns the model behind controller name.
func (m *Machine) Device(name string) (*intc.PLIC, error) {
	c, err := m.Controller(name)
	if err != nil {
		return nil, err
	}
	return m.devices[c.Name()], nil
}

// Connect installs h for source of controller in the second-level table.
func (m *Machine) Connect(controller string, source uint32, h irq.Handler, arg any) error {
	c, err := m.Controller(controller)
	if err != nil {
		return err
	}
	return m.Table.Connect(c.Config().TableOffset+source, h, arg)
}

// ConnectRecorder installs a handler that records its invocation in the
// trace. With clear set it also deasserts the source's input, as a driver
// acknowledging its device would.
func (m *Machine) ConnectRecorder(controller string, source uint32, clear bool) error {
	c, err := m.Controller(controller)
	if err != nil {
		return err
	}
	dev := m.devices[c.Name()]
	name := c.Name()
	return m.Connect(name, source, func(any) {
		m.Trace.Note(name, trace.KindHandler, source, "")
		if clear {
			dev.SetIRQ(source, false)
		}
	}, nil)
}
