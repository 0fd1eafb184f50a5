package sim

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/tinyrange/plic/internal/irq"
	"github.com/tinyrange/plic/internal/mmio"
	"github.com/tinyrange/plic/internal/plic"
)

// TargetOptions selects where a Target's register windows live.
type TargetOptions struct {
	Logger *slog.Logger
	// Path is mapped for the register windows, typically /dev/mem or a UIO
	// node. When empty every controller gets a zeroed in-memory window.
	Path string
	// Physical maps each window at file offset BaseAddress, as /dev/mem
	// expects. Otherwise windows are packed from offset 0, one
	// plic.RegisterSpan each, in configuration order.
	Physical bool
}

// Target drives controllers over raw register windows with no device model
// behind them. Nothing traps into the driver, so only configuration
// operations apply.
type Target struct {
	Group *plic.Group
	Table *irq.Table

	mappings []*mmio.Mapping
}

// Attach opens one register window per config and builds a driver on each.
func Attach(cfgs []plic.Config, opts TargetOptions) (*Target, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if len(cfgs) == 0 {
		return nil, fmt.Errorf("sim: no controllers to attach")
	}
	t := &Target{}
	windows := make(map[string]plic.Registers)
	size := 0
	for i := range cfgs {
		if err := cfgs[i].Validate(); err != nil {
			t.Close()
			return nil, err
		}
		cfg := cfgs[i]
		regs, err := t.open(cfg, i, opts)
		if err != nil {
			t.Close()
			return nil, err
		}
		windows[cfg.Name] = regs
		size = max(size, int(cfg.TableOffset+cfg.NumSources))
	}
	t.Table = irq.NewTable(size)

	g, err := plic.NewGroup(cfgs, func(cfg plic.Config) plic.Options {
		return plic.Options{
			Registers: windows[cfg.Name],
			Table:     t.Table,
			Logger:    logger,
			Fatal: func(err error) {
				logger.Error("interrupt transaction failed", "plic", cfg.Name, "err", err)
			},
		}
	})
	if err != nil {
		t.Close()
		return nil, err
	}
	t.Group = g
	return t, nil
}

func (t *Target) open(cfg plic.Config, i int, opts TargetOptions) (plic.Registers, error) {
	if opts.Path == "" {
		return mmio.NewRegion(cfg.BaseAddress, plic.RegisterSpan), nil
	}
	off := int64(i) * plic.RegisterSpan
	if opts.Physical {
		off = int64(cfg.BaseAddress)
	}
	// Mapping past the end of a regular file faults on first access.
	if fi, err := os.Stat(opts.Path); err == nil && fi.Mode().IsRegular() && fi.Size() < off+plic.RegisterSpan {
		return nil, fmt.Errorf("sim: %s: %s is %d bytes, window needs 0x%x+0x%x", cfg.Name, opts.Path, fi.Size(), off, plic.RegisterSpan)
	}
	m, err := mmio.MapFile(opts.Path, cfg.BaseAddress, off, plic.RegisterSpan)
	if err != nil {
		return nil, fmt.Errorf("sim: %s: %w", cfg.Name, err)
	}
	t.mappings = append(t.mappings, m)
	return m, nil
}

// Controller returns the driver called name, or the first one for "".
func (t *Target) Controller(name string) (*plic.Controller, error) {
	if name == "" {
		return t.Group.Controllers()[0], nil
	}
	c, ok := t.Group.Controller(name)
	if !ok {
		return nil, fmt.Errorf("sim: unknown controller %q", name)
	}
	return c, nil
}

// Settings are register changes applied to one controller.
type Settings struct {
	Controller string
	Enable     []uint32
	Disable    []uint32
	// Priority is written to every source in Enable.
	Priority uint32
	// Threshold is written when non-nil.
	Threshold *uint32
}

// Apply writes s through the driver.
func (t *Target) Apply(s Settings) error {
	c, err := t.Controller(s.Controller)
	if err != nil {
		return err
	}
	for _, id := range s.Enable {
		if err := c.SetPriority(id, s.Priority); err != nil {
			return err
		}
		if err := c.Enable(id); err != nil {
			return err
		}
	}
	for _, id := range s.Disable {
		if err := c.Disable(id); err != nil {
			return err
		}
	}
	if s.Threshold != nil {
		c.SetThreshold(*s.Threshold)
	}
	return nil
}

// ControllerState is a readback of one controller's configuration.
type ControllerState struct {
	Name      string
	Threshold uint32
	// Enabled lists unmasked sources in id order.
	Enabled []uint32
	// Priority holds every source with a nonzero priority.
	Priority map[uint32]uint32
}

// State reads back every controller through its driver.
func (t *Target) State() []ControllerState {
	var out []ControllerState
	for _, c := range t.Group.Controllers() {
		st := ControllerState{
			Name:      c.Name(),
			Threshold: c.Threshold(),
			Priority:  make(map[uint32]uint32),
		}
		for id := uint32(1); id < c.Config().NumSources; id++ {
			if c.IsEnabled(id) {
				st.Enabled = append(st.Enabled, id)
			}
			if p, _ := c.Priority(id); p != 0 {
				st.Priority[id] = p
			}
		}
		out = append(out, st)
	}
	return out
}

// Close flushes and unmaps any mapped windows.
func (t *Target) Close() error {
	var errs []error
	for _, m := range t.mappings {
		errs = append(errs, m.Sync(), m.Close())
	}
	t.mappings = nil
	return errors.Join(errs...)
}
