// Package plic drives a platform-level interrupt controller: it configures
// source enables and priorities, and runs the claim/dispatch/complete
// transaction when the controller's line traps into the CPU.
package plic

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/tinyrange/plic/internal/irq"
)

// Table is the second-level dispatch table the controller routes claims
// through. *irq.Table implements it.
type Table interface {
	Lookup(n uint32) (irq.Entry, bool)
}

// Parent is the CPU interrupt subsystem the controller's output line is
// connected to. *irq.CPU implements it.
type Parent interface {
	Connect(line uint32, h irq.Handler, arg any) error
	Enable(line uint32) error
}

// Options carries a controller's collaborators.
type Options struct {
	// Registers reaches the register file. Required.
	Registers Registers
	// Table resolves claimed sources to handlers. Required.
	Table Table
	// Parent, if set, is armed with ISR during Init.
	Parent Parent
	// Locker guards enable read-modify-writes. Defaults to a global mutex.
	Locker Locker
	// Logger defaults to slog.Default.
	Logger *slog.Logger
	// Fatal receives transaction-fatal errors raised inside ISR. The
	// default panics.
	Fatal func(error)
	// Observer, if set, sees every step of every transaction.
	Observer Observer
}

// Controller is one PLIC instance.
type Controller struct {
	cfg  Config
	regs regs

	table   Table
	parent  Parent
	locker  Locker
	logger  *slog.Logger
	fatal   func(error)
	observe Observer

	// lastClaimed is the id returned by the most recent claim read.
	lastClaimed atomic.Uint32

	initOnce sync.Once
	initErr  error
}

// New validates cfg and returns a controller over opts.Registers. It does
// not touch the hardware; call Init for that.
func New(cfg Config, opts Options) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opts.Registers == nil {
		return nil, fmt.Errorf("%w: %s has no register access", ErrConfig, cfg.Name)
	}
	if opts.Table == nil {
		return nil, fmt.Errorf("%w: %s has no dispatch table", ErrConfig, cfg.Name)
	}

	c := &Controller{
		cfg: cfg,
		regs: regs{
			io:     opts.Registers,
			layout: NewLayout(cfg),
			edge:   cfg.EdgeTrigger,
		},
		table:   opts.Table,
		parent:  opts.Parent,
		locker:  opts.Locker,
		logger:  opts.Logger,
		fatal:   opts.Fatal,
		observe: opts.Observer,
	}
	if c.locker == nil {
		c.locker = mutexLocker{}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	c.logger = c.logger.With("plic", cfg.Name)
	if c.fatal == nil {
		c.fatal = func(err error) { panic(err) }
	}
	return c, nil
}

// Config returns the validated configuration.
func (c *Controller) Config() Config { return c.cfg }

// Name returns the instance name.
func (c *Controller) Name() string { return c.cfg.Name }

// Layout returns the register addresses in use.
func (c *Controller) Layout() Layout { return c.regs.layout }

// Init disables every source, zeroes every priority and the threshold, then
// connects ISR to the parent line and enables it. Only the first call has
// any effect; later calls return the first call's result.
func (c *Controller) Init() error {
	c.initOnce.Do(func() {
		c.initErr = c.init()
	})
	return c.initErr
}

func (c *Controller) init() error {
	for i := uint32(0); i < c.regs.layout.EnableWords; i++ {
		c.regs.clearEnableWord(i)
	}
	// Source 0 is reserved and its priority slot is never written.
	for id := uint32(1); id < c.cfg.NumSources; id++ {
		c.regs.writePriority(id, 0)
	}
	c.regs.setThreshold(0)

	if c.parent != nil {
		if err := c.parent.Connect(c.cfg.ParentIRQ, c.ISR, nil); err != nil {
			return fmt.Errorf("plic %s: connect parent line %d: %w", c.cfg.Name, c.cfg.ParentIRQ, err)
		}
		if err := c.parent.Enable(c.cfg.ParentIRQ); err != nil {
			return fmt.Errorf("plic %s: enable parent line %d: %w", c.cfg.Name, c.cfg.ParentIRQ, err)
		}
	}

	c.logger.Info("plic initialized",
		"base", fmt.Sprintf("0x%x", c.cfg.BaseAddress),
		"sources", c.cfg.NumSources,
		"max_priority", c.cfg.MaxPriority,
		"parent_irq", c.cfg.ParentIRQ)
	return nil
}

func (c *Controller) checkSource(id uint32) error {
	if id == 0 || id >= c.cfg.NumSources {
		return fmt.Errorf("plic %s: source %d: %w", c.cfg.Name, id, ErrInvalidSource)
	}
	return nil
}

// Enable unmasks source id.
func (c *Controller) Enable(id uint32) error {
	return c.setEnabled(id, true)
}

// Disable masks source id.
func (c *Controller) Disable(id uint32) error {
	return c.setEnabled(id, false)
}

func (c *Controller) setEnabled(id uint32, on bool) error {
	if err := c.checkSource(id); err != nil {
		return err
	}
	key := c.locker.Lock()
	c.regs.setEnabled(id, on)
	c.locker.Unlock(key)
	return nil
}

// IsEnabled reports whether source id is unmasked. Invalid ids report false.
func (c *Controller) IsEnabled(id uint32) bool {
	if c.checkSource(id) != nil {
		return false
	}
	return c.regs.isEnabled(id)
}

// IsEdgeTriggered reports whether source id latches edges. Invalid ids and
// platforms without a trigger-type bank report level.
func (c *Controller) IsEdgeTriggered(id uint32) bool {
	if c.checkSource(id) != nil {
		return false
	}
	return c.regs.isEdgeTriggered(id)
}

// SetPriority sets the priority of source id, clamped to MaxPriority.
func (c *Controller) SetPriority(id, priority uint32) error {
	if err := c.checkSource(id); err != nil {
		return err
	}
	c.regs.writePriority(id, min(priority, c.cfg.MaxPriority))
	return nil
}

// Priority reads back the priority of source id.
func (c *Controller) Priority(id uint32) (uint32, error) {
	if err := c.checkSource(id); err != nil {
		return 0, err
	}
	return c.regs.readPriority(id), nil
}

// SetThreshold sets the acceptance threshold, clamped to MaxPriority. Only
// sources with a priority strictly above it are claimable.
func (c *Controller) SetThreshold(threshold uint32) {
	c.regs.setThreshold(min(threshold, c.cfg.MaxPriority))
}

// Threshold reads back the acceptance threshold.
func (c *Controller) Threshold() uint32 {
	return c.regs.threshold()
}

// CurrentClaimedID returns the id read by the most recent claim. It is only
// meaningful inside the transaction that made the claim.
func (c *Controller) CurrentClaimedID() uint32 {
	return c.lastClaimed.Load()
}
