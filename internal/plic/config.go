package plic

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrConfig reports a controller configuration that cannot be used.
	ErrConfig = errors.New("invalid plic configuration")
	// ErrInvalidSource reports a source id of 0 or beyond the controller's range.
	ErrInvalidSource = errors.New("invalid interrupt source")
	// ErrSpurious reports a claim that returned no usable source.
	ErrSpurious = errors.New("spurious interrupt")
	// ErrUnregistered reports a claimed source with no second-level handler.
	ErrUnregistered = errors.New("no handler registered for interrupt")
)

// Config describes one controller instance. It normally comes from the
// platform's device description (see internal/config).
type Config struct {
	// Name identifies the instance in logs and traces.
	Name string
	// BaseAddress is the physical address of the register file.
	BaseAddress uint64
	// NumSources counts interrupt sources including the reserved source 0.
	// Valid source ids are 1..NumSources-1.
	NumSources uint32
	// MaxPriority is the ceiling priority writes are clamped to.
	MaxPriority uint32
	// ParentIRQ is the CPU line the controller's output is wired to.
	ParentIRQ uint32
	// TableOffset is where this controller's sources start in the
	// second-level dispatch table.
	TableOffset uint32
	// EdgeTrigger is set when the platform implements the trigger-type bank.
	// Without it every source is treated as level-triggered.
	EdgeTrigger bool
}

// Validate checks the configuration and fills in defaults.
func (c *Config) Validate() error {
	if c.NumSources == 0 {
		return fmt.Errorf("%w: num-sources is zero", ErrConfig)
	}
	if c.NumSources > MaxSources {
		return fmt.Errorf("%w: num-sources %d exceeds %d", ErrConfig, c.NumSources, MaxSources)
	}
	if c.BaseAddress%4 != 0 {
		return fmt.Errorf("%w: base address 0x%x is not word aligned", ErrConfig, c.BaseAddress)
	}
	if c.BaseAddress+ContextOffset+8 < c.BaseAddress {
		return fmt.Errorf("%w: register file at 0x%x overflows the address space", ErrConfig, c.BaseAddress)
	}
	if uint64(c.TableOffset)+uint64(c.NumSources) > math.MaxUint32 {
		return fmt.Errorf("%w: table offset %d with %d sources overflows the dispatch table", ErrConfig, c.TableOffset, c.NumSources)
	}
	if c.Name == "" {
		c.Name = fmt.Sprintf("plic@%x", c.BaseAddress)
	}
	return nil
}

// Sources returns the number of usable source ids.
func (c Config) Sources() uint32 {
	if c.NumSources == 0 {
		return 0
	}
	return c.NumSources - 1
}
