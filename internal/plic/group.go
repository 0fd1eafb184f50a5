package plic

import (
	"fmt"
	"sort"

	"github.com/tinyrange/plic/internal/irq"
)

// Group is the set of controller instances on a platform, one per
// configuration entry. Interrupt numbers passed to its methods are
// multi-level encodings (irq.Level2) naming the parent line and the local
// source.
type Group struct {
	controllers []*Controller
	byName      map[string]*Controller
	byParent    map[uint32]*Controller
}

// NewGroup builds one controller per config. optsFor supplies the
// collaborators for each instance.
func NewGroup(cfgs []Config, optsFor func(Config) Options) (*Group, error) {
	g := &Group{
		byName:   make(map[string]*Controller),
		byParent: make(map[uint32]*Controller),
	}
	for _, cfg := range cfgs {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		if _, dup := g.byName[cfg.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate controller name %q", ErrConfig, cfg.Name)
		}
		if other, dup := g.byParent[cfg.ParentIRQ]; dup {
			return nil, fmt.Errorf("%w: %s and %s share parent line %d", ErrConfig, other.Name(), cfg.Name, cfg.ParentIRQ)
		}
		c, err := New(cfg, optsFor(cfg))
		if err != nil {
			return nil, err
		}
		g.controllers = append(g.controllers, c)
		g.byName[cfg.Name] = c
		g.byParent[cfg.ParentIRQ] = c
	}
	if err := g.checkTableRanges(); err != nil {
		return nil, err
	}
	return g, nil
}

// checkTableRanges rejects instances whose second-level table ranges overlap.
func (g *Group) checkTableRanges() error {
	sorted := append([]*Controller(nil), g.controllers...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].cfg.TableOffset < sorted[j].cfg.TableOffset
	})
	for i := 1; i < len(sorted); i++ {
		prev, cur := sorted[i-1].cfg, sorted[i].cfg
		if prev.TableOffset+prev.NumSources > cur.TableOffset {
			return fmt.Errorf("%w: table ranges of %s and %s overlap", ErrConfig, prev.Name, cur.Name)
		}
	}
	return nil
}

// Controllers returns the instances in configuration order.
func (g *Group) Controllers() []*Controller {
	return append([]*Controller(nil), g.controllers...)
}

// Controller returns the instance called name.
func (g *Group) Controller(name string) (*Controller, bool) {
	c, ok := g.byName[name]
	return c, ok
}

// InitAll initializes every instance, stopping at the first failure.
func (g *Group) InitAll() error {
	for _, c := range g.controllers {
		if err := c.Init(); err != nil {
			return err
		}
	}
	return nil
}

// Resolve maps an encoded interrupt number to its controller and local id.
func (g *Group) Resolve(n uint32) (*Controller, uint32, error) {
	local, parent, ok := irq.FromLevel2(n)
	if !ok {
		return nil, 0, fmt.Errorf("irq 0x%x is not a second-level number: %w", n, ErrInvalidSource)
	}
	c, ok := g.byParent[parent]
	if !ok {
		return nil, 0, fmt.Errorf("irq 0x%x: no controller on parent line %d: %w", n, parent, ErrInvalidSource)
	}
	return c, local, nil
}

// Enable unmasks encoded interrupt n.
func (g *Group) Enable(n uint32) error {
	c, id, err := g.Resolve(n)
	if err != nil {
		return err
	}
	return c.Enable(id)
}

// Disable masks encoded interrupt n.
func (g *Group) Disable(n uint32) error {
	c, id, err := g.Resolve(n)
	if err != nil {
		return err
	}
	return c.Disable(id)
}

// IsEnabled reports whether encoded interrupt n is unmasked.
func (g *Group) IsEnabled(n uint32) bool {
	c, id, err := g.Resolve(n)
	if err != nil {
		return false
	}
	return c.IsEnabled(id)
}

// SetPriority sets the priority of encoded interrupt n.
func (g *Group) SetPriority(n, priority uint32) error {
	c, id, err := g.Resolve(n)
	if err != nil {
		return err
	}
	return c.SetPriority(id, priority)
}
