package plic

import (
	"fmt"
)

// EventKind names a step of the claim/complete transaction.
type EventKind int

const (
	EventClaim EventKind = iota
	EventComplete
	EventDispatch
	EventReturn
	EventSpurious
	EventUnregistered
)

func (k EventKind) String() string {
	switch k {
	case EventClaim:
		return "claim"
	case EventComplete:
		return "complete"
	case EventDispatch:
		return "dispatch"
	case EventReturn:
		return "return"
	case EventSpurious:
		return "spurious"
	case EventUnregistered:
		return "unregistered"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is one observed step of a transaction.
type Event struct {
	Controller string
	Kind       EventKind
	Source     uint32
	Edge       bool
}

// Observer receives events synchronously from the transaction path. It must
// not call back into the controller.
type Observer func(Event)

func (c *Controller) emit(kind EventKind, id uint32, edge bool) {
	if c.observe != nil {
		c.observe(Event{Controller: c.cfg.Name, Kind: kind, Source: id, Edge: edge})
	}
}

// HandleIRQ runs one claim/dispatch/complete transaction.
//
// Edge sources are completed before their handler runs so a new edge during
// handling is latched. Level sources are completed after the handler
// returns, once it has had the chance to clear the device-side condition.
//
// A claim of 0 or of an id beyond NumSources returns ErrSpurious without
// completing or dispatching anything. A claimed source with no table entry
// returns ErrUnregistered; a level source is then left uncompleted.
func (c *Controller) HandleIRQ() error {
	id := c.regs.readClaim()
	c.lastClaimed.Store(id)
	c.emit(EventClaim, id, false)

	if id == 0 || id >= c.cfg.NumSources {
		c.emit(EventSpurious, id, false)
		return fmt.Errorf("plic %s: claimed source %d: %w", c.cfg.Name, id, ErrSpurious)
	}

	edge := c.regs.isEdgeTriggered(id)
	if edge {
		c.complete(id, true)
	}

	slot := id + c.cfg.TableOffset
	entry, ok := c.table.Lookup(slot)
	if !ok {
		c.emit(EventUnregistered, id, edge)
		return fmt.Errorf("plic %s: source %d (table slot %d): %w", c.cfg.Name, id, slot, ErrUnregistered)
	}

	c.logger.Debug("dispatch", "source", id, "edge", edge)
	c.emit(EventDispatch, id, edge)
	entry.Handler(entry.Arg)
	c.emit(EventReturn, id, edge)

	if !edge {
		c.complete(id, false)
	}
	return nil
}

func (c *Controller) complete(id uint32, edge bool) {
	c.regs.writeComplete(id)
	c.emit(EventComplete, id, edge)
}

// ISR is the first-level handler for the controller's parent line. It runs
// one transaction and escalates any failure to the Fatal hook; it never
// dispatches after a failed claim.
func (c *Controller) ISR(any) {
	if err := c.HandleIRQ(); err != nil {
		c.logger.Error("interrupt transaction aborted", "source", c.CurrentClaimedID(), "err", err)
		c.fatal(err)
	}
}
