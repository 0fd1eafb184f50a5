package plic

// Registers is ordered 32-bit access to physical addresses. Each call is one
// bus access with side effects; implementations must not cache, merge or
// reorder them. mmio.Bus, mmio.Region and mmio.Mapping implement it.
type Registers interface {
	Load32(addr uint64) uint32
	Store32(addr uint64, v uint32)
}

// regs is the typed view of one controller's banks. It applies no policy.
type regs struct {
	io     Registers
	layout Layout
	edge   bool
}

func (r regs) readPriority(id uint32) uint32 {
	return r.io.Load32(r.layout.PriorityAddr(id))
}

func (r regs) writePriority(id, v uint32) {
	r.io.Store32(r.layout.PriorityAddr(id), v)
}

// setEnabled is a read-modify-write of a shared word; the caller must hold
// the guard.
func (r regs) setEnabled(id uint32, on bool) {
	addr := r.layout.EnableAddr(id)
	w := r.io.Load32(addr)
	if on {
		w |= bit(id)
	} else {
		w &^= bit(id)
	}
	r.io.Store32(addr, w)
}

func (r regs) isEnabled(id uint32) bool {
	return r.io.Load32(r.layout.EnableAddr(id))&bit(id) != 0
}

func (r regs) clearEnableWord(i uint32) {
	r.io.Store32(r.layout.Enable+4*uint64(i), 0)
}

// isEdgeTriggered reports level (false) when the platform has no trigger bank.
func (r regs) isEdgeTriggered(id uint32) bool {
	if !r.edge {
		return false
	}
	return r.io.Load32(r.layout.TriggerAddr(id))&bit(id) != 0
}

// readClaim is destructive: it removes the returned source from the pending set.
func (r regs) readClaim() uint32 {
	return r.io.Load32(r.layout.Claim)
}

func (r regs) writeComplete(id uint32) {
	r.io.Store32(r.layout.Claim, id)
}

func (r regs) setThreshold(v uint32) {
	r.io.Store32(r.layout.Threshold, v)
}

func (r regs) threshold() uint32 {
	return r.io.Load32(r.layout.Threshold)
}
