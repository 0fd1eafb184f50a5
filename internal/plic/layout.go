package plic

// Register file offsets from the controller base. Trigger type is not part
// of the RISC-V PLIC specification but is implemented by several vendors at
// this offset.
const (
	PriorityOffset = 0x000000
	PendingOffset  = 0x001000
	TriggerOffset  = 0x001080
	EnableOffset   = 0x002000
	ContextOffset  = 0x200000

	ThresholdRegister = 0x0
	ClaimRegister     = 0x4

	// RegisterSpan covers every bank up to the end of context 0's page.
	RegisterSpan = ContextOffset + 0x1000

	// MaxSources is the architectural source limit.
	MaxSources = 1024
)

const wordShift = 5

// Layout holds the absolute addresses of one controller's register banks.
type Layout struct {
	Priority  uint64
	Trigger   uint64
	Enable    uint64
	Threshold uint64
	Claim     uint64

	// EnableWords is the number of 32-bit words in the enable bank. It
	// never reaches past the bank into the next context.
	EnableWords uint32
}

// NewLayout derives the bank addresses for cfg.
func NewLayout(cfg Config) Layout {
	base := cfg.BaseAddress
	return Layout{
		Priority:    base + PriorityOffset,
		Trigger:     base + TriggerOffset,
		Enable:      base + EnableOffset,
		Threshold:   base + ContextOffset + ThresholdRegister,
		Claim:       base + ContextOffset + ClaimRegister,
		EnableWords: (cfg.NumSources + 31) >> wordShift,
	}
}

// PriorityAddr is the address of the priority word of source id.
func (l Layout) PriorityAddr(id uint32) uint64 {
	return l.Priority + 4*uint64(id)
}

// EnableAddr is the address of the enable word holding source id's bit.
func (l Layout) EnableAddr(id uint32) uint64 {
	return l.Enable + 4*uint64(id>>wordShift)
}

// TriggerAddr is the address of the trigger-type word holding source id's bit.
func (l Layout) TriggerAddr(id uint32) uint64 {
	return l.Trigger + 4*uint64(id>>wordShift)
}

func bit(id uint32) uint32 {
	return 1 << (id & 31)
}
