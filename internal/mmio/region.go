package mmio

import (
	"encoding/binary"
	"fmt"
	"sync/atomic"

	"github.com/tinyrange/plic/internal/chipset"
)

// Region is a plain word-addressed memory window at Base. It has no device
// side effects; it is useful as scratch register space and as a bus target.
type Region struct {
	Base  uint64
	words []uint32
}

// NewRegion creates a zeroed region of size bytes (rounded up to a word).
func NewRegion(base, size uint64) *Region {
	return &Region{
		Base:  base,
		words: make([]uint32, (size+3)/4),
	}
}

// Size returns the size of the region in bytes
func (r *Region) Size() uint64 {
	return uint64(len(r.words)) * 4
}

func (r *Region) index(addr uint64) (int, error) {
	if addr < r.Base || addr+4 > r.Base+r.Size() {
		return 0, fmt.Errorf("mmio: address 0x%x outside region 0x%x+0x%x", addr, r.Base, r.Size())
	}
	if addr%4 != 0 {
		return 0, fmt.Errorf("mmio: unaligned access at 0x%x", addr)
	}
	return int((addr - r.Base) / 4), nil
}

// Load32 atomically loads the word at addr. Out-of-range loads panic, as a
// wild pointer dereference would.
func (r *Region) Load32(addr uint64) uint32 {
	i, err := r.index(addr)
	if err != nil {
		panic(err)
	}
	return atomic.LoadUint32(&r.words[i])
}

// Store32 atomically stores v at addr.
func (r *Region) Store32(addr uint64, v uint32) {
	i, err := r.index(addr)
	if err != nil {
		panic(err)
	}
	atomic.StoreUint32(&r.words[i], v)
}

// ReadMMIO implements chipset.MmioHandler.
func (r *Region) ReadMMIO(addr uint64, data []byte) error {
	if len(data) != 4 {
		return fmt.Errorf("mmio: invalid read size: %d", len(data))
	}
	i, err := r.index(addr)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(data, atomic.LoadUint32(&r.words[i]))
	return nil
}

// WriteMMIO implements chipset.MmioHandler.
func (r *Region) WriteMMIO(addr uint64, data []byte) error {
	if len(data) != 4 {
		return fmt.Errorf("mmio: invalid write size: %d", len(data))
	}
	i, err := r.index(addr)
	if err != nil {
		return err
	}
	atomic.StoreUint32(&r.words[i], binary.LittleEndian.Uint32(data))
	return nil
}

var _ chipset.MmioHandler = (*Region)(nil)
