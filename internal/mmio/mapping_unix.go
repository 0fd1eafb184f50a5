//go:build unix

package mmio

import (
	"fmt"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Mapping is a shared memory mapping of a register window, typically
// /dev/mem on real hardware or a UIO device node. Base is the physical
// address the first mapped byte corresponds to.
type Mapping struct {
	Base uint64
	data []byte
}

// MapFile maps size bytes of path starting at file offset off. The returned
// mapping answers addresses [base, base+size).
func MapFile(path string, base uint64, off int64, size int) (*Mapping, error) {
	if size <= 0 || size%4 != 0 {
		return nil, fmt.Errorf("mmio: map %s: size %d is not a positive word multiple", path, size)
	}
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_SYNC|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("mmio: open %s: %w", path, err)
	}
	defer unix.Close(fd)

	data, err := unix.Mmap(fd, off, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmio: mmap %s: %w", path, err)
	}
	return &Mapping{Base: base, data: data}, nil
}

func (m *Mapping) word(addr uint64) *uint32 {
	if addr < m.Base || addr%4 != 0 || addr-m.Base+4 > uint64(len(m.data)) {
		panic(fmt.Sprintf("mmio: address 0x%x outside mapping 0x%x+0x%x", addr, m.Base, len(m.data)))
	}
	return (*uint32)(unsafe.Pointer(&m.data[addr-m.Base]))
}

// Load32 atomically loads the word at addr.
func (m *Mapping) Load32(addr uint64) uint32 {
	return atomic.LoadUint32(m.word(addr))
}

// Store32 atomically stores v at addr.
func (m *Mapping) Store32(addr uint64, v uint32) {
	atomic.StoreUint32(m.word(addr), v)
}

// Sync flushes the mapping back to its file.
func (m *Mapping) Sync() error {
	return unix.Msync(m.data, unix.MS_SYNC)
}

// Close unmaps the window.
func (m *Mapping) Close() error {
	if m.data == nil {
		return nil
	}
	err := unix.Munmap(m.data)
	m.data = nil
	return err
}
