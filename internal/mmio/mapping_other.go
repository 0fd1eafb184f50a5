//go:build !unix

package mmio

import (
	"errors"
	"fmt"
)

// Mapping is unavailable on this platform.
type Mapping struct {
	Base uint64
}

// MapFile always fails on this platform.
func MapFile(path string, base uint64, off int64, size int) (*Mapping, error) {
	return nil, fmt.Errorf("mmio: map %s: %w", path, errors.ErrUnsupported)
}

func (m *Mapping) Load32(addr uint64) uint32 { panic("mmio: mappings are unsupported") }

func (m *Mapping) Store32(addr uint64, v uint32) { panic("mmio: mappings are unsupported") }

func (m *Mapping) Sync() error { return errors.ErrUnsupported }

func (m *Mapping) Close() error { return nil }
