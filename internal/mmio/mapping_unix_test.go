//go:build unix

package mmio

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMappingOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "regs")
	if err := os.WriteFile(path, make([]byte, 4096), 0o600); err != nil {
		t.Fatal(err)
	}

	m, err := MapFile(path, 0x0c00_0000, 0, 4096)
	if err != nil {
		t.Fatalf("MapFile: %v", err)
	}
	m.Store32(0x0c00_0010, 0xcafef00d)
	if got := m.Load32(0x0c00_0010); got != 0xcafef00d {
		t.Fatalf("Load32 = 0x%x", got)
	}
	if err := m.Sync(); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if data[0x10] != 0x0d || data[0x13] != 0xca {
		t.Fatalf("store did not reach the file: % x", data[0x10:0x14])
	}

	if _, err := MapFile(path, 0, 0, 6); err == nil {
		t.Fatalf("odd-sized mapping accepted")
	}
}
