package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinyrange/plic/internal/fdt"
	"github.com/tinyrange/plic/internal/plic"
)

func TestDTBRoundTrip(t *testing.T) {
	in := []plic.Config{
		{Name: "plic@c000000", BaseAddress: 0x0c000000, NumSources: 54, MaxPriority: 7, ParentIRQ: 11},
		{Name: "plic@1c000000", BaseAddress: 0x1_1c000000, NumSources: 1024, MaxPriority: 3, ParentIRQ: 9, EdgeTrigger: true},
	}
	blob, err := ToDTB(in)
	require.NoError(t, err)

	out, err := FromDTB(blob)
	require.NoError(t, err)
	require.Len(t, out, 2)

	in[1].TableOffset = 54
	assert.Equal(t, in, out)
}

func TestFromDTBSingleCellParent(t *testing.T) {
	root := fdt.Node{
		Properties: map[string]fdt.Property{
			"#address-cells": fdt.Cells(1),
			"#size-cells":    fdt.Cells(1),
		},
		Children: []fdt.Node{
			{
				Name: "interrupt-controller@c000000",
				Properties: map[string]fdt.Property{
					"compatible": fdt.String("vendor,soc-plic", "riscv,plic0"),
					"reg":        fdt.Cells(0x0c000000, 0x4000000),
					"riscv,ndev": fdt.Cells(31),
					"interrupts": fdt.Cells(11),
				},
			},
			{
				Name: "interrupt-controller@d000000",
				Properties: map[string]fdt.Property{
					"compatible": fdt.String("riscv,plic0"),
					"reg":        fdt.Cells(0x0d000000, 0x4000000),
					"riscv,ndev": fdt.Cells(8),
					"interrupts": fdt.Cells(12),
					"status":     fdt.String("disabled"),
				},
			},
			{
				Name: "serial@10000000",
				Properties: map[string]fdt.Property{
					"compatible": fdt.String("ns16550a"),
					"reg":        fdt.Cells(0x10000000, 0x100),
				},
			},
		},
	}
	blob, err := fdt.Build(root)
	require.NoError(t, err)

	cfgs, err := FromDTB(blob)
	require.NoError(t, err)
	require.Len(t, cfgs, 1, "disabled node and non-PLIC devices are skipped")

	cfg := cfgs[0]
	assert.Equal(t, uint64(0x0c000000), cfg.BaseAddress)
	assert.Equal(t, uint32(32), cfg.NumSources, "riscv,ndev excludes source 0")
	assert.Equal(t, uint32(DefaultMaxPriority), cfg.MaxPriority)
	assert.Equal(t, uint32(11), cfg.ParentIRQ)
	assert.False(t, cfg.EdgeTrigger)
}

func TestFromDTBErrors(t *testing.T) {
	noPLIC, err := fdt.Build(fdt.Node{Properties: map[string]fdt.Property{"model": fdt.String("empty")}})
	require.NoError(t, err)
	_, err = FromDTB(noPLIC)
	assert.ErrorIs(t, err, plic.ErrConfig)

	noNdev, err := fdt.Build(fdt.Node{Children: []fdt.Node{{
		Name: "plic",
		Properties: map[string]fdt.Property{
			"compatible": fdt.String("sifive,plic-1.0.0"),
			"reg":        fdt.Cells(0, 0x0c000000, 0x4000000),
			"interrupts": fdt.Cells(11),
		},
	}}})
	require.NoError(t, err)
	_, err = FromDTB(noNdev)
	assert.ErrorIs(t, err, plic.ErrConfig)

	_, err = FromDTB([]byte("not a device tree"))
	assert.Error(t, err)
}
