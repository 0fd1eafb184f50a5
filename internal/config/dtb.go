package config

import (
	"fmt"
	"slices"

	"github.com/tinyrange/plic/internal/fdt"
	"github.com/tinyrange/plic/internal/plic"
)

// Compatible strings recognised as PLIC-class controllers. Vendors listed in
// edgeCapable implement the trigger-type bank.
var (
	compatibles = []string{
		"sifive,plic-1.0.0",
		"riscv,plic0",
		"andestech,nceplic100",
		"thead,c900-plic",
	}
	edgeCapable = []string{
		"andestech,nceplic100",
		"thead,c900-plic",
	}
)

// FromDTB extracts one controller config per enabled PLIC node of blob.
// riscv,ndev counts sources excluding 0, so NumSources is ndev+1. The parent
// line is the irq cell of the first interrupts-extended pair.
func FromDTB(blob []byte) ([]plic.Config, error) {
	root, err := fdt.Parse(blob)
	if err != nil {
		return nil, err
	}

	var (
		cfgs []plic.Config
		errs []error
		next uint32
	)
	walkCells(root, 2, 1, func(path string, n fdt.Node, addrCells, sizeCells uint32) {
		compat, ok := n.Strings("compatible")
		if !ok || !slices.ContainsFunc(compat, func(c string) bool { return slices.Contains(compatibles, c) }) {
			return
		}
		if status, ok := n.Strings("status"); ok && len(status) > 0 && status[0] != "okay" && status[0] != "ok" {
			return
		}
		cfg, err := nodeConfig(path, n, addrCells, sizeCells)
		if err != nil {
			errs = append(errs, err)
			return
		}
		cfg.EdgeTrigger = slices.ContainsFunc(compat, func(c string) bool { return slices.Contains(edgeCapable, c) })
		cfg.TableOffset = next
		next += cfg.NumSources
		cfgs = append(cfgs, cfg)
	})
	if len(errs) > 0 {
		return nil, errs[0]
	}
	if len(cfgs) == 0 {
		return nil, fmt.Errorf("%w: no PLIC node in device tree", plic.ErrConfig)
	}
	return cfgs, nil
}

func nodeConfig(path string, n fdt.Node, addrCells, sizeCells uint32) (plic.Config, error) {
	reg, ok := n.U32s("reg")
	if !ok || uint32(len(reg)) < addrCells+sizeCells || addrCells == 0 || addrCells > 2 {
		return plic.Config{}, fmt.Errorf("%w: %s: missing or malformed reg", plic.ErrConfig, path)
	}
	var base uint64
	for _, cell := range reg[:addrCells] {
		base = base<<32 | uint64(cell)
	}

	ndev, ok := n.U32("riscv,ndev")
	if !ok {
		return plic.Config{}, fmt.Errorf("%w: %s: missing riscv,ndev", plic.ErrConfig, path)
	}
	maxPrio, ok := n.U32("riscv,max-priority")
	if !ok {
		maxPrio = DefaultMaxPriority
	}

	var parent uint32
	if ext, ok := n.U32s("interrupts-extended"); ok && len(ext) >= 2 {
		parent = ext[1]
	} else if irqs, ok := n.U32("interrupts"); ok {
		parent = irqs
	} else {
		return plic.Config{}, fmt.Errorf("%w: %s: no parent interrupt", plic.ErrConfig, path)
	}

	cfg := plic.Config{
		Name:        n.Name,
		BaseAddress: base,
		NumSources:  ndev + 1,
		MaxPriority: maxPrio,
		ParentIRQ:   parent,
	}
	if err := cfg.Validate(); err != nil {
		return plic.Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// walkCells walks the tree tracking the #address-cells/#size-cells that
// apply to each node's reg property (those of its parent).
func walkCells(n fdt.Node, addrCells, sizeCells uint32, fn func(string, fdt.Node, uint32, uint32)) {
	var walk func(path string, n fdt.Node, ac, sc uint32)
	walk = func(path string, n fdt.Node, ac, sc uint32) {
		fn(path, n, ac, sc)
		childAC, childSC := ac, sc
		if v, ok := n.U32("#address-cells"); ok {
			childAC = v
		}
		if v, ok := n.U32("#size-cells"); ok {
			childSC = v
		}
		for _, child := range n.Children {
			childPath := path + "/" + child.Name
			if path == "/" {
				childPath = "/" + child.Name
			}
			walk(childPath, child, childAC, childSC)
		}
	}
	walk("/", n, addrCells, sizeCells)
}

// ToDTB renders cfgs as a minimal device tree with the controllers under
// /soc, using two address and two size cells. The CPU interrupt controller
// is given phandle 1.
func ToDTB(cfgs []plic.Config) ([]byte, error) {
	soc := fdt.Node{
		Name: "soc",
		Properties: map[string]fdt.Property{
			"#address-cells": fdt.Cells(2),
			"#size-cells":    fdt.Cells(2),
			"compatible":     fdt.String("simple-bus"),
			"ranges":         fdt.Flag(),
		},
	}
	for i, cfg := range cfgs {
		compat := "sifive,plic-1.0.0"
		if cfg.EdgeTrigger {
			compat = "andestech,nceplic100"
		}
		name := cfg.Name
		if name == "" {
			name = fmt.Sprintf("plic@%x", cfg.BaseAddress)
		}
		soc.Children = append(soc.Children, fdt.Node{
			Name: name,
			Properties: map[string]fdt.Property{
				"compatible":           fdt.String(compat),
				"#interrupt-cells":     fdt.Cells(1),
				"interrupt-controller": fdt.Flag(),
				"reg": fdt.Cells(
					uint32(cfg.BaseAddress>>32), uint32(cfg.BaseAddress),
					0, uint32(plic.ContextOffset+0x200000),
				),
				"interrupts-extended": fdt.Cells(1, cfg.ParentIRQ),
				"riscv,ndev":          fdt.Cells(cfg.NumSources - 1),
				"riscv,max-priority":  fdt.Cells(cfg.MaxPriority),
				"phandle":             fdt.Cells(uint32(i + 2)),
			},
		})
	}

	root := fdt.Node{
		Name: "",
		Properties: map[string]fdt.Property{
			"#address-cells": fdt.Cells(2),
			"#size-cells":    fdt.Cells(2),
			"compatible":     fdt.String("tinyrange,plic-sim"),
		},
		Children: []fdt.Node{soc},
	}
	return fdt.Build(root)
}
