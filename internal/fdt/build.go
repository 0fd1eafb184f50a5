package fdt

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"
)

const (
	fdtHeaderSize  = 0x28
	fdtVersion     = 17
	fdtLastCompVer = 16
	fdtMagic       = 0xd00dfeed

	fdtBeginNodeToken = 0x1
	fdtEndNodeToken   = 0x2
	fdtPropToken      = 0x3
	fdtEndToken       = 0x9
)

// Build serializes the provided node tree into an FDT blob. Properties are
// emitted in name order so equal trees produce identical blobs.
func Build(root Node) ([]byte, error) {
	e := &encoder{stringsOff: make(map[string]uint32)}
	if err := e.node(root); err != nil {
		return nil, err
	}
	e.u32(fdtEndToken)
	return e.blob(), nil
}

type encoder struct {
	structs    bytes.Buffer
	strings    bytes.Buffer
	stringsOff map[string]uint32
}

func (e *encoder) node(n Node) error {
	e.u32(fdtBeginNodeToken)
	e.structs.WriteString(n.Name)
	e.structs.WriteByte(0)
	e.pad()

	names := make([]string, 0, len(n.Properties))
	for name := range n.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		data, err := encodeProperty(name, n.Properties[name])
		if err != nil {
			return err
		}
		e.u32(fdtPropToken)
		e.u32(uint32(len(data)))
		e.u32(e.stringOffset(name))
		e.structs.Write(data)
		e.pad()
	}

	for _, child := range n.Children {
		if err := e.node(child); err != nil {
			return err
		}
	}
	e.u32(fdtEndNodeToken)
	return nil
}

func encodeProperty(name string, prop Property) ([]byte, error) {
	switch kinds := prop.kinds(); len(kinds) {
	case 0:
		return nil, fmt.Errorf("fdt property %q has no values", name)
	case 1:
	default:
		return nil, fmt.Errorf("fdt property %q mixes %v values", name, kinds)
	}
	var buf bytes.Buffer
	switch prop.Kind() {
	case KindStrings:
		for _, v := range prop.Strings {
			buf.WriteString(v)
			buf.WriteByte(0)
		}
	case KindU32:
		for _, v := range prop.U32 {
			buf.Write(binary.BigEndian.AppendUint32(nil, v))
		}
	case KindU64:
		for _, v := range prop.U64 {
			buf.Write(binary.BigEndian.AppendUint64(nil, v))
		}
	case KindBytes:
		buf.Write(prop.Bytes)
	}
	return buf.Bytes(), nil
}

func (e *encoder) blob() []byte {
	const memReserveSize = 16

	offStruct := fdtHeaderSize + memReserveSize
	offStrings := offStruct + e.structs.Len()
	total := offStrings + e.strings.Len()

	blob := make([]byte, total)
	for i, v := range []uint32{
		fdtMagic,
		uint32(total),
		uint32(offStruct),
		uint32(offStrings),
		fdtHeaderSize, // memory reservation map, empty
		fdtVersion,
		fdtLastCompVer,
		0, // boot_cpuid_phys
		uint32(e.strings.Len()),
		uint32(e.structs.Len()),
	} {
		binary.BigEndian.PutUint32(blob[4*i:], v)
	}
	copy(blob[offStruct:], e.structs.Bytes())
	copy(blob[offStrings:], e.strings.Bytes())
	return blob
}

func (e *encoder) stringOffset(name string) uint32 {
	if off, ok := e.stringsOff[name]; ok {
		return off
	}
	off := uint32(e.strings.Len())
	e.strings.WriteString(name)
	e.strings.WriteByte(0)
	e.stringsOff[name] = off
	return off
}

func (e *encoder) u32(v uint32) {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	e.structs.Write(tmp[:])
}

func (e *encoder) pad() {
	for e.structs.Len()%4 != 0 {
		e.structs.WriteByte(0)
	}
}
