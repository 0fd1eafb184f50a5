// Package fdt builds and parses Flattened Device Trees.
package fdt

import (
	"encoding/binary"
	"strings"
)

// Kind identifies which value field of a Property is in use.
type Kind int

const (
	KindNone Kind = iota
	KindStrings
	KindU32
	KindU64
	KindBytes
	KindFlag
)

var kindNames = [...]string{"none", "strings", "u32", "u64", "bytes", "flag"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Property is one device-tree property. Built properties set exactly one
// value field; parsed ones carry Bytes, or Flag when empty.
type Property struct {
	Strings []string
	U32     []uint32
	U64     []uint64
	Bytes   []byte
	Flag    bool
}

// Cells is shorthand for a u32 array property.
func Cells(v ...uint32) Property { return Property{U32: v} }

// String is shorthand for a string list property.
func String(v ...string) Property { return Property{Strings: v} }

// Flag is shorthand for an empty property.
func Flag() Property { return Property{Flag: true} }

func (p Property) kinds() []Kind {
	var out []Kind
	if len(p.Strings) > 0 {
		out = append(out, KindStrings)
	}
	if len(p.U32) > 0 {
		out = append(out, KindU32)
	}
	if len(p.U64) > 0 {
		out = append(out, KindU64)
	}
	if len(p.Bytes) > 0 {
		out = append(out, KindBytes)
	}
	if p.Flag {
		out = append(out, KindFlag)
	}
	return out
}

// Kind returns the populated value field, or KindNone.
func (p Property) Kind() Kind {
	if k := p.kinds(); len(k) > 0 {
		return k[0]
	}
	return KindNone
}

// Node is a device-tree node. The root node has an empty name.
type Node struct {
	Name       string
	Properties map[string]Property
	Children   []Node
}

// Has reports whether the node carries property name.
func (n Node) Has(name string) bool {
	_, ok := n.Properties[name]
	return ok
}

// U32s returns property name decoded as big-endian cells.
func (n Node) U32s(name string) ([]uint32, bool) {
	prop, ok := n.Properties[name]
	if !ok {
		return nil, false
	}
	if len(prop.U32) > 0 {
		return prop.U32, true
	}
	if len(prop.U64) > 0 {
		out := make([]uint32, 0, 2*len(prop.U64))
		for _, v := range prop.U64 {
			out = append(out, uint32(v>>32), uint32(v))
		}
		return out, true
	}
	if len(prop.Bytes)%4 != 0 {
		return nil, false
	}
	out := make([]uint32, len(prop.Bytes)/4)
	for i := range out {
		out[i] = binary.BigEndian.Uint32(prop.Bytes[4*i:])
	}
	return out, true
}

// U32 returns the first cell of property name.
func (n Node) U32(name string) (uint32, bool) {
	cells, ok := n.U32s(name)
	if !ok || len(cells) == 0 {
		return 0, false
	}
	return cells[0], true
}

// Strings returns property name decoded as a NUL-separated string list.
func (n Node) Strings(name string) ([]string, bool) {
	prop, ok := n.Properties[name]
	if !ok {
		return nil, false
	}
	if len(prop.Strings) > 0 {
		return prop.Strings, true
	}
	if len(prop.Bytes) == 0 || prop.Bytes[len(prop.Bytes)-1] != 0 {
		return nil, false
	}
	return strings.Split(string(prop.Bytes[:len(prop.Bytes)-1]), "\x00"), true
}

// Walk calls fn for n and every descendant, depth first. path is the
// slash-separated node path.
func (n Node) Walk(fn func(path string, node Node)) {
	n.walk("", fn)
}

func (n Node) walk(parent string, fn func(string, Node)) {
	path := parent + "/" + n.Name
	if parent == "" && n.Name == "" {
		path = "/"
	} else if parent == "/" {
		path = "/" + n.Name
	}
	fn(path, n)
	for _, child := range n.Children {
		child.walk(path, fn)
	}
}
