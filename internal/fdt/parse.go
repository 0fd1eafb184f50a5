package fdt

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

const fdtNopToken = 0x4

// Parse decodes an FDT blob into a node tree. Property values are returned
// as raw Bytes (or Flag for empty properties); use the Node accessors to
// interpret them.
func Parse(blob []byte) (Node, error) {
	if len(blob) < fdtHeaderSize {
		return Node{}, fmt.Errorf("fdt: blob too short (%d bytes)", len(blob))
	}
	if magic := binary.BigEndian.Uint32(blob[0:4]); magic != fdtMagic {
		return Node{}, fmt.Errorf("fdt: bad magic 0x%x", magic)
	}
	totalSize := binary.BigEndian.Uint32(blob[4:8])
	offStruct := binary.BigEndian.Uint32(blob[8:12])
	offStrings := binary.BigEndian.Uint32(blob[12:16])
	version := binary.BigEndian.Uint32(blob[20:24])
	sizeStrings := binary.BigEndian.Uint32(blob[32:36])
	sizeStruct := binary.BigEndian.Uint32(blob[36:40])

	if version < fdtLastCompVer {
		return Node{}, fmt.Errorf("fdt: unsupported version %d", version)
	}
	if uint64(totalSize) > uint64(len(blob)) ||
		uint64(offStruct)+uint64(sizeStruct) > uint64(totalSize) ||
		uint64(offStrings)+uint64(sizeStrings) > uint64(totalSize) {
		return Node{}, fmt.Errorf("fdt: header offsets exceed blob size")
	}

	p := &parser{
		structs: blob[offStruct : offStruct+sizeStruct],
		strings: blob[offStrings : offStrings+sizeStrings],
	}
	p.skipNops()
	if tok, err := p.token(); err != nil {
		return Node{}, err
	} else if tok != fdtBeginNodeToken {
		return Node{}, fmt.Errorf("fdt: expected root node, got token 0x%x", tok)
	}
	root, err := p.node()
	if err != nil {
		return Node{}, err
	}
	p.skipNops()
	if tok, err := p.token(); err != nil {
		return Node{}, err
	} else if tok != fdtEndToken {
		return Node{}, fmt.Errorf("fdt: expected end token, got 0x%x", tok)
	}
	return root, nil
}

type parser struct {
	structs []byte
	strings []byte
	off     int
}

func (p *parser) token() (uint32, error) {
	if p.off+4 > len(p.structs) {
		return 0, fmt.Errorf("fdt: truncated structure block at 0x%x", p.off)
	}
	tok := binary.BigEndian.Uint32(p.structs[p.off:])
	p.off += 4
	return tok, nil
}

func (p *parser) peek() uint32 {
	if p.off+4 > len(p.structs) {
		return 0
	}
	return binary.BigEndian.Uint32(p.structs[p.off:])
}

func (p *parser) skipNops() {
	for p.peek() == fdtNopToken {
		p.off += 4
	}
}

func (p *parser) align() {
	p.off = (p.off + 3) &^ 3
}

func (p *parser) cstring(buf []byte, off int) (string, int, error) {
	if off < 0 || off > len(buf) {
		return "", 0, fmt.Errorf("fdt: string offset 0x%x out of range", off)
	}
	end := bytes.IndexByte(buf[off:], 0)
	if end < 0 {
		return "", 0, fmt.Errorf("fdt: unterminated string at 0x%x", off)
	}
	return string(buf[off : off+end]), off + end + 1, nil
}

// node parses the body of a node whose BEGIN_NODE token was just consumed.
func (p *parser) node() (Node, error) {
	name, next, err := p.cstring(p.structs, p.off)
	if err != nil {
		return Node{}, err
	}
	p.off = next
	p.align()

	n := Node{Name: name}
	for {
		tok, err := p.token()
		if err != nil {
			return Node{}, err
		}
		switch tok {
		case fdtPropToken:
			if p.off+8 > len(p.structs) {
				return Node{}, fmt.Errorf("fdt: truncated property in %q", name)
			}
			length := int(binary.BigEndian.Uint32(p.structs[p.off:]))
			nameOff := int(binary.BigEndian.Uint32(p.structs[p.off+4:]))
			p.off += 8
			if p.off+length > len(p.structs) {
				return Node{}, fmt.Errorf("fdt: property in %q overruns structure block", name)
			}
			propName, _, err := p.cstring(p.strings, nameOff)
			if err != nil {
				return Node{}, err
			}
			var prop Property
			if length == 0 {
				prop.Flag = true
			} else {
				prop.Bytes = append([]byte(nil), p.structs[p.off:p.off+length]...)
			}
			p.off += length
			p.align()
			if n.Properties == nil {
				n.Properties = make(map[string]Property)
			}
			n.Properties[propName] = prop
		case fdtBeginNodeToken:
			child, err := p.node()
			if err != nil {
				return Node{}, err
			}
			n.Children = append(n.Children, child)
		case fdtEndNodeToken:
			return n, nil
		case fdtNopToken:
		default:
			return Node{}, fmt.Errorf("fdt: unexpected token 0x%x in %q", tok, name)
		}
	}
}
