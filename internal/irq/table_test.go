package irq

import "testing"

func TestTableConnectLookup(t *testing.T) {
	tbl := NewTable(8)
	if tbl.Len() != 8 {
		t.Fatalf("Len() = %d", tbl.Len())
	}
	if _, ok := tbl.Lookup(3); ok {
		t.Fatalf("empty slot reported connected")
	}

	var got any
	if err := tbl.Connect(3, func(arg any) { got = arg }, "uart"); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	e, ok := tbl.Lookup(3)
	if !ok {
		t.Fatalf("slot 3 not connected")
	}
	e.Handler(e.Arg)
	if got != "uart" {
		t.Fatalf("handler got %v", got)
	}

	if err := tbl.Connect(3, func(any) {}, nil); err == nil {
		t.Fatalf("double connect succeeded")
	}
	tbl.Disconnect(3)
	if _, ok := tbl.Lookup(3); ok {
		t.Fatalf("slot 3 still connected after Disconnect")
	}
}

func TestTableRejectsBadConnect(t *testing.T) {
	tbl := NewTable(4)
	if err := tbl.Connect(4, func(any) {}, nil); err == nil {
		t.Fatalf("out of range connect succeeded")
	}
	if err := tbl.Connect(1, nil, nil); err == nil {
		t.Fatalf("nil handler accepted")
	}
	if _, ok := tbl.Lookup(100); ok {
		t.Fatalf("out of range lookup succeeded")
	}
}

func TestLevelEncoding(t *testing.T) {
	n := Level2(5, 11)
	if n != 0x60b {
		t.Fatalf("Level2(5, 11) = 0x%x, want 0x60b", n)
	}
	if Level(n) != 2 || Level(11) != 1 {
		t.Fatalf("Level misclassified numbers")
	}
	local, parent, ok := FromLevel2(n)
	if !ok || local != 5 || parent != 11 {
		t.Fatalf("FromLevel2 = %d, %d, %v", local, parent, ok)
	}
	// Local id 0 still encodes as a second-level number.
	if _, _, ok := FromLevel2(Level2(0, 3)); !ok {
		t.Fatalf("local id 0 lost its level")
	}
	if _, _, ok := FromLevel2(200); ok {
		t.Fatalf("first-level number decoded as level 2")
	}
}
