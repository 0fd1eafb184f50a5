package irq

// FirstLevelBits is the width of the first-level (CPU) field of an encoded
// interrupt number.
const FirstLevelBits = 8

const firstLevelMask = 1<<FirstLevelBits - 1

// Level2 encodes local source id of a second-level controller attached to
// CPU line parent. The local id is stored off by one so that level-2 numbers
// are never confused with plain first-level numbers.
func Level2(local, parent uint32) uint32 {
	return (local+1)<<FirstLevelBits | parent&firstLevelMask
}

// Level returns 1 for a plain CPU line number and 2 for a Level2 encoding.
func Level(n uint32) int {
	if n>>FirstLevelBits == 0 {
		return 1
	}
	return 2
}

// FromLevel2 splits a Level2 number into its local id and parent line.
// ok is false when n is a first-level number.
func FromLevel2(n uint32) (local, parent uint32, ok bool) {
	if Level(n) != 2 {
		return 0, n, false
	}
	return n>>FirstLevelBits - 1, n & firstLevelMask, true
}
