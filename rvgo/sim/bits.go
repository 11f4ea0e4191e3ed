package sim

import "fmt"

// Bits returns bits [lo, hi] (inclusive) of v, shifted down to start at bit 0.
// It panics when the range is malformed: that is a programming error, not a machine fault.
func Bits(v uint32, lo, hi uint) uint32 {
	if lo > hi || hi > 31 {
		panic(fmt.Errorf("invalid bit range [%d, %d]", lo, hi))
	}
	return (v >> lo) & (^uint32(0) >> (31 - (hi - lo)))
}

// Mask returns the 32-bit pattern with bits [lo, hi] set and all others clear.
func Mask(lo, hi uint) uint32 {
	return Bits(^uint32(0), 0, hi-lo) << lo
}

// SignExtend interprets the low width bits of v as a two's-complement number.
func SignExtend(v uint32, width uint) int32 {
	if width == 0 || width > 32 {
		panic(fmt.Errorf("invalid sign-extension width %d", width))
	}
	shift := 32 - width
	return int32(v<<shift) >> shift
}
