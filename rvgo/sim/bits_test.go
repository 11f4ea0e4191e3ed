package sim

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBits(t *testing.T) {
	testCases := []struct {
		name   string
		v      uint32
		lo, hi uint
		want   uint32
	}{
		{"middle", 0b10110, 1, 3, 0b011},
		{"single bit", 0x80000000, 31, 31, 1},
		{"full word", 0xDEADBEEF, 0, 31, 0xDEADBEEF},
		{"opcode", 0x00A00513, 0, 6, 0x13},
		{"rd", 0x00A00513, 7, 11, 10},
		{"upper", 0xFFFFF000, 12, 31, 0xFFFFF},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Bits(tc.v, tc.lo, tc.hi))
		})
	}
}

func TestBitsPanicsOnBadRange(t *testing.T) {
	require.Panics(t, func() { Bits(0xFF, 3, 1) })
	require.Panics(t, func() { Bits(0xFF, 0, 32) })
}

func TestSignExtend(t *testing.T) {
	testCases := []struct {
		name  string
		v     uint32
		width uint
		want  int32
	}{
		{"all ones 12", 0xFFF, 12, -1},
		{"max positive 12", 0x7FF, 12, 2047},
		{"min negative 12", 0x800, 12, -2048},
		{"ignores high bits", 0xFFFFF7FF, 12, 2047},
		{"width 13", 0x1000, 13, -4096},
		{"width 20", 0x80000, 20, -524288},
		{"width 32", 0xFFFFFFFF, 32, -1},
		{"width 1", 1, 1, -1},
		{"zero", 0, 12, 0},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, SignExtend(tc.v, tc.width))
		})
	}
}

func TestSignExtendPanicsOnBadWidth(t *testing.T) {
	require.Panics(t, func() { SignExtend(1, 0) })
	require.Panics(t, func() { SignExtend(1, 33) })
}

func TestMask(t *testing.T) {
	require.Equal(t, uint32(0x0000000E), Mask(1, 3))
	require.Equal(t, uint32(0xFFFFFFFF), Mask(0, 31))
	require.Equal(t, uint32(0x80000000), Mask(31, 31))
	require.Equal(t, uint32(0x00000FFF), Mask(0, 11))
	require.Panics(t, func() { Mask(4, 2) })
}
