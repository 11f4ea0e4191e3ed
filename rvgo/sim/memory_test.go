package sim

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryLoadStore(t *testing.T) {
	m, err := NewMemory(1 << 16)
	require.NoError(t, err)

	require.NoError(t, m.Store(0x100, 4, 0xDEADBEEF))
	v, err := m.Load(0x100, 4)
	require.NoError(t, err)
	require.Equal(t, uint32(0xDEADBEEF), v)

	// little-endian byte order
	for i, want := range []uint32{0xEF, 0xBE, 0xAD, 0xDE} {
		b, err := m.Load(0x100+uint32(i), 1)
		require.NoError(t, err)
		require.Equal(t, want, b)
	}
	h, err := m.Load(0x102, 2)
	require.NoError(t, err)
	require.Equal(t, uint32(0xDEAD), h)

	// only the low bytes are written
	require.NoError(t, m.Store(0x200, 2, 0x12345678))
	v, err = m.Load(0x200, 4)
	require.NoError(t, err)
	require.Equal(t, uint32(0x5678), v)
}

func TestMemoryUnalignedAcrossPages(t *testing.T) {
	m, err := NewMemory(1 << 16)
	require.NoError(t, err)
	addr := uint32(PageSize - 2)
	require.NoError(t, m.Store(addr, 4, 0x11223344))
	require.Equal(t, 2, m.PageCount())
	v, err := m.Load(addr, 4)
	require.NoError(t, err)
	require.Equal(t, uint32(0x11223344), v)
}

func TestMemoryBounds(t *testing.T) {
	const size = 64
	m, err := NewMemory(size)
	require.NoError(t, err)

	testCases := []struct {
		name string
		addr uint32
		size uint8
		ok   bool
	}{
		{"last word", size - 4, 4, true},
		{"word over the end", size - 3, 4, false},
		{"last byte", size - 1, 1, true},
		{"half over the end", size - 1, 2, false},
		{"past the end", size, 1, false},
		{"wrapped negative", 0xFFFFFFFC, 4, false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := m.Load(tc.addr, tc.size)
			storeErr := m.Store(tc.addr, tc.size, 0xFFFFFFFF)
			if tc.ok {
				require.NoError(t, err)
				require.NoError(t, storeErr)
				return
			}
			var accessErr *MemoryAccessErr
			require.True(t, errors.As(err, &accessErr))
			require.False(t, accessErr.Write)
			require.True(t, errors.As(storeErr, &accessErr))
			require.True(t, accessErr.Write)
			require.Equal(t, tc.addr, accessErr.Addr)
		})
	}
}

func TestMemoryFailedStoreWritesNothing(t *testing.T) {
	m, err := NewMemory(8)
	require.NoError(t, err)
	require.Error(t, m.Store(6, 4, 0xFFFFFFFF))
	var buf [8]byte
	require.Equal(t, 8, m.GetRange(0, buf[:]))
	require.Equal(t, [8]byte{}, buf)
	require.Equal(t, 0, m.PageCount())
}

func TestMemoryLazyPages(t *testing.T) {
	m, err := NewMemory(MaxMemorySize)
	require.NoError(t, err)
	v, err := m.Load(MaxMemorySize-4, 4)
	require.NoError(t, err)
	require.Zero(t, v)
	_, err = m.Load(0xFFFFFFFC, 4)
	require.Error(t, err, "negative addresses lie outside the largest memory")
	require.NoError(t, m.Store(0x7000_0000, 4, 0))
	require.Equal(t, 0, m.PageCount(), "storing zero to an untouched page allocates nothing")
	require.NoError(t, m.Store(0x7000_0000, 1, 1))
	require.Equal(t, 1, m.PageCount())
	require.Equal(t, "4.0 KiB", m.Usage())
}

func TestNewMemorySize(t *testing.T) {
	_, err := NewMemory(3)
	require.Error(t, err)
	_, err = NewMemory(MaxMemorySize + 1)
	require.Error(t, err)
	m, err := NewMemory(MaxMemorySize)
	require.NoError(t, err)
	require.Equal(t, uint64(MaxMemorySize), m.Size())
}

func TestSetMemoryRange(t *testing.T) {
	m, err := NewMemory(PageSize * 2)
	require.NoError(t, err)
	data := bytes.Repeat([]byte{0xAB}, PageSize+10)
	require.NoError(t, m.SetMemoryRange(4, bytes.NewReader(data)))
	got := make([]byte, len(data))
	require.Equal(t, len(data), m.GetRange(4, got))
	require.Equal(t, data, got)

	err = m.SetMemoryRange(PageSize*2-4, bytes.NewReader([]byte{1, 2, 3, 4, 5}))
	require.ErrorContains(t, err, "exceeds memory size")
}

func TestGetRangeClamps(t *testing.T) {
	m, err := NewMemory(16)
	require.NoError(t, err)
	require.NoError(t, m.Store(12, 4, 0x04030201))
	buf := make([]byte, 8)
	require.Equal(t, 4, m.GetRange(12, buf))
	require.Equal(t, []byte{1, 2, 3, 4}, buf[:4])
}

func TestMemoryJSON(t *testing.T) {
	m, err := NewMemory(1 << 20)
	require.NoError(t, err)
	require.NoError(t, m.Store(0x10, 4, 0xCAFEBABE))
	require.NoError(t, m.Store(0x8_0000, 2, 0xBEEF))

	dat, err := json.Marshal(m)
	require.NoError(t, err)
	var res Memory
	require.NoError(t, json.Unmarshal(dat, &res))
	require.Equal(t, m.Size(), res.Size())
	require.Equal(t, m.PageCount(), res.PageCount())
	v, err := res.Load(0x10, 4)
	require.NoError(t, err)
	require.Equal(t, uint32(0xCAFEBABE), v)
	v, err = res.Load(0x8_0000, 2)
	require.NoError(t, err)
	require.Equal(t, uint32(0xBEEF), v)
}

func TestMemoryJSONRejectsBadPages(t *testing.T) {
	var m Memory
	require.Error(t, json.Unmarshal([]byte(`{"size":4096,"pages":[{"index":0,"data":"0x00"}]}`), &m))
	require.Error(t, json.Unmarshal([]byte(`{"size":2,"pages":[]}`), &m))
}
