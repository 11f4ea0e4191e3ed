package sim

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Pages are allocated on first write, so a large address space costs nothing until touched.
const (
	PageAddrSize = 12
	PageSize     = 1 << PageAddrSize
	PageAddrMask = PageSize - 1
)

// MaxMemorySize keeps every negative address, and the PC after the last word, outside memory.
const MaxMemorySize = 1 << 31

type Page [PageSize]byte

// Memory is a bounded, byte-addressable, zero-initialized little-endian memory.
type Memory struct {
	size  uint64
	pages map[uint32]*Page

	// we often fetch instructions from one page and load/store with another,
	// caching both avoids a map lookup per access.
	lastPageKeys [2]uint32
	lastPage     [2]*Page
}

func NewMemory(size uint64) (*Memory, error) {
	if size < 4 || size > MaxMemorySize {
		return nil, fmt.Errorf("memory size %d out of range [4, %d]", size, uint64(MaxMemorySize))
	}
	return &Memory{
		size:         size,
		pages:        make(map[uint32]*Page),
		lastPageKeys: [2]uint32{^uint32(0), ^uint32(0)}, // no page has this key: the top page index is 0xFFFFF
	}, nil
}

func (m *Memory) Size() uint64 {
	return m.size
}

func (m *Memory) PageCount() int {
	return len(m.pages)
}

// InBounds reports whether the n bytes starting at addr all lie within memory.
func (m *Memory) InBounds(addr uint32, n uint64) bool {
	return uint64(addr)+n <= m.size
}

func (m *Memory) pageLookup(pageIndex uint32) (*Page, bool) {
	if pageIndex == m.lastPageKeys[0] {
		return m.lastPage[0], true
	}
	if pageIndex == m.lastPageKeys[1] {
		return m.lastPage[1], true
	}
	p, ok := m.pages[pageIndex]
	// only cache existing pages
	if ok {
		m.lastPageKeys[1] = m.lastPageKeys[0]
		m.lastPage[1] = m.lastPage[0]
		m.lastPageKeys[0] = pageIndex
		m.lastPage[0] = p
	}
	return p, ok
}

func (m *Memory) allocPage(pageIndex uint32) *Page {
	p := new(Page)
	m.pages[pageIndex] = p
	return p
}

func (m *Memory) getByte(addr uint32) byte {
	p, ok := m.pageLookup(addr >> PageAddrSize)
	if !ok {
		return 0
	}
	return p[addr&PageAddrMask]
}

func (m *Memory) setByte(addr uint32, v byte) {
	pageIndex := addr >> PageAddrSize
	p, ok := m.pageLookup(pageIndex)
	if !ok {
		if v == 0 {
			return // untouched pages already read as zero
		}
		p = m.allocPage(pageIndex)
	}
	p[addr&PageAddrMask] = v
}

// Load reads a little-endian value of size 1, 2 or 4 bytes.
func (m *Memory) Load(addr uint32, size uint8) (uint32, error) {
	if !m.InBounds(addr, uint64(size)) {
		return 0, &MemoryAccessErr{Addr: addr, Size: size, MemorySize: m.size}
	}
	var out uint32
	for i := uint8(0); i < size; i++ {
		out |= uint32(m.getByte(addr+uint32(i))) << (8 * i)
	}
	return out, nil
}

// Store writes the low size bytes of v, little-endian, byte by byte.
// Nothing is written when any byte of the access is out of bounds.
func (m *Memory) Store(addr uint32, size uint8, v uint32) error {
	if !m.InBounds(addr, uint64(size)) {
		return &MemoryAccessErr{Addr: addr, Size: size, MemorySize: m.size, Write: true}
	}
	for i := uint8(0); i < size; i++ {
		m.setByte(addr+uint32(i), byte(v>>(8*i)))
	}
	return nil
}

// Word fetches the 32-bit little-endian word at addr.
func (m *Memory) Word(addr uint32) (uint32, error) {
	return m.Load(addr, 4)
}

// GetRange copies memory starting at addr into dest, clamped to the memory size.
// It returns the number of bytes copied.
func (m *Memory) GetRange(addr uint32, dest []byte) int {
	n := 0
	for ; n < len(dest) && uint64(addr)+uint64(n) < m.size; n++ {
		dest[n] = m.getByte(addr + uint32(n))
	}
	return n
}

// SetMemoryRange writes everything r produces into memory, starting at addr.
func (m *Memory) SetMemoryRange(addr uint32, r io.Reader) error {
	var buf [PageSize]byte
	offset := uint64(addr)
	for {
		n, err := r.Read(buf[:])
		if n > 0 {
			if offset+uint64(n) > m.size {
				return fmt.Errorf("data of at least %d bytes at %08x exceeds memory size %d", offset+uint64(n)-uint64(addr), addr, m.size)
			}
			for i := 0; i < n; i++ {
				m.setByte(uint32(offset)+uint32(i), buf[i])
			}
			offset += uint64(n)
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (m *Memory) Usage() string {
	total := uint64(len(m.pages)) * PageSize
	const unit = 1024
	if total < unit {
		return fmt.Sprintf("%d B", total)
	}
	div, exp := uint64(unit), 0
	for n := total / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	// KiB, MiB, GiB
	return fmt.Sprintf("%.1f %ciB", float64(total)/float64(div), "KMG"[exp])
}

type pageEntry struct {
	Index uint32        `json:"index"`
	Data  hexutil.Bytes `json:"data"`
}

type memoryJSON struct {
	Size  uint64      `json:"size"`
	Pages []pageEntry `json:"pages"`
}

func (m *Memory) MarshalJSON() ([]byte, error) {
	pages := make([]pageEntry, 0, len(m.pages))
	for k, p := range m.pages {
		pages = append(pages, pageEntry{Index: k, Data: p[:]})
	}
	sort.Slice(pages, func(i, j int) bool {
		return pages[i].Index < pages[j].Index
	})
	return json.Marshal(memoryJSON{Size: m.size, Pages: pages})
}

func (m *Memory) UnmarshalJSON(data []byte) error {
	var dec memoryJSON
	if err := json.Unmarshal(data, &dec); err != nil {
		return err
	}
	fresh, err := NewMemory(dec.Size)
	if err != nil {
		return err
	}
	for i, p := range dec.Pages {
		if _, ok := fresh.pages[p.Index]; ok {
			return fmt.Errorf("cannot load duplicate page, entry %d, page index %d", i, p.Index)
		}
		if len(p.Data) != PageSize {
			return fmt.Errorf("page %d has %d bytes, expected %d", p.Index, len(p.Data), PageSize)
		}
		if uint64(p.Index)<<PageAddrSize >= fresh.size {
			return fmt.Errorf("page %d lies outside memory of size %d", p.Index, fresh.size)
		}
		copy(fresh.allocPage(p.Index)[:], p.Data)
	}
	*m = *fresh
	return nil
}
