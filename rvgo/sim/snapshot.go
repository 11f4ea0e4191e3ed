package sim

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/rvsim/rvsim/rvgo/riscv"
)

// SnapshotSize is the byte length of an encoded register snapshot.
const SnapshotSize = riscv.RegisterCount * 4

// Snapshot is the register file after a run, the artifact compared against reference outputs.
type Snapshot [riscv.RegisterCount]uint32

// Bytes encodes the registers in index order, 4 bytes little-endian each.
func (s Snapshot) Bytes() []byte {
	out := make([]byte, 0, SnapshotSize)
	for _, r := range s {
		out = binary.LittleEndian.AppendUint32(out, r)
	}
	return out
}

func (s Snapshot) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(s.Bytes())
	return int64(n), err
}

// Hash is the Keccak-256 digest of the encoded snapshot.
func (s Snapshot) Hash() common.Hash {
	return crypto.Keccak256Hash(s.Bytes())
}

func ParseSnapshot(b []byte) (Snapshot, error) {
	var s Snapshot
	if len(b) != SnapshotSize {
		return s, fmt.Errorf("snapshot must be %d bytes, got %d", SnapshotSize, len(b))
	}
	for i := range s {
		s[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	return s, nil
}

func ReadSnapshot(r io.Reader) (Snapshot, error) {
	var buf [SnapshotSize + 1]byte
	n, err := io.ReadFull(r, buf[:])
	if err != nil && err != io.ErrUnexpectedEOF {
		return Snapshot{}, fmt.Errorf("failed to read snapshot: %w", err)
	}
	return ParseSnapshot(buf[:n])
}
