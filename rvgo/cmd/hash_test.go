package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rvsim/rvsim/rvgo/sim"
)

func TestHashCommand(t *testing.T) {
	dir := t.TempDir()
	var snap sim.Snapshot
	snap[10] = 10
	snap[31] = 0xDEADBEEF
	input := filepath.Join(dir, "prog.res")
	require.NoError(t, os.WriteFile(input, snap.Bytes(), 0o644))
	output := filepath.Join(dir, "hash.json")

	out, err := runApp(t, "hash", "--output", output, input)
	require.NoError(t, err)
	require.Equal(t, snap.Hash().Hex()+"\n", out)

	dat, err := os.ReadFile(output)
	require.NoError(t, err)
	var decoded HashOutput
	require.NoError(t, json.Unmarshal(dat, &decoded))
	require.Equal(t, snap, decoded.Registers)
	require.Equal(t, snap.Hash().Hex(), decoded.Hash)
}

func TestHashRejectsShortSnapshot(t *testing.T) {
	input := filepath.Join(t.TempDir(), "short.res")
	require.NoError(t, os.WriteFile(input, make([]byte, 100), 0o644))
	_, err := runApp(t, "hash", input)
	require.ErrorContains(t, err, "invalid input snapshot")
}
