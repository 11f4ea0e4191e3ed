package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rvsim/rvsim/rvgo/testutil"
)

func writeGolden(t *testing.T, dir, name string, p *testutil.Program) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".res"), p.Expected().Bytes(), 0o644))
}

func TestBatch(t *testing.T) {
	dir := t.TempDir()

	pass := testutil.NewProgram("pass").SetRegister(5, 1).Exit()
	writeProgram(t, dir, "pass.bin", pass)
	writeGolden(t, dir, "pass", pass)

	noGolden := testutil.NewProgram("nogolden").Exit()
	writeProgram(t, dir, "nogolden.bin", noGolden)

	_, err := runApp(t, "batch", "--mem-size", "65536", "--dir", dir)
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(dir, "pass.test_res"))
	require.FileExists(t, filepath.Join(dir, "nogolden.test_res"))

	got, err := os.ReadFile(filepath.Join(dir, "pass.test_res"))
	require.NoError(t, err)
	require.Equal(t, pass.Expected().Bytes(), got)
}

func TestBatchMismatch(t *testing.T) {
	dir := t.TempDir()
	p := testutil.NewProgram("wrong").SetRegister(5, 1).Exit()
	writeProgram(t, dir, "wrong.bin", p)
	golden := testutil.NewProgram("golden").SetRegister(5, 2).Exit()
	writeGolden(t, dir, "wrong", golden)

	_, err := runApp(t, "batch", "--mem-size", "65536", "--dir", dir)
	require.ErrorContains(t, err, "1 of 1 programs failed")

	// skipping it through the manifest makes the batch pass
	manifest := filepath.Join(t.TempDir(), "manifest.yaml")
	require.NoError(t, os.WriteFile(manifest, []byte("programs:\n  - name: wrong\n    skip: true\n"), 0o644))
	_, err = runApp(t, "batch", "--mem-size", "65536", "--dir", dir, "--manifest", manifest)
	require.NoError(t, err)
}

func TestBatchManifestTrap(t *testing.T) {
	dir := t.TempDir()
	writeProgram(t, dir, "code.bin", testutil.NewProgram("code").ExitWithCode(7))
	manifest := filepath.Join(t.TempDir(), "manifest.yaml")

	require.NoError(t, os.WriteFile(manifest, []byte("programs:\n  - name: code\n    trap: 3\n    exit_code: 7\n"), 0o644))
	_, err := runApp(t, "batch", "--mem-size", "65536", "--dir", dir, "--manifest", manifest)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(manifest, []byte("programs:\n  - name: code\n    trap: 2\n"), 0o644))
	_, err = runApp(t, "batch", "--mem-size", "65536", "--dir", dir, "--manifest", manifest)
	require.ErrorContains(t, err, "programs failed")

	require.NoError(t, os.WriteFile(manifest, []byte("programs:\n  - name: code\n    exit_code: 0\n"), 0o644))
	_, err = runApp(t, "batch", "--mem-size", "65536", "--dir", dir, "--manifest", manifest)
	require.ErrorContains(t, err, "programs failed")
}

func TestBatchStepLimit(t *testing.T) {
	dir := t.TempDir()
	writeProgram(t, dir, "spin.bin", testutil.NewProgram("spin").AddWord(0x0000006F)) // jal zero, 0
	_, err := runApp(t, "batch", "--mem-size", "4096", "--max-steps", "1000", "--dir", dir)
	require.ErrorContains(t, err, "1 of 1 programs failed")
	got, err := os.ReadFile(filepath.Join(dir, "spin.test_res"))
	require.NoError(t, err)
	require.Len(t, got, 128)
}

func TestBatchEmptyDir(t *testing.T) {
	_, err := runApp(t, "batch", "--dir", t.TempDir())
	require.ErrorContains(t, err, "no *.bin programs")
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "m.yaml")

	require.NoError(t, os.WriteFile(path, []byte("programs:\n  - name: a\n    trap: 2\n  - name: b\n    skip: true\n"), 0o644))
	m, err := LoadManifest(path)
	require.NoError(t, err)
	require.Len(t, m, 2)
	require.Equal(t, uint8(2), *m["a"].Trap)
	require.Nil(t, m["a"].ExitCode)
	require.True(t, m["b"].Skip)

	require.NoError(t, os.WriteFile(path, []byte("programs:\n  - name: a\n  - name: a\n"), 0o644))
	_, err = LoadManifest(path)
	require.ErrorContains(t, err, "twice")

	require.NoError(t, os.WriteFile(path, []byte("programs:\n  - trap: 1\n"), 0o644))
	_, err = LoadManifest(path)
	require.ErrorContains(t, err, "has no name")

	_, err = LoadManifest(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
}
