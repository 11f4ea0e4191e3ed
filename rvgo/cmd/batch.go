package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/ethereum/go-ethereum/log"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v2"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/rvsim/rvsim/rvgo/riscv"
	"github.com/rvsim/rvsim/rvgo/sim"
)

var (
	BatchDirFlag = &cli.PathFlag{
		Name:     "dir",
		Usage:    "directory holding the *.bin program images and their golden *.res register snapshots",
		Required: true,
		EnvVars:  prefixEnvVars("BATCH_DIR"),
	}
	BatchManifestFlag = &cli.PathFlag{
		Name:      "manifest",
		Usage:     "optional YAML file pinning expected trap levels and exit codes per program",
		TakesFile: true,
		EnvVars:   prefixEnvVars("BATCH_MANIFEST"),
	}
	BatchMaxStepsFlag = &cli.Uint64Flag{
		Name:    "max-steps",
		Usage:   "fail a program after this many steps, 0 for no limit",
		Value:   10_000_000,
		EnvVars: prefixEnvVars("BATCH_MAX_STEPS"),
	}
	BatchMemSizeFlag = &cli.Uint64Flag{
		Name:    "mem-size",
		Usage:   "size of the simulated memory in bytes",
		Value:   riscv.DefaultMemorySize,
		EnvVars: prefixEnvVars("MEM_SIZE"),
	}
)

// Manifest lists expectations for programs of a batch, keyed by base name.
type Manifest struct {
	Programs []ManifestEntry `yaml:"programs"`
}

type ManifestEntry struct {
	Name     string `yaml:"name"`
	Trap     *uint8 `yaml:"trap"`
	ExitCode *int32 `yaml:"exit_code"`
	Skip     bool   `yaml:"skip"`
}

func LoadManifest(path string) (map[string]ManifestEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	out := make(map[string]ManifestEntry, len(manifest.Programs))
	for i, e := range manifest.Programs {
		if e.Name == "" {
			return nil, fmt.Errorf("manifest entry %d has no name", i)
		}
		if _, ok := out[e.Name]; ok {
			return nil, fmt.Errorf("manifest names program %q twice", e.Name)
		}
		out[e.Name] = e
	}
	return out, nil
}

type BatchStatus string

const (
	StatusPass     BatchStatus = "pass"
	StatusFail     BatchStatus = "fail"
	StatusNoGolden BatchStatus = "no-golden"
	StatusSkipped  BatchStatus = "skipped"
)

type BatchResult struct {
	Name   string
	Status BatchStatus
	Reason string
	Result *sim.Result
}

// runOne simulates one image, writes its snapshot next to it and checks it against the golden file.
func runOne(ctx *cli.Context, path string, expect ManifestEntry, opts sim.Options) (*BatchResult, error) {
	name := baseName(path)
	out := &BatchResult{Name: name}
	if expect.Skip {
		out.Status = StatusSkipped
		return out, nil
	}
	state, err := sim.LoadProgramFile(path, opts.MemorySize)
	if err != nil {
		return nil, err
	}
	res, runErr := sim.NewMachine(state, opts).Run(ctx.Context)
	if runErr != nil && !errors.Is(runErr, sim.ErrStepLimit) {
		return nil, fmt.Errorf("failed to run %s: %w", name, runErr)
	}
	out.Result = res

	// unfinished runs leave their registers too
	got := res.Registers.Bytes()
	dir := filepath.Dir(path)
	if err := os.WriteFile(filepath.Join(dir, name+".test_res"), got, OutFilePerm); err != nil {
		return nil, fmt.Errorf("failed to write register snapshot: %w", err)
	}
	if runErr != nil {
		out.Status, out.Reason = StatusFail, fmt.Sprintf("no halt within %d steps", opts.MaxSteps)
		return out, nil
	}

	if expect.Trap != nil && sim.TrapLevel(*expect.Trap) != res.Trap {
		out.Status, out.Reason = StatusFail, fmt.Sprintf("expected trap %d, got %d (%s)", *expect.Trap, res.Trap, res.Cause)
		return out, nil
	}
	if expect.ExitCode != nil && *expect.ExitCode != res.ExitCode {
		out.Status, out.Reason = StatusFail, fmt.Sprintf("expected exit code %d, got %d", *expect.ExitCode, res.ExitCode)
		return out, nil
	}

	golden, err := os.ReadFile(filepath.Join(dir, name+".res"))
	if errors.Is(err, fs.ErrNotExist) {
		out.Status = StatusNoGolden
		return out, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to read golden snapshot: %w", err)
	}
	if !bytes.Equal(golden, got) {
		out.Status, out.Reason = StatusFail, describeMismatch(golden, res.Registers)
		return out, nil
	}
	out.Status = StatusPass
	return out, nil
}

func describeMismatch(golden []byte, got sim.Snapshot) string {
	want, err := sim.ParseSnapshot(golden)
	if err != nil {
		return fmt.Sprintf("golden snapshot unreadable: %v", err)
	}
	for i := range want {
		if want[i] != got[i] {
			return fmt.Sprintf("register %s: expected %08x, got %08x", riscv.RegisterName(uint8(i)), want[i], got[i])
		}
	}
	return "snapshots differ"
}

func Batch(ctx *cli.Context) error {
	l := CliLogger(ctx, os.Stderr)
	dir := ctx.Path(BatchDirFlag.Name)
	images, err := filepath.Glob(filepath.Join(dir, "*.bin"))
	if err != nil {
		return fmt.Errorf("failed to list programs: %w", err)
	}
	if len(images) == 0 {
		return fmt.Errorf("no *.bin programs in %s", dir)
	}
	sort.Strings(images)

	manifest := map[string]ManifestEntry{}
	if path := ctx.Path(BatchManifestFlag.Name); path != "" {
		if manifest, err = LoadManifest(path); err != nil {
			return err
		}
	}
	opts := sim.Options{
		MemorySize: ctx.Uint64(BatchMemSizeFlag.Name),
		MaxSteps:   ctx.Uint64(BatchMaxStepsFlag.Name),
	}

	var bar *progressbar.ProgressBar
	if term.IsTerminal(int(os.Stderr.Fd())) {
		bar = progressbar.Default(int64(len(images)), "running")
		defer bar.Close()
	}

	counts := make(map[BatchStatus]int)
	for _, path := range images {
		res, err := runOne(ctx, path, manifest[baseName(path)], opts)
		if err != nil {
			return err
		}
		counts[res.Status]++
		logResult(l, res)
		if bar != nil {
			_ = bar.Add(1)
		}
	}

	l.Info("batch finished",
		"programs", len(images),
		"pass", counts[StatusPass],
		"fail", counts[StatusFail],
		"no_golden", counts[StatusNoGolden],
		"skipped", counts[StatusSkipped],
	)
	if n := counts[StatusFail]; n > 0 {
		return fmt.Errorf("%d of %d programs failed", n, len(images))
	}
	return nil
}

func logResult(l log.Logger, res *BatchResult) {
	attrs := []any{"program", res.Name, "status", string(res.Status)}
	if res.Result != nil {
		attrs = append(attrs, "trap", uint8(res.Result.Trap), "steps", res.Result.Steps)
	}
	switch res.Status {
	case StatusFail:
		l.Error("program failed", append(attrs, "reason", res.Reason)...)
	case StatusNoGolden:
		l.Warn("no golden snapshot", attrs...)
	default:
		l.Info("program done", attrs...)
	}
}

var BatchCommand = &cli.Command{
	Name:        "batch",
	Usage:       "Run every program image of a directory and compare against golden snapshots.",
	Description: "Run every *.bin program of a directory, write <name>.test_res next to each and compare it byte for byte with <name>.res when present.",
	Action:      Batch,
	Flags: []cli.Flag{
		BatchDirFlag,
		BatchManifestFlag,
		BatchMaxStepsFlag,
		BatchMemSizeFlag,
	},
}
