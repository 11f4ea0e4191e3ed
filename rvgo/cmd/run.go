package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum-optimism/optimism/op-service/jsonutil"
	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/profile"
	"github.com/urfave/cli/v2"

	"github.com/rvsim/rvsim/rvgo/riscv"
	"github.com/rvsim/rvsim/rvgo/sim"
)

var (
	RunInputFlag = &cli.PathFlag{
		Name:      "input",
		Usage:     "path of the flat RV32I program image, or of a JSON state snapshot (.json, .json.gz) to resume",
		TakesFile: true,
		EnvVars:   prefixEnvVars("INPUT"),
	}
	RunOutDirFlag = &cli.PathFlag{
		Name:    "out-dir",
		Usage:   "directory for the .test_res and .log artifacts, defaults to the directory of the input",
		EnvVars: prefixEnvVars("OUT_DIR"),
	}
	RunMemSizeFlag = &cli.Uint64Flag{
		Name:    "mem-size",
		Usage:   "size of the simulated memory in bytes",
		Value:   riscv.DefaultMemorySize,
		EnvVars: prefixEnvVars("MEM_SIZE"),
	}
	RunMaxStepsFlag = &cli.Uint64Flag{
		Name:    "max-steps",
		Usage:   "stop after this many steps, 0 for no limit",
		EnvVars: prefixEnvVars("MAX_STEPS"),
	}
	RunTraceFlag = &cli.BoolFlag{
		Name:    "trace",
		Usage:   "write a diagnostic trace of the run to <name>.log",
		EnvVars: prefixEnvVars("TRACE"),
	}
	RunTraceAtFlag = &cli.GenericFlag{
		Name:    "trace-at",
		Usage:   "step pattern to trace instructions at (default always): " + patternHelp,
		Value:   MustStepMatcherFlag("always"),
		EnvVars: prefixEnvVars("TRACE_AT"),
	}
	RunInfoAtFlag = &cli.GenericFlag{
		Name:    "info-at",
		Usage:   "step pattern to print progress info at: " + patternHelp,
		Value:   new(StepMatcherFlag),
		EnvVars: prefixEnvVars("INFO_AT"),
	}
	RunStopAtFlag = &cli.GenericFlag{
		Name:    "stop-at",
		Usage:   "step pattern to stop at: " + patternHelp,
		Value:   new(StepMatcherFlag),
		EnvVars: prefixEnvVars("STOP_AT"),
	}
	RunStrictSyscallsFlag = &cli.BoolFlag{
		Name:    "strict-syscalls",
		Usage:   "halt with an illegal instruction trap on unknown environment calls instead of ignoring them",
		EnvVars: prefixEnvVars("STRICT_SYSCALLS"),
	}
	RunLogProgramOutputFlag = &cli.BoolFlag{
		Name:    "log-program-output",
		Usage:   "log the program's console output instead of writing it to stdout",
		EnvVars: prefixEnvVars("LOG_PROGRAM_OUTPUT"),
	}
	RunSnapshotJSONFlag = &cli.PathFlag{
		Name:    "snapshot-json",
		Usage:   "write the full machine state as JSON to this path when the run ends, gzipped when it ends in .gz",
		EnvVars: prefixEnvVars("SNAPSHOT_JSON"),
	}
	RunPProfCPUFlag = &cli.BoolFlag{
		Name:    "pprof.cpu",
		Usage:   "enable pprof cpu profiling",
		EnvVars: prefixEnvVars("PPROF_CPU"),
	}
)

// loadInput loads a program image, or a state snapshot when the file is JSON.
func loadInput(path string, memSize uint64) (*sim.State, error) {
	if !strings.HasSuffix(path, ".json") && !strings.HasSuffix(path, ".json.gz") {
		return sim.LoadProgramFile(path, memSize)
	}
	state, err := jsonutil.LoadJSON[sim.State](path)
	if err != nil {
		return nil, fmt.Errorf("failed to load state snapshot: %w", err)
	}
	if err := state.Validate(); err != nil {
		return nil, fmt.Errorf("invalid state snapshot %q: %w", path, err)
	}
	return state, nil
}

func Run(ctx *cli.Context) error {
	if ctx.Bool(RunPProfCPUFlag.Name) {
		defer profile.Start(profile.NoShutdownHook, profile.ProfilePath("."), profile.CPUProfile).Stop()
	}

	l := CliLogger(ctx, os.Stderr)
	input, err := inputPath(ctx, RunInputFlag)
	if err != nil {
		return err
	}
	outDir := ctx.Path(RunOutDirFlag.Name)
	if outDir == "" {
		outDir = filepath.Dir(input)
	}
	name := baseName(strings.TrimSuffix(input, ".gz"))

	state, err := loadInput(input, ctx.Uint64(RunMemSizeFlag.Name))
	if err != nil {
		return err
	}

	var stdout io.Writer = os.Stdout
	if ctx.Bool(RunLogProgramOutputFlag.Name) {
		stdout = &LoggingWriter{Name: "program output", Log: l}
	}
	opts := sim.Options{
		StrictSyscalls: ctx.Bool(RunStrictSyscallsFlag.Name),
		Stdout:         stdout,
	}
	if ctx.Bool(RunTraceFlag.Name) {
		tracePath := filepath.Join(outDir, name+".log")
		f, err := os.Create(tracePath)
		if err != nil {
			return fmt.Errorf("failed to create trace file: %w", err)
		}
		defer func() {
			if err := f.Close(); err != nil {
				l.Error("failed to close trace file", "err", err)
			}
		}()
		opts.Tracer = NewLogTracer(Logger(f, log.LevelTrace), stepMatcher(ctx, RunTraceAtFlag))
		l.Info("tracing run", "file", tracePath)
	}
	m := sim.NewMachine(state, opts)

	stopAt := stepMatcher(ctx, RunStopAtFlag)
	infoAt := stepMatcher(ctx, RunInfoAtFlag)
	maxSteps := ctx.Uint64(RunMaxStepsFlag.Name)

	start := time.Now()
	startStep := state.Step
	var runErr error

	for !state.Halted() {
		if state.Step%100 == 0 { // don't do the ctx err check (includes lock) too often
			if err := ctx.Context.Err(); err != nil {
				return err
			}
		}
		step := state.Step

		if infoAt(step) {
			delta := time.Since(start)
			l.Info("processing",
				"step", step,
				"pc", HexU32(state.PC),
				"insn", HexU32(state.Instr()),
				"ips", float64(step-startStep)/(float64(delta)/float64(time.Second)),
				"pages", state.Memory.PageCount(),
				"mem", state.Memory.Usage(),
			)
		}

		if stopAt(step) {
			l.Info("stopping at requested step", "step", step)
			break
		}
		if maxSteps != 0 && step >= maxSteps {
			runErr = fmt.Errorf("%w: %d steps", sim.ErrStepLimit, maxSteps)
			break
		}

		if err := m.Step(); err != nil {
			return fmt.Errorf("failed at step %d (PC: %08x): %w", step, state.PC, err)
		}
	}

	res := m.Result()
	resPath := filepath.Join(outDir, name+".test_res")
	if err := os.WriteFile(resPath, res.Registers.Bytes(), OutFilePerm); err != nil {
		return fmt.Errorf("failed to write register snapshot: %w", err)
	}
	if path := ctx.Path(RunSnapshotJSONFlag.Name); path != "" {
		if err := jsonutil.WriteJSON(path, state, OutFilePerm); err != nil {
			return fmt.Errorf("failed to write state snapshot: %w", err)
		}
	}
	if res.IgnoredSyscalls > 0 {
		l.Warn("program made unsupported environment calls", "count", res.IgnoredSyscalls)
	}
	l.Info("run finished",
		"trap", uint8(res.Trap),
		"cause", res.Cause,
		"steps", res.Steps,
		"pc", HexU32(res.PC),
		"registers", resPath,
		"hash", res.Registers.Hash(),
	)
	return runErr
}

var RunCommand = &cli.Command{
	Name:        "run",
	Usage:       "Run an RV32I program image until it halts.",
	Description: "Run an RV32I program image until it halts, writing the final registers to <name>.test_res. See flags to trace the run, print progress, or stop early.",
	ArgsUsage:   "[input]",
	Action:      Run,
	Flags: []cli.Flag{
		RunInputFlag,
		RunOutDirFlag,
		RunMemSizeFlag,
		RunMaxStepsFlag,
		RunTraceFlag,
		RunTraceAtFlag,
		RunInfoAtFlag,
		RunStopAtFlag,
		RunStrictSyscallsFlag,
		RunLogProgramOutputFlag,
		RunSnapshotJSONFlag,
		RunPProfCPUFlag,
	},
}
