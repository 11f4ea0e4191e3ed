package cmd

import (
	"fmt"
	"io"
	"log/slog"

	oplog "github.com/ethereum-optimism/optimism/op-service/log"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	"github.com/rvsim/rvsim/rvgo/riscv"
	"github.com/rvsim/rvsim/rvgo/sim"
)

// LogFlags are the global log.level, log.format and log.color flags.
var LogFlags = oplog.CLIFlags(envVarPrefix)

func Logger(w io.Writer, lvl slog.Level) log.Logger {
	return log.NewLogger(log.LogfmtHandlerWithLevel(w, lvl))
}

// CliLogger builds the logger configured by the global log flags.
func CliLogger(ctx *cli.Context, w io.Writer) log.Logger {
	return oplog.NewLogger(w, oplog.ReadCLIConfig(ctx))
}

// LoggingWriter is a simple util to wrap a logger,
// and expose an io Writer interface,
// for the program running within the simulator to write to.
type LoggingWriter struct {
	Name string
	Log  log.Logger
}

func logAsText(b string) bool {
	for _, c := range b {
		if (c < 0x20 || c >= 0x7F) && (c != '\n' && c != '\t') {
			return false
		}
	}
	return true
}

func (lw *LoggingWriter) Write(b []byte) (int, error) {
	t := string(b)
	if logAsText(t) {
		lw.Log.Info(lw.Name, "text", t)
	} else {
		lw.Log.Info(lw.Name, "data", hexutil.Bytes(b))
	}
	return len(b), nil
}

// HexU32 to lazy-format integer attributes for logging
type HexU32 uint32

func (v HexU32) String() string {
	return fmt.Sprintf("%08x", uint32(v))
}

func (v HexU32) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// LogTracer writes the diagnostic trace of a run: one record per traced step
// with the registers it changed, plus environment calls and the halt.
type LogTracer struct {
	sim.NoopTracer

	Log     log.Logger
	TraceAt StepMatcher
}

var _ sim.Tracer = (*LogTracer)(nil)

func NewLogTracer(l log.Logger, traceAt StepMatcher) *LogTracer {
	if traceAt == nil {
		traceAt = func(uint64) bool { return true }
	}
	return &LogTracer{Log: l, TraceAt: traceAt}
}

func (lt *LogTracer) OnExecute(step uint64, pc uint32, ins *sim.Instruction, pre *sim.Snapshot, post *sim.State) {
	if !lt.TraceAt(step) {
		return
	}
	attrs := []any{
		"step", step,
		"pc", HexU32(pc),
		"insn", HexU32(ins.Word),
		"asm", ins.String(),
		"next", HexU32(post.PC),
	}
	for i, v := range post.Registers {
		if v != pre[i] {
			attrs = append(attrs, riscv.RegisterName(uint8(i)), HexU32(v))
		}
	}
	lt.Log.Info("exec", attrs...)
}

func (lt *LogTracer) OnSyscall(step uint64, service uint32, handled bool) {
	if !handled {
		lt.Log.Warn("ignored environment call", "step", step, "service", service)
		return
	}
	lt.Log.Debug("environment call", "step", step, "service", service)
}

func (lt *LogTracer) OnHalt(state *sim.State) {
	attrs := []any{
		"step", state.Step,
		"pc", HexU32(state.PC),
		"trap", uint8(state.Trap),
		"cause", state.Cause(),
	}
	if f := state.Fault; f != nil {
		attrs = append(attrs, "reason", f.Reason, "window_start", HexU32(f.WindowStart), "window", f.Window)
	}
	lt.Log.Info("halted", attrs...)
}
