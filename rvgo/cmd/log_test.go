package cmd

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	oplog "github.com/ethereum-optimism/optimism/op-service/log"
	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/rvsim/rvsim/rvgo/sim"
	"github.com/rvsim/rvsim/rvgo/testutil"
)

func TestCliLogger(t *testing.T) {
	testCases := []struct {
		level    string
		debug    bool
		warnings bool
	}{
		{"trace", true, true},
		{"debug", true, true},
		{"info", false, true},
		{"error", false, false},
	}
	for _, tc := range testCases {
		t.Run(tc.level, func(t *testing.T) {
			var buf bytes.Buffer
			app := cli.NewApp()
			app.Flags = oplog.CLIFlags(envVarPrefix)
			app.Action = func(ctx *cli.Context) error {
				l := CliLogger(ctx, &buf)
				l.Debug("debug line")
				l.Warn("warn line")
				return nil
			}
			require.NoError(t, app.Run([]string{"rvsim", "--log.level", tc.level, "--log.format", "logfmt"}))
			require.Equal(t, tc.debug, strings.Contains(buf.String(), "debug line"))
			require.Equal(t, tc.warnings, strings.Contains(buf.String(), "warn line"))
		})
	}
}

func TestLoggingWriter(t *testing.T) {
	var buf bytes.Buffer
	lw := &LoggingWriter{Name: "program output", Log: Logger(&buf, slog.LevelInfo)}

	n, err := lw.Write([]byte("hello\n"))
	require.NoError(t, err)
	require.Equal(t, 6, n)
	require.Contains(t, buf.String(), "hello")

	buf.Reset()
	_, err = lw.Write([]byte{0x00, 0xFF})
	require.NoError(t, err)
	require.Contains(t, buf.String(), "data=0x00ff")
}

func TestHexU32(t *testing.T) {
	require.Equal(t, "0000beef", HexU32(0xBEEF).String())
}

func TestLogTracer(t *testing.T) {
	p := testutil.NewProgram("traced").
		Add("ADDI", sim.IType{Rd: 5, Rs1: 0, Imm: sim.Imm(7)}).
		Li(10, 99).
		Add("ECALL", nil).
		Exit()
	var buf bytes.Buffer
	tr := NewLogTracer(Logger(&buf, log.LevelTrace), MustStepMatcherFlag("=0").Matcher())
	res, err := sim.Run(t.Context(), p.Bytes(), sim.Options{MemorySize: 1 << 16, Tracer: tr})
	require.NoError(t, err)
	require.Equal(t, sim.TrapExit, res.Trap)

	out := buf.String()
	require.Contains(t, out, "addi t0, zero, 7")
	require.NotContains(t, out, "ecall", "only step 0 is traced")
	require.Contains(t, out, "ignored environment call")
	require.Contains(t, out, "halted")
}
