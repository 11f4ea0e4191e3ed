package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rvsim/rvsim/rvgo/sim"
)

func TestLi(t *testing.T) {
	values := []uint32{
		0,
		1,
		0x7FF,
		0x800,
		0xFFF,
		0x1000,
		0x12345678,
		0x7FFFFFFF,
		0x80000000,
		0xFFFFF800,
		0xFFFFFFFF,
	}
	p := NewProgram("li")
	for i, v := range values {
		p.SetRegister(uint8(5+i), v)
	}
	p.Exit()

	res, err := sim.Run(context.Background(), p.Bytes(), sim.Options{MemorySize: 1 << 16})
	require.NoError(t, err)
	require.Equal(t, sim.TrapExit, res.Trap)
	p.Check(t, res.Registers)
}

func TestLiLength(t *testing.T) {
	require.Equal(t, 1, NewProgram("").Li(1, 0x7FF).Len())
	require.Equal(t, 1, NewProgram("").Li(1, 0xFFFFF800).Len())
	require.Equal(t, 1, NewProgram("").Li(1, 0x12345000).Len())
	require.Equal(t, 2, NewProgram("").Li(1, 0x12345678).Len())
}

type recordT struct {
	failed bool
}

func (r *recordT) Errorf(string, ...interface{}) { r.failed = true }
func (r *recordT) FailNow()                      { r.failed = true }

func TestCheckReportsMismatch(t *testing.T) {
	p := NewProgram("mismatch").Expect(5, 1).Expect(0, 99)
	var got sim.Snapshot
	rt := new(recordT)
	p.Check(rt, got)
	require.True(t, rt.failed)

	got[5] = 1
	rt = new(recordT)
	p.Check(rt, got)
	require.False(t, rt.failed, "expectations on x0 are ignored")
}

func TestBytes(t *testing.T) {
	p := NewProgram("bytes").AddWord(0x04030201).Add("ECALL", nil)
	require.Equal(t, []byte{1, 2, 3, 4, 0x73, 0, 0, 0}, p.Bytes())
	require.Equal(t, uint32(8), p.PC())
}
