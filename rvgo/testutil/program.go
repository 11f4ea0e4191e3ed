package testutil

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/stretchr/testify/require"

	"github.com/rvsim/rvsim/rvgo/riscv"
	"github.com/rvsim/rvsim/rvgo/sim"
)

// Program assembles a flat RV32I image instruction by instruction
// and tracks the register values it is expected to end with.
type Program struct {
	Name     string
	words    []uint32
	expected sim.Snapshot
}

func NewProgram(name string) *Program {
	return &Program{Name: name}
}

// Add appends one instruction, panicking if it cannot be encoded.
func (p *Program) Add(mnemonic string, ops sim.Operands) *Program {
	p.words = append(p.words, sim.MustEncode(mnemonic, ops))
	return p
}

// AddWord appends a raw word, which does not have to be a valid instruction.
func (p *Program) AddWord(w uint32) *Program {
	p.words = append(p.words, w)
	return p
}

// Li loads a 32-bit constant with LUI and ADDI. The ADDI immediate is sign-extended,
// so the upper part is corrected by its borrow.
func (p *Program) Li(rd uint8, v uint32) *Program {
	lo := sim.SignExtend(v&0xFFF, 12)
	upper := v - uint32(lo)
	switch {
	case upper != 0 && lo != 0:
		p.Add("LUI", sim.UType{Rd: rd, Imm: sim.Imm(int32(upper >> 12))})
		p.Add("ADDI", sim.IType{Rd: rd, Rs1: rd, Imm: sim.Imm(lo)})
	case upper != 0:
		p.Add("LUI", sim.UType{Rd: rd, Imm: sim.Imm(int32(upper >> 12))})
	default:
		p.Add("ADDI", sim.IType{Rd: rd, Rs1: riscv.RegZero, Imm: sim.Imm(lo)})
	}
	return p
}

// SetRegister loads v into rd and expects it to still hold v at the end.
func (p *Program) SetRegister(rd uint8, v uint32) *Program {
	p.Li(rd, v)
	return p.Expect(rd, v)
}

func (p *Program) Expect(r uint8, v uint32) *Program {
	if r != riscv.RegZero {
		p.expected[r] = v
	}
	return p
}

// Exit ends the program with the plain exit service.
func (p *Program) Exit() *Program {
	p.SetRegister(riscv.RegA0, riscv.SysExit)
	return p.Add("ECALL", nil)
}

func (p *Program) ExitWithCode(code int32) *Program {
	p.SetRegister(riscv.RegA1, uint32(code))
	p.SetRegister(riscv.RegA0, riscv.SysExitCode)
	return p.Add("ECALL", nil)
}

// PC is the address of the next instruction to be added.
func (p *Program) PC() uint32 {
	return uint32(len(p.words)) * riscv.InstructionSize
}

func (p *Program) Len() int {
	return len(p.words)
}

func (p *Program) Bytes() []byte {
	out := make([]byte, 0, len(p.words)*riscv.InstructionSize)
	for _, w := range p.words {
		out = binary.LittleEndian.AppendUint32(out, w)
	}
	return out
}

func (p *Program) Expected() sim.Snapshot {
	return p.expected
}

// Check fails the test when got differs from the expected registers, listing every mismatch.
func (p *Program) Check(t require.TestingT, got sim.Snapshot) {
	if h, ok := t.(interface{ Helper() }); ok {
		h.Helper()
	}
	var diff []string
	for i := range got {
		if got[i] != p.expected[i] {
			diff = append(diff, fmt.Sprintf("%s: expected %08x, got %08x", riscv.RegisterName(uint8(i)), p.expected[i], got[i]))
		}
	}
	require.Empty(t, diff, "program %s ended with unexpected registers:\n%s", p.Name, strings.Join(diff, "\n"))
}
