package sim

import (
	"fmt"
	"strings"

	"github.com/rvsim/rvsim/rvgo/riscv"
)

func reg(i uint8) string {
	return riscv.RegisterName(i)
}

// String renders the instruction in assembler syntax with ABI register names.
// Branch and jump targets are printed as byte offsets relative to the instruction.
func (ins Instruction) String() string {
	name := strings.ToLower(ins.Mnemonic)
	switch op := ins.Operands.(type) {
	case RType:
		return fmt.Sprintf("%s %s, %s, %s", name, reg(op.Rd), reg(op.Rs1), reg(op.Rs2))
	case IType:
		switch ins.desc.Opcode {
		case riscv.OpLoad, riscv.OpJALR:
			return fmt.Sprintf("%s %s, %d(%s)", name, reg(op.Rd), op.Imm.Value, reg(op.Rs1))
		case riscv.OpMiscMem:
			return name
		}
		return fmt.Sprintf("%s %s, %s, %d", name, reg(op.Rd), reg(op.Rs1), op.Imm.Value)
	case SType:
		return fmt.Sprintf("%s %s, %d(%s)", name, reg(op.Rs2), op.Imm.Value, reg(op.Rs1))
	case BType:
		return fmt.Sprintf("%s %s, %s, %d", name, reg(op.Rs1), reg(op.Rs2), op.Imm.Value)
	case UType:
		return fmt.Sprintf("%s %s, 0x%x", name, reg(op.Rd), op.Imm.Raw)
	case JType:
		return fmt.Sprintf("%s %s, %d", name, reg(op.Rd), int64(op.Imm.Value)*2)
	default:
		return name
	}
}

// Disassemble decodes word, falling back to a data directive for undecodable words.
func Disassemble(word uint32) string {
	ins, err := Decode(word)
	if err != nil {
		return fmt.Sprintf(".word 0x%08x", word)
	}
	return ins.String()
}
