package sim

import (
	"fmt"
	"strings"

	"github.com/rvsim/rvsim/rvgo/riscv"
)

// Imm builds an immediate operand for encoding, only its value is used.
func Imm(v int32) Immediate {
	return Immediate{Value: v}
}

func checkReg(name string, r uint8) error {
	if r >= riscv.RegisterCount {
		return fmt.Errorf("%s register x%d out of range", name, r)
	}
	return nil
}

func checkRange(what string, v, lo, hi int32) error {
	if v < lo || v > hi {
		return fmt.Errorf("%s %d out of range [%d, %d]", what, v, lo, hi)
	}
	return nil
}

// Encode assembles one instruction word from a mnemonic and its operands.
// Immediates are given as values: byte offsets for branches, halfwords for JAL,
// and the upper 20 bits for LUI and AUIPC.
func Encode(mnemonic string, ops Operands) (uint32, error) {
	d, ok := rv32i.Mnemonic(strings.ToUpper(mnemonic))
	if !ok {
		return 0, fmt.Errorf("unknown mnemonic %q", mnemonic)
	}
	if ops == nil {
		ops = NoOperands{}
	}
	// FENCE takes no operands in assembly
	if _, none := ops.(NoOperands); none && d.Format == FormatI {
		ops = IType{}
	}
	if ops.Format() != d.Format {
		return 0, fmt.Errorf("%s takes %s format operands, got %s", d.Mnemonic, d.Format, ops.Format())
	}
	w, err := d.encode(ops)
	if err != nil {
		return 0, fmt.Errorf("cannot encode %s: %w", d.Mnemonic, err)
	}
	return w, nil
}

// MustEncode is Encode for hand-written programs, it panics on invalid operands.
func MustEncode(mnemonic string, ops Operands) uint32 {
	w, err := Encode(mnemonic, ops)
	if err != nil {
		panic(err)
	}
	return w
}

func (d *Descriptor) encode(ops Operands) (uint32, error) {
	switch op := ops.(type) {
	case RType:
		for _, r := range []struct {
			name string
			r    uint8
		}{{"rd", op.Rd}, {"rs1", op.Rs1}, {"rs2", op.Rs2}} {
			if err := checkReg(r.name, r.r); err != nil {
				return 0, err
			}
		}
		return d.Funct7<<25 | uint32(op.Rs2)<<20 | uint32(op.Rs1)<<15 | d.Funct3<<12 | uint32(op.Rd)<<7 | d.Opcode, nil
	case IType:
		if err := checkReg("rd", op.Rd); err != nil {
			return 0, err
		}
		if err := checkReg("rs1", op.Rs1); err != nil {
			return 0, err
		}
		var field uint32
		if d.shamt {
			if err := checkRange("shift amount", op.Imm.Value, 0, 31); err != nil {
				return 0, err
			}
			field = d.Funct7<<5 | uint32(op.Imm.Value)
		} else {
			// unsigned 12-bit patterns are accepted too, e.g. 0xfff for a mask
			if err := checkRange("immediate", op.Imm.Value, -1<<11, 1<<12-1); err != nil {
				return 0, err
			}
			field = uint32(op.Imm.Value) & Mask(0, 11)
		}
		return field<<20 | uint32(op.Rs1)<<15 | d.Funct3<<12 | uint32(op.Rd)<<7 | d.Opcode, nil
	case SType:
		if err := checkReg("rs1", op.Rs1); err != nil {
			return 0, err
		}
		if err := checkReg("rs2", op.Rs2); err != nil {
			return 0, err
		}
		if err := checkRange("offset", op.Imm.Value, -1<<11, 1<<11-1); err != nil {
			return 0, err
		}
		v := uint32(op.Imm.Value)
		return Bits(v, 5, 11)<<25 | uint32(op.Rs2)<<20 | uint32(op.Rs1)<<15 | d.Funct3<<12 | Bits(v, 0, 4)<<7 | d.Opcode, nil
	case BType:
		if err := checkReg("rs1", op.Rs1); err != nil {
			return 0, err
		}
		if err := checkReg("rs2", op.Rs2); err != nil {
			return 0, err
		}
		if err := checkRange("branch offset", op.Imm.Value, -1<<12, 1<<12-2); err != nil {
			return 0, err
		}
		if op.Imm.Value&1 != 0 {
			return 0, fmt.Errorf("branch offset %d is odd", op.Imm.Value)
		}
		v := uint32(op.Imm.Value)
		return Bits(v, 12, 12)<<31 | Bits(v, 5, 10)<<25 | uint32(op.Rs2)<<20 | uint32(op.Rs1)<<15 |
			d.Funct3<<12 | Bits(v, 1, 4)<<8 | Bits(v, 11, 11)<<7 | d.Opcode, nil
	case UType:
		if err := checkReg("rd", op.Rd); err != nil {
			return 0, err
		}
		if err := checkRange("upper immediate", op.Imm.Value, -1<<19, 1<<20-1); err != nil {
			return 0, err
		}
		return (uint32(op.Imm.Value)&Mask(0, 19))<<12 | uint32(op.Rd)<<7 | d.Opcode, nil
	case JType:
		if err := checkReg("rd", op.Rd); err != nil {
			return 0, err
		}
		if err := checkRange("jump offset in halfwords", op.Imm.Value, -1<<19, 1<<19-1); err != nil {
			return 0, err
		}
		v := uint32(op.Imm.Value)
		return Bits(v, 19, 19)<<31 | Bits(v, 0, 9)<<21 | Bits(v, 10, 10)<<20 | Bits(v, 11, 18)<<12 |
			uint32(op.Rd)<<7 | d.Opcode, nil
	case NoOperands:
		return d.Word, nil
	default:
		return 0, fmt.Errorf("unsupported operands %T", ops)
	}
}
