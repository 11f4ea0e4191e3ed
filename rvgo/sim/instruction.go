package sim

import "fmt"

type Format uint8

const (
	FormatR Format = iota
	FormatI
	FormatS
	FormatSB
	FormatU
	FormatUJ
	FormatOther // zero-operand encodings matched on the full word
)

func (f Format) String() string {
	switch f {
	case FormatR:
		return "R"
	case FormatI:
		return "I"
	case FormatS:
		return "S"
	case FormatSB:
		return "SB"
	case FormatU:
		return "U"
	case FormatUJ:
		return "UJ"
	case FormatOther:
		return "other"
	default:
		return fmt.Sprintf("Format(%d)", uint8(f))
	}
}

// Immediate is a constant assembled from an instruction's encoding.
type Immediate struct {
	Raw   uint32 // assembled bits, before sign extension
	Value int32  // Raw sign-extended from Width bits; shift amounts stay unsigned
	Width uint8
}

func newImmediate(raw uint32, width uint) Immediate {
	return Immediate{Raw: raw, Value: SignExtend(raw, width), Width: uint8(width)}
}

// Operands holds the register and immediate fields of one instruction format.
// Each format has its own concrete type: RType, IType, SType, BType, UType, JType or NoOperands.
type Operands interface {
	Format() Format
}

type RType struct {
	Rd, Rs1, Rs2 uint8
}

type IType struct {
	Rd, Rs1 uint8
	Imm     Immediate
}

type SType struct {
	Rs1, Rs2 uint8
	Imm      Immediate
}

// BType is the SB format: Imm is the branch offset in bytes.
type BType struct {
	Rs1, Rs2 uint8
	Imm      Immediate
}

// UType carries the upper 20 bits, not yet shifted into place.
type UType struct {
	Rd  uint8
	Imm Immediate
}

// JType is the UJ format: Imm counts halfwords, the jump offset in bytes is twice its value.
type JType struct {
	Rd  uint8
	Imm Immediate
}

type NoOperands struct{}

func (RType) Format() Format      { return FormatR }
func (IType) Format() Format      { return FormatI }
func (SType) Format() Format      { return FormatS }
func (BType) Format() Format      { return FormatSB }
func (UType) Format() Format      { return FormatU }
func (JType) Format() Format      { return FormatUJ }
func (NoOperands) Format() Format { return FormatOther }

// Instruction is one decoded instruction word. It lives for a single fetch cycle.
type Instruction struct {
	Word     uint32
	Mnemonic string
	Operands Operands

	desc *Descriptor
}

func (ins Instruction) Format() Format {
	return ins.Operands.Format()
}

// SetsPC reports whether executing the instruction writes the program counter itself.
func (ins Instruction) SetsPC() bool {
	return ins.desc.SetsPC
}
