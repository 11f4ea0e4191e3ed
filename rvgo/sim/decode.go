package sim

// Fields are the selector fields shared by every 32-bit encoding.
type Fields struct {
	Opcode uint32
	Funct3 uint32
	Funct7 uint32
}

func ParseFields(word uint32) Fields {
	return Fields{
		Opcode: parseOpcode(word),
		Funct3: parseFunct3(word),
		Funct7: parseFunct7(word),
	}
}

func parseOpcode(word uint32) uint32 { return Bits(word, 0, 6) }
func parseRd(word uint32) uint8      { return uint8(Bits(word, 7, 11)) }
func parseFunct3(word uint32) uint32 { return Bits(word, 12, 14) }
func parseRs1(word uint32) uint8     { return uint8(Bits(word, 15, 19)) }
func parseRs2(word uint32) uint8     { return uint8(Bits(word, 20, 24)) }
func parseFunct7(word uint32) uint32 { return Bits(word, 25, 31) }

func parseImmTypeI(word uint32) uint32 {
	return Bits(word, 20, 31)
}

func parseImmTypeS(word uint32) uint32 {
	return Bits(word, 25, 31)<<5 | Bits(word, 7, 11)
}

// parseImmTypeB assembles the branch offset in bytes; bit 0 is always zero.
func parseImmTypeB(word uint32) uint32 {
	return Bits(word, 8, 11)<<1 | Bits(word, 25, 30)<<5 | Bits(word, 7, 7)<<11 | Bits(word, 31, 31)<<12
}

func parseImmTypeU(word uint32) uint32 {
	return Bits(word, 12, 31)
}

// parseImmTypeJ assembles the jump offset in halfwords, the implicit zero bit is not included.
func parseImmTypeJ(word uint32) uint32 {
	return Bits(word, 21, 30) | Bits(word, 20, 20)<<10 | Bits(word, 12, 19)<<11 | Bits(word, 31, 31)<<19
}

// Immediate widths, counted up to and including the sign bit of the assembled field.
const (
	immWidthI     = 12
	immWidthS     = 12
	immWidthB     = 13
	immWidthU     = 20
	immWidthJ     = 20
	immWidthShamt = 5
)

func (d *Descriptor) operands(word uint32) Operands {
	switch d.Format {
	case FormatR:
		return RType{Rd: parseRd(word), Rs1: parseRs1(word), Rs2: parseRs2(word)}
	case FormatI:
		imm := parseImmTypeI(word)
		if d.shamt {
			shamt := Bits(imm, 0, immWidthShamt-1)
			return IType{Rd: parseRd(word), Rs1: parseRs1(word), Imm: Immediate{Raw: shamt, Value: int32(shamt), Width: immWidthShamt}}
		}
		return IType{Rd: parseRd(word), Rs1: parseRs1(word), Imm: newImmediate(imm, immWidthI)}
	case FormatS:
		return SType{Rs1: parseRs1(word), Rs2: parseRs2(word), Imm: newImmediate(parseImmTypeS(word), immWidthS)}
	case FormatSB:
		return BType{Rs1: parseRs1(word), Rs2: parseRs2(word), Imm: newImmediate(parseImmTypeB(word), immWidthB)}
	case FormatU:
		return UType{Rd: parseRd(word), Imm: newImmediate(parseImmTypeU(word), immWidthU)}
	case FormatUJ:
		return JType{Rd: parseRd(word), Imm: newImmediate(parseImmTypeJ(word), immWidthJ)}
	default:
		return NoOperands{}
	}
}

// Decode resolves word against the RV32I dispatch table and extracts its operands.
func Decode(word uint32) (Instruction, error) {
	return rv32i.Decode(word)
}

func (t *DispatchTable) Decode(word uint32) (Instruction, error) {
	d, ok := t.Lookup(word)
	if !ok {
		return Instruction{}, &IllegalInstructionErr{Word: word}
	}
	return Instruction{
		Word:     word,
		Mnemonic: d.Mnemonic,
		Operands: d.operands(word),
		desc:     d,
	}, nil
}
