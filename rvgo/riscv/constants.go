package riscv

// Base opcodes of the RV32I encodings (bits 0..6).
const (
	OpLoad    = 0x03 // 000_0011
	OpMiscMem = 0x0F // 000_1111
	OpImm     = 0x13 // 001_0011
	OpAUIPC   = 0x17 // 001_0111
	OpStore   = 0x23 // 010_0011
	OpReg     = 0x33 // 011_0011
	OpLUI     = 0x37 // 011_0111
	OpBranch  = 0x63 // 110_0011
	OpJALR    = 0x67 // 110_0111
	OpJAL     = 0x6F // 110_1111
	OpSystem  = 0x73 // 111_0011
)

// funct7 selectors
const (
	Funct7Base = 0x00
	Funct7Alt  = 0x20 // SUB, SRA, SRAI
)

// Zero-operand system encodings, matched against the full instruction word.
const (
	WordECALL  = 0x00000073
	WordEBREAK = 0x00100073
	WordFENCEI = 0x0000100F
)

// Environment call services, selected by register a0.
const (
	SysPrintInt    = 1
	SysPrintString = 4
	SysSbrk        = 9
	SysExit        = 10
	SysPrintChar   = 11
	SysExitCode    = 17
)

// Registers used by the environment call convention.
const (
	RegZero = 0
	RegRA   = 1
	RegSP   = 2
	RegA0   = 10
	RegA1   = 11
)

// RegisterCount is the size of the general register file.
const RegisterCount = 32

// InstructionSize is the byte width of every RV32I encoding.
const InstructionSize = 4

// DefaultMemorySize matches the memory layout used by the venus simulator.
const DefaultMemorySize = 0x80000000

var registerNames = [RegisterCount]string{
	"zero", "ra", "sp", "gp", "tp", "t0", "t1", "t2",
	"s0", "s1", "a0", "a1", "a2", "a3", "a4", "a5",
	"a6", "a7", "s2", "s3", "s4", "s5", "s6", "s7",
	"s8", "s9", "s10", "s11", "t3", "t4", "t5", "t6",
}

// RegisterName returns the ABI name of register x<i>.
func RegisterName(i uint8) string {
	if int(i) >= RegisterCount {
		return "x?"
	}
	return registerNames[i]
}
