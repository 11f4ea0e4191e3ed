package sim

import (
	"fmt"

	"github.com/rvsim/rvsim/rvgo/riscv"
)

// Handler applies one instruction's effect to the machine.
type Handler func(m *Machine, ops Operands)

// Descriptor is the immutable description of one mnemonic, registered once in the dispatch table.
type Descriptor struct {
	Mnemonic string
	Format   Format
	Exec     Handler
	// SetsPC is true for the jumps and branches, which write PC themselves.
	SetsPC bool

	// encoding selectors, also used by the encoder
	Opcode uint32
	Funct3 uint32
	Funct7 uint32
	Word   uint32 // FormatOther only

	shamt bool
}

type namespace uint8

const (
	nsFull   namespace = iota // funct7 + funct3 + opcode
	nsMedium                  // funct3 + opcode
	nsCoarse                  // opcode
	nsExact                   // whole word
	namespaceCount
)

func fullKey(opcode, funct3, funct7 uint32) uint32 {
	return funct7<<10 | funct3<<7 | opcode
}

func mediumKey(opcode, funct3 uint32) uint32 {
	return funct3<<7 | opcode
}

// DispatchTable maps instruction words to descriptors through four disjoint key namespaces,
// queried from most to least specific.
type DispatchTable struct {
	namespaces [namespaceCount]map[uint32]*Descriptor
	mnemonics  map[string]*Descriptor
}

func (t *DispatchTable) Lookup(word uint32) (*Descriptor, bool) {
	f := ParseFields(word)
	if d, ok := t.namespaces[nsFull][fullKey(f.Opcode, f.Funct3, f.Funct7)]; ok {
		return d, true
	}
	if d, ok := t.namespaces[nsMedium][mediumKey(f.Opcode, f.Funct3)]; ok {
		return d, true
	}
	if d, ok := t.namespaces[nsCoarse][f.Opcode]; ok {
		return d, true
	}
	d, ok := t.namespaces[nsExact][word]
	return d, ok
}

// Mnemonic looks up a descriptor by its upper-case mnemonic.
func (t *DispatchTable) Mnemonic(name string) (*Descriptor, bool) {
	d, ok := t.mnemonics[name]
	return d, ok
}

// Len returns the number of registered instructions.
func (t *DispatchTable) Len() int {
	return len(t.mnemonics)
}

func (t *DispatchTable) register(ns namespace, key uint32, d *Descriptor) {
	if prev, ok := t.namespaces[ns][key]; ok {
		panic(fmt.Errorf("dispatch key %#x of %s already taken by %s", key, d.Mnemonic, prev.Mnemonic))
	}
	if _, ok := t.mnemonics[d.Mnemonic]; ok {
		panic(fmt.Errorf("mnemonic %s registered twice", d.Mnemonic))
	}
	t.namespaces[ns][key] = d
	t.mnemonics[d.Mnemonic] = d
}

func (t *DispatchTable) byOpcode(d *Descriptor, opcode uint32) {
	d.Opcode = opcode
	t.register(nsCoarse, opcode, d)
}

func (t *DispatchTable) byFunct3(d *Descriptor, opcode, funct3 uint32) {
	d.Opcode, d.Funct3 = opcode, funct3
	t.register(nsMedium, mediumKey(opcode, funct3), d)
}

func (t *DispatchTable) byFunct7(d *Descriptor, opcode, funct3, funct7 uint32) {
	d.Opcode, d.Funct3, d.Funct7 = opcode, funct3, funct7
	// the only I-format instructions selected by funct7 are the shifts, whose immediate is a shift amount
	d.shamt = d.Format == FormatI
	t.register(nsFull, fullKey(opcode, funct3, funct7), d)
}

func (t *DispatchTable) byWord(d *Descriptor, word uint32) {
	d.Word = word
	f := ParseFields(word)
	d.Opcode, d.Funct3, d.Funct7 = f.Opcode, f.Funct3, f.Funct7
	t.register(nsExact, word, d)
}

// def binds a handler typed on its operand format to a mnemonic.
// The operand assertion cannot fail: the decoder builds operands from the same descriptor.
func def[T Operands](mnemonic string, fn func(m *Machine, op T)) *Descriptor {
	var zero T
	return &Descriptor{
		Mnemonic: mnemonic,
		Format:   zero.Format(),
		Exec: func(m *Machine, ops Operands) {
			fn(m, ops.(T))
		},
	}
}

func jump[T Operands](mnemonic string, fn func(m *Machine, op T)) *Descriptor {
	d := def(mnemonic, fn)
	d.SetsPC = true
	return d
}

func newRV32ITable() *DispatchTable {
	t := &DispatchTable{mnemonics: make(map[string]*Descriptor)}
	for i := range t.namespaces {
		t.namespaces[i] = make(map[uint32]*Descriptor)
	}

	// U and UJ formats are unique by opcode
	t.byOpcode(def("LUI", execLUI), riscv.OpLUI)
	t.byOpcode(def("AUIPC", execAUIPC), riscv.OpAUIPC)
	t.byOpcode(jump("JAL", execJAL), riscv.OpJAL)

	t.byFunct3(jump("JALR", execJALR), riscv.OpJALR, 0)

	t.byFunct3(jump("BEQ", execBEQ), riscv.OpBranch, 0)
	t.byFunct3(jump("BNE", execBNE), riscv.OpBranch, 1)
	t.byFunct3(jump("BLT", execBLT), riscv.OpBranch, 4)
	t.byFunct3(jump("BGE", execBGE), riscv.OpBranch, 5)
	t.byFunct3(jump("BLTU", execBLTU), riscv.OpBranch, 6)
	t.byFunct3(jump("BGEU", execBGEU), riscv.OpBranch, 7)

	t.byFunct3(def("LB", execLB), riscv.OpLoad, 0)
	t.byFunct3(def("LH", execLH), riscv.OpLoad, 1)
	t.byFunct3(def("LW", execLW), riscv.OpLoad, 2)
	t.byFunct3(def("LBU", execLBU), riscv.OpLoad, 4)
	t.byFunct3(def("LHU", execLHU), riscv.OpLoad, 5)

	t.byFunct3(def("SB", execSB), riscv.OpStore, 0)
	t.byFunct3(def("SH", execSH), riscv.OpStore, 1)
	t.byFunct3(def("SW", execSW), riscv.OpStore, 2)

	t.byFunct3(def("ADDI", execADDI), riscv.OpImm, 0)
	t.byFunct3(def("SLTI", execSLTI), riscv.OpImm, 2)
	t.byFunct3(def("SLTIU", execSLTIU), riscv.OpImm, 3)
	t.byFunct3(def("XORI", execXORI), riscv.OpImm, 4)
	t.byFunct3(def("ORI", execORI), riscv.OpImm, 6)
	t.byFunct3(def("ANDI", execANDI), riscv.OpImm, 7)

	t.byFunct3(def("FENCE", execNOP[IType]), riscv.OpMiscMem, 0)

	t.byFunct7(def("SLLI", execSLLI), riscv.OpImm, 1, riscv.Funct7Base)
	t.byFunct7(def("SRLI", execSRLI), riscv.OpImm, 5, riscv.Funct7Base)
	t.byFunct7(def("SRAI", execSRAI), riscv.OpImm, 5, riscv.Funct7Alt)

	t.byFunct7(def("ADD", execADD), riscv.OpReg, 0, riscv.Funct7Base)
	t.byFunct7(def("SUB", execSUB), riscv.OpReg, 0, riscv.Funct7Alt)
	t.byFunct7(def("SLL", execSLL), riscv.OpReg, 1, riscv.Funct7Base)
	t.byFunct7(def("SLT", execSLT), riscv.OpReg, 2, riscv.Funct7Base)
	t.byFunct7(def("SLTU", execSLTU), riscv.OpReg, 3, riscv.Funct7Base)
	t.byFunct7(def("XOR", execXOR), riscv.OpReg, 4, riscv.Funct7Base)
	t.byFunct7(def("SRL", execSRL), riscv.OpReg, 5, riscv.Funct7Base)
	t.byFunct7(def("SRA", execSRA), riscv.OpReg, 5, riscv.Funct7Alt)
	t.byFunct7(def("OR", execOR), riscv.OpReg, 6, riscv.Funct7Base)
	t.byFunct7(def("AND", execAND), riscv.OpReg, 7, riscv.Funct7Base)

	t.byWord(def("FENCE.I", execNOP[NoOperands]), riscv.WordFENCEI)
	t.byWord(def("ECALL", execECALL), riscv.WordECALL)
	t.byWord(def("EBREAK", execNOP[NoOperands]), riscv.WordEBREAK)

	return t
}

var rv32i = newRV32ITable()

// RV32I returns the dispatch table of the base integer instruction set.
func RV32I() *DispatchTable {
	return rv32i
}
