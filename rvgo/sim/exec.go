package sim

import (
	"errors"
	"fmt"

	"github.com/rvsim/rvsim/rvgo/riscv"
)

// Register arithmetic is done on uint32 bit patterns, which wrap silently.
// Signed views are taken explicitly with int32 where an operation needs them.

func (m *Machine) reg(i uint8) uint32 {
	return m.state.Registers[i]
}

func (m *Machine) setReg(i uint8, v uint32) {
	m.state.Registers[i] = v
}

func imm(i Immediate) uint32 {
	return uint32(i.Value)
}

func shamt(v uint32) uint32 {
	return v & 0x1F
}

func b2u(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

// R format

func execADD(m *Machine, op RType)  { m.setReg(op.Rd, m.reg(op.Rs1)+m.reg(op.Rs2)) }
func execSUB(m *Machine, op RType)  { m.setReg(op.Rd, m.reg(op.Rs1)-m.reg(op.Rs2)) }
func execSLL(m *Machine, op RType)  { m.setReg(op.Rd, m.reg(op.Rs1)<<shamt(m.reg(op.Rs2))) }
func execSRL(m *Machine, op RType)  { m.setReg(op.Rd, m.reg(op.Rs1)>>shamt(m.reg(op.Rs2))) }
func execSRA(m *Machine, op RType)  { m.setReg(op.Rd, uint32(int32(m.reg(op.Rs1))>>shamt(m.reg(op.Rs2)))) }
func execXOR(m *Machine, op RType)  { m.setReg(op.Rd, m.reg(op.Rs1)^m.reg(op.Rs2)) }
func execOR(m *Machine, op RType)   { m.setReg(op.Rd, m.reg(op.Rs1)|m.reg(op.Rs2)) }
func execAND(m *Machine, op RType)  { m.setReg(op.Rd, m.reg(op.Rs1)&m.reg(op.Rs2)) }
func execSLT(m *Machine, op RType)  { m.setReg(op.Rd, b2u(int32(m.reg(op.Rs1)) < int32(m.reg(op.Rs2)))) }
func execSLTU(m *Machine, op RType) { m.setReg(op.Rd, b2u(m.reg(op.Rs1) < m.reg(op.Rs2))) }

// I format arithmetic

func execADDI(m *Machine, op IType)  { m.setReg(op.Rd, m.reg(op.Rs1)+imm(op.Imm)) }
func execXORI(m *Machine, op IType)  { m.setReg(op.Rd, m.reg(op.Rs1)^imm(op.Imm)) }
func execORI(m *Machine, op IType)   { m.setReg(op.Rd, m.reg(op.Rs1)|imm(op.Imm)) }
func execANDI(m *Machine, op IType)  { m.setReg(op.Rd, m.reg(op.Rs1)&imm(op.Imm)) }
func execSLTI(m *Machine, op IType)  { m.setReg(op.Rd, b2u(int32(m.reg(op.Rs1)) < op.Imm.Value)) }
func execSLTIU(m *Machine, op IType) { m.setReg(op.Rd, b2u(m.reg(op.Rs1) < imm(op.Imm))) }

// shift immediates are decoded to their low 5 bits already
func execSLLI(m *Machine, op IType) { m.setReg(op.Rd, m.reg(op.Rs1)<<shamt(op.Imm.Raw)) }
func execSRLI(m *Machine, op IType) { m.setReg(op.Rd, m.reg(op.Rs1)>>shamt(op.Imm.Raw)) }
func execSRAI(m *Machine, op IType) {
	m.setReg(op.Rd, uint32(int32(m.reg(op.Rs1))>>shamt(op.Imm.Raw)))
}

// upper immediates

func execLUI(m *Machine, op UType) { m.setReg(op.Rd, op.Imm.Raw<<12) }
func execAUIPC(m *Machine, op UType) {
	m.setReg(op.Rd, m.state.PC+op.Imm.Raw<<12)
}

// jumps

func execJAL(m *Machine, op JType) {
	pc := m.state.PC
	// the UJ immediate counts halfwords
	m.state.PC = pc + uint32(op.Imm.Value)*2
	m.setReg(op.Rd, pc+riscv.InstructionSize)
}

func execJALR(m *Machine, op IType) {
	pc := m.state.PC
	target := (m.reg(op.Rs1) + imm(op.Imm)) &^ 1
	m.setReg(op.Rd, pc+riscv.InstructionSize)
	m.state.PC = target
}

// branches

func (m *Machine) branch(op BType, taken bool) {
	if taken {
		m.state.PC += imm(op.Imm)
	} else {
		m.state.PC += riscv.InstructionSize
	}
}

func execBEQ(m *Machine, op BType) { m.branch(op, m.reg(op.Rs1) == m.reg(op.Rs2)) }
func execBNE(m *Machine, op BType) { m.branch(op, m.reg(op.Rs1) != m.reg(op.Rs2)) }
func execBLT(m *Machine, op BType) {
	m.branch(op, int32(m.reg(op.Rs1)) < int32(m.reg(op.Rs2)))
}
func execBGE(m *Machine, op BType) {
	m.branch(op, int32(m.reg(op.Rs1)) >= int32(m.reg(op.Rs2)))
}
func execBLTU(m *Machine, op BType) { m.branch(op, m.reg(op.Rs1) < m.reg(op.Rs2)) }
func execBGEU(m *Machine, op BType) { m.branch(op, m.reg(op.Rs1) >= m.reg(op.Rs2)) }

// loads and stores

// memFault halts with a memory access trap, recording the access that failed.
func (m *Machine) memFault(err error) {
	var accessErr *MemoryAccessErr
	if !errors.As(err, &accessErr) {
		panic(fmt.Errorf("unexpected memory error: %w", err))
	}
	s := m.state
	f := s.newFault(s.PC, m.word, err.Error())
	f.Addr, f.Size, f.Write = accessErr.Addr, accessErr.Size, accessErr.Write
	s.Fault = f
	s.halt(TrapMemoryAccess)
}

func (m *Machine) load(op IType, size uint8, signed bool) {
	addr := m.reg(op.Rs1) + imm(op.Imm)
	v, err := m.state.Memory.Load(addr, size)
	if err != nil {
		m.memFault(err)
		return
	}
	if signed {
		v = uint32(SignExtend(v, uint(size)*8))
	}
	m.setReg(op.Rd, v)
}

func execLB(m *Machine, op IType)  { m.load(op, 1, true) }
func execLH(m *Machine, op IType)  { m.load(op, 2, true) }
func execLW(m *Machine, op IType)  { m.load(op, 4, false) }
func execLBU(m *Machine, op IType) { m.load(op, 1, false) }
func execLHU(m *Machine, op IType) { m.load(op, 2, false) }

func (m *Machine) store(op SType, size uint8) {
	addr := m.reg(op.Rs1) + imm(op.Imm)
	if err := m.state.Memory.Store(addr, size, m.reg(op.Rs2)); err != nil {
		m.memFault(err)
	}
}

func execSB(m *Machine, op SType) { m.store(op, 1) }
func execSH(m *Machine, op SType) { m.store(op, 2) }
func execSW(m *Machine, op SType) { m.store(op, 4) }

// fences and breakpoints have nothing to do on a single in-order hart
func execNOP[T Operands](*Machine, T) {}

// environment calls

func (m *Machine) print(format string, args ...any) {
	if _, err := fmt.Fprintf(m.stdout, format, args...); err != nil {
		panic(fmt.Errorf("failed to write program output: %w", err))
	}
}

// readString reads the NUL-terminated string at addr.
func (m *Machine) readString(addr uint32) ([]byte, error) {
	var out []byte
	for {
		c, err := m.state.Memory.Load(addr, 1)
		if err != nil {
			return nil, err
		}
		if c == 0 {
			return out, nil
		}
		out = append(out, byte(c))
		addr++
	}
}

func execECALL(m *Machine, _ NoOperands) {
	s := m.state
	service := m.reg(riscv.RegA0)
	arg := m.reg(riscv.RegA1)
	handled := true
	switch service {
	case riscv.SysPrintInt:
		m.print("%d", int32(arg))
	case riscv.SysPrintString:
		str, err := m.readString(arg)
		if err != nil {
			m.memFault(err)
			break
		}
		m.print("%s", str)
	case riscv.SysSbrk:
		// memory is flat and pre-sized, nothing to allocate
	case riscv.SysExit:
		s.halt(TrapExit)
	case riscv.SysPrintChar:
		m.print("%c", rune(arg))
	case riscv.SysExitCode:
		s.ExitCode = int32(arg)
		s.halt(TrapExitCode)
	default:
		handled = false
		if m.strictSyscalls {
			s.Fault = s.newFault(s.PC, m.word, (&UnsupportedSyscallErr{Service: service}).Error())
			s.halt(TrapIllegalInstruction)
		} else {
			m.ignoredSyscalls++
		}
	}
	if m.tracer != nil {
		m.tracer.OnSyscall(s.Step, service, handled)
	}
}
