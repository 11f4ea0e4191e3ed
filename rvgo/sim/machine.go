package sim

import (
	"context"
	"fmt"
	"io"

	"github.com/rvsim/rvsim/rvgo/riscv"
)

// ctxCheckInterval is how many steps Run takes between context checks.
const ctxCheckInterval = 1024

type Options struct {
	// MemorySize in bytes, DefaultMemorySize when zero.
	MemorySize uint64
	// MaxSteps bounds Run, zero is unbounded.
	MaxSteps uint64
	// StrictSyscalls halts on unknown environment calls instead of ignoring them.
	StrictSyscalls bool
	// Stdout receives the program's console output, discarded when nil.
	Stdout io.Writer
	Tracer Tracer
}

func (o Options) memorySize() uint64 {
	if o.MemorySize == 0 {
		return riscv.DefaultMemorySize
	}
	return o.MemorySize
}

// Machine runs RV32I instructions against a State. It owns the state for the duration of the run.
type Machine struct {
	state *State
	table *DispatchTable

	stdout         io.Writer
	tracer         Tracer
	maxSteps       uint64
	strictSyscalls bool

	ignoredSyscalls uint64

	// word being executed
	word uint32
}

func NewMachine(state *State, opts Options) *Machine {
	stdout := opts.Stdout
	if stdout == nil {
		stdout = io.Discard
	}
	return &Machine{
		state:          state,
		table:          rv32i,
		stdout:         stdout,
		tracer:         opts.Tracer,
		maxSteps:       opts.MaxSteps,
		strictSyscalls: opts.StrictSyscalls,
	}
}

// NewProgramMachine loads a flat program image at address 0 into fresh memory sized by opts.
func NewProgramMachine(image []byte, opts Options) (*Machine, error) {
	state, err := LoadProgram(image, opts.memorySize())
	if err != nil {
		return nil, err
	}
	return NewMachine(state, opts), nil
}

func (m *Machine) State() *State {
	return m.state
}

// Step runs a single fetch cycle. Machine faults halt the state and are not errors:
// errors are only returned when the host fails, e.g. writing program output.
func (m *Machine) Step() (outErr error) {
	s := m.state
	if s.Halted() {
		return nil
	}
	pc := s.PC
	defer func() {
		if err := recover(); err != nil {
			outErr = fmt.Errorf("step %d at pc %08x: %v", s.Step, pc, err)
		}
	}()

	word, err := s.Memory.Word(pc)
	if err != nil {
		// only reachable from a loaded state, the loop never leaves PC out of bounds
		s.halt(TrapPCOutOfBounds)
		m.onHalt()
		return nil
	}
	m.word = word
	if m.tracer != nil {
		m.tracer.OnFetch(s.Step, pc, word)
	}

	ins, err := m.table.Decode(word)
	if err != nil {
		s.Fault = s.newFault(pc, word, err.Error())
		s.halt(TrapIllegalInstruction)
		s.Step++
		m.onHalt()
		return nil
	}
	var pre *Snapshot
	if m.tracer != nil {
		m.tracer.OnDecode(s.Step, pc, &ins)
		snap := s.Snapshot()
		pre = &snap
	}

	ins.desc.Exec(m, ins.Operands)
	s.Registers[riscv.RegZero] = 0

	if !s.Halted() {
		if !ins.SetsPC() {
			s.PC += riscv.InstructionSize
		}
		if !s.Memory.InBounds(s.PC, riscv.InstructionSize) {
			s.halt(TrapPCOutOfBounds)
		}
	}

	if m.tracer != nil {
		m.tracer.OnExecute(s.Step, pc, &ins, pre, s)
	}
	s.Step++
	if s.Halted() {
		m.onHalt()
	}
	return nil
}

func (m *Machine) onHalt() {
	if m.tracer != nil {
		m.tracer.OnHalt(m.state)
	}
}

// Result is what a finished run hands to its caller for persisting.
type Result struct {
	Trap      TrapLevel
	Cause     string
	Registers Snapshot
	ExitCode  int32
	Steps     uint64
	PC        uint32
	Fault     *Fault

	// IgnoredSyscalls counts environment calls with an unknown service number.
	IgnoredSyscalls uint64
}

func (m *Machine) Result() *Result {
	s := m.state
	return &Result{
		Trap:            s.Trap,
		Cause:           s.Cause(),
		Registers:       s.Snapshot(),
		ExitCode:        s.ExitCode,
		Steps:           s.Step,
		PC:              s.PC,
		Fault:           s.Fault,
		IgnoredSyscalls: m.ignoredSyscalls,
	}
}

// Run steps the machine until it halts. The result is returned on errors too,
// describing the state reached at that point.
func (m *Machine) Run(ctx context.Context) (*Result, error) {
	s := m.state
	for i := uint64(0); !s.Halted(); i++ {
		if i%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return m.Result(), err
			}
		}
		if m.maxSteps != 0 && s.Step >= m.maxSteps {
			return m.Result(), ErrStepLimit
		}
		if err := m.Step(); err != nil {
			return m.Result(), err
		}
	}
	return m.Result(), nil
}

// Run executes a flat program image to completion with the given options.
func Run(ctx context.Context, image []byte, opts Options) (*Result, error) {
	m, err := NewProgramMachine(image, opts)
	if err != nil {
		return nil, err
	}
	return m.Run(ctx)
}
