package sim

import (
	"bytes"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/rvsim/rvsim/rvgo/riscv"
)

// faultWindow is how many bytes either side of the faulting PC are captured.
const faultWindow = 32

// Fault describes the instruction that halted the machine with a trap level of 4 or 5.
type Fault struct {
	PC   uint32 `json:"pc"`
	Word uint32 `json:"word"`

	// memory accesses only
	Addr  uint32 `json:"addr,omitempty"`
	Size  uint8  `json:"size,omitempty"`
	Write bool   `json:"write,omitempty"`

	WindowStart uint32        `json:"windowStart"`
	Window      hexutil.Bytes `json:"window"`

	Reason string `json:"reason"`
}

// State is the complete architectural state of one simulation run.
type State struct {
	Memory *Memory `json:"memory"`

	Registers [riscv.RegisterCount]uint32 `json:"registers"`

	PC uint32 `json:"pc"`

	Trap     TrapLevel `json:"trap"`
	ExitCode int32     `json:"exit"`

	Step uint64 `json:"step"`

	Fault *Fault `json:"fault,omitempty"`
}

// NewState creates a zeroed machine of memSize bytes with no program loaded.
func NewState(memSize uint64) (*State, error) {
	mem, err := NewMemory(memSize)
	if err != nil {
		return nil, err
	}
	return &State{Memory: mem}, nil
}

// LoadProgram creates a state with the flat program image copied to address 0.
func LoadProgram(image []byte, memSize uint64) (*State, error) {
	state, err := NewState(memSize)
	if err != nil {
		return nil, err
	}
	if err := state.Memory.SetMemoryRange(0, bytes.NewReader(image)); err != nil {
		return nil, fmt.Errorf("failed to load program image: %w", err)
	}
	return state, nil
}

func LoadProgramFile(path string, memSize uint64) (*State, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open program image %q: %w", path, err)
	}
	defer f.Close()
	state, err := NewState(memSize)
	if err != nil {
		return nil, err
	}
	if err := state.Memory.SetMemoryRange(0, f); err != nil {
		return nil, fmt.Errorf("failed to load program image %q: %w", path, err)
	}
	return state, nil
}

// Validate checks a state restored from a snapshot before it is run.
func (state *State) Validate() error {
	if state.Memory == nil {
		return fmt.Errorf("state has no memory")
	}
	if state.Trap > TrapMemoryAccess {
		return fmt.Errorf("unknown trap level %d", state.Trap)
	}
	return nil
}

func (state *State) Reg(i uint8) uint32 {
	return state.Registers[i]
}

// SetReg writes register i. Writes to x0 land, but the run loop clears x0 after every step.
func (state *State) SetReg(i uint8, v uint32) {
	state.Registers[i] = v
}

func (state *State) Halted() bool {
	return state.Trap != TrapNone
}

func (state *State) Snapshot() Snapshot {
	return Snapshot(state.Registers)
}

// Instr reads the word at PC, zero-padded when PC is out of bounds.
func (state *State) Instr() uint32 {
	var out [4]byte
	state.Memory.GetRange(state.PC, out[:])
	return uint32(out[0]) | uint32(out[1])<<8 | uint32(out[2])<<16 | uint32(out[3])<<24
}

func (state *State) halt(trap TrapLevel) {
	state.Trap = trap
}

// newFault captures the faulting instruction and the memory around it.
func (state *State) newFault(pc, word uint32, reason string) *Fault {
	start := uint32(0)
	if pc > faultWindow {
		start = pc - faultWindow
	}
	end := uint64(pc) + faultWindow
	if end > state.Memory.Size() {
		end = state.Memory.Size()
	}
	var window []byte
	if end > uint64(start) {
		window = make([]byte, end-uint64(start))
		window = window[:state.Memory.GetRange(start, window)]
	}
	return &Fault{
		PC:          pc,
		Word:        word,
		WindowStart: start,
		Window:      window,
		Reason:      reason,
	}
}
