package sim

import "fmt"

// TrapLevel classifies why a machine stopped. Zero means it is still running,
// every other level is terminal.
type TrapLevel uint8

const (
	TrapNone TrapLevel = iota
	TrapPCOutOfBounds
	TrapExit
	TrapExitCode
	TrapIllegalInstruction
	TrapMemoryAccess
)

func (t TrapLevel) String() string {
	switch t {
	case TrapNone:
		return "running"
	case TrapPCOutOfBounds:
		return "pc-out-of-bounds"
	case TrapExit:
		return "exit"
	case TrapExitCode:
		return "exit-code"
	case TrapIllegalInstruction:
		return "illegal-instruction"
	case TrapMemoryAccess:
		return "memory-access"
	default:
		return fmt.Sprintf("TrapLevel(%d)", uint8(t))
	}
}

// Cause is the human-readable halt reason of the state, keyed by its trap level.
func (state *State) Cause() string {
	switch state.Trap {
	case TrapNone:
		return "running"
	case TrapPCOutOfBounds:
		return "PC out of bounds"
	case TrapExit:
		return "program exited successfully"
	case TrapExitCode:
		return fmt.Sprintf("program exited with return code %d", state.ExitCode)
	case TrapIllegalInstruction:
		if state.Fault != nil {
			return fmt.Sprintf("illegal instruction 0x%08x at pc 0x%08x", state.Fault.Word, state.Fault.PC)
		}
		return "illegal instruction"
	case TrapMemoryAccess:
		return "memory access out of bounds"
	default:
		return state.Trap.String()
	}
}
