package sim

// Tracer observes the machine at fixed points of each cycle.
// Hooks must not mutate the state they are handed.
type Tracer interface {
	OnFetch(step uint64, pc uint32, word uint32)
	OnDecode(step uint64, pc uint32, ins *Instruction)
	// OnExecute runs after the PC update and bounds check, pre holds the registers before execution.
	OnExecute(step uint64, pc uint32, ins *Instruction, pre *Snapshot, post *State)
	// OnSyscall reports every environment call, handled is false for services the machine ignored.
	OnSyscall(step uint64, service uint32, handled bool)
	OnHalt(state *State)
}

// NoopTracer implements Tracer with empty hooks, for embedding.
type NoopTracer struct{}

var _ Tracer = NoopTracer{}

func (NoopTracer) OnFetch(uint64, uint32, uint32)                            {}
func (NoopTracer) OnDecode(uint64, uint32, *Instruction)                     {}
func (NoopTracer) OnExecute(uint64, uint32, *Instruction, *Snapshot, *State) {}
func (NoopTracer) OnSyscall(uint64, uint32, bool)                            {}
func (NoopTracer) OnHalt(*State)                                             {}
