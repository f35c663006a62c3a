package bpmgr

// ThreadState is the subset of a traced thread's run state the core
// consumes. Only Stopped threads are ever touched by enableLocation /
// disableLocation.
type ThreadState int

const (
	Running ThreadState = iota
	Stopped
	Stepping
	Terminated
)

func (s ThreadState) String() string {
	switch s {
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	case Stepping:
		return "stepping"
	case Terminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// TracedProcess is the narrow contract the core needs from the process
// under debug. Attach/detach, syscall-trampoline injection, and
// memory-region discovery are owned by the caller; this interface
// exposes only what breakpoint installation needs.
type TracedProcess interface {
	// EnumerateThreads invokes cb for every thread currently known to
	// the process, in implementation-defined order.
	EnumerateThreads(cb func(TracedThread))
	// ReadMemory reads len(out) bytes from addr into out.
	ReadMemory(addr Address, out []byte) error
	// WriteMemory writes data to addr.
	WriteMemory(addr Address, data []byte) error
}

// TracedThread is the narrow contract the core needs from a single
// thread of the traced process.
type TracedThread interface {
	// State reports the thread's current run state.
	State() ThreadState
	// ReadDebugReg reads hardware debug register idx (0-3 address
	// registers, 6 status, 7 control on x86).
	ReadDebugReg(idx int) (uint64, error)
	// WriteDebugReg writes val to hardware debug register idx.
	WriteDebugReg(idx int, val uint64) error
	// PC returns the thread's current instruction pointer.
	PC() (Address, error)
	// SetPC rewinds/advances the thread's instruction pointer.
	SetPC(Address) error
}
