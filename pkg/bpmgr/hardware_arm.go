package bpmgr

// HardwareARMBreakpointManager is the ARM hardware breakpoint/watchpoint
// manager shell. Concrete slot-count discovery (e.g. via
// PTRACE_GETHBPREGS on Linux) and the install logic itself are left as
// an extension point for a per-kernel subclass; this shell only answers
// "how many slots does this core have" once told, and returns
// Unsupported for every mutating operation. Grounded on ds2's
// Architecture/ARM/HardwareBreakpointManager shell.
type HardwareARMBreakpointManager struct {
	Manager
	maxBreakpoints    int
	maxWatchpoints    int
	maxWatchpointSize int
}

// NewHardwareARMBreakpointManager returns an ARM hardware manager shell.
// maxBreakpoints/maxWatchpoints/maxWatchpointSize should be populated by
// the caller after querying the kernel for this core's debug register
// layout; a concrete subclass performs the actual install.
func NewHardwareARMBreakpointManager(process TracedProcess, maxBreakpoints, maxWatchpoints, maxWatchpointSize int) *HardwareARMBreakpointManager {
	m := &HardwareARMBreakpointManager{
		maxBreakpoints:    maxBreakpoints,
		maxWatchpoints:    maxWatchpoints,
		maxWatchpointSize: maxWatchpointSize,
	}
	m.Manager = newManager(process, m)
	return m
}

func (m *HardwareARMBreakpointManager) isValid(address Address, size Size, mode Mode) error {
	return errf(Unsupported, "ARM hardware breakpoints are not implemented by this core")
}

// Add always fails: concrete ARM install logic lives in a subclass
// extension point outside this core (spec.md §4.5).
func (m *HardwareARMBreakpointManager) Add(address Address, typ Type, size Size, mode Mode) error {
	return errf(Unsupported, "ARM hardware breakpoints are not implemented by this core")
}

func (m *HardwareARMBreakpointManager) enableLocation(site Site) error {
	return errf(Unsupported, "ARM hardware breakpoints are not implemented by this core")
}

func (m *HardwareARMBreakpointManager) disableLocation(site Site) error {
	return errf(Unsupported, "ARM hardware breakpoints are not implemented by this core")
}

// Hit always returns -1: no ARM install path exists at this layer, so
// nothing can ever have been hit.
func (m *HardwareARMBreakpointManager) Hit(thread TracedThread, outSite *Site) int {
	return -1
}

// MaxWatchpoints returns the slot count discovered by the caller at
// construction time.
func (m *HardwareARMBreakpointManager) MaxWatchpoints() int {
	return m.maxWatchpoints
}
