package bpmgr

// SoftwareBreakpointManager installs execution breakpoints by
// substituting the trap opcode for the target's original instruction
// byte(s) and restoring them on disable. Grounded on ds2's
// SoftwareBreakpointManager and the software-fallback path of
// proctl/breakpoints.go's setBreakpoint.
type SoftwareBreakpointManager struct {
	Manager
	originalBytes map[Address]byte
}

// NewSoftwareBreakpointManager returns a manager that installs
// execution-only breakpoints via instruction-byte substitution.
func NewSoftwareBreakpointManager(process TracedProcess) *SoftwareBreakpointManager {
	m := &SoftwareBreakpointManager{
		originalBytes: make(map[Address]byte),
	}
	m.Manager = newManager(process, m)
	return m
}

func (m *SoftwareBreakpointManager) isValid(address Address, size Size, mode Mode) error {
	if mode != Exec {
		return errf(InvalidArgument, "software breakpoints only support Exec mode, got %s", mode)
	}
	if size != x86TrapInsnSize {
		return errf(InvalidArgument, "software breakpoints must use the trap-instruction width (%d), got %d", x86TrapInsnSize, size)
	}
	return m.Manager.isValid(address, size, mode)
}

// enableLocation reads and saves the original byte at site.Address, then
// writes the architecture trap opcode. If a byte is already saved for
// site.Address (the site is already enabled), it is kept and only the
// trap opcode is written again. Both operations require the traced
// process to be stopped; the manager does not enforce that - the caller
// does.
func (m *SoftwareBreakpointManager) enableLocation(site Site) error {
	if _, saved := m.originalBytes[site.Address]; !saved {
		original := make([]byte, x86TrapInsnSize)
		if err := m.process.ReadMemory(site.Address, original); err != nil {
			return err
		}
		m.originalBytes[site.Address] = original[0]
	}
	log.Debugf("patching INT3 at %s", site.Address)

	return m.process.WriteMemory(site.Address, []byte{x86TrapOpcode})
}

// disableLocation restores the saved byte at site.Address and forgets
// it. Returns NotFound if no saved byte exists (enable never succeeded,
// or disable was already called).
func (m *SoftwareBreakpointManager) disableLocation(site Site) error {
	original, ok := m.originalBytes[site.Address]
	if !ok {
		return errf(NotFound, "no saved original byte at %s", site.Address)
	}
	delete(m.originalBytes, site.Address)

	return m.process.WriteMemory(site.Address, []byte{original})
}

// Hit determines whether thread stopped on a software breakpoint. On
// x86, INT3 advances rip past the trap byte, so the effective PC of the
// trapping instruction is ip - x86TrapInsnSize; if a site is registered
// there, the thread's PC is rewound so that resuming re-executes the
// original instruction once the byte has been restored.
func (m *SoftwareBreakpointManager) Hit(thread TracedThread, outSite *Site) int {
	ip, err := thread.PC()
	if err != nil {
		return -1
	}
	effective := NewAddress(ip.Raw() - x86TrapInsnSize)

	site, ok := m.Manager.sites.get(effective)
	if !ok {
		return -1
	}
	if err := thread.SetPC(effective); err != nil {
		log.Warnf("failed to rewind PC after software breakpoint hit at %s: %v", effective, err)
	}
	site.Type &^= TemporaryUntilHit
	*outSite = *site
	return 0
}

// Clear erases both the site registry and the original-bytes map
// without restoring any bytes. Used only when the process is being torn
// down.
func (m *SoftwareBreakpointManager) Clear() {
	m.originalBytes = make(map[Address]byte)
	m.Manager.Clear()
}

// OriginalByte returns the instruction byte saved at address when its
// trap opcode was installed, and whether anything is saved there. A
// caller reconstructing the real instruction under a live trap (e.g. for
// hit reporting) substitutes this byte for the INT3 opcode currently in
// target memory.
func (m *SoftwareBreakpointManager) OriginalByte(address Address) (byte, bool) {
	b, ok := m.originalBytes[address]
	return b, ok
}
