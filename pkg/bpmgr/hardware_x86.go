package bpmgr

// HardwareBreakpointManager installs x86/x86-64 hardware breakpoints and
// watchpoints using the four debug-address registers DR0-DR3, control
// register DR7, and status register DR6. Grounded on ds2's
// Architecture/X86/HardwareBreakpointManager.cpp.
type HardwareBreakpointManager struct {
	Manager
	// locations[i] is the Address currently occupying slot i, or
	// NilAddress if the slot is free. The index is the hardware debug
	// register number (DR0..DR3).
	locations [kMaxHWStoppoints]Address
}

// NewHardwareBreakpointManager returns an x86/x86-64 hardware
// breakpoint/watchpoint manager.
func NewHardwareBreakpointManager(process TracedProcess) *HardwareBreakpointManager {
	m := &HardwareBreakpointManager{}
	m.Manager = newManager(process, m)
	return m
}

func (m *HardwareBreakpointManager) isValid(address Address, size Size, mode Mode) error {
	switch size {
	case Size1:
		// no restriction
	case Size8:
		log.Warnln("8-byte hardware breakpoints are not supported on all architectures")
		fallthrough
	case Size2, Size4:
		if mode == Exec {
			return errf(InvalidArgument, "exec breakpoints must use size 1, got %d", size)
		}
	default:
		return errf(InvalidArgument, "invalid hardware breakpoint size: %d", size)
	}

	if mode.Has(Exec) && mode&(Read|Write) != 0 {
		return errf(InvalidArgument, "Exec cannot be combined with Read or Write")
	}

	if mode == Read {
		return errf(Unsupported, "read-only hardware watchpoints are not supported")
	}

	return m.Manager.isValid(address, size, mode)
}

// Add installs a hardware breakpoint/watchpoint. A pure Read request is
// upgraded to Read|Write, since x86 hardware has no read-only mode.
func (m *HardwareBreakpointManager) Add(address Address, typ Type, size Size, mode Mode) error {
	invariant(m.sites.len() <= kMaxHWStoppoints, "more sites than hardware slots")

	if mode == Read {
		log.Warnln("read-only watchpoints are unsupported, setting as read-write")
		mode = Read | Write
	}

	return m.Manager.Add(address, typ, size, mode)
}

// Remove frees the slot entry (if any) occupied by address, then
// delegates to the base removal algorithm.
func (m *HardwareBreakpointManager) Remove(address Address) error {
	for i, loc := range m.locations {
		if loc == address {
			m.locations[i] = NilAddress
			break
		}
	}
	return m.Manager.Remove(address)
}

// getAvailableLocation returns the index of the first free slot, or -1
// if more than kMaxHWStoppoints sites are registered.
func (m *HardwareBreakpointManager) getAvailableLocation() int {
	if m.sites.len() > kMaxHWStoppoints {
		return -1
	}
	for i, loc := range m.locations {
		if loc == NilAddress {
			return i
		}
	}
	invariant(false, "no free slot despite sites.len() <= kMaxHWStoppoints")
	return -1
}

func (m *HardwareBreakpointManager) enableLocation(site Site) error {
	idx := -1
	for i, loc := range m.locations {
		if loc == site.Address {
			idx = i
			break
		}
	}
	if idx < 0 {
		idx = m.getAvailableLocation()
		if idx < 0 {
			return errf(InvalidArgument, "no free hardware breakpoint slot")
		}
	}

	var threads []TracedThread
	m.process.EnumerateThreads(func(t TracedThread) {
		if t.State() == Stopped {
			threads = append(threads, t)
		}
	})

	for _, thread := range threads {
		if err := m.enableLocationOnThread(site, idx, thread); err != nil {
			return err
		}
	}

	m.locations[idx] = site.Address
	return nil
}

func (m *HardwareBreakpointManager) enableLocationOnThread(site Site, idx int, thread TracedThread) error {
	if err := thread.WriteDebugReg(idx, site.Address.Raw()); err != nil {
		return errf(Unknown, "failed to write debug address register dr%d: %v", idx, err)
	}

	ctrl, err := thread.ReadDebugReg(drControlRegIdx)
	if err != nil {
		return errf(Unknown, "failed to read debug control register: %v", err)
	}

	ctrl32, err := encodeDebugCtrlReg(uint32(ctrl), idx, site.Mode, site.Size)
	if err != nil {
		return err
	}

	if err := thread.WriteDebugReg(drControlRegIdx, uint64(ctrl32)); err != nil {
		return errf(Unknown, "failed to write debug control register: %v", err)
	}

	if err := thread.WriteDebugReg(drStatusRegIdx, 0); err != nil {
		return errf(Unknown, "failed to clear debug status register: %v", err)
	}

	return nil
}

func (m *HardwareBreakpointManager) disableLocation(site Site) error {
	idx := -1
	for i, loc := range m.locations {
		if loc == site.Address {
			idx = i
			break
		}
	}
	if idx < 0 {
		return errf(InvalidArgument, "no hardware slot holds %s", site.Address)
	}

	var threads []TracedThread
	m.process.EnumerateThreads(func(t TracedThread) {
		if t.State() == Stopped {
			threads = append(threads, t)
		}
	})

	for _, thread := range threads {
		held, err := thread.ReadDebugReg(idx)
		if err != nil {
			return errf(Unknown, "failed to read debug address register dr%d: %v", idx, err)
		}
		invariant(held == site.Address.Raw(), "dr%d held %#x, expected %s", idx, held, site.Address)

		if err := m.disableLocationOnThread(idx, thread); err != nil {
			return err
		}
	}

	return nil
}

func (m *HardwareBreakpointManager) disableLocationOnThread(idx int, thread TracedThread) error {
	// Clear the debug address register. The source clears it by
	// writing 0; treated here as a single effect, not a double write
	// (see spec.md §9 open questions).
	if err := thread.WriteDebugReg(idx, 0); err != nil {
		return errf(Unknown, "failed to clear debug address register dr%d: %v", idx, err)
	}

	ctrl, err := thread.ReadDebugReg(drControlRegIdx)
	if err != nil {
		return errf(Unknown, "failed to read debug control register: %v", err)
	}

	ctrl32 := ClearBit(uint32(ctrl), uint(1+idx*drEnableSize))

	if err := thread.WriteDebugReg(drControlRegIdx, uint64(ctrl32)); err != nil {
		return errf(Unknown, "failed to write debug control register: %v", err)
	}

	return nil
}

// rwBits returns the DR_RW_* encoding for mode, matching
// proctl/breakpoints.go's DR_RW_EXECUTE/DR_RW_WRITE/DR_RW_READ constants.
func rwBits(mode Mode) (uint32, error) {
	switch mode {
	case Exec:
		return drRWExecute, nil
	case Write:
		return drRWWrite, nil
	case Read, Read | Write:
		return drRWRead, nil
	default:
		return 0, errf(InvalidArgument, "invalid mode %s for hardware breakpoint", mode)
	}
}

// lenBits returns the DR_LEN_* encoding for size, matching
// proctl/breakpoints.go's DR_LEN_1/2/4/8 constants.
func lenBits(size Size) (uint32, error) {
	switch size {
	case Size1:
		return drLen1, nil
	case Size2:
		return drLen2, nil
	case Size4:
		return drLen4, nil
	case Size8:
		return drLen8, nil
	default:
		return 0, errf(InvalidArgument, "invalid hardware breakpoint size: %d", size)
	}
}

// encodeDebugCtrlReg sets the global-enable, R/W, and LEN fields for
// slot idx in DR7, following the DR_CONTROL_SHIFT/DR_CONTROL_SIZE layout
// in proctl/breakpoints.go: each slot owns a 4-bit R/W+LEN group
// starting at bit 16+4*idx.
func encodeDebugCtrlReg(ctrl uint32, idx int, mode Mode, size Size) (uint32, error) {
	enableIdx := uint(1 + idx*drEnableSize)

	rw, err := rwBits(mode)
	if err != nil {
		return 0, err
	}

	var fields uint32
	if mode == Exec {
		fields = rw // LEN is always 0 for exec breakpoints.
	} else {
		ln, err := lenBits(size)
		if err != nil {
			return 0, err
		}
		fields = rw | ln
	}

	groupMask := uint32((1<<drControlSize)-1) << uint(idx*drControlSize)
	groupShift := uint(drControlShift + idx*drControlSize)

	ctrl = SetBit(ctrl, enableIdx)
	// Clear this slot's R/W+LEN group, then set the computed field,
	// without disturbing the other three slots' groups.
	ctrl &^= groupMask << drControlShift
	ctrl |= fields << groupShift

	return ctrl, nil
}

// Hit reports which slot, if any, caused the most recent stop of
// thread, by inspecting DR6. Returns -1 if there are no registered
// sites, the thread is not stopped, or no status bit is set. The caller
// is responsible for clearing DR6 on resume.
func (m *HardwareBreakpointManager) Hit(thread TracedThread, outSite *Site) int {
	if m.sites.len() == 0 {
		return -1
	}
	if thread.State() != Stopped {
		return -1
	}

	status, err := thread.ReadDebugReg(drStatusRegIdx)
	if err != nil {
		return -1
	}

	for i := 0; i < kMaxHWStoppoints; i++ {
		if TestBit(uint32(status), uint(i)) {
			invariant(m.locations[i] != NilAddress, "dr6 bit %d set but slot %d is empty", i, i)
			site, ok := m.sites.get(m.locations[i])
			invariant(ok, "slot %d points at unregistered address %s", i, m.locations[i])
			*outSite = *site
			return i
		}
	}

	return -1
}

// MaxWatchpoints returns the number of hardware debug-address slots
// available on x86/x86-64.
func (m *HardwareBreakpointManager) MaxWatchpoints() int {
	return kMaxHWStoppoints
}
