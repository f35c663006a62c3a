package gdbremote

import (
	"github.com/sirupsen/logrus"
	"golang.org/x/arch/x86/x86asm"

	"github.com/undoio/bpmgr/pkg/bpmgr"
)

// maxX86InstructionLen is the longest possible x86/x86-64 instruction
// encoding, the window x86asm.Decode needs to be sure of a correct read.
const maxX86InstructionLen = 15

var log = logrus.WithFields(logrus.Fields{"layer": "gdbremote"})

// Compile-time checks that the concrete managers satisfy the
// ProtocolLayer-facing surface (spec.md §6): every manager is driven
// generically through Backend for lifecycle operations, and through
// ThreadHitter for stop attribution. The ARM shell is included here too
// since it is a real Backend/ThreadHitter even though every method
// returns Unsupported/-1.
var (
	_ bpmgr.Backend      = (*bpmgr.SoftwareBreakpointManager)(nil)
	_ bpmgr.Backend      = (*bpmgr.HardwareBreakpointManager)(nil)
	_ bpmgr.Backend      = (*bpmgr.HardwareARMBreakpointManager)(nil)
	_ bpmgr.ThreadHitter = (*bpmgr.SoftwareBreakpointManager)(nil)
	_ bpmgr.ThreadHitter = (*bpmgr.HardwareBreakpointManager)(nil)
	_ bpmgr.ThreadHitter = (*bpmgr.HardwareARMBreakpointManager)(nil)
)

// namedBackend pairs a manager, addressed generically through Backend
// and ThreadHitter, with the human-readable tag WhoHit reports it under.
type namedBackend struct {
	tag     string
	backend bpmgr.Backend
	hitter  bpmgr.ThreadHitter
}

// Session is a thin stand-in for the out-of-scope ProtocolLayer
// collaborator (spec.md §6): it holds the set of breakpoint managers
// active for one traced process and drives them the way a real stub's
// packet handlers would - 'Z'/'z' packets call Add/Remove, a stop-reply
// walks every manager's Hit. Lifecycle sweeps (EnableAll, DisableAll,
// Teardown, WhoHit) are driven through the Backend/ThreadHitter
// interfaces rather than the concrete types, so a new architecture's
// manager only needs to be added to backends below.
type Session struct {
	Process     bpmgr.TracedProcess
	Software    *bpmgr.SoftwareBreakpointManager
	HardwareX86 *bpmgr.HardwareBreakpointManager
	backends    []namedBackend
}

// NewSession wires a software and an x86 hardware manager to process,
// the pairing a real debug server installs for an x86/x86-64 target.
func NewSession(process bpmgr.TracedProcess) *Session {
	software := bpmgr.NewSoftwareBreakpointManager(process)
	hardware := bpmgr.NewHardwareBreakpointManager(process)
	return &Session{
		Process:     process,
		Software:    software,
		HardwareX86: hardware,
		backends: []namedBackend{
			{tag: "hardware", backend: hardware, hitter: hardware},
			{tag: "software", backend: software, hitter: software},
		},
	}
}

// InsertBreakpoint implements a GDB 'Z0'/'Z1' packet: kind 0 requests a
// software breakpoint, kind 1 a hardware one. Non-exec watchpoint kinds
// (2/3/4 in the wire protocol) always route to the hardware manager,
// since software breakpoints only support Exec.
func (s *Session) InsertBreakpoint(kind int, address bpmgr.Address, size bpmgr.Size) Code {
	switch kind {
	case 0:
		return FromError(s.Software.Add(address, bpmgr.Permanent, bpmgr.Size1, bpmgr.Exec))
	case 1:
		return FromError(s.HardwareX86.Add(address, bpmgr.Permanent, size, bpmgr.Exec))
	case 2:
		return FromError(s.HardwareX86.Add(address, bpmgr.Permanent, size, bpmgr.Write))
	case 3:
		return FromError(s.HardwareX86.Add(address, bpmgr.Permanent, size, bpmgr.Read))
	case 4:
		return FromError(s.HardwareX86.Add(address, bpmgr.Permanent, size, bpmgr.Read|bpmgr.Write))
	default:
		return EInvalidArgument
	}
}

// RemoveBreakpoint implements the matching 'z' packet.
func (s *Session) RemoveBreakpoint(kind int, address bpmgr.Address) Code {
	if kind == 0 {
		return FromError(s.Software.Remove(address))
	}
	return FromError(s.HardwareX86.Remove(address))
}

// EnableAll enables every manager in the session, for use after attach.
func (s *Session) EnableAll() {
	for _, b := range s.backends {
		b.backend.Enable()
	}
}

// DisableAll disables every manager in the session, for use before
// detach or a fork-follow re-exec.
func (s *Session) DisableAll() {
	for _, b := range s.backends {
		b.backend.Disable()
	}
}

// WhoHit asks each manager in turn whether it caused thread's current
// stop, returning the winning Site and a human-readable manager tag, or
// ok == false if neither manager recognizes the stop. Hardware is
// checked first since a hardware trap never also looks like a software
// one.
func (s *Session) WhoHit(thread bpmgr.TracedThread) (site bpmgr.Site, tag string, ok bool) {
	for _, b := range s.backends {
		if idx := b.hitter.Hit(thread, &site); idx >= 0 {
			if mnemonic := s.describeInstruction(site.Address); mnemonic != "" {
				log.Debugf("%s hit on slot %d at %s (%s)", b.tag, idx, site.Address, mnemonic)
			} else {
				log.Debugf("%s hit on slot %d at %s", b.tag, idx, site.Address)
			}
			return site, b.tag, true
		}
	}
	return bpmgr.Site{}, "", false
}

// describeInstruction decodes the x86/x86-64 instruction at addr for a
// hit-reporting log line. A software breakpoint leaves its INT3 opcode
// in target memory, so the manager's saved original byte is substituted
// back in before decoding; a hardware breakpoint never patches memory,
// so the read is used as-is. Returns "" if memory can't be read or the
// bytes don't decode to a valid instruction.
func (s *Session) describeInstruction(addr bpmgr.Address) string {
	buf := make([]byte, maxX86InstructionLen)
	if err := s.Process.ReadMemory(addr, buf); err != nil {
		return ""
	}
	if original, ok := s.Software.OriginalByte(addr); ok {
		buf[0] = original
	}

	inst, err := x86asm.Decode(buf, 64)
	if err != nil {
		return ""
	}
	return inst.Op.String()
}

// Teardown clears every manager without touching target memory or
// registers, for use once the process has exited.
func (s *Session) Teardown() {
	for _, b := range s.backends {
		b.backend.Clear()
	}
}
