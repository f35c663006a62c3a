package bpmgr

// x86/x86-64 debug-register layout, ported from the architecture
// constants in proctl/breakpoints.go and ds2's
// Architecture/X86/HardwareBreakpointManager.cpp.
const (
	drRWExecute = 0x0 // Break on instruction execution.
	drRWWrite   = 0x1 // Break on data write.
	drRWRead    = 0x3 // Break on data read or write.

	drLen1 = 0x0 << 2 // 1-byte region watch or breakpoint.
	drLen2 = 0x1 << 2 // 2-byte region watch.
	drLen4 = 0x3 << 2 // 4-byte region watch.
	drLen8 = 0x2 << 2 // 8-byte region watch (not universally supported).

	drEnableSize   = 2  // Two enable bits per register.
	drControlSize  = 4  // Bits in DR7 per R/W + LEN field, per watchpoint.
	drControlShift = 16 // Where the R/W + LEN fields start in DR7.
)

// kMaxHWStoppoints is the number of hardware debug-address registers
// (DR0-DR3) on x86/x86-64.
const kMaxHWStoppoints = 4

const (
	drStatusRegIdx  = 6 // DR6
	drControlRegIdx = 7 // DR7
)

// x86TrapOpcode is the single-byte INT3 software breakpoint instruction.
const x86TrapOpcode byte = 0xCC

// x86TrapInsnSize is the width of the trap instruction; on x86, INT3
// advances rip past itself by one byte.
const x86TrapInsnSize = 1
