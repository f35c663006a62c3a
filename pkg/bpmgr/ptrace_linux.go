//go:build linux

package bpmgr

import (
	"fmt"
	"runtime"
	"unsafe"

	"golang.org/x/sys/unix"
)

// ptraceThread is a minimal TracedThread backed by raw PTRACE_PEEKUSER /
// PTRACE_POKEUSER calls against a Linux/amd64 target, offered as the one
// concrete debug-register transport this repo ships (cmd/bpmgrd uses
// it). It is a Go re-expression, without cgo, of the offsetof-based
// transport in proctl/breakpoints_linux_amd64.go and
// aarzilli-delve/proc/breakpoints_linux_amd64.go.
type ptraceThread struct {
	tid   int
	state ThreadState
}

// NewPtraceThread wraps an already-stopped Linux thread (by tid) for
// debug-register access.
func NewPtraceThread(tid int) TracedThread {
	return &ptraceThread{tid: tid, state: Stopped}
}

func (t *ptraceThread) State() ThreadState { return t.state }

// userDebugRegOffset is offsetof(struct user, u_debugreg) on
// linux/amd64, matching the offset the teacher's cgo helper
// (proctl/breakpoints_linux_amd64.go) computes at build time via
// offsetof(struct user, u_debugreg[reg]).
const userDebugRegOffset = 848

func debugRegOffset(idx int) uintptr {
	return uintptr(userDebugRegOffset + 8*idx)
}

func (t *ptraceThread) ReadDebugReg(idx int) (uint64, error) {
	val, err := ptracePeekUser(t.tid, debugRegOffset(idx))
	if err != nil {
		return 0, fmt.Errorf("ptrace peekuser dr%d: %w", idx, err)
	}
	return uint64(val), nil
}

func (t *ptraceThread) WriteDebugReg(idx int, val uint64) error {
	if err := ptracePokeUser(t.tid, debugRegOffset(idx), uintptr(val)); err != nil {
		return fmt.Errorf("ptrace pokeuser dr%d: %w", idx, err)
	}
	return nil
}

func (t *ptraceThread) PC() (Address, error) {
	var regs unix.PtraceRegs
	if err := unix.PtraceGetRegs(t.tid, &regs); err != nil {
		return NilAddress, err
	}
	return NewAddress(regs.Rip), nil
}

func (t *ptraceThread) SetPC(addr Address) error {
	var regs unix.PtraceRegs
	if err := unix.PtraceGetRegs(t.tid, &regs); err != nil {
		return err
	}
	regs.Rip = addr.Raw()
	return unix.PtraceSetRegs(t.tid, &regs)
}

// ptraceChan/ptraceDoneChan pin all ptrace(2) calls after attach to a
// single OS thread, following proc/ptrace.go's rationale: the kernel
// requires every ptrace command for a given tracee to originate from
// the same thread that attached it.
var (
	ptraceChan     = make(chan func())
	ptraceDoneChan = make(chan struct{})
)

func init() {
	go func() {
		runtime.LockOSThread()
		for fn := range ptraceChan {
			fn()
			ptraceDoneChan <- struct{}{}
		}
	}()
}

func onPtraceThread(fn func()) {
	ptraceChan <- fn
	<-ptraceDoneChan
}

func ptracePokeUser(tid int, off, val uintptr) error {
	var err error
	onPtraceThread(func() {
		_, _, errno := unix.Syscall6(unix.SYS_PTRACE, unix.PTRACE_POKEUSR, uintptr(tid), off, val, 0, 0)
		if errno != 0 {
			err = errno
		}
	})
	return err
}

func ptracePeekUser(tid int, off uintptr) (uintptr, error) {
	var val uintptr
	var err error
	onPtraceThread(func() {
		_, _, errno := unix.Syscall6(unix.SYS_PTRACE, unix.PTRACE_PEEKUSR, uintptr(tid), off, uintptr(unsafe.Pointer(&val)), 0, 0)
		if errno != 0 {
			err = errno
		}
	})
	return val, err
}

// ptraceProcess is a minimal TracedProcess backed by /proc/<pid>/mem for
// memory I/O and a fixed thread-id set for enumeration. It exists so
// cmd/bpmgrd has a real, if narrow, target to drive.
type ptraceProcess struct {
	pid     int
	threads []*ptraceThread
}

// NewPtraceProcess wraps an already-attached Linux process (by pid) with
// the given stopped thread ids.
func NewPtraceProcess(pid int, tids []int) TracedProcess {
	p := &ptraceProcess{pid: pid}
	for _, tid := range tids {
		p.threads = append(p.threads, &ptraceThread{tid: tid, state: Stopped})
	}
	return p
}

func (p *ptraceProcess) EnumerateThreads(cb func(TracedThread)) {
	for _, t := range p.threads {
		cb(t)
	}
}

func (p *ptraceProcess) ReadMemory(addr Address, out []byte) error {
	var err error
	onPtraceThread(func() {
		_, err = unix.PtracePeekData(p.pid, uintptr(addr.Raw()), out)
	})
	return err
}

func (p *ptraceProcess) WriteMemory(addr Address, data []byte) error {
	var err error
	onPtraceThread(func() {
		_, err = unix.PtracePokeData(p.pid, uintptr(addr.Raw()), data)
	})
	return err
}
