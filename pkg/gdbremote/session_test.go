package gdbremote

import (
	"testing"

	"github.com/undoio/bpmgr/pkg/bpmgr"
)

// fakeThread is the minimal bpmgr.TracedThread double needed to drive a
// Session end to end, mirroring pkg/bpmgr's own fakeThread.
type fakeThread struct {
	state   bpmgr.ThreadState
	pc      bpmgr.Address
	dbgRegs [8]uint64
}

func (t *fakeThread) State() bpmgr.ThreadState { return t.state }

func (t *fakeThread) ReadDebugReg(idx int) (uint64, error) { return t.dbgRegs[idx], nil }

func (t *fakeThread) WriteDebugReg(idx int, val uint64) error {
	t.dbgRegs[idx] = val
	return nil
}

func (t *fakeThread) PC() (bpmgr.Address, error) { return t.pc, nil }

func (t *fakeThread) SetPC(addr bpmgr.Address) error {
	t.pc = addr
	return nil
}

type fakeProcess struct {
	mem     map[bpmgr.Address]byte
	threads []*fakeThread
}

func newFakeProcess() *fakeProcess {
	return &fakeProcess{mem: make(map[bpmgr.Address]byte)}
}

func (p *fakeProcess) EnumerateThreads(cb func(bpmgr.TracedThread)) {
	for _, t := range p.threads {
		cb(t)
	}
}

func (p *fakeProcess) ReadMemory(addr bpmgr.Address, out []byte) error {
	for i := range out {
		out[i] = p.mem[bpmgr.NewAddress(addr.Raw()+uint64(i))]
	}
	return nil
}

func (p *fakeProcess) WriteMemory(addr bpmgr.Address, data []byte) error {
	for i, b := range data {
		p.mem[bpmgr.NewAddress(addr.Raw()+uint64(i))] = b
	}
	return nil
}

// TestSessionDrivesBackendsPolymorphically exercises EnableAll,
// WhoHit, and Teardown purely through the Backend/ThreadHitter
// interfaces assigned in NewSession's backends slice, not through the
// concrete Software/HardwareX86 fields.
func TestSessionDrivesBackendsPolymorphically(t *testing.T) {
	proc := newFakeProcess()
	th := &fakeThread{state: bpmgr.Stopped}
	proc.threads = append(proc.threads, th)

	s := NewSession(proc)

	if len(s.backends) != 2 {
		t.Fatalf("expected 2 wired backends, got %d", len(s.backends))
	}

	addr := bpmgr.NewAddress(0x1000)
	if code := s.InsertBreakpoint(1, addr, bpmgr.Size1); code != ESuccess {
		t.Fatalf("expected ESuccess inserting hardware breakpoint, got %v", code)
	}
	s.EnableAll()

	th.dbgRegs[6] = 1 // DR6 bit 0: slot 0 tripped.

	site, tag, ok := s.WhoHit(th)
	if !ok || tag != "hardware" || site.Address != addr {
		t.Fatalf("expected hardware hit at %s, got tag=%q ok=%v site=%+v", addr, tag, ok, site)
	}

	s.Teardown()
	for _, b := range s.backends {
		if b.backend.Has(addr) {
			t.Fatalf("expected %s backend cleared after Teardown", b.tag)
		}
	}
}
