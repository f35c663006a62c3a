package bpmgr

// fakeProcess and fakeThread are in-memory stand-ins for TracedProcess /
// TracedThread, following the teacher's pkg/proc/test hand-written
// fixture style rather than a generated mock. They model just enough of
// a target to exercise the manager: a byte-addressable memory map and a
// per-thread debug register file.

type fakeProcess struct {
	mem     map[Address]byte
	threads []*fakeThread
}

func newFakeProcess() *fakeProcess {
	return &fakeProcess{mem: make(map[Address]byte)}
}

func (p *fakeProcess) addThread(t *fakeThread) {
	p.threads = append(p.threads, t)
}

func (p *fakeProcess) EnumerateThreads(cb func(TracedThread)) {
	for _, t := range p.threads {
		cb(t)
	}
}

func (p *fakeProcess) ReadMemory(addr Address, out []byte) error {
	for i := range out {
		out[i] = p.mem[NewAddress(addr.Raw()+uint64(i))]
	}
	return nil
}

func (p *fakeProcess) WriteMemory(addr Address, data []byte) error {
	for i, b := range data {
		p.mem[NewAddress(addr.Raw()+uint64(i))] = b
	}
	return nil
}

type fakeThread struct {
	state   ThreadState
	pc      Address
	dbgRegs [8]uint64
}

func newFakeThread() *fakeThread {
	return &fakeThread{state: Stopped}
}

func (t *fakeThread) State() ThreadState { return t.state }

func (t *fakeThread) ReadDebugReg(idx int) (uint64, error) {
	return t.dbgRegs[idx], nil
}

func (t *fakeThread) WriteDebugReg(idx int, val uint64) error {
	t.dbgRegs[idx] = val
	return nil
}

func (t *fakeThread) PC() (Address, error) {
	return t.pc, nil
}

func (t *fakeThread) SetPC(addr Address) error {
	t.pc = addr
	return nil
}
