package ipset

// In-memory Lib/Handle used by the session tests. It records every slot
// write, env toggle and executed command, and can be scripted to fail a
// command with a given report.

type fakeFailure struct {
	msg   string
	fatal bool
}

type fakeLib struct {
	handle      *fakeHandle
	out         func(string)
	parseCalled bool
	closed      bool
}

func newFakeLib() *fakeLib {
	l := &fakeLib{}
	l.handle = &fakeHandle{lib: l, env: make(map[EnvOption]bool)}
	return l
}

func (l *fakeLib) NewHandle() (Handle, error) {
	return l.handle, nil
}

func (l *fakeLib) SetOutput(fn func(string)) { l.out = fn }

func (l *fakeLib) ClearOutput() { l.out = nil }

func (l *fakeLib) ParseStream(h Handle) error {
	l.parseCalled = true
	return nil
}

func (l *fakeLib) Close() error {
	l.closed = true
	return nil
}

type slotWrite struct {
	opt   Opt
	value interface{}
}

type fakeHandle struct {
	lib *fakeLib

	writes        []slotWrite
	resets        int
	typeGets      []Cmd
	runs          []Cmd
	env           map[EnvOption]bool
	failRun       map[Cmd]fakeFailure
	listOut       []string
	mode          OutputMode
	opened        []IODir
	closedStreams []IODir
	openFail      bool
	report        string
	fatal         bool
	closed        int
}

func (h *fakeHandle) DataSet(opt Opt, value interface{}) bool {
	h.writes = append(h.writes, slotWrite{opt, value})
	return true
}

func (h *fakeHandle) DataReset() {
	h.resets++
	h.writes = nil
}

func (h *fakeHandle) TypeGet(cmd Cmd) bool {
	h.typeGets = append(h.typeGets, cmd)
	return true
}

func (h *fakeHandle) Run(cmd Cmd) bool {
	h.runs = append(h.runs, cmd)
	if f, ok := h.failRun[cmd]; ok {
		h.report = f.msg
		h.fatal = f.fatal
		return false
	}
	if (cmd == CmdList || cmd == CmdSave) && h.lib.out != nil {
		for _, chunk := range h.listOut {
			h.lib.out(chunk)
		}
	}
	return true
}

func (h *fakeHandle) Report() (string, bool) {
	msg, fatal := h.report, h.fatal
	h.report, h.fatal = "", false
	return msg, fatal
}

func (h *fakeHandle) EnvSet(opt EnvOption) { h.env[opt] = true }

func (h *fakeHandle) EnvUnset(opt EnvOption) { delete(h.env, opt) }

func (h *fakeHandle) OutputMode(mode OutputMode) bool {
	h.mode = mode
	return true
}

func (h *fakeHandle) OpenStream(path string, dir IODir) bool {
	if h.openFail {
		h.report = "cannot open " + path
		h.fatal = true
		return false
	}
	h.opened = append(h.opened, dir)
	return true
}

func (h *fakeHandle) CloseStream(dir IODir) {
	h.closedStreams = append(h.closedStreams, dir)
}

func (h *fakeHandle) Close() { h.closed++ }

// lastWrite returns the most recent value written to opt.
func (h *fakeHandle) lastWrite(opt Opt) (interface{}, bool) {
	for i := len(h.writes) - 1; i >= 0; i-- {
		if h.writes[i].opt == opt {
			return h.writes[i].value, true
		}
	}
	return nil, false
}
