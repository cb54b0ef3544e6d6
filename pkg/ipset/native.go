package ipset

// Cmd identifies a native set-management command.
type Cmd int

const (
	CmdNone Cmd = iota
	CmdCreate
	CmdDestroy
	CmdFlush
	CmdAdd
	CmdDel
	CmdTest
	CmdList
	CmdSave
)

func (c Cmd) String() string {
	switch c {
	case CmdCreate:
		return "create"
	case CmdDestroy:
		return "destroy"
	case CmdFlush:
		return "flush"
	case CmdAdd:
		return "add"
	case CmdDel:
		return "del"
	case CmdTest:
		return "test"
	case CmdList:
		return "list"
	case CmdSave:
		return "save"
	}
	return "none"
}

// Opt identifies a data slot in a native session. The session engine and
// the data types write typed values into these slots before running a
// command; a Lib implementation maps them onto whatever the underlying
// library expects.
type Opt int

const (
	OptSetName Opt = iota
	OptTypeName
	OptFamily
	OptIP
	OptIPFrom
	OptIPTo
	OptCIDR
	OptPort
	OptPortFrom
	OptPortTo
	OptEther
	OptIface
	OptMark
	// OptName carries the member set name for list:set sets.
	OptName
	OptTimeout
	OptCounters
	OptBytes
	OptPackets
	// OptComment enables the comment extension at create time,
	// OptADTComment carries the per-entry comment text.
	OptComment
	OptADTComment
	OptSkbInfo
	OptSkbMark
	OptSkbPrio
	OptSkbQueue
	OptNomatch
	OptHashSize
	OptMaxElem
	OptNetmask
	OptForceAdd
	OptIfaceWildcard
	OptSize
)

// EnvOption toggles per-session behavior of the native library.
type EnvOption int

const (
	// EnvSorted lists and saves entries sorted.
	EnvSorted EnvOption = iota
	// EnvQuiet suppresses native output to stdout and stderr.
	EnvQuiet
	// EnvResolve enforces name lookup when listing.
	EnvResolve
	// EnvExist ignores errors when the exact same set is created, an
	// already added entry is added or a missing entry is deleted.
	EnvExist
	// EnvListSetName lists just the names of the existing sets.
	EnvListSetName
	// EnvListHeader lists set names and headers, suppressing members.
	EnvListHeader
)

// Family selects the address family stored in a set.
type Family int

const (
	FamilyIPv4 Family = iota
	FamilyIPv6
)

func (f Family) String() string {
	if f == FamilyIPv6 {
		return "inet6"
	}
	return "inet"
}

// OutputMode selects the format of captured command output.
type OutputMode int

const (
	OutputPlain OutputMode = iota
	OutputSave
)

// IODir selects the direction of a file-backed session stream.
type IODir int

const (
	IOInput IODir = iota
	IOOutput
)

// Lib is one initialized instance of the native set-management library.
// Implementations must load the process-wide type registry before
// returning the first handle. The registered output sink receives every
// chunk of formatted text the library produces for list/save commands.
type Lib interface {
	// NewHandle opens a native session and returns its handle.
	NewHandle() (Handle, error)
	// SetOutput registers a sink for formatted text output. Only one
	// sink is active at a time.
	SetOutput(fn func(string))
	// ClearOutput removes the registered sink.
	ClearOutput()
	// ParseStream feeds the input stream previously opened on h back
	// into the library's working state (the restore path).
	ParseStream(h Handle) error
	// Close releases the library instance.
	Close() error
}

// Handle is one native session. Calls returning bool report raw success;
// on failure the session engine reads the reason through Report. A Handle
// must be closed exactly once and is not safe for concurrent use.
type Handle interface {
	// DataSet writes a typed value into a pending option slot.
	DataSet(opt Opt, value interface{}) bool
	// DataReset clears all pending option slots.
	DataReset()
	// TypeGet resolves the set type for cmd from the pending slots and
	// the kernel, priming the session for the command.
	TypeGet(cmd Cmd) bool
	// Run executes cmd against the pending slots.
	Run(cmd Cmd) bool
	// Report returns the last report message and whether the native
	// library classified it as a hard error, then resets the report.
	Report() (msg string, fatal bool)
	EnvSet(opt EnvOption)
	EnvUnset(opt EnvOption)
	// OutputMode switches the format used for captured output.
	OutputMode(mode OutputMode) bool
	// OpenStream binds a file to the session for dir, CloseStream
	// releases it. Streams must be closed on every exit path.
	OpenStream(path string, dir IODir) bool
	CloseStream(dir IODir)
	Close()
}
