// Package execlib implements the ipset.Lib contract on top of the
// ipset(8) binary, so the typed session layer stays usable without
// linking the native library. Pending option slots are translated into
// command-line arguments; report classification is best-effort on the
// binary's wording.
package execlib

import (
	"fmt"
	"os"
	"strings"

	"github.com/hornwind/ipset/pkg/ipset"
	_ "github.com/hornwind/ipset/pkg/log"
	log "github.com/sirupsen/logrus"
	utilexec "k8s.io/utils/exec"
)

const defaultBin = "ipset"

// Lib drives the ipset binary through the given exec interface.
type Lib struct {
	exec utilexec.Interface
	bin  string
	out  func(string)
}

var _ ipset.Lib = (*Lib)(nil)

// New returns a Lib using the ipset binary found on PATH.
func New(exec utilexec.Interface) *Lib {
	return &Lib{exec: exec, bin: defaultBin}
}

// NewWithBinary returns a Lib using a specific ipset binary.
func NewWithBinary(exec utilexec.Interface, bin string) *Lib {
	return &Lib{exec: exec, bin: bin}
}

func (l *Lib) NewHandle() (ipset.Handle, error) {
	return &handle{
		lib: l,
		env: make(map[ipset.EnvOption]bool),
	}, nil
}

func (l *Lib) SetOutput(fn func(string)) {
	l.out = fn
}

func (l *Lib) ClearOutput() {
	l.out = nil
}

// ParseStream feeds the input stream opened on h into `ipset restore`.
func (l *Lib) ParseStream(h ipset.Handle) error {
	hh, ok := h.(*handle)
	if !ok || hh.in == nil {
		return fmt.Errorf("no input stream open on session")
	}
	args := []string{"restore"}
	if hh.env[ipset.EnvExist] {
		args = append(args, "-exist")
	}
	cmd := l.exec.Command(l.bin, args...)
	cmd.SetStdin(hh.in)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("restore failed: %v (%s)", err, strings.TrimSpace(string(out)))
	}
	return nil
}

func (l *Lib) Close() error {
	return nil
}

// handle is one pseudo-session: slots accumulate between DataSet calls
// and are consumed by Run. Element pieces keep their encode order, which
// is the left-to-right member order of composite data types.
type handle struct {
	lib *Lib

	setName   string
	typeName  string
	family    ipset.Family
	familySet bool
	elem      []string
	rangeFrom string
	rangeTo   string
	// opts is the rendered argument tail: create options and per-add
	// extension values, in the order they were set.
	opts []string

	env    map[ipset.EnvOption]bool
	report string
	fatal  bool
	mode   ipset.OutputMode
	in     *os.File
	out    *os.File
}

var _ ipset.Handle = (*handle)(nil)

// appendElem attaches a piece to the element under construction.
func (h *handle) appendElem(s string) {
	h.elem = append(h.elem, s)
}

func macString(b []byte) string {
	parts := make([]string, len(b))
	for i, o := range b {
		parts[i] = fmt.Sprintf("%02x", o)
	}
	return strings.Join(parts, ":")
}

func (h *handle) DataSet(opt ipset.Opt, value interface{}) bool {
	switch opt {
	case ipset.OptSetName:
		h.setName = value.(string)
	case ipset.OptTypeName:
		h.typeName = value.(string)
	case ipset.OptFamily:
		h.family = value.(ipset.Family)
		h.familySet = true
	case ipset.OptIP:
		h.appendElem(fmt.Sprint(value))
	case ipset.OptIPFrom:
		h.rangeFrom = fmt.Sprint(value)
	case ipset.OptIPTo:
		h.rangeTo = fmt.Sprint(value)
	case ipset.OptCIDR:
		if len(h.elem) > 0 {
			h.elem[len(h.elem)-1] += "/" + fmt.Sprint(value)
		}
	case ipset.OptPort:
		h.appendElem(fmt.Sprint(value))
	case ipset.OptPortFrom:
		h.rangeFrom = fmt.Sprint(value)
	case ipset.OptPortTo:
		h.rangeTo = fmt.Sprint(value)
	case ipset.OptEther:
		h.appendElem(macString(value.([]byte)))
	case ipset.OptIface, ipset.OptName:
		h.appendElem(value.(string))
	case ipset.OptMark:
		h.appendElem(fmt.Sprint(value))
	case ipset.OptTimeout:
		h.opts = append(h.opts, "timeout", fmt.Sprint(value))
	case ipset.OptCounters:
		h.opts = append(h.opts, "counters")
	case ipset.OptBytes:
		h.opts = append(h.opts, "bytes", fmt.Sprint(value))
	case ipset.OptPackets:
		h.opts = append(h.opts, "packets", fmt.Sprint(value))
	case ipset.OptComment:
		h.opts = append(h.opts, "comment")
	case ipset.OptADTComment:
		h.opts = append(h.opts, "comment", value.(string))
	case ipset.OptSkbInfo:
		h.opts = append(h.opts, "skbinfo")
	case ipset.OptSkbMark:
		packed := value.(uint64)
		h.opts = append(h.opts, "skbmark",
			fmt.Sprintf("0x%x/0x%x", uint32(packed>>32), uint32(packed)))
	case ipset.OptSkbPrio:
		packed := value.(uint32)
		h.opts = append(h.opts, "skbprio",
			fmt.Sprintf("%x:%x", uint16(packed>>16), uint16(packed)))
	case ipset.OptSkbQueue:
		h.opts = append(h.opts, "skbqueue", fmt.Sprint(value))
	case ipset.OptNomatch:
		h.opts = append(h.opts, "nomatch")
	case ipset.OptHashSize:
		h.opts = append(h.opts, "hashsize", fmt.Sprint(value))
	case ipset.OptMaxElem:
		h.opts = append(h.opts, "maxelem", fmt.Sprint(value))
	case ipset.OptNetmask:
		h.opts = append(h.opts, "netmask", fmt.Sprint(value))
	case ipset.OptForceAdd:
		h.opts = append(h.opts, "forceadd")
	case ipset.OptIfaceWildcard:
		h.opts = append(h.opts, "wildcard")
	case ipset.OptSize:
		h.opts = append(h.opts, "size", fmt.Sprint(value))
	default:
		h.report = fmt.Sprintf("unsupported option %d", opt)
		h.fatal = true
		return false
	}
	return true
}

func (h *handle) DataReset() {
	h.typeName = ""
	h.familySet = false
	h.clearPending()
}

func (h *handle) clearPending() {
	h.elem = nil
	h.rangeFrom = ""
	h.rangeTo = ""
	h.opts = nil
}

func (h *handle) TypeGet(cmd ipset.Cmd) bool {
	if cmd == ipset.CmdCreate && h.typeName == "" {
		h.report = "The set type was not specified"
		h.fatal = true
		return false
	}
	return true
}

func (h *handle) args(cmd ipset.Cmd) []string {
	var args []string
	switch cmd {
	case ipset.CmdCreate:
		args = []string{"create", h.setName, h.typeName}
		if h.rangeFrom != "" {
			args = append(args, "range", h.rangeFrom+"-"+h.rangeTo)
		}
		if h.familySet {
			args = append(args, "family", h.family.String())
		}
		args = append(args, h.opts...)
	case ipset.CmdAdd, ipset.CmdDel, ipset.CmdTest:
		args = []string{cmd.String(), h.setName, strings.Join(h.elem, ",")}
		args = append(args, h.opts...)
	case ipset.CmdList:
		args = []string{"list"}
		if h.setName != "" {
			args = append(args, h.setName)
		}
		if h.env[ipset.EnvListSetName] {
			args = append(args, "-name")
		}
		if h.env[ipset.EnvListHeader] {
			args = append(args, "-terse")
		}
		if h.env[ipset.EnvSorted] {
			args = append(args, "-sorted")
		}
		if h.env[ipset.EnvResolve] {
			args = append(args, "-resolve")
		}
	case ipset.CmdSave:
		args = []string{"save", h.setName}
		if h.env[ipset.EnvSorted] {
			args = append(args, "-sorted")
		}
	default:
		args = []string{cmd.String(), h.setName}
	}
	if h.env[ipset.EnvExist] {
		args = append(args, "-exist")
	}
	if h.env[ipset.EnvQuiet] {
		args = append(args, "-quiet")
	}
	return args
}

// benign phrasings that correspond to outcomes the exist-ignore
// environment option suppresses in the native library.
var benignFailures = []string{
	"it's already added",
	"it's not added",
	"does not exist",
	"already exists",
}

func (h *handle) classify(cmd ipset.Cmd, msg string) bool {
	if cmd == ipset.CmdTest && strings.Contains(msg, "is NOT in set") {
		return false
	}
	// Listing an absent set is a negative result so existence probes can
	// rely on an empty listing instead of an error.
	if cmd == ipset.CmdList && strings.Contains(msg, "The set with the given name does not exist") {
		return false
	}
	if h.env[ipset.EnvExist] {
		for _, s := range benignFailures {
			if strings.Contains(msg, s) {
				return false
			}
		}
	}
	return true
}

func (h *handle) Run(cmd ipset.Cmd) bool {
	args := h.args(cmd)
	defer h.clearPending()

	log.Debugf("exec %s %s", h.lib.bin, strings.Join(args, " "))
	out, err := h.lib.exec.Command(h.lib.bin, args...).CombinedOutput()
	if err != nil {
		h.report = strings.TrimSpace(string(out))
		if h.report == "" {
			h.report = err.Error()
		}
		h.fatal = h.classify(cmd, h.report)
		return false
	}

	h.report = ""
	h.fatal = false
	switch cmd {
	case ipset.CmdList:
		if h.lib.out != nil {
			h.lib.out(string(out))
		}
	case ipset.CmdSave:
		if h.mode == ipset.OutputSave && h.out != nil {
			if _, err := h.out.Write(out); err != nil {
				h.report = err.Error()
				h.fatal = true
				return false
			}
		} else if h.lib.out != nil {
			h.lib.out(string(out))
		}
	}
	return true
}

func (h *handle) Report() (string, bool) {
	msg, fatal := h.report, h.fatal
	h.report = ""
	h.fatal = false
	return msg, fatal
}

func (h *handle) EnvSet(opt ipset.EnvOption) {
	h.env[opt] = true
}

func (h *handle) EnvUnset(opt ipset.EnvOption) {
	delete(h.env, opt)
}

func (h *handle) OutputMode(mode ipset.OutputMode) bool {
	h.mode = mode
	return true
}

func (h *handle) OpenStream(path string, dir ipset.IODir) bool {
	var f *os.File
	var err error
	if dir == ipset.IOOutput {
		f, err = os.Create(path)
	} else {
		f, err = os.Open(path)
	}
	if err != nil {
		h.report = err.Error()
		h.fatal = true
		return false
	}
	if dir == ipset.IOOutput {
		h.out = f
	} else {
		h.in = f
	}
	return true
}

func (h *handle) CloseStream(dir ipset.IODir) {
	if dir == ipset.IOOutput && h.out != nil {
		h.out.Close()
		h.out = nil
	}
	if dir == ipset.IOInput && h.in != nil {
		h.in.Close()
		h.in = nil
	}
}

func (h *handle) Close() {
	h.CloseStream(ipset.IOInput)
	h.CloseStream(ipset.IOOutput)
}
