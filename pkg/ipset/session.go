package ipset

import (
	"errors"
	"strings"

	_ "github.com/hornwind/ipset/pkg/log"
	log "github.com/sirupsen/logrus"
)

// Phrasings the native library uses for recoverable negative outcomes.
// Matching is by substring because the library exposes no structured
// error codes for these conditions.
const (
	msgNotInSet     = " is NOT in set "
	msgAlreadyAdded = "Element cannot be added to the set: it's already added"
	msgNotAdded     = "Element cannot be deleted from the set: it's not added"
)

// Session drives every command against one named set. It owns its native
// handle and its output-capture buffer for its entire lifetime and keeps
// no client-side state about set existence: each command stands on the
// native library's response. A Session may be handed between goroutines
// but must not be used from two at once; it has no internal locking.
type Session struct {
	name  string
	typ   SetType
	lib   Lib
	h     Handle
	out   []string
	terse bool
}

// NewSession opens a session bound to name with the given set type.
func (s *IPSet) NewSession(name string, t SetType) (*Session, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	h, err := s.lib.NewHandle()
	if err != nil {
		return nil, wrapError(ErrCmd, "open session", err)
	}
	return &Session{name: name, typ: t, lib: s.lib, h: h}, nil
}

// Name returns the bound set name.
func (s *Session) Name() string {
	return s.name
}

// Type returns the bound set type.
func (s *Session) Type() SetType {
	return s.typ
}

// Close releases the native handle. Safe to call more than once.
func (s *Session) Close() {
	if s.h != nil {
		s.h.Close()
		s.h = nil
	}
}

// SetEnv toggles a session environment option on.
func (s *Session) SetEnv(opt EnvOption) {
	if opt == EnvListSetName {
		s.terse = true
	}
	s.h.EnvSet(opt)
}

// UnsetEnv toggles a session environment option off.
func (s *Session) UnsetEnv(opt EnvOption) {
	if opt == EnvListSetName {
		s.terse = false
	}
	s.h.EnvUnset(opt)
}

func (s *Session) setName() error {
	return setOpt(s.h, OptSetName, s.name)
}

func (s *Session) getType(cmd Cmd) error {
	if !s.h.TypeGet(cmd) {
		return reportError(ErrTypeGet, s.h)
	}
	return nil
}

func (s *Session) run(cmd Cmd) error {
	s.out = s.out[:0]
	if !s.h.Run(cmd) {
		return reportError(ErrCmd, s.h)
	}
	return nil
}

// dataCmd is the shared path for the element commands: set the name
// slot, resolve the type, encode the element, apply extras, execute.
func (s *Session) dataCmd(cmd Cmd, data DataType, extra func() error) error {
	if data.typeName() != s.typ.dataName() {
		return newError(ErrOptionMisuse,
			"data type "+data.typeName()+" does not match set type "+s.typ.Name(), true)
	}
	if err := s.setName(); err != nil {
		return err
	}
	if err := s.getType(cmd); err != nil {
		return err
	}
	if err := data.encode(s.h, roleExact); err != nil {
		return err
	}
	if extra != nil {
		if err := extra(); err != nil {
			return err
		}
	}
	return s.run(cmd)
}

// downgrade turns a command failure whose message contains substr into a
// plain negative result.
func downgrade(err error, substr string) (bool, error) {
	if err == nil {
		return true, nil
	}
	var e *Error
	if errors.As(err, &e) && e.cmdContains(substr) {
		return false, nil
	}
	return false, err
}

// Test reports whether data is in the set. A "not in set" response is a
// valid negative result, not an error.
func (s *Session) Test(data DataType) (bool, error) {
	return downgrade(s.dataCmd(CmdTest, data, nil), msgNotInSet)
}

// Add inserts data with the given extension options. Returns false
// without error when the element is already present.
func (s *Session) Add(data DataType, opts ...AddOption) (bool, error) {
	err := s.dataCmd(CmdAdd, data, func() error {
		for _, opt := range opts {
			if err := opt.encode(s.h); err != nil {
				return err
			}
		}
		return nil
	})
	return downgrade(err, msgAlreadyAdded)
}

// Del removes data. Returns false without error when the element was
// not in the set.
func (s *Session) Del(data DataType) (bool, error) {
	return downgrade(s.dataCmd(CmdDel, data, nil), msgNotAdded)
}

// nameCmd runs a command that takes only the set name. Any failure the
// native library classifies as non-fatal becomes a plain false result;
// this is deliberately broader than the substring checks of the element
// commands.
func (s *Session) nameCmd(cmd Cmd) (bool, error) {
	if err := s.setName(); err != nil {
		return false, err
	}
	if err := s.run(cmd); err != nil {
		var e *Error
		if errors.As(err, &e) && e.Kind == ErrCmd && !e.Fatal {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Flush removes every entry from the set.
func (s *Session) Flush() (bool, error) {
	return s.nameCmd(CmdFlush)
}

// Destroy removes the set itself.
func (s *Session) Destroy() (bool, error) {
	return s.nameCmd(CmdDestroy)
}

// Create creates the set. The builder callback sets creation-time
// options; pass nil for defaults.
func (s *Session) Create(build func(*CreateBuilder) error) (bool, error) {
	s.h.DataReset()
	if err := setOpt(s.h, OptTypeName, s.typ.Name()); err != nil {
		return false, err
	}
	if err := s.getType(CmdCreate); err != nil {
		return false, err
	}
	if build != nil {
		b := &CreateBuilder{session: s}
		err := build(b)
		if err == nil {
			err = b.err
		}
		if err != nil {
			return false, err
		}
	}
	log.Debugf("create %s %s", s.name, s.typ.Name())
	return s.nameCmd(CmdCreate)
}

// Save writes the set definition and membership to filename in the
// native save format. The output stream is closed on every path once the
// command has been attempted.
func (s *Session) Save(filename string) (bool, error) {
	if !s.h.OutputMode(OutputSave) {
		return false, reportError(ErrSaveRestore, s.h)
	}
	if !s.h.OpenStream(filename, IOOutput) {
		msg, _ := s.h.Report()
		return false, newError(ErrSaveRestore, msg, true)
	}
	ok, err := s.nameCmd(CmdSave)
	s.h.CloseStream(IOOutput)
	return ok, err
}

// List returns the set contents. In terse mode (EnvListSetName) the
// result carries only set names; otherwise it carries the full record
// with header fields and members. The output sink is registered for
// exactly this call and removed again on every path, including parse
// failure.
func (s *Session) List() (*ListResult, error) {
	s.lib.SetOutput(func(chunk string) {
		s.out = append(s.out, chunk)
	})
	defer func() {
		s.lib.ClearOutput()
		s.out = nil
	}()

	if _, err := s.nameCmd(CmdList); err != nil {
		return nil, err
	}

	if s.terse {
		var names []string
		for _, chunk := range s.out {
			for _, line := range strings.Split(chunk, "\n") {
				if line != "" {
					names = append(names, line)
				}
			}
		}
		return &ListResult{Names: names}, nil
	}

	info := &SetInfo{}
	for _, chunk := range s.out {
		for _, line := range strings.Split(chunk, "\n") {
			if line == "" {
				continue
			}
			if err := info.addLine(line, s.typ); err != nil {
				return nil, err
			}
		}
	}
	return &ListResult{Set: info}, nil
}

// Exists reports whether the set is known to the kernel. The terse
// listing mode is forced for the duration of the call and restored
// afterwards, on error paths too.
func (s *Session) Exists() (bool, error) {
	forced := false
	if !s.terse {
		s.SetEnv(EnvListSetName)
		forced = true
	}
	ret, err := s.List()
	if forced {
		s.UnsetEnv(EnvListSetName)
	}
	if err != nil {
		return false, err
	}
	for _, n := range ret.Names {
		if n == s.name {
			return true, nil
		}
	}
	return false, nil
}
