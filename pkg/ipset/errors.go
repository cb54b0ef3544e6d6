package ipset

import (
	"fmt"
	"strings"
)

// Kind classifies an Error.
type Kind int

const (
	// ErrDataSet means the native library rejected an option value.
	ErrDataSet Kind = iota
	// ErrCmd means a command execution failed.
	ErrCmd
	// ErrTypeGet means the set type could not be resolved for a command.
	ErrTypeGet
	// ErrInvalidOutput means list/save output could not be parsed.
	ErrInvalidOutput
	// ErrSaveRestore covers failures of the file-backed save/restore path.
	ErrSaveRestore
	// ErrAddrParse means an address field was malformed.
	ErrAddrParse
	// ErrIntParse means a numeric field was malformed.
	ErrIntParse
	// ErrName means a name was empty or contained a NUL byte.
	ErrName
	// ErrOptionMisuse means a builder option does not apply to the
	// bound set type, or the data does not match it.
	ErrOptionMisuse
	// ErrDataParse means a data type field was malformed.
	ErrDataParse
)

func (k Kind) String() string {
	switch k {
	case ErrDataSet:
		return "dataset"
	case ErrCmd:
		return "cmd"
	case ErrTypeGet:
		return "typeget"
	case ErrInvalidOutput:
		return "invalid output"
	case ErrSaveRestore:
		return "save/restore"
	case ErrAddrParse:
		return "address parse"
	case ErrIntParse:
		return "integer parse"
	case ErrName:
		return "name"
	case ErrOptionMisuse:
		return "option misuse"
	case ErrDataParse:
		return "data parse"
	}
	return "unknown"
}

// Error is the failure type returned by every operation in this package.
// Message carries the native library's report text where one exists.
// Fatal mirrors the library's own hard-error vs warning distinction; the
// session engine uses it to tell a real protocol error from a recoverable
// negative outcome.
type Error struct {
	Kind    Kind
	Message string
	Fatal   bool
	cause   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// cmdContains reports whether e is a command failure whose native message
// contains substr. The add/del/test negative-result downgrades depend on
// the exact wording the native library emits; this is a known fragility
// inherited from the library's lack of structured error codes.
func (e *Error) cmdContains(substr string) bool {
	return e.Kind == ErrCmd && strings.Contains(e.Message, substr)
}

func newError(kind Kind, msg string, fatal bool) *Error {
	return &Error{Kind: kind, Message: msg, Fatal: fatal}
}

func wrapError(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Fatal: true, cause: cause}
}

// reportError reads the pending report from h and wraps it with kind.
func reportError(kind Kind, h Handle) *Error {
	msg, fatal := h.Report()
	return newError(kind, msg, fatal)
}
