// Package kerrors is the strongly-typed failure taxonomy shared by every
// component in this module: callers switch on Kind, never on a message
// string, exactly as the exception hierarchy it replaces did.
package kerrors

import (
	"fmt"
	"runtime"

	"github.com/pkg/errors"
)

// Kind distinguishes failure categories. It is the only thing callers
// should ever branch on.
type Kind int

const (
	// BadArgument covers structural misuse: a tombstoned iterator, an
	// assignment from a tombstoned iterator, splicing from end, erasing
	// through end.
	BadArgument Kind = iota + 1
	// OutOfRange covers advancing past end and reading an empty front.
	OutOfRange
	// MemoryExhausted is raised by a memhandle.Handle whose ceiling
	// would be exceeded by a reservation.
	MemoryExhausted
	// NotInitialized is raised by an operation attempted before its
	// subsystem (handle, table) was constructed.
	NotInitialized
	// FreeUnallocated is raised when a release/free references a token
	// or pointer that its handle never reserved.
	FreeUnallocated
)

func (k Kind) String() string {
	switch k {
	case BadArgument:
		return "BadArgument"
	case OutOfRange:
		return "OutOfRange"
	case MemoryExhausted:
		return "MemoryExhausted"
	case NotInitialized:
		return "NotInitialized"
	case FreeUnallocated:
		return "FreeUnallocated"
	default:
		return "Unknown"
	}
}

// Error is the concrete error type carried by every failure this module
// raises. It records where the failure originated (module/file/line,
// mirroring the C++ exception site metadata this taxonomy replaces) and
// an optional 5-character state code for external error-number tables;
// the state code is data, never part of the type.
type Error struct {
	Kind   Kind
	Module string
	File   string
	Line   int
	State  string // optional 5-character SQLSTATE-style token
	cause  error
}

func (e *Error) Error() string {
	if e.State != "" {
		return fmt.Sprintf("%s[%s] %s:%d: %s", e.Kind, e.State, e.File, e.Line, e.message())
	}
	return fmt.Sprintf("%s %s:%d: %s", e.Kind, e.File, e.Line, e.message())
}

func (e *Error) message() string {
	if e.cause != nil {
		return e.cause.Error()
	}
	return "no further detail"
}

// Unwrap exposes the wrapped cause so that errors.Is/errors.As keep
// working against *Error.
func (e *Error) Unwrap() error { return e.cause }

// Cause lets pkg/errors' Cause walk through an *Error to its wrapped
// cause.
func (e *Error) Cause() error { return e.cause }

// Cause returns the underlying cause via pkg/errors, preserving any
// attached stack trace.
func Cause(err error) error { return errors.Cause(err) }

// New builds an *Error of the given kind, capturing the call site of
// its caller (skip=1 means "the function that called New").
func New(kind Kind, module string, cause error) *Error {
	_, file, line, _ := runtime.Caller(1)
	return &Error{
		Kind:   kind,
		Module: module,
		File:   file,
		Line:   line,
		cause:  errors.WithStack(cause),
	}
}

// Newf is New with a formatted cause message.
func Newf(kind Kind, module, format string, args ...interface{}) *Error {
	_, file, line, _ := runtime.Caller(1)
	return &Error{
		Kind:   kind,
		Module: module,
		File:   file,
		Line:   line,
		cause:  errors.WithStack(fmt.Errorf(format, args...)),
	}
}

// WithState attaches a 5-character state code and returns the receiver
// for chaining at the construction site.
func (e *Error) WithState(state string) *Error {
	e.State = state
	return e
}

// KindOf extracts the Kind carried by err, or 0 if err is not (and does
// not wrap) a *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// Is reports whether err is (or wraps) a *Error of the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
