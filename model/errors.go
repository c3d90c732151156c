package model

import "github.com/pkg/errors"

// Kind classifies a failure the way §7 of the design does, so the
// dispatcher can decide how to render it without string-sniffing.
type Kind int

const (
	KindOther Kind = iota
	KindNoProcess
	KindWrongState
	KindInvalidArgument
	KindRuntimeFailure
	KindTimeout
	KindCancelled
	KindIO
)

// Error is a typed failure carrying a Kind alongside the wrapped cause.
type Error struct {
	Kind  Kind
	cause error
}

func (e *Error) Error() string {
	if e.cause == nil {
		return e.Kind.String()
	}
	return e.cause.Error()
}

func (e *Error) Unwrap() error { return e.cause }

func (k Kind) String() string {
	switch k {
	case KindNoProcess:
		return "no process"
	case KindWrongState:
		return "wrong state"
	case KindInvalidArgument:
		return "invalid argument"
	case KindRuntimeFailure:
		return "runtime failure"
	case KindTimeout:
		return "timeout"
	case KindCancelled:
		return "cancelled"
	case KindIO:
		return "io error"
	default:
		return "error"
	}
}

// NewError wraps cause (which may be nil) with kind.
func NewError(kind Kind, cause error) *Error {
	return &Error{Kind: kind, cause: cause}
}

// Errorf builds a Kind-tagged error with a formatted message.
func Errorf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, cause: errors.Errorf(format, args...)}
}

// KindOf extracts the Kind of err, defaulting to KindOther if err is not
// (or does not wrap) a *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindOther
}

var (
	// ErrNoProcess is returned by operations that require a debuggee when
	// none is attached or launched.
	ErrNoProcess = NewError(KindNoProcess, errors.New("no debuggee process"))

	// ErrCancelled is returned when a command is cancelled explicitly or
	// displaced by a queue-cancelling command.
	ErrCancelled = NewError(KindCancelled, errors.New("cancelled"))

	// ErrTimeout is returned when a command exceeds its deadline.
	ErrTimeout = NewError(KindTimeout, errors.New("timeout"))
)
