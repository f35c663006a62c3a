package bpmgr

import "fmt"

// ErrorCode is the taxonomy of outcomes a manager operation can return,
// modeled on the GDB remote-serial error codes (see ds2's ErrorCodes.h).
type ErrorCode int

const (
	Success ErrorCode = iota
	NotFound
	InvalidArgument
	InvalidAddress
	NoMemory
	AccessDenied
	Unsupported
	Unknown
)

func (c ErrorCode) String() string {
	switch c {
	case Success:
		return "success"
	case NotFound:
		return "not found"
	case InvalidArgument:
		return "invalid argument"
	case InvalidAddress:
		return "invalid address"
	case NoMemory:
		return "no memory"
	case AccessDenied:
		return "access denied"
	case Unsupported:
		return "unsupported"
	default:
		return "unknown"
	}
}

// CodedError is the error type returned by manager operations; callers
// that need the raw taxonomy value should use Code(err).
type CodedError struct {
	Code ErrorCode
	Msg  string
}

func (e *CodedError) Error() string {
	if e.Msg == "" {
		return e.Code.String()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

// errf builds a *CodedError with a formatted message.
func errf(code ErrorCode, format string, args ...interface{}) *CodedError {
	return &CodedError{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// Code extracts the ErrorCode carried by err, returning Success for a nil
// error and Unknown for any error not produced by this package.
func Code(err error) ErrorCode {
	if err == nil {
		return Success
	}
	if ce, ok := err.(*CodedError); ok {
		return ce.Code
	}
	return Unknown
}

// invariant panics with a description of an internal bookkeeping
// violation. These are never triggered by external input; spec.md draws
// a hard line between caller-facing errors (returned) and programmer
// errors (panics).
func invariant(ok bool, format string, args ...interface{}) {
	if !ok {
		panic(fmt.Sprintf("bpmgr: invariant violated: "+format, args...))
	}
}
