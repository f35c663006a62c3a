// Package gdbremote glues a set of breakpoint managers to a traced
// process and maps bpmgr's ErrorCode taxonomy to the small integer codes
// a GDB remote-serial stub reports back to the debugger. It is not the
// wire-protocol parser itself (out of scope per spec.md §1) — just the
// thin adapter a ProtocolLayer would sit behind.
package gdbremote

import "github.com/undoio/bpmgr/pkg/bpmgr"

// Code is a GDB remote-serial error code, as used in a stub's "E NN"
// reply packets.
type Code int

// GDB error codes, ported from ds2's ErrorCodes.h.
const (
	ESuccess         Code = 0
	ENoPermission    Code = 1
	ENotFound        Code = 2
	EProcessNotFound Code = 3
	EInterrupted     Code = 4
	EInvalidHandle   Code = 9
	ENoMemory        Code = 12
	EAccessDenied    Code = 13
	EInvalidAddress  Code = 14
	EBusy            Code = 16
	EInvalidArgument Code = 22
	EUnknown         Code = 9999
	EUnsupported     Code = 10000
)

// FromError maps a bpmgr error (or nil) to its GDB remote-serial code.
func FromError(err error) Code {
	switch bpmgr.Code(err) {
	case bpmgr.Success:
		return ESuccess
	case bpmgr.NotFound:
		return ENotFound
	case bpmgr.InvalidArgument:
		return EInvalidArgument
	case bpmgr.InvalidAddress:
		return EInvalidAddress
	case bpmgr.NoMemory:
		return ENoMemory
	case bpmgr.AccessDenied:
		return EAccessDenied
	case bpmgr.Unsupported:
		return EUnsupported
	default:
		return EUnknown
	}
}
