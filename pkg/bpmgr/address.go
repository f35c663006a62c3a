package bpmgr

import "fmt"

// invalidAddress is the sentinel value representing "no address" / a null
// target location. It is never a legal breakpoint site.
const invalidAddress uint64 = 0

// Address is an opaque target virtual address. The zero Address is never
// valid; use NewAddress to build one from a raw value.
type Address uint64

// NilAddress is the invalid, sentinel Address.
const NilAddress Address = Address(invalidAddress)

// NewAddress wraps a raw target address. Passing 0 yields NilAddress.
func NewAddress(raw uint64) Address {
	return Address(raw)
}

// Valid reports whether a is usable as a breakpoint/watchpoint location.
func (a Address) Valid() bool {
	return uint64(a) != invalidAddress
}

// Raw returns the underlying 64-bit value.
func (a Address) Raw() uint64 {
	return uint64(a)
}

// Less orders addresses numerically.
func (a Address) Less(b Address) bool {
	return uint64(a) < uint64(b)
}

func (a Address) String() string {
	if !a.Valid() {
		return "<invalid>"
	}
	return fmt.Sprintf("%#x", uint64(a))
}
