// Package vm defines the address layout and the page table of the simulated
// virtual memory system.
package vm

import (
	"errors"
	"fmt"
	"math/bits"
)

const (
	// OffsetBits is the number of low-order address bits that select a byte
	// within a page.
	OffsetBits = 8

	// VPNBits is the number of address bits that select a virtual page.
	VPNBits = 16

	// AddressBits is the width of a virtual address.
	AddressBits = VPNBits + OffsetBits

	// NumPages is the number of virtual pages in the address space.
	NumPages = 1 << VPNBits

	offsetMask = 1<<OffsetBits - 1
)

// VPN is a virtual page number.
type VPN uint16

// PFN is a physical frame number.
type PFN uint8

// MaxFrames is the largest number of physical frames a PFN can address.
const MaxFrames = 1 << 8

// ErrMalformedAddress is returned when a trace value does not fit in a
// virtual address.
var ErrMalformedAddress = errors.New("malformed virtual address")

// MalformedAddressError reports a value that needs more than AddressBits
// bits.
type MalformedAddressError struct {
	Value uint64
	Bits  int
}

func (e *MalformedAddressError) Error() string {
	return fmt.Sprintf("value 0x%x needs %d bits, exceeds %d-bit address",
		e.Value, e.Bits, AddressBits)
}

// Unwrap allows errors.Is(err, ErrMalformedAddress).
func (e *MalformedAddressError) Unwrap() error {
	return ErrMalformedAddress
}

// SignificantBits returns the number of bits needed to represent v.
func SignificantBits(v uint64) int {
	return bits.Len64(v)
}

// CheckAddress returns a *MalformedAddressError if va cannot be a virtual
// address.
func CheckAddress(va uint64) error {
	n := SignificantBits(va)
	if n > AddressBits {
		return &MalformedAddressError{Value: va, Bits: n}
	}

	return nil
}

// Split decomposes a virtual address into its page number and offset.
func Split(va uint64) (VPN, uint64) {
	return VPN(va >> OffsetBits), va & offsetMask
}

// Join is the inverse of Split.
func Join(vpn VPN, offset uint64) uint64 {
	return uint64(vpn)<<OffsetBits | offset&offsetMask
}

// PhysicalAddress combines a frame number and a page offset.
func PhysicalAddress(pfn PFN, offset uint64) uint64 {
	return uint64(pfn)<<OffsetBits | offset&offsetMask
}
