package controller

import (
	"errors"
	"fmt"
	"math/bits"
)

// ErrNotPowerOfTwo is returned when a geometry parameter that the address
// decomposition relies on is not a power of two.
var ErrNotPowerOfTwo = errors.New("not a power of two")

// IsPowerOfTwo returns true if v is a positive power of two.
func IsPowerOfTwo(v uint64) bool {
	return v != 0 && v&(v-1) == 0
}

// MustBePowerOfTwo returns an error wrapping ErrNotPowerOfTwo if v is not a
// power of two.
func MustBePowerOfTwo(what string, v uint64) error {
	if !IsPowerOfTwo(v) {
		return fmt.Errorf("%s %d: %w", what, v, ErrNotPowerOfTwo)
	}

	return nil
}

// An AddressDecoder splits an address into a tag, a set index and an offset.
type AddressDecoder struct {
	offsetBits uint
	setBits    uint
	tagMask    uint64
	offsetMask uint64
}

// NewAddressDecoder creates a decoder for a cache with numSets sets of
// lineSize-byte lines.
func NewAddressDecoder(numSets, lineSize uint64) (AddressDecoder, error) {
	if err := MustBePowerOfTwo("number of sets", numSets); err != nil {
		return AddressDecoder{}, err
	}

	if err := MustBePowerOfTwo("line size", lineSize); err != nil {
		return AddressDecoder{}, err
	}

	d := AddressDecoder{
		offsetBits: uint(bits.TrailingZeros64(lineSize)),
		setBits:    uint(bits.TrailingZeros64(numSets)),
		offsetMask: lineSize - 1,
	}
	d.tagMask = ^uint64(0) << (d.offsetBits + d.setBits)

	return d, nil
}

// OffsetBits returns the number of bits that address a byte in a line.
func (d AddressDecoder) OffsetBits() uint {
	return d.offsetBits
}

// SetBits returns the number of bits that select a set.
func (d AddressDecoder) SetBits() uint {
	return d.setBits
}

// Tag returns the tag bits of addr, in place.
func (d AddressDecoder) Tag(addr uint64) uint64 {
	return addr & d.tagMask
}

// SetIndex returns the set that addr maps to.
func (d AddressDecoder) SetIndex(addr uint64) uint64 {
	return (addr &^ d.tagMask) >> d.offsetBits
}

// Offset returns the byte offset of addr in its line.
func (d AddressDecoder) Offset(addr uint64) uint64 {
	return addr & d.offsetMask
}

// LineAddress returns addr with the offset bits cleared.
func (d AddressDecoder) LineAddress(addr uint64) uint64 {
	return addr &^ d.offsetMask
}

// Decode returns the tag, the set index and the offset of addr.
func (d AddressDecoder) Decode(addr uint64) (tag, setIndex, offset uint64) {
	return d.Tag(addr), d.SetIndex(addr), d.Offset(addr)
}
