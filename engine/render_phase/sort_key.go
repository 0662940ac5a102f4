package render_phase

import (
	"cmp"
	"math"
)

const (
	signBit = 0x80000000
	// nanBits is the ordered image of every NaN: after +Inf, shared by all payloads.
	nanBits = 0xFFFFFFFF
)

// SortKey is a totally ordered wrapper around a phase item's distance.
//
// Ordering follows IEEE-754 numeric order with two adjustments so that every value,
// including non-finite ones, has a single defined position:
//   - every NaN compares equal to every other NaN and greater than +Inf
//   - -0 and +0 are the same key
type SortKey struct {
	distance float32
}

// NewSortKey wraps a distance in a SortKey.
//
// Parameters:
//   - distance: the distance from the camera along the view axis
//
// Returns:
//   - SortKey: the ordered key
func NewSortKey(distance float32) SortKey {
	return SortKey{distance: distance}
}

// Distance returns the wrapped distance unchanged.
func (k SortKey) Distance() float32 {
	return k.distance
}

// Bits returns the unsigned image of the key under the total order: for any two keys a and b,
// a < b iff a.Bits() < b.Bits(), and a == b iff a.Bits() == b.Bits(). The radix sort
// distributes on these bits.
//
// Returns:
//   - uint32: the order-preserving key bits
func (k SortKey) Bits() uint32 {
	return orderedBits(k.distance)
}

// Compare returns -1, 0 or +1 depending on whether k sorts before, equal to, or after other.
func (k SortKey) Compare(other SortKey) int {
	return cmp.Compare(k.Bits(), other.Bits())
}

// Less reports whether k sorts strictly before other.
func (k SortKey) Less(other SortKey) bool {
	return k.Bits() < other.Bits()
}

// Equal reports whether k and other occupy the same position in the order.
func (k SortKey) Equal(other SortKey) bool {
	return k.Bits() == other.Bits()
}

// orderedBits maps a float32 onto a uint32 whose unsigned order matches the float's total order.
// Negative values have all bits flipped, non-negative values get the sign bit set.
func orderedBits(f float32) uint32 {
	if f != f {
		return nanBits
	}
	if f == 0 {
		return signBit
	}
	b := math.Float32bits(f)
	if b&signBit != 0 {
		return ^b
	}
	return b | signBit
}
