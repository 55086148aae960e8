// SPDX-License-Identifier: MIT

/*
Package bitint provides the power-of-two helpers used to size the fixed
rings on the per-frame path. A ring whose capacity is a power of two can
wrap its cursor with a mask instead of a modulo.

Usage:

	capacity := bitint.NextPowerOfTwo(30) // 32
	mask := bitint.Mask(capacity)         // 31
	slot := cursor & mask
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of 2 >= size.
//
//	Input  Output
//	30     32
//	32     32
//	0      1
//	-1     1
//
// The subtraction of one keeps exact powers of two unchanged: bits.Len(7)
// is 3 so 8 maps to 1<<3, while bits.Len(8) would double it to 16.
func NextPowerOfTwo(size int) int {
	if size <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// IsPowerOfTwo reports whether n is a positive power of 2.
// Powers of 2 have exactly one bit set, so n&(n-1) clears it to zero.
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}

// Mask returns the wrap mask for a ring of the given capacity. The
// capacity is rounded up to a power of two first.
func Mask(capacity int) int {
	return NextPowerOfTwo(capacity) - 1
}
