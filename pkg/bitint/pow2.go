// SPDX-License-Identifier: MIT
/*
Package bitint holds the small power-of-two helpers used to size FFT
frames and sample rings. All functions are allocation free and constant
time, so they are safe to call from an audio callback.

	size := bitint.NextPowerOfTwo(1000) // 1024
	mask := size - 1                     // ring index mask
	ok := bitint.IsPowerOfTwo(256)       // true

NextPowerOfTwo relies on bits.Len(size-1): subtracting one first keeps an
exact power of two unchanged instead of doubling it.
*/
package bitint

import "math/bits"

// IsPowerOfTwo reports whether n is a positive power of two.
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// NextPowerOfTwo returns the smallest power of two >= size. Sizes <= 0
// yield 1.
func NextPowerOfTwo(size int) int {
	if size <= 0 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// Log2 returns the base two logarithm of a power of two, or -1 when n is
// not one.
func Log2(n int) int {
	if !IsPowerOfTwo(n) {
		return -1
	}
	return bits.TrailingZeros(uint(n))
}
