/*
Package bitint provides the power-of-2 helpers used to size the transform
and the capture ring. Both sizes are fixed at startup and must be powers of
two: the transform because the radix-2 FFT requires it, the ring because its
slot index is derived with a mask instead of a modulo.

Design Principles:
- Zero Allocations: All operations use stack memory only
- Predictable Performance: O(1) constant time operations
- Real-Time Safe: No locks, syscalls, or blocking operations

Usage:

	// Round a requested ring depth up to a maskable capacity
	capacity := bitint.NextPowerOfTwo(48) // Returns 64
	mask := uint64(capacity - 1)

	// Verify the transform size is valid
	isValid := bitint.IsPowerOfTwo(fftSize)

----------------------------------------------------------------------

What NextPowerOfTwo does:

	The subtraction (size-1) is critical, without it powers of 2 would
	be doubled:

	WITH subtraction (correct):
	- For input 8: size-1 = 7 (binary 0111), bits.Len(7) = 3, 1 << 3 = 8

	WITHOUT subtraction (incorrect):
	- For input 8: bits.Len(8) = 4, 1 << 4 = 16
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the next power of 2 >= size.
//
// Examples:
//
//	Input  Output  Explanation
//	64     64      Already power of 2 (preserved)
//	48     64      Next power after 48
//	0      1      Handle zero case
//	-1     1      Handle negative case
func NextPowerOfTwo(size int) int {
	if size <= 0 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// IsPowerOfTwo checks if n is a power of 2 using bit manipulation.
// Powers of 2 have exactly one bit set, so n&(n-1) clears it to zero.
//
//	Input  Output  Binary
//	1024   true    10000000000 & 01111111111 = 0
//	1000   false   1111101000 & 1111100111 = 1111100000
//	0      false   Not positive
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}

// Log2 returns the exponent of a power of 2, or -1 if n is not one.
// The transform uses it to report its radix-2 stage count.
func Log2(n int) int {
	if !IsPowerOfTwo(n) {
		return -1
	}
	return bits.TrailingZeros(uint(n))
}
