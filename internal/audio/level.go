// SPDX-License-Identifier: MIT
package audio

import "math"

// PeakAmplitude returns the largest absolute sample value without branching
// per sample. math.MinInt32 saturates to math.MaxInt32.
func PeakAmplitude(samples []int32) int32 {
	var peak int32
	for _, sample := range samples {
		// Absolute value without branching.
		mask := sample >> 31
		amplitude := (sample ^ mask) - mask
		amplitude ^= amplitude >> 31

		// Update max using math instead of branching.
		diff := amplitude - peak
		peak += (diff & (diff >> 31)) ^ diff
	}
	return peak
}

// PeakLevel converts a peak amplitude to a fraction of full scale in [0, 1].
func PeakLevel(peak int32) float64 {
	return float64(peak) / float64(math.MaxInt32)
}

// LevelToAmplitude converts a fraction of full scale to an amplitude,
// clamping the input to [0, 1].
func LevelToAmplitude(level float64) int32 {
	level = max(0, min(level, 1))
	return int32(level * float64(math.MaxInt32))
}
