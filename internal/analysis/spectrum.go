// SPDX-License-Identifier: MIT
package analysis

// Spectrum is the result of analyzing one frame. Its slices are owned by the
// Engine that produced it and are overwritten by the next Analyze.
type Spectrum struct {
	// Magnitudes holds the amplitude of each bin from DC up to, but not
	// including, Nyquist. A full-scale sine centered on a bin reads 1.0.
	Magnitudes []float64
	// DB holds 20*log10(magnitude/reference), clamped at the floor.
	DB []float64
	// Levels maps DB linearly from the floor (0) to the reference (1).
	Levels []float64

	Peak         int     // Bin of the largest magnitude, excluding DC.
	BinWidth     float64 // Hz per bin.
	Significance float64 // Minimum peak magnitude to report a dominant frequency.
	Frame        uint64  // Sequence number of the analyzed frame.
}

// Bins returns the number of bins.
func (s *Spectrum) Bins() int {
	return len(s.Magnitudes)
}

// BinFrequency returns the center frequency of bin i in Hz.
func (s *Spectrum) BinFrequency(i int) float64 {
	return float64(i) * s.BinWidth
}

// PeakMagnitude returns the magnitude of the peak bin.
func (s *Spectrum) PeakMagnitude() float64 {
	if s.Peak >= len(s.Magnitudes) {
		return 0
	}
	return s.Magnitudes[s.Peak]
}

// PeakFrequency returns the frequency of the peak bin in Hz.
func (s *Spectrum) PeakFrequency() float64 {
	return s.BinFrequency(s.Peak)
}

// Significant reports whether the peak is strong enough to be reported as
// the dominant frequency.
func (s *Spectrum) Significant() bool {
	return s.PeakMagnitude() > s.Significance
}

// DominantFrequency returns the peak frequency, or 0 when the peak is not
// significant.
func (s *Spectrum) DominantFrequency() float64 {
	if !s.Significant() {
		return 0
	}
	return s.PeakFrequency()
}
