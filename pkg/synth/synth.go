// SPDX-License-Identifier: MIT

// Package synth generates deterministic 32-bit PCM test signals and holds the
// peak search helper shared by the analysis and capture tests.
package synth

import "math"

// FullScale is the int32 full-scale value used to normalize samples.
const FullScale = float64(1 << 31)

// Sine writes a sine of the given frequency and peak amplitude (0..1 of full
// scale) into dst. offset is the absolute index of dst[0] in the stream so
// consecutive blocks stay phase continuous. channels > 1 writes the same value
// to every interleaved channel.
func Sine(dst []int32, sampleRate, frequency, amplitude float64, offset uint64, channels int) {
	if channels < 1 {
		channels = 1
	}
	amplitude = clampUnit(amplitude)
	frames := len(dst) / channels
	for i := range frames {
		// Keep only the fractional cycle so long runs keep their precision.
		cycles := frequency * float64(offset+uint64(i)) / sampleRate
		cycles -= math.Floor(cycles)
		v := int32(math.Sin(2*math.Pi*cycles) * amplitude * (FullScale - 1))
		for ch := range channels {
			dst[i*channels+ch] = v
		}
	}
}

// GenerateSineWave returns size mono samples of a sine at 90% full scale.
func GenerateSineWave(size int, sampleRate, frequency float64) []int32 {
	buffer := make([]int32, size)
	Sine(buffer, sampleRate, frequency, 0.9, 0, 1)
	return buffer
}

// GenerateComplexWave returns a 440Hz fundamental with two harmonics.
func GenerateComplexWave(size int, sampleRate float64) []int32 {
	buffer := make([]int32, size)
	for i := range buffer {
		tm := float64(i) / sampleRate
		signal := math.Sin(2*math.Pi*440*tm)*0.5 +
			math.Sin(2*math.Pi*880*tm)*0.3 +
			math.Sin(2*math.Pi*1320*tm)*0.2
		buffer[i] = int32(signal * math.MaxInt32 * 0.9)
	}
	return buffer
}

// FindPeakBin returns the index of the largest value in magnitudes[startBin:endBin+1].
// Bounds are clamped to the slice.
func FindPeakBin(magnitudes []float64, startBin, endBin int) int {
	if len(magnitudes) == 0 {
		return 0
	}

	if startBin < 0 {
		startBin = 0
	}

	if endBin >= len(magnitudes) {
		endBin = len(magnitudes) - 1
	}

	peakBin := startBin
	peakValue := magnitudes[startBin]

	for bin := startBin + 1; bin <= endBin; bin++ {
		if magnitudes[bin] > peakValue {
			peakValue = magnitudes[bin]
			peakBin = bin
		}
	}

	return peakBin
}

// ExpectedBin returns round(frequency * size / sampleRate), the bin a pure tone
// is expected to peak in.
func ExpectedBin(frequency, sampleRate float64, size int) int {
	return int(math.Round(frequency * float64(size) / sampleRate))
}

func clampUnit(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
