// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/dsp/window"
)

// Window selects a tapering function.
type Window int

// Available window functions. Hann is the default.
const (
	Hann Window = iota
	Hamming
	Blackman
	BlackmanNuttall
	BartlettHann
	Nuttall
	Lanczos
	Rectangular
)

var windowNames = [...]string{
	Hann:            "hann",
	Hamming:         "hamming",
	Blackman:        "blackman",
	BlackmanNuttall: "blackmannuttall",
	BartlettHann:    "bartletthann",
	Nuttall:         "nuttall",
	Lanczos:         "lanczos",
	Rectangular:     "rectangular",
}

func (w Window) String() string {
	if w < 0 || int(w) >= len(windowNames) {
		return fmt.Sprintf("Window(%d)", int(w))
	}
	return windowNames[w]
}

// ParseWindow converts a case-insensitive name to a Window. Unknown names
// return Hann and an error.
func ParseWindow(name string) (Window, error) {
	switch n := strings.ToLower(strings.TrimSpace(name)); n {
	case "", "hanning":
		return Hann, nil
	default:
		for w, wn := range windowNames {
			if wn == n {
				return Window(w), nil
			}
		}
	}
	return Hann, fmt.Errorf("unknown window function: %q", name)
}

// WindowTable holds precomputed coefficients for one window and size.
// It is immutable after construction and safe to share.
type WindowTable struct {
	kind   Window
	coeffs []float64
	gain   float64
}

// NewWindowTable computes the coefficients of kind for frames of size
// samples. size must be at least 2.
func NewWindowTable(kind Window, size int) (*WindowTable, error) {
	if size < 2 {
		return nil, fmt.Errorf("window size must be at least 2, got %d", size)
	}

	// The gonum functions scale the slice in place, so start from ones.
	coeffs := make([]float64, size)
	for i := range coeffs {
		coeffs[i] = 1.0
	}
	switch kind {
	case Hann:
		window.Hann(coeffs)
	case Hamming:
		window.Hamming(coeffs)
	case Blackman:
		window.Blackman(coeffs)
	case BlackmanNuttall:
		window.BlackmanNuttall(coeffs)
	case BartlettHann:
		window.BartlettHann(coeffs)
	case Nuttall:
		window.Nuttall(coeffs)
	case Lanczos:
		window.Lanczos(coeffs)
	case Rectangular:
		window.Rectangular(coeffs)
	default:
		return nil, fmt.Errorf("unknown window function %d", kind)
	}

	var sum float64
	for _, c := range coeffs {
		sum += c
	}

	return &WindowTable{kind: kind, coeffs: coeffs, gain: sum / float64(size)}, nil
}

// Apply writes src[i]*table[i] into dst. Both must be Size() long.
func (t *WindowTable) Apply(dst, src []float64) {
	coeffs := t.coeffs[:len(dst)]
	src = src[:len(dst)]
	for i, c := range coeffs {
		dst[i] = src[i] * c
	}
}

// Size returns the number of coefficients.
func (t *WindowTable) Size() int { return len(t.coeffs) }

// Kind returns the window function.
func (t *WindowTable) Kind() Window { return t.kind }

// At returns coefficient i.
func (t *WindowTable) At(i int) float64 { return t.coeffs[i] }

// CoherentGain returns the mean coefficient, the factor by which the window
// attenuates a tone's amplitude.
func (t *WindowTable) CoherentGain() float64 { return t.gain }
