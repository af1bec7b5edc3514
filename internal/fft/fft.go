// SPDX-License-Identifier: MIT
// Package fft provides the frequency transform used by the spectrum engine.
package fft

import (
	"fmt"

	"gonum.org/v1/gonum/dsp/fourier"

	"spectrum/pkg/bitint"
)

// Transformer computes the forward transform of a real frame of Size()
// samples. Forward writes Size()/2+1 coefficients into dst: bins 0 through
// Nyquist. It must not allocate.
type Transformer interface {
	Size() int
	Forward(dst []complex128, src []float64)
}

// Gonum is a Transformer backed by gonum's real FFT. The plan and its work
// area are allocated once; Forward is not safe for concurrent use.
type Gonum struct {
	size int
	plan *fourier.FFT
}

// NewGonum returns a transformer for frames of size samples. size must be a
// power of two.
func NewGonum(size int) (*Gonum, error) {
	if !bitint.IsPowerOfTwo(size) || size < 2 {
		return nil, fmt.Errorf("fft size must be a power of 2, got %d", size)
	}
	return &Gonum{size: size, plan: fourier.NewFFT(size)}, nil
}

// Size returns the number of input samples.
func (g *Gonum) Size() int {
	return g.size
}

// Forward transforms src into dst. len(src) must equal Size() and len(dst)
// must be Size()/2+1.
func (g *Gonum) Forward(dst []complex128, src []float64) {
	g.plan.Coefficients(dst, src)
}

// Stages returns the number of radix-2 stages of the transform.
func (g *Gonum) Stages() int {
	return bitint.Log2(g.size)
}

// BinFrequency returns the center frequency in Hz of bin i at sampleRate.
func (g *Gonum) BinFrequency(i int, sampleRate float64) float64 {
	if i < 0 || i > g.size/2 {
		return 0
	}
	return g.plan.Freq(i) * sampleRate
}

var _ Transformer = (*Gonum)(nil)
