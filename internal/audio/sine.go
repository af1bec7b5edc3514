// SPDX-License-Identifier: MIT
package audio

import (
	"time"

	"spectrum/pkg/synth"
)

// SineSource synthesizes a continuous tone. It stands in for a device in
// tests and demos.
type SineSource struct {
	Frequency float64 // Hz.
	Amplitude float64 // Fraction of full scale.

	// OverrunEvery makes every Nth Pull report ErrCaptureOverrun.
	// Zero disables injection.
	OverrunEvery uint64

	format Format
	pacer  pacer
	offset uint64
	pulls  uint64
	ready  bool
}

// NewSineSource returns a tone source. With pace set, Pull releases blocks
// in real time.
func NewSineSource(frequency, amplitude float64, pace bool) *SineSource {
	return &SineSource{
		Frequency: frequency,
		Amplitude: amplitude,
		pacer:     newPacer(pace, 0),
	}
}

// Configure sets the block format.
func (s *SineSource) Configure(f Format) error {
	if err := f.Validate(); err != nil {
		return err
	}
	s.format = f
	s.pacer.period = f.BlockDuration()
	s.ready = true
	return nil
}

// Pull synthesizes the next block, phase continuous with the previous one.
func (s *SineSource) Pull(dst *Block, timeout time.Duration) error {
	if !s.ready {
		return ErrNotConfigured
	}
	if err := s.pacer.wait(timeout); err != nil {
		return err
	}

	synth.Sine(dst.Samples, s.format.SampleRate, s.Frequency, s.Amplitude, s.offset, s.format.Channels)
	dst.Gap = false
	s.offset += uint64(s.format.BlockSize)
	s.pulls++

	if s.OverrunEvery > 0 && s.pulls%s.OverrunEvery == 0 {
		return ErrCaptureOverrun
	}
	return nil
}

// Close is a no-op.
func (s *SineSource) Close() error {
	s.ready = false
	return nil
}

var _ Source = (*SineSource)(nil)
