// SPDX-License-Identifier: MIT
package audio

import (
	"os"
	"time"

	"github.com/go-audio/wav"
	"github.com/pkg/errors"
)

// WAVSource replays a PCM WAV file as if it were a capture device. The file
// is decoded once; playback loops at the end.
type WAVSource struct {
	path string

	samples  []int32 // Interleaved, rescaled to 32 bits.
	channels int     // Channels in the file.
	rate     float64

	format Format
	pacer  pacer
	frame  int // Next frame to deliver.
	loops  uint64
}

// NewWAVSource decodes the file at path. With pace set, Pull releases blocks
// in real time.
func NewWAVSource(path string, pace bool) (*WAVSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open wav")
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, errors.Errorf("%s: not a valid WAV file", path)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", path)
	}

	channels := int(dec.NumChans)
	if channels < 1 || len(buf.Data) < channels {
		return nil, errors.Errorf("%s: no PCM data", path)
	}

	shift, unsigned, err := rescaleFor(int(dec.BitDepth))
	if err != nil {
		return nil, errors.Wrap(err, path)
	}

	frames := len(buf.Data) / channels
	samples := make([]int32, frames*channels)
	for i := range samples {
		v := buf.Data[i]
		if unsigned {
			v -= 128
		}
		samples[i] = int32(v) << shift
	}

	return &WAVSource{
		path:     path,
		samples:  samples,
		channels: channels,
		rate:     float64(dec.SampleRate),
		pacer:    newPacer(pace, 0),
	}, nil
}

// rescaleFor returns the left shift that brings a sample of the given bit
// depth to 32 bits. 8-bit WAV data is unsigned.
func rescaleFor(bitDepth int) (shift uint, unsigned bool, err error) {
	switch bitDepth {
	case 8:
		return 24, true, nil
	case 16:
		return 16, false, nil
	case 24:
		return 8, false, nil
	case 32:
		return 0, false, nil
	}
	return 0, false, errors.Wrapf(ErrFormat, "%d-bit WAV", bitDepth)
}

// SampleRate returns the file's sample rate.
func (s *WAVSource) SampleRate() float64 { return s.rate }

// Channels returns the file's channel count.
func (s *WAVSource) Channels() int { return s.channels }

// Loops returns how many times playback wrapped around.
func (s *WAVSource) Loops() uint64 { return s.loops }

// Configure checks the file can deliver f. The sample rate must match; the
// file's channels are mapped onto the requested ones, repeating the last
// channel when more are requested.
func (s *WAVSource) Configure(f Format) error {
	if err := f.Validate(); err != nil {
		return err
	}
	if f.SampleRate != s.rate {
		return errors.Wrapf(ErrFormat, "%s is %.0fHz, capture is %.0fHz", s.path, s.rate, f.SampleRate)
	}
	s.format = f
	s.pacer.period = f.BlockDuration()
	return nil
}

// Pull copies the next block from the file, wrapping at the end.
func (s *WAVSource) Pull(dst *Block, timeout time.Duration) error {
	if s.format.BlockSize == 0 {
		return ErrNotConfigured
	}
	if err := s.pacer.wait(timeout); err != nil {
		return err
	}

	frames := len(s.samples) / s.channels
	out := s.format.Channels
	for i := range s.format.BlockSize {
		src := s.samples[s.frame*s.channels:]
		for ch := range out {
			dst.Samples[i*out+ch] = src[min(ch, s.channels-1)]
		}
		s.frame++
		if s.frame == frames {
			s.frame = 0
			s.loops++
		}
	}
	dst.Gap = false
	return nil
}

// Close releases the decoded samples.
func (s *WAVSource) Close() error {
	s.samples = nil
	s.format = Format{}
	return nil
}

var _ Source = (*WAVSource)(nil)
