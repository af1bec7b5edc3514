// SPDX-License-Identifier: MIT
/*
Package audio is the capture side of the analyzer. A Source delivers
fixed-size blocks of interleaved 32-bit samples; the Producer pulls them on a
dedicated goroutine and pushes them into the capture ring without blocking.

Sources:
  - PortAudioSource reads a blocking PortAudio input stream.
  - WAVSource replays a WAV file, looping at the end.
  - SineSource synthesizes a tone, optionally injecting overruns.

Thread Safety:
  - A Source is driven by one goroutine at a time.
  - Blocks are caller-owned; Pull fills them in place and never allocates.
*/
package audio

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrTimeout is returned by Pull when no block became available in time.
	ErrTimeout = errors.New("capture timed out")
	// ErrCaptureOverrun is returned by Pull when the device lost samples
	// before the block was read. The block is still filled.
	ErrCaptureOverrun = errors.New("capture overrun")
	// ErrFormat is returned by Configure for a format the source cannot deliver.
	ErrFormat = errors.New("unsupported capture format")
	// ErrNotConfigured is returned by Pull before a successful Configure.
	ErrNotConfigured = errors.New("source not configured")
)

// Format describes the blocks a source delivers.
type Format struct {
	SampleRate float64 // Hz.
	BitDepth   int     // Bits of resolution; samples are always carried as int32.
	Channels   int     // Interleaved channels per frame.
	BlockSize  int     // Frames per block.
}

// Samples returns the length of a block's sample slice.
func (f Format) Samples() int {
	return f.BlockSize * f.Channels
}

// BlockDuration returns the capture time covered by one block.
func (f Format) BlockDuration() time.Duration {
	return time.Duration(float64(f.BlockSize) / f.SampleRate * float64(time.Second))
}

// Validate checks the format is usable by every source.
func (f Format) Validate() error {
	switch {
	case f.SampleRate <= 0:
		return fmt.Errorf("%w: sample rate %.0f", ErrFormat, f.SampleRate)
	case f.BitDepth != 32:
		return fmt.Errorf("%w: %d-bit samples", ErrFormat, f.BitDepth)
	case f.Channels < 1:
		return fmt.Errorf("%w: %d channels", ErrFormat, f.Channels)
	case f.BlockSize < 1:
		return fmt.Errorf("%w: block size %d", ErrFormat, f.BlockSize)
	}
	return nil
}

func (f Format) String() string {
	return fmt.Sprintf("%.0fHz/%d-bit/%dch/%d frames", f.SampleRate, f.BitDepth, f.Channels, f.BlockSize)
}

// Block is one capture block of interleaved samples.
type Block struct {
	Samples []int32
	Seq     uint64 // Assigned by the producer, monotonically increasing.
	Gap     bool   // Samples are silence standing in for lost capture.
}

// NewBlock allocates a block sized for f.
func NewBlock(f Format) Block {
	return Block{Samples: make([]int32, f.Samples())}
}

// Silence zeroes the block and marks it as a gap.
func (b *Block) Silence() {
	clear(b.Samples)
	b.Gap = true
}

// Source is the audio capture collaborator.
type Source interface {
	// Configure prepares the source to deliver blocks of format f.
	Configure(f Format) error
	// Pull fills dst with the next block, waiting at most timeout.
	Pull(dst *Block, timeout time.Duration) error
	// Close releases the device or file.
	Close() error
}
