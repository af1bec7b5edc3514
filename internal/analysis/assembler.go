// SPDX-License-Identifier: MIT
package analysis

import "spectrum/internal/audio"

// normalize maps an int32 sample onto [-1, 1).
const normalize = 1.0 / float64(1<<31)

// FrameAssembler builds analysis frames from capture blocks. It keeps the
// most recent Size() samples of channel 0, so consecutive frames overlap
// when fewer than Size() samples arrive between them.
type FrameAssembler struct {
	frame    []float64
	channels int
	filled   int
}

// NewFrameAssembler returns an assembler for frames of size samples taken
// from blocks with the given interleaved channel count.
func NewFrameAssembler(size, channels int) *FrameAssembler {
	return &FrameAssembler{
		frame:    make([]float64, size),
		channels: max(channels, 1),
	}
}

// Push appends the blocks, oldest first, discarding the oldest history.
func (a *FrameAssembler) Push(blocks []audio.Block) {
	for i := range blocks {
		a.push(blocks[i].Samples)
	}
}

func (a *FrameAssembler) push(samples []int32) {
	n := len(samples) / a.channels
	size := len(a.frame)

	// Only the newest size samples of a long block can survive.
	skip := 0
	if n > size {
		skip = n - size
		n = size
	}

	copy(a.frame, a.frame[n:])
	tail := a.frame[size-n:]
	for i := range tail {
		tail[i] = float64(samples[(skip+i)*a.channels]) * normalize
	}
	a.filled = min(a.filled+n, size)
}

// Frame returns the current frame. The slice is owned by the assembler and
// changes on the next Push.
func (a *FrameAssembler) Frame() []float64 {
	return a.frame
}

// Ready reports whether a full frame of real samples has been pushed since
// construction or the last Reset.
func (a *FrameAssembler) Ready() bool {
	return a.filled == len(a.frame)
}

// Reset clears the history.
func (a *FrameAssembler) Reset() {
	clear(a.frame)
	a.filled = 0
}
