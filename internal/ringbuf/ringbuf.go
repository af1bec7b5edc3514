// SPDX-License-Identifier: MIT
/*
Package ringbuf is the bounded queue between the capture context and the
analysis context.

Discipline: exactly one goroutine calls Push and exactly one goroutine calls
DrainExact or DrainWait. Under that discipline the ring needs no lock: the
producer owns the write cursor, the consumer owns the read cursor, and each
publishes its cursor with an atomic store after touching the slots.

Overflow policy: drop newest. When the ring is full Push discards the
incoming block, counts it and returns ErrFull. Unread blocks are never
overwritten, so a drained sequence is always gap-free apart from gaps the
producer marks itself.
*/
package ringbuf

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"spectrum/internal/audio"
	"spectrum/pkg/bitint"
)

var (
	// ErrFull is returned by Push when every slot holds an unread block.
	ErrFull = errors.New("ring buffer full")
	// ErrUnderrun is returned by the drains when fewer blocks than requested
	// are buffered.
	ErrUnderrun = errors.New("ring buffer underrun")
	// ErrBlockLength is returned by Push for a block of the wrong size.
	ErrBlockLength = errors.New("block length mismatch")
)

// Ring is a fixed-capacity single-producer single-consumer queue of blocks.
type Ring struct {
	slots    []audio.Block
	mask     uint64
	blockLen int

	// Cursors count blocks ever written and read; slot = cursor & mask.
	write atomic.Uint64
	_     [56]byte // Keep the cursors on separate cache lines.
	read  atomic.Uint64
	_     [56]byte

	dropped atomic.Uint64
	pushed  atomic.Uint64

	// notify wakes a consumer waiting in DrainWait. One pending signal is
	// enough since the consumer re-checks the cursors after waking.
	notify chan struct{}

	// timer is owned by the consumer and reused by every DrainWait.
	timer *time.Timer
}

// New returns a ring holding capacity blocks of blockLen samples, rounding
// capacity up to a power of two. All slots are allocated here.
func New(capacity, blockLen int) (*Ring, error) {
	if capacity < 1 || blockLen < 1 {
		return nil, fmt.Errorf("ringbuf: invalid capacity %d or block length %d", capacity, blockLen)
	}
	capacity = bitint.NextPowerOfTwo(capacity)

	r := &Ring{
		slots:    make([]audio.Block, capacity),
		mask:     uint64(capacity - 1),
		blockLen: blockLen,
		notify:   make(chan struct{}, 1),
		timer:    time.NewTimer(time.Hour),
	}
	r.timer.Stop()
	for i := range r.slots {
		r.slots[i].Samples = make([]int32, blockLen)
	}
	return r, nil
}

// Push copies b into the next free slot. It never blocks.
func (r *Ring) Push(b audio.Block) error {
	if len(b.Samples) != r.blockLen {
		return fmt.Errorf("%w: got %d samples, want %d", ErrBlockLength, len(b.Samples), r.blockLen)
	}

	w := r.write.Load()
	if w-r.read.Load() == uint64(len(r.slots)) {
		r.dropped.Add(1)
		return ErrFull
	}

	slot := &r.slots[w&r.mask]
	copy(slot.Samples, b.Samples)
	slot.Seq = b.Seq
	slot.Gap = b.Gap

	r.write.Store(w + 1)
	r.pushed.Add(1)

	select {
	case r.notify <- struct{}{}:
	default:
	}
	return nil
}

// DrainExact copies the len(dst) oldest blocks into dst in FIFO order and
// releases their slots. If fewer are buffered it consumes nothing and
// returns ErrUnderrun. Each dst[i].Samples must hold the block length.
func (r *Ring) DrainExact(dst []audio.Block) error {
	n := uint64(len(dst))
	rd := r.read.Load()
	if r.write.Load()-rd < n {
		return ErrUnderrun
	}

	for i := range dst {
		slot := &r.slots[(rd+uint64(i))&r.mask]
		copy(dst[i].Samples, slot.Samples)
		dst[i].Seq = slot.Seq
		dst[i].Gap = slot.Gap
	}

	r.read.Store(rd + n)
	return nil
}

// DrainWait is DrainExact that first waits up to timeout for enough blocks.
// It returns ErrUnderrun when the timeout elapses and ctx.Err() when ctx ends.
func (r *Ring) DrainWait(ctx context.Context, dst []audio.Block, timeout time.Duration) error {
	err := r.DrainExact(dst)
	if !errors.Is(err, ErrUnderrun) || timeout <= 0 {
		return err
	}

	r.timer.Reset(timeout)
	defer r.timer.Stop()

	for {
		select {
		case <-r.notify:
			if err := r.DrainExact(dst); !errors.Is(err, ErrUnderrun) {
				return err
			}
		case <-r.timer.C:
			return r.DrainExact(dst)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Len returns the number of buffered blocks.
func (r *Ring) Len() int {
	return int(r.write.Load() - r.read.Load())
}

// Cap returns the ring capacity in blocks.
func (r *Ring) Cap() int {
	return len(r.slots)
}

// BlockLen returns the samples per block.
func (r *Ring) BlockLen() int {
	return r.blockLen
}

// Dropped returns how many blocks Push discarded because the ring was full.
func (r *Ring) Dropped() uint64 {
	return r.dropped.Load()
}

// Pushed returns how many blocks were accepted.
func (r *Ring) Pushed() uint64 {
	return r.pushed.Load()
}

var _ audio.Queue = (*Ring)(nil)
