// SPDX-License-Identifier: MIT
package audio

import (
	"context"
	"errors"
	"runtime"
	"sync/atomic"
	"time"

	"spectrum/internal/log"
)

// Queue receives captured blocks. Push must copy the samples and must not
// block; a non-nil error means the block was dropped.
type Queue interface {
	Push(b Block) error
}

// ProducerStats is a snapshot of the capture counters.
type ProducerStats struct {
	Blocks   uint64 // Blocks pushed, including gaps.
	Overruns uint64 // Blocks lost by the device and replaced with silence.
	Timeouts uint64 // Pulls that returned nothing.
	Dropped  uint64 // Blocks refused by the queue.
	Errors   uint64 // Other capture errors.
	Peak     int32  // Absolute peak of the most recent block.
}

// Producer is the capture context. It pulls blocks from a Source and pushes
// them into a Queue. It never blocks on the queue and does not allocate
// after construction.
type Producer struct {
	source  Source
	queue   Queue
	timeout time.Duration

	block Block
	seq   uint64

	blocks   atomic.Uint64
	overruns atomic.Uint64
	timeouts atomic.Uint64
	dropped  atomic.Uint64
	errs     atomic.Uint64
	peak     atomic.Int32
	stopped  atomic.Bool

	overrunLog *log.Limiter
	errorLog   *log.Limiter
}

// NewProducer returns a producer pulling blocks of format f from source.
// The source must already be configured.
func NewProducer(source Source, queue Queue, f Format, timeout time.Duration) *Producer {
	return &Producer{
		source:     source,
		queue:      queue,
		timeout:    timeout,
		block:      NewBlock(f),
		overrunLog: log.Every(time.Second),
		errorLog:   log.Every(time.Second),
	}
}

// Run captures until ctx is done or Stop is called. Both are checked between
// pulls only; an in-flight pull always completes. A capture error other than
// timeout or overrun is counted and retried after a short backoff.
func (p *Producer) Run(ctx context.Context) error {
	// The capture loop owns its OS thread for the lifetime of the stream.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	for ctx.Err() == nil && !p.stopped.Load() {
		err := p.source.Pull(&p.block, p.timeout)
		switch {
		case err == nil:
		case errors.Is(err, ErrTimeout):
			p.timeouts.Add(1)
			continue
		case errors.Is(err, ErrCaptureOverrun):
			// The block is corrupt; keep the timeline with silence.
			p.overruns.Add(1)
			p.block.Silence()
			if n, ok := p.overrunLog.Allow(); ok {
				log.Warnf("Producer: capture overrun, block replaced with silence (%d suppressed)", n)
			}
		default:
			p.errs.Add(1)
			if n, ok := p.errorLog.Allow(); ok {
				log.Errorf("Producer: capture failed: %v (%d suppressed)", err, n)
			}
			time.Sleep(p.timeout)
			continue
		}

		p.block.Seq = p.seq
		p.seq++
		p.peak.Store(PeakAmplitude(p.block.Samples))

		if err := p.queue.Push(p.block); err != nil {
			p.dropped.Add(1)
		} else {
			p.blocks.Add(1)
		}
		p.block.Gap = false
	}
	return nil
}

// Stop asks Run to return after the current pull.
func (p *Producer) Stop() {
	p.stopped.Store(true)
}

// Stats returns the current counters.
func (p *Producer) Stats() ProducerStats {
	return ProducerStats{
		Blocks:   p.blocks.Load(),
		Overruns: p.overruns.Load(),
		Timeouts: p.timeouts.Load(),
		Dropped:  p.dropped.Load(),
		Errors:   p.errs.Load(),
		Peak:     p.peak.Load(),
	}
}
