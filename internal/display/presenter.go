// SPDX-License-Identifier: MIT
package display

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"spectrum/internal/log"
	"spectrum/internal/render"
)

// PresenterStats is a snapshot of presenter counters.
type PresenterStats struct {
	Presented  uint64 // Frames handed to Present.
	Blitted    uint64 // Frames successfully transferred.
	Superseded uint64 // Frames replaced by a newer one before transfer.
	BusErrors  uint64
	Errors     uint64 // Other blit failures.
}

// Presenter decouples the display transfer from the caller. Present copies
// the frame into a pending buffer and returns; a separate goroutine blits
// the most recent pending frame. A slow display therefore loses frames
// instead of delaying the caller.
type Presenter struct {
	disp Display

	mu         sync.Mutex
	pending    *render.FrameBuffer
	hasPending bool
	front      *render.FrameBuffer // Owned by the blit goroutine.
	notify     chan struct{}

	presented  atomic.Uint64
	blitted    atomic.Uint64
	superseded atomic.Uint64
	busErrors  atomic.Uint64
	errs       atomic.Uint64

	errLog *log.Limiter
}

// NewPresenter returns a presenter for frames of the given resolution.
func NewPresenter(d Display, res render.Resolution) *Presenter {
	return &Presenter{
		disp:    d,
		pending: render.NewFrameBuffer(res),
		front:   render.NewFrameBuffer(res),
		notify:  make(chan struct{}, 1),
		errLog:  log.Every(time.Second),
	}
}

// Present queues a copy of fb for display, replacing any frame that has not
// been picked up yet. It never waits for the display.
func (p *Presenter) Present(fb *render.FrameBuffer) {
	p.presented.Add(1)

	p.mu.Lock()
	p.pending.CopyFrom(fb)
	if p.hasPending {
		p.superseded.Add(1)
	}
	p.hasPending = true
	p.mu.Unlock()

	select {
	case p.notify <- struct{}{}:
	default:
	}
}

// Run blits pending frames until ctx is done.
func (p *Presenter) Run(ctx context.Context) error {
	log.Debugf("Presenter: started")
	defer log.Debugf("Presenter: stopped")

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-p.notify:
		}

		if !p.swap() {
			continue
		}
		p.blit()
	}
}

// swap moves the pending frame to the front buffer.
func (p *Presenter) swap() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.hasPending {
		return false
	}
	p.pending, p.front = p.front, p.pending
	p.hasPending = false
	return true
}

func (p *Presenter) blit() {
	err := p.disp.Blit(p.front)
	switch {
	case err == nil:
		p.blitted.Add(1)
		return
	case errors.Is(err, ErrBusError):
		p.busErrors.Add(1)
	default:
		p.errs.Add(1)
	}
	if suppressed, ok := p.errLog.Allow(); ok {
		log.Warnf("Presenter: blit of frame %d failed: %v (%d similar suppressed)", p.front.Seq, err, suppressed)
	}
}

// Stats returns a snapshot of the counters.
func (p *Presenter) Stats() PresenterStats {
	return PresenterStats{
		Presented:  p.presented.Load(),
		Blitted:    p.blitted.Load(),
		Superseded: p.superseded.Load(),
		BusErrors:  p.busErrors.Load(),
		Errors:     p.errs.Load(),
	}
}
