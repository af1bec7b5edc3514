// SPDX-License-Identifier: MIT
// Package scheduler runs the fixed-rate analysis loop: wait for the frame
// deadline, drain capture blocks, analyze, render and hand the frame to the
// display, then account for the time spent.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync/atomic"
	"time"

	"spectrum/internal/analysis"
	"spectrum/internal/audio"
	"spectrum/internal/log"
	"spectrum/internal/render"
	"spectrum/internal/ringbuf"
)

// ErrDeadlineOverrun describes a cycle that finished after the next frame
// was due. It is counted and logged, never returned.
var ErrDeadlineOverrun = errors.New("deadline overrun")

// Policy decides where the next deadline falls after an overrun.
type Policy int

const (
	// Skip drops the ticks that were missed and realigns to the next tick
	// on the original grid. The frame rate dips but latency stays bounded.
	Skip Policy = iota
	// CatchUp keeps every tick: late cycles run back to back until the
	// loop is on schedule again.
	CatchUp
)

// ParsePolicy converts "skip" or "catchup" to a Policy.
func ParsePolicy(name string) (Policy, error) {
	switch strings.ToLower(name) {
	case "", "skip":
		return Skip, nil
	case "catchup", "catch-up":
		return CatchUp, nil
	}
	return Skip, fmt.Errorf("scheduler: unknown overrun policy %q", name)
}

func (p Policy) String() string {
	if p == CatchUp {
		return "catchup"
	}
	return "skip"
}

// Drainer supplies capture blocks.
type Drainer interface {
	DrainWait(ctx context.Context, dst []audio.Block, timeout time.Duration) error
}

// Analyzer turns a frame of samples into a spectrum.
type Analyzer interface {
	Analyze(frame []float64) (*analysis.Spectrum, error)
}

// Renderer draws a spectrum.
type Renderer interface {
	Render(s *analysis.Spectrum) *render.FrameBuffer
}

// Presenter accepts finished frames without blocking.
type Presenter interface {
	Present(fb *render.FrameBuffer)
}

// Config sets the loop cadence.
type Config struct {
	Period    time.Duration
	Policy    Policy
	HopBlocks int          // Blocks drained per cycle.
	Format    audio.Format // Shape of the drained blocks.
	MaxFrames uint64       // Stop after this many cycles; zero runs until cancelled.
}

// Stages are the collaborators of one cycle.
type Stages struct {
	Source    Drainer
	Assembler *analysis.FrameAssembler
	Analyzer  Analyzer
	Renderer  Renderer
	Presenter Presenter
}

// Stats is a snapshot of loop counters.
type Stats struct {
	Cycles           uint64
	Frames           uint64 // Cycles that reached the display.
	Underruns        uint64
	Warmup           uint64 // Cycles spent filling the first frame.
	Gaps             uint64 // Drained blocks that replaced lost capture.
	DeadlineOverruns uint64
	SkippedTicks     uint64
	LastElapsed      time.Duration
	MaxElapsed       time.Duration
	DominantHz       float64 // Zero when no bin is significant.
}

// Scheduler is the analysis loop. Run it on one goroutine; Stats and Stop
// may be called from any goroutine.
type Scheduler struct {
	cfg    Config
	st     Stages
	clock  Clock
	blocks []audio.Block

	stopped atomic.Bool

	cycles      atomic.Uint64
	frames      atomic.Uint64
	underruns   atomic.Uint64
	warmup      atomic.Uint64
	gaps        atomic.Uint64
	overruns    atomic.Uint64
	skipped     atomic.Uint64
	lastElapsed atomic.Int64
	maxElapsed  atomic.Int64
	dominant    atomic.Uint64 // math.Float64bits

	overrunLog  *log.Limiter
	underrunLog *log.Limiter
	dominantLog *log.Limiter
}

// New validates cfg and returns a scheduler. A nil clock selects the
// system clock.
func New(cfg Config, st Stages, clock Clock) (*Scheduler, error) {
	if cfg.Period <= 0 {
		return nil, fmt.Errorf("scheduler: period must be positive, got %s", cfg.Period)
	}
	if cfg.HopBlocks < 1 {
		return nil, fmt.Errorf("scheduler: hop must be at least one block, got %d", cfg.HopBlocks)
	}
	if err := cfg.Format.Validate(); err != nil {
		return nil, err
	}
	if st.Source == nil || st.Assembler == nil || st.Analyzer == nil || st.Renderer == nil || st.Presenter == nil {
		return nil, errors.New("scheduler: all stages are required")
	}
	if clock == nil {
		clock = NewSystemClock()
	}

	blocks := make([]audio.Block, cfg.HopBlocks)
	for i := range blocks {
		blocks[i] = audio.NewBlock(cfg.Format)
	}

	return &Scheduler{
		cfg:         cfg,
		st:          st,
		clock:       clock,
		blocks:      blocks,
		overrunLog:  log.Every(time.Second),
		underrunLog: log.Every(time.Second),
		dominantLog: log.Every(250 * time.Millisecond),
	}, nil
}

// Run executes cycles until ctx is done, Stop is called or MaxFrames cycles
// have run. Only an invalid frame length ends it with an error; every other
// failure is counted and the loop continues.
func (s *Scheduler) Run(ctx context.Context) error {
	log.Infof("Scheduler: running every %s, %d block(s) per frame, %s policy",
		s.cfg.Period, s.cfg.HopBlocks, s.cfg.Policy)

	next := s.clock.Now()
	for {
		if s.stopped.Load() || ctx.Err() != nil {
			return nil
		}
		if s.cfg.MaxFrames > 0 && s.cycles.Load() >= s.cfg.MaxFrames {
			return nil
		}
		if err := s.clock.WaitUntil(ctx, next); err != nil {
			return nil
		}

		deadline := next.Add(s.cfg.Period)
		s.cycles.Add(1)
		err := s.st.Source.DrainWait(ctx, s.blocks, deadline.Sub(s.clock.Now()))
		switch {
		case errors.Is(err, ringbuf.ErrUnderrun):
			// The display keeps showing the previous frame. The wait for
			// capture filled the slot, so the next tick is still on time.
			s.underruns.Add(1)
			if suppressed, ok := s.underrunLog.Allow(); ok {
				log.Warnf("Scheduler: capture underrun, frame skipped (%d similar suppressed)", suppressed)
			}
			next = deadline
			continue
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return nil
		case err != nil:
			return err
		}

		start := s.clock.Now()
		if err := s.process(); err != nil {
			return err
		}
		end := s.clock.Now()
		s.account(end.Sub(start))

		next = s.advance(deadline, end)
	}
}

// process runs the analyze, render and present pass over freshly drained
// blocks.
func (s *Scheduler) process() error {
	for i := range s.blocks {
		if s.blocks[i].Gap {
			s.gaps.Add(1)
		}
	}
	s.st.Assembler.Push(s.blocks)
	if !s.st.Assembler.Ready() {
		s.warmup.Add(1)
		return nil
	}

	spec, err := s.st.Analyzer.Analyze(s.st.Assembler.Frame())
	if err != nil {
		return fmt.Errorf("scheduler: analysis failed: %w", err)
	}
	s.noteDominant(spec)

	s.st.Presenter.Present(s.st.Renderer.Render(spec))
	s.frames.Add(1)
	return nil
}

func (s *Scheduler) noteDominant(spec *analysis.Spectrum) {
	hz := spec.DominantFrequency()
	prev := math.Float64frombits(s.dominant.Swap(math.Float64bits(hz)))
	if hz != prev && log.Enabled(log.LevelDebug) {
		if _, ok := s.dominantLog.Allow(); ok {
			log.Debugf("Scheduler: dominant frequency %.1f Hz", hz)
		}
	}
}

func (s *Scheduler) account(elapsed time.Duration) {
	s.lastElapsed.Store(int64(elapsed))
	for {
		m := s.maxElapsed.Load()
		if int64(elapsed) <= m || s.maxElapsed.CompareAndSwap(m, int64(elapsed)) {
			return
		}
	}
}

// advance returns the next deadline after a cycle that was due at deadline
// and finished at end.
func (s *Scheduler) advance(deadline, end time.Time) time.Time {
	if !end.After(deadline) {
		return deadline
	}

	s.overruns.Add(1)
	late := end.Sub(deadline)
	if suppressed, ok := s.overrunLog.Allow(); ok {
		log.Warnf("Scheduler: %v by %s (%d similar suppressed)", ErrDeadlineOverrun, late, suppressed)
	}

	if s.cfg.Policy == CatchUp {
		return deadline
	}
	missed := late/s.cfg.Period + 1
	s.skipped.Add(uint64(missed))
	return deadline.Add(missed * s.cfg.Period)
}

// Stop ends Run after the current cycle.
func (s *Scheduler) Stop() {
	s.stopped.Store(true)
}

// Stats returns a snapshot of the counters.
func (s *Scheduler) Stats() Stats {
	return Stats{
		Cycles:           s.cycles.Load(),
		Frames:           s.frames.Load(),
		Underruns:        s.underruns.Load(),
		Warmup:           s.warmup.Load(),
		Gaps:             s.gaps.Load(),
		DeadlineOverruns: s.overruns.Load(),
		SkippedTicks:     s.skipped.Load(),
		LastElapsed:      time.Duration(s.lastElapsed.Load()),
		MaxElapsed:       time.Duration(s.maxElapsed.Load()),
		DominantHz:       math.Float64frombits(s.dominant.Load()),
	}
}
