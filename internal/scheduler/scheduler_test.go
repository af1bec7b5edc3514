// SPDX-License-Identifier: MIT
package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spectrum/internal/analysis"
	"spectrum/internal/audio"
	"spectrum/internal/fft"
	"spectrum/internal/render"
	"spectrum/internal/ringbuf"
	"spectrum/pkg/synth"
)

const period = 5 * time.Millisecond

var format = audio.Format{SampleRate: 48000, BitDepth: 32, Channels: 1, BlockSize: 240}

// fakeClock only moves when waited on or advanced.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) WaitUntil(ctx context.Context, t time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t.After(c.now) {
		c.now = t
	}
	return ctx.Err()
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// sineSource always has blocks ready, except on the calls listed in
// underrunOn, where it waits out the timeout and reports an underrun.
type sineSource struct {
	clock      *fakeClock
	frequency  float64
	offset     uint64
	calls      int
	underrunOn map[int]bool
}

func (s *sineSource) DrainWait(ctx context.Context, dst []audio.Block, timeout time.Duration) error {
	s.calls++
	if s.underrunOn[s.calls] {
		s.clock.Advance(timeout)
		return ringbuf.ErrUnderrun
	}
	for i := range dst {
		synth.Sine(dst[i].Samples, format.SampleRate, s.frequency, 0.5, s.offset, format.Channels)
		s.offset += uint64(format.BlockSize)
	}
	return nil
}

// costlyAnalyzer advances the clock by the cost of each call.
type costlyAnalyzer struct {
	clock *fakeClock
	cost  func(call int) time.Duration
	calls int
	err   error
	spec  analysis.Spectrum
}

func (a *costlyAnalyzer) Analyze(frame []float64) (*analysis.Spectrum, error) {
	if a.err != nil {
		return nil, a.err
	}
	a.clock.Advance(a.cost(a.calls))
	a.calls++
	return &a.spec, nil
}

type nullRenderer struct{ fb *render.FrameBuffer }

func (r nullRenderer) Render(*analysis.Spectrum) *render.FrameBuffer { return r.fb }

type presenterFunc func(*render.FrameBuffer)

func (f presenterFunc) Present(fb *render.FrameBuffer) { f(fb) }

func fixedCost(d time.Duration) func(int) time.Duration {
	return func(int) time.Duration { return d }
}

type harness struct {
	clock    *fakeClock
	source   *sineSource
	analyzer *costlyAnalyzer
	sched    *Scheduler
	shown    int
}

func newHarness(t *testing.T, cfg Config, cost func(int) time.Duration) *harness {
	t.Helper()
	h := &harness{clock: newFakeClock()}
	h.source = &sineSource{clock: h.clock, frequency: 1000, underrunOn: map[int]bool{}}
	h.analyzer = &costlyAnalyzer{clock: h.clock, cost: cost}

	cfg.Period = period
	cfg.Format = format
	if cfg.HopBlocks == 0 {
		cfg.HopBlocks = 1
	}
	s, err := New(cfg, Stages{
		Source:    h.source,
		Assembler: analysis.NewFrameAssembler(1024, format.Channels),
		Analyzer:  h.analyzer,
		Renderer:  nullRenderer{render.NewFrameBuffer(render.Resolution{Width: 128, Height: 64})},
		Presenter: presenterFunc(func(*render.FrameBuffer) { h.shown++ }),
	}, h.clock)
	require.NoError(t, err)
	h.sched = s
	return h
}

// 1024 samples need five 240-sample blocks before the first frame.
const warmupCycles = 4

func TestTenSecondsAt200FPS(t *testing.T) {
	h := newHarness(t, Config{MaxFrames: 2000}, fixedCost(time.Millisecond))
	start := h.clock.Now()

	require.NoError(t, h.sched.Run(context.Background()))

	s := h.sched.Stats()
	assert.Equal(t, uint64(2000), s.Cycles)
	assert.Equal(t, uint64(warmupCycles), s.Warmup)
	assert.Equal(t, uint64(2000-warmupCycles), s.Frames)
	assert.Equal(t, 2000-warmupCycles, h.shown)
	assert.Zero(t, s.DeadlineOverruns)
	assert.Zero(t, s.SkippedTicks)
	assert.Zero(t, s.Underruns)
	assert.Equal(t, 1999*period+time.Millisecond, h.clock.Now().Sub(start))
	assert.Equal(t, time.Millisecond, s.MaxElapsed)
}

// slowOnce makes analysis call n take 12ms, more than two periods.
func slowOnce(n int) func(int) time.Duration {
	return func(call int) time.Duration {
		if call == n {
			return 12 * time.Millisecond
		}
		return time.Millisecond
	}
}

func TestSkipPolicyRealignsToGrid(t *testing.T) {
	h := newHarness(t, Config{Policy: Skip, MaxFrames: 20}, slowOnce(5))
	start := h.clock.Now()

	require.NoError(t, h.sched.Run(context.Background()))

	s := h.sched.Stats()
	assert.Equal(t, uint64(1), s.DeadlineOverruns)
	assert.Equal(t, uint64(2), s.SkippedTicks)
	assert.Equal(t, uint64(20), s.Cycles)
	// Two ticks were dropped, so the last cycle starts two periods late.
	assert.Equal(t, 21*period+time.Millisecond, h.clock.Now().Sub(start))
	assert.Equal(t, 12*time.Millisecond, s.MaxElapsed)
}

func TestCatchUpPolicyKeepsEveryTick(t *testing.T) {
	h := newHarness(t, Config{Policy: CatchUp, MaxFrames: 20}, slowOnce(5))
	start := h.clock.Now()

	require.NoError(t, h.sched.Run(context.Background()))

	s := h.sched.Stats()
	// The slow cycle and the one run back to back after it are both late.
	assert.Equal(t, uint64(2), s.DeadlineOverruns)
	assert.Zero(t, s.SkippedTicks)
	assert.Equal(t, 19*period+time.Millisecond, h.clock.Now().Sub(start))
}

func TestUnderrunSkipsFrame(t *testing.T) {
	h := newHarness(t, Config{MaxFrames: 20}, fixedCost(time.Millisecond))
	h.source.underrunOn[8] = true
	h.source.underrunOn[9] = true

	require.NoError(t, h.sched.Run(context.Background()))

	s := h.sched.Stats()
	assert.Equal(t, uint64(2), s.Underruns)
	assert.Equal(t, uint64(20-warmupCycles-2), s.Frames)
	assert.Equal(t, 20-warmupCycles-2, h.shown)
	assert.Zero(t, s.DeadlineOverruns, "an underrun waits at most until the deadline")
}

// A stalled capture must not push the loop off its grid: each cycle waits
// out its own slot on the ring and the next one starts on time.
func TestStalledCaptureKeepsCadence(t *testing.T) {
	ring, err := ringbuf.New(16, format.BlockSize*format.Channels)
	require.NoError(t, err)

	shown := 0
	s, err := New(Config{Period: period, HopBlocks: 1, Format: format, MaxFrames: 20}, Stages{
		Source:    ring,
		Assembler: analysis.NewFrameAssembler(1024, format.Channels),
		Analyzer:  &costlyAnalyzer{clock: newFakeClock(), cost: fixedCost(0)},
		Renderer:  nullRenderer{render.NewFrameBuffer(render.Resolution{Width: 128, Height: 64})},
		Presenter: presenterFunc(func(*render.FrameBuffer) { shown++ }),
	}, NewSystemClock())
	require.NoError(t, err)

	start := time.Now()
	require.NoError(t, s.Run(context.Background()))
	took := time.Since(start)

	st := s.Stats()
	assert.Equal(t, uint64(20), st.Cycles)
	assert.Equal(t, uint64(20), st.Underruns)
	assert.Zero(t, st.DeadlineOverruns)
	assert.Zero(t, st.SkippedTicks)
	assert.Zero(t, st.Frames)
	assert.Zero(t, shown)
	// Twenty 5ms slots; counting each as late would double this.
	assert.Less(t, took, 180*time.Millisecond)
	assert.GreaterOrEqual(t, took, 20*period-time.Millisecond)
}

func TestInvalidFrameLengthIsFatal(t *testing.T) {
	h := newHarness(t, Config{MaxFrames: 20}, fixedCost(0))
	h.analyzer.err = analysis.ErrInvalidFrameLength

	err := h.sched.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, analysis.ErrInvalidFrameLength))
	assert.Equal(t, uint64(warmupCycles+1), h.sched.Stats().Cycles)
}

func TestStopBetweenFrames(t *testing.T) {
	h := newHarness(t, Config{}, fixedCost(time.Millisecond))
	var sched *Scheduler
	shown := 0
	s, err := New(Config{Period: period, HopBlocks: 1, Format: format}, Stages{
		Source:    h.source,
		Assembler: analysis.NewFrameAssembler(1024, 1),
		Analyzer:  h.analyzer,
		Renderer:  nullRenderer{render.NewFrameBuffer(render.Resolution{Width: 128, Height: 64})},
		Presenter: presenterFunc(func(*render.FrameBuffer) {
			shown++
			if shown == 3 {
				sched.Stop()
			}
		}),
	}, h.clock)
	require.NoError(t, err)
	sched = s

	require.NoError(t, sched.Run(context.Background()))
	assert.Equal(t, 3, shown)
	assert.Equal(t, uint64(3), sched.Stats().Frames)
}

func TestContextCancelEndsRun(t *testing.T) {
	h := newHarness(t, Config{}, fixedCost(time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	h.analyzer.cost = func(call int) time.Duration {
		if call == 10 {
			cancel()
		}
		return time.Millisecond
	}

	require.NoError(t, h.sched.Run(ctx))
	assert.Equal(t, uint64(11), h.sched.Stats().Frames)
}

func TestNewValidates(t *testing.T) {
	st := Stages{
		Source:    &sineSource{},
		Assembler: analysis.NewFrameAssembler(1024, 1),
		Analyzer:  &costlyAnalyzer{},
		Renderer:  nullRenderer{},
		Presenter: presenterFunc(func(*render.FrameBuffer) {}),
	}
	_, err := New(Config{Period: 0, HopBlocks: 1, Format: format}, st, nil)
	assert.Error(t, err)
	_, err = New(Config{Period: period, HopBlocks: 0, Format: format}, st, nil)
	assert.Error(t, err)
	_, err = New(Config{Period: period, HopBlocks: 1, Format: format}, Stages{}, nil)
	assert.Error(t, err)
	_, err = New(Config{Period: period, HopBlocks: 1, Format: format}, st, nil)
	assert.NoError(t, err)
}

func TestDominantFrequencyEndToEnd(t *testing.T) {
	clock := newFakeClock()
	transform, err := fft.NewGonum(1024)
	require.NoError(t, err)
	engine, err := analysis.NewEngine(analysis.DefaultEngineConfig(format.SampleRate), transform)
	require.NoError(t, err)
	renderer, err := render.NewRenderer(render.Config{
		Resolution: render.Resolution{Width: 128, Height: 64},
		Grouping:   render.Log,
	}, engine.Bins())
	require.NoError(t, err)

	var last *render.FrameBuffer
	s, err := New(Config{Period: period, HopBlocks: 1, Format: format, MaxFrames: 50}, Stages{
		Source:    &sineSource{clock: clock, frequency: 1000},
		Assembler: analysis.NewFrameAssembler(engine.Size(), format.Channels),
		Analyzer:  engine,
		Renderer:  renderer,
		Presenter: presenterFunc(func(fb *render.FrameBuffer) { last = fb }),
	}, clock)
	require.NoError(t, err)

	require.NoError(t, s.Run(context.Background()))

	stats := s.Stats()
	assert.InDelta(t, 1000, stats.DominantHz, 48000.0/1024)
	require.NotNil(t, last)
	assert.Positive(t, last.Lit())
}

func TestParsePolicy(t *testing.T) {
	for name, want := range map[string]Policy{"": Skip, "skip": Skip, "CatchUp": CatchUp, "catch-up": CatchUp} {
		got, err := ParsePolicy(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
	_, err := ParsePolicy("drop")
	assert.Error(t, err)
}

func TestSystemClock(t *testing.T) {
	c := NewSystemClock()
	require.NoError(t, c.WaitUntil(context.Background(), c.Now().Add(-time.Second)))

	start := time.Now()
	require.NoError(t, c.WaitUntil(context.Background(), start.Add(2*time.Millisecond)))
	assert.GreaterOrEqual(t, time.Since(start), 2*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, c.WaitUntil(ctx, time.Now().Add(time.Hour)), context.Canceled)
}

func TestDeadlineOverrunText(t *testing.T) {
	// Log lines already carry the "Scheduler:" prefix.
	assert.Equal(t, "deadline overrun", ErrDeadlineOverrun.Error())
}
