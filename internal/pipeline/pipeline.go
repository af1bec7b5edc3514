// SPDX-License-Identifier: MIT
// Package pipeline assembles the analyzer: capture producer, block ring,
// frame scheduler with its analysis and render stages, and the display
// presenter. It owns their goroutines for the duration of Run.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"spectrum/internal/analysis"
	"spectrum/internal/audio"
	"spectrum/internal/config"
	"spectrum/internal/display"
	"spectrum/internal/fft"
	"spectrum/internal/log"
	"spectrum/internal/render"
	"spectrum/internal/ringbuf"
	"spectrum/internal/scheduler"
)

// Options carries optional collaborators, mostly for tests.
type Options struct {
	Clock     scheduler.Clock // Defaults to the system clock.
	Transform fft.Transformer // Defaults to the gonum transform.
}

// Pipeline is one analyzer run.
type Pipeline struct {
	id     uuid.UUID
	cfg    *config.Config
	format audio.Format

	source  audio.Source
	display display.Display

	ring      *ringbuf.Ring
	producer  *audio.Producer
	engine    *analysis.Engine
	renderer  *render.Renderer
	presenter *display.Presenter
	sched     *scheduler.Scheduler

	started time.Time
	mu      sync.Mutex // Guards started.
}

// New configures src and disp from cfg and builds every stage. All buffers
// used while running are allocated here. On error the caller still owns
// src and disp.
func New(cfg *config.Config, src audio.Source, disp display.Display, opts Options) (*Pipeline, error) {
	format := audio.Format{
		SampleRate: cfg.Audio.SampleRate,
		BitDepth:   cfg.Audio.BitDepth,
		Channels:   cfg.Audio.Channels,
		BlockSize:  cfg.Audio.BlockSize,
	}
	if err := src.Configure(format); err != nil {
		return nil, fmt.Errorf("failed to configure capture: %w", err)
	}

	res := render.Resolution{Width: cfg.Display.Width, Height: cfg.Display.Height}
	orientation, err := render.ParseOrientation(cfg.Display.Orientation)
	if err != nil {
		return nil, err
	}
	if err := disp.Configure(res, orientation); err != nil {
		return nil, fmt.Errorf("failed to configure display: %w", err)
	}

	ring, err := ringbuf.New(cfg.Audio.RingCapacity, format.Samples())
	if err != nil {
		return nil, err
	}

	transform := opts.Transform
	if transform == nil {
		if transform, err = fft.NewGonum(cfg.Analysis.FFTSize); err != nil {
			return nil, err
		}
	}
	window, err := analysis.ParseWindow(cfg.Analysis.Window)
	if err != nil {
		return nil, err
	}
	engine, err := analysis.NewEngine(analysis.EngineConfig{
		SampleRate:     format.SampleRate,
		Size:           cfg.Analysis.FFTSize,
		Window:         window,
		ReferenceLevel: cfg.Analysis.ReferenceLevel,
		FloorDB:        cfg.Analysis.FloorDB,
		Significance:   cfg.Analysis.Significance,
	}, transform)
	if err != nil {
		return nil, err
	}

	renderer, err := newRenderer(cfg, res, engine.Bins())
	if err != nil {
		return nil, err
	}

	presenter := display.NewPresenter(disp, res)

	policy, err := scheduler.ParsePolicy(cfg.Scheduler.Policy)
	if err != nil {
		return nil, err
	}
	sched, err := scheduler.New(scheduler.Config{
		Period:    cfg.FramePeriod(),
		Policy:    policy,
		HopBlocks: cfg.HopBlocks(),
		Format:    format,
		MaxFrames: cfg.Scheduler.MaxFrames,
	}, scheduler.Stages{
		Source:    ring,
		Assembler: analysis.NewFrameAssembler(engine.Size(), format.Channels),
		Analyzer:  engine,
		Renderer:  renderer,
		Presenter: presenter,
	}, opts.Clock)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		id:        uuid.New(),
		cfg:       cfg,
		format:    format,
		source:    src,
		display:   disp,
		ring:      ring,
		producer:  audio.NewProducer(src, ring, format, cfg.Audio.PullTimeout),
		engine:    engine,
		renderer:  renderer,
		presenter: presenter,
		sched:     sched,
	}

	log.Infof("Pipeline: run %s, capture %s, %s, %s display at %.0f fps",
		p.id, format, p.Layout(), res, cfg.Scheduler.FrameRate)
	return p, nil
}

// Layout describes the analysis and the column mapping, for logs.
func (p *Pipeline) Layout() string {
	ec := p.engine.Config()
	win := p.engine.Window()
	hist := p.renderer.Histogram()
	return fmt.Sprintf("%d-point %s analysis (%.1f Hz bins, gain %.3f), %d %s columns",
		ec.Size, win.Kind(), ec.SampleRate/float64(ec.Size), win.CoherentGain(),
		hist.Columns(), hist.Grouping())
}

func newRenderer(cfg *config.Config, res render.Resolution, bins int) (*render.Renderer, error) {
	grouping, err := render.ParseGrouping(cfg.Display.Grouping)
	if err != nil {
		return nil, err
	}
	aggregate, err := render.ParseAggregate(cfg.Display.Aggregate)
	if err != nil {
		return nil, err
	}
	return render.NewRenderer(render.Config{
		Resolution:     res,
		Grouping:       grouping,
		Aggregate:      aggregate,
		Ballistics:     cfg.Display.Ballistics,
		FrameRate:      cfg.Scheduler.FrameRate,
		PeakHoldFrames: cfg.Display.PeakHoldFrames,
		PeakFallRate:   cfg.Display.PeakFallRate,
	}, bins)
}

// ID returns the run identifier.
func (p *Pipeline) ID() uuid.UUID {
	return p.id
}

// Run starts capture and presentation, then runs the frame scheduler on the
// calling goroutine until ctx is done, the scheduler stops or analysis
// fails. Capture and presentation are stopped before Run returns.
func (p *Pipeline) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p.mu.Lock()
	p.started = time.Now()
	p.mu.Unlock()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = p.producer.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		_ = p.presenter.Run(ctx)
	}()
	if interval := p.cfg.Scheduler.StatsInterval; interval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.logStats(ctx, interval)
		}()
	}

	err := p.sched.Run(ctx)

	cancel()
	p.producer.Stop()
	wg.Wait()

	log.Infof("Pipeline: run %s finished: %s", p.id, p.Stats())
	if err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	return nil
}

func (p *Pipeline) logStats(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			log.Infof("Pipeline: %s", p.Stats())
		}
	}
}

// Stop ends Run after the current frame.
func (p *Pipeline) Stop() {
	p.sched.Stop()
}

// Close releases the capture source and the display.
func (p *Pipeline) Close() error {
	srcErr := p.source.Close()
	dispErr := p.display.Close()
	if srcErr != nil {
		return srcErr
	}
	return dispErr
}
