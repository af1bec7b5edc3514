// SPDX-License-Identifier: MIT
/*
Package analysis turns time-domain frames into display-ready spectra.

Pipeline per frame (Engine.Analyze):

	frame [N]float64 -> window -> transform -> |X| -> amplitude, dB, level

All working memory is allocated by NewEngine and reused; Analyze does not
allocate and must only be called from the analysis goroutine.
*/
package analysis

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"
	"sync/atomic"

	"spectrum/internal/fft"
	"spectrum/internal/log"
	"spectrum/pkg/bitint"
)

// ErrInvalidFrameLength is returned by Analyze for a frame whose length is
// not the transform size. It indicates a wiring bug, not a runtime condition.
var ErrInvalidFrameLength = errors.New("invalid frame length")

// State is the engine's position in the analysis cycle.
type State int32

const (
	Idle State = iota
	Windowing
	Transforming
	Reducing
	Ready
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Windowing:
		return "windowing"
	case Transforming:
		return "transforming"
	case Reducing:
		return "reducing"
	case Ready:
		return "ready"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// EngineConfig describes the analysis.
type EngineConfig struct {
	SampleRate     float64 // Hz.
	Size           int     // Transform size; power of two.
	Window         Window
	ReferenceLevel float64 // Magnitude shown as 0dB.
	FloorDB        float64 // Lowest level kept; negative.
	Significance   float64 // Minimum peak magnitude for a dominant frequency.
}

// DefaultEngineConfig returns a 1024-point Hann analysis at sampleRate.
func DefaultEngineConfig(sampleRate float64) EngineConfig {
	return EngineConfig{
		SampleRate:     sampleRate,
		Size:           1024,
		Window:         Hann,
		ReferenceLevel: 1.0,
		FloorDB:        -90,
		Significance:   0.01,
	}
}

// Engine is the spectrum engine. It owns the window table, the transform and
// every scratch buffer used while analyzing a frame.
type Engine struct {
	cfg       EngineConfig
	window    *WindowTable
	transform fft.Transformer

	windowed []float64
	coeffs   []complex128
	spectrum Spectrum

	// Bin 0 carries no negative-frequency image, so it is scaled by half.
	scale   float64
	dcScale float64

	state  atomic.Int32
	frames uint64
}

// NewEngine validates cfg against the transformer and allocates all working
// memory.
func NewEngine(cfg EngineConfig, transform fft.Transformer) (*Engine, error) {
	switch {
	case !bitint.IsPowerOfTwo(cfg.Size) || cfg.Size < 4:
		return nil, fmt.Errorf("analysis: size must be a power of 2, got %d", cfg.Size)
	case transform == nil || transform.Size() != cfg.Size:
		return nil, fmt.Errorf("analysis: transform does not match size %d", cfg.Size)
	case cfg.SampleRate <= 0:
		return nil, fmt.Errorf("analysis: sample rate must be positive, got %f", cfg.SampleRate)
	case cfg.ReferenceLevel <= 0:
		return nil, fmt.Errorf("analysis: reference level must be positive, got %f", cfg.ReferenceLevel)
	case cfg.FloorDB >= 0:
		return nil, fmt.Errorf("analysis: floor must be negative, got %.1fdB", cfg.FloorDB)
	}

	table, err := NewWindowTable(cfg.Window, cfg.Size)
	if err != nil {
		return nil, fmt.Errorf("analysis: %w", err)
	}

	bins := cfg.Size / 2
	e := &Engine{
		cfg:       cfg,
		window:    table,
		transform: transform,
		windowed:  make([]float64, cfg.Size),
		coeffs:    make([]complex128, bins+1),
		spectrum: Spectrum{
			Magnitudes:   make([]float64, bins),
			DB:           make([]float64, bins),
			Levels:       make([]float64, bins),
			BinWidth:     cfg.SampleRate / float64(cfg.Size),
			Significance: cfg.Significance,
		},
		scale:   2 / (float64(cfg.Size) * table.CoherentGain()),
		dcScale: 1 / (float64(cfg.Size) * table.CoherentGain()),
	}

	log.Debugf("Analysis: engine ready (size %d, %d bins of %.2fHz, window %s, floor %.0fdB)",
		cfg.Size, bins, e.spectrum.BinWidth, cfg.Window, cfg.FloorDB)
	return e, nil
}

// Analyze computes the spectrum of frame, which must hold exactly Size()
// samples in [-1, 1]. The returned Spectrum is owned by the engine and valid
// until the next call. Analyze is deterministic: equal frames give equal
// spectra.
func (e *Engine) Analyze(frame []float64) (*Spectrum, error) {
	if len(frame) != e.cfg.Size {
		e.state.Store(int32(Idle))
		return nil, fmt.Errorf("%w: got %d samples, want %d", ErrInvalidFrameLength, len(frame), e.cfg.Size)
	}

	e.state.Store(int32(Windowing))
	e.window.Apply(e.windowed, frame)

	e.state.Store(int32(Transforming))
	e.transform.Forward(e.coeffs, e.windowed)

	e.state.Store(int32(Reducing))
	e.reduce()

	e.frames++
	e.spectrum.Frame = e.frames
	e.state.Store(int32(Ready))
	return &e.spectrum, nil
}

// reduce converts the first Size()/2 coefficients into magnitudes, dB and
// levels and finds the peak.
func (e *Engine) reduce() {
	s := &e.spectrum
	floor := e.cfg.FloorDB
	ref := e.cfg.ReferenceLevel

	peak, peakMag := 0, -1.0
	for i := range s.Magnitudes {
		scale := e.scale
		if i == 0 {
			scale = e.dcScale
		}
		mag := cmplx.Abs(e.coeffs[i]) * scale
		s.Magnitudes[i] = mag

		db := floor
		if mag > 0 {
			db = max(20*math.Log10(mag/ref), floor)
		}
		s.DB[i] = db
		s.Levels[i] = min((db-floor)/-floor, 1)

		if i > 0 && mag > peakMag {
			peak, peakMag = i, mag
		}
	}
	s.Peak = peak
}

// State returns the current state. It may be read from any goroutine.
func (e *Engine) State() State {
	return State(e.state.Load())
}

// Size returns the transform size.
func (e *Engine) Size() int {
	return e.cfg.Size
}

// Bins returns the number of bins in each spectrum.
func (e *Engine) Bins() int {
	return e.cfg.Size / 2
}

// Config returns the engine configuration.
func (e *Engine) Config() EngineConfig {
	return e.cfg
}

// Window returns the shared window table.
func (e *Engine) Window() *WindowTable {
	return e.window
}
