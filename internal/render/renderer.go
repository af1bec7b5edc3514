// SPDX-License-Identifier: MIT
// Package render rasterizes spectra into monochrome frame buffers.
package render

import (
	"fmt"

	"spectrum/internal/analysis"
)

// Config describes how spectra are drawn.
type Config struct {
	Resolution Resolution
	Grouping   Grouping
	Aggregate  Aggregate

	// Ballistics smooths bar motion; FrameRate is the render rate it is
	// tuned for.
	Ballistics bool
	FrameRate  float64

	// PeakHoldFrames keeps a dot at each bar's recent maximum for that many
	// frames before it falls at PeakFallRate pixels per frame. Zero
	// disables peak dots.
	PeakHoldFrames int
	PeakFallRate   float64
}

// Renderer turns spectra into frame buffers. All buffers are allocated by
// NewRenderer; Render does not allocate. Not safe for concurrent use.
type Renderer struct {
	cfg        Config
	hist       *Histogram
	ballistics *Ballistics

	values  []float64
	heights []int
	peaks   []float64
	holds   []int

	fb     *FrameBuffer
	frames uint64
}

// NewRenderer returns a renderer for spectra of the given bin count.
func NewRenderer(cfg Config, bins int) (*Renderer, error) {
	if err := cfg.Resolution.Validate(); err != nil {
		return nil, err
	}
	if cfg.PeakHoldFrames < 0 || cfg.PeakFallRate < 0 {
		return nil, fmt.Errorf("render: negative peak hold settings")
	}

	columns := cfg.Resolution.Width
	hist, err := NewHistogram(bins, columns, cfg.Grouping, cfg.Aggregate)
	if err != nil {
		return nil, err
	}

	r := &Renderer{
		cfg:     cfg,
		hist:    hist,
		values:  make([]float64, columns),
		heights: make([]int, columns),
		peaks:   make([]float64, columns),
		holds:   make([]int, columns),
		fb:      NewFrameBuffer(cfg.Resolution),
	}
	if cfg.Ballistics {
		r.ballistics = NewBallistics(columns, cfg.FrameRate)
	}
	return r, nil
}

// Render draws s and returns the renderer's frame buffer, valid until the
// next call.
func (r *Renderer) Render(s *analysis.Spectrum) *FrameBuffer {
	r.hist.Values(s.Levels, r.values)
	if r.ballistics != nil {
		r.ballistics.Step(r.values)
	}

	maxHeight := r.cfg.Resolution.Height
	for c, v := range r.values {
		r.heights[c] = Height(v, maxHeight)
	}

	r.fb.Clear()
	r.drawBars()
	if r.cfg.PeakHoldFrames > 0 {
		r.updatePeaks()
		r.drawPeaks()
	}

	r.frames++
	r.fb.Seq = r.frames
	return r.fb
}

// drawBars fills each column from the bottom up to its height, a page byte
// at a time.
func (r *Renderer) drawBars() {
	res := r.cfg.Resolution
	buf := r.fb.Bytes()
	for x, h := range r.heights {
		top := res.Height - h // First lit row.
		for p := range res.Pages() {
			row := p * 8
			var b byte
			switch {
			case top <= row:
				b = 0xFF
			case top < row+8:
				b = 0xFF << (top - row)
			}
			buf[p*res.Width+x] = b
		}
	}
}

func (r *Renderer) updatePeaks() {
	for c, h := range r.heights {
		fh := float64(h)
		switch {
		case fh >= r.peaks[c]:
			r.peaks[c] = fh
			r.holds[c] = r.cfg.PeakHoldFrames
		case r.holds[c] > 0:
			r.holds[c]--
		default:
			r.peaks[c] = max(r.peaks[c]-r.cfg.PeakFallRate, fh)
		}
	}
}

// drawPeaks lights the pixel at the held peak height of each column.
func (r *Renderer) drawPeaks() {
	res := r.cfg.Resolution
	for c, p := range r.peaks {
		h := int(p + 0.5)
		if h <= 0 {
			continue
		}
		r.fb.Set(c, res.Height-h, true)
	}
}

// Heights returns the bar heights of the last frame. The slice is owned by
// the renderer.
func (r *Renderer) Heights() []int {
	return r.heights
}

// Histogram returns the column layout.
func (r *Renderer) Histogram() *Histogram {
	return r.hist
}

// Resolution returns the frame buffer size.
func (r *Renderer) Resolution() Resolution {
	return r.cfg.Resolution
}
