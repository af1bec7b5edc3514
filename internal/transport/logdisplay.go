// SPDX-License-Identifier: MIT
package transport

import (
	"time"

	"spectrum/internal/display"
	"spectrum/internal/log"
	"spectrum/internal/render"
)

// LogDisplay writes a one-line summary of the displayed frame to the log at
// most once per interval. It is meant for headless runs.
type LogDisplay struct {
	res     render.Resolution
	limiter *log.Limiter
	frames  uint64
}

// NewLogDisplay returns a log sink that reports every interval, or every
// second when interval is not positive.
func NewLogDisplay(interval time.Duration) *LogDisplay {
	if interval <= 0 {
		interval = time.Second
	}
	log.Infof("Transport: using LogDisplay")
	return &LogDisplay{limiter: log.Every(interval)}
}

func (d *LogDisplay) Configure(res render.Resolution, o render.Orientation) error {
	if err := res.Validate(); err != nil {
		return err
	}
	d.res = res
	log.Infof("LogDisplay: %s panel, rotation %s", res, o)
	return nil
}

func (d *LogDisplay) Blit(fb *render.FrameBuffer) error {
	d.frames++
	if _, ok := d.limiter.Allow(); !ok {
		return nil
	}
	tallest, col := columnPeak(fb)
	log.Infof("LogDisplay: frame %d, %d/%d pixels lit, tallest bar %d px at column %d",
		fb.Seq, fb.Lit(), d.res.Width*d.res.Height, tallest, col)
	return nil
}

// Frames returns how many frames were blitted.
func (d *LogDisplay) Frames() uint64 {
	return d.frames
}

func (d *LogDisplay) Close() error {
	log.Debugf("LogDisplay: closed after %d frames", d.frames)
	return nil
}

// columnPeak returns the height of the tallest lit column and its index.
func columnPeak(fb *render.FrameBuffer) (height, column int) {
	res := fb.Resolution()
	for x := range res.Width {
		for y := range res.Height {
			if fb.Pixel(x, y) {
				if h := res.Height - y; h > height {
					height, column = h, x
				}
				break
			}
		}
	}
	return height, column
}

var _ display.Display = (*LogDisplay)(nil)
