// SPDX-License-Identifier: MIT
package pipeline

import (
	"fmt"
	"time"

	"spectrum/internal/audio"
)

// Stats is a snapshot of every counter of a run.
type Stats struct {
	RunID   string
	Elapsed time.Duration

	// Capture.
	CaptureBlocks   uint64
	CaptureOverruns uint64
	CaptureTimeouts uint64
	CaptureErrors   uint64
	DroppedBlocks   uint64 // Refused by the full ring.
	InputPeak       float64

	// Analysis loop.
	Frames           uint64
	Underruns        uint64
	DeadlineOverruns uint64
	SkippedTicks     uint64
	MaxFrameTime     time.Duration
	DominantHz       float64

	// Display.
	DisplayFrames    uint64
	SupersededFrames uint64
	BusErrors        uint64
	DisplayErrors    uint64
}

// Stats returns the current counters. It is safe to call while Run is
// active.
func (p *Pipeline) Stats() Stats {
	capture := p.producer.Stats()
	sched := p.sched.Stats()
	disp := p.presenter.Stats()

	p.mu.Lock()
	var elapsed time.Duration
	if !p.started.IsZero() {
		elapsed = time.Since(p.started)
	}
	p.mu.Unlock()

	return Stats{
		RunID:            p.id.String(),
		Elapsed:          elapsed,
		CaptureBlocks:    capture.Blocks,
		CaptureOverruns:  capture.Overruns,
		CaptureTimeouts:  capture.Timeouts,
		CaptureErrors:    capture.Errors,
		DroppedBlocks:    p.ring.Dropped(),
		InputPeak:        audio.PeakLevel(capture.Peak),
		Frames:           sched.Frames,
		Underruns:        sched.Underruns,
		DeadlineOverruns: sched.DeadlineOverruns,
		SkippedTicks:     sched.SkippedTicks,
		MaxFrameTime:     sched.MaxElapsed,
		DominantHz:       sched.DominantHz,
		DisplayFrames:    disp.Blitted,
		SupersededFrames: disp.Superseded,
		BusErrors:        disp.BusErrors,
		DisplayErrors:    disp.Errors,
	}
}

// FPS returns the analyzed frame rate over the run so far.
func (s Stats) FPS() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.Frames) / s.Elapsed.Seconds()
}

func (s Stats) String() string {
	dominant := "none"
	if s.DominantHz > 0 {
		dominant = fmt.Sprintf("%.1fHz", s.DominantHz)
	}
	return fmt.Sprintf("%d frames (%.1f fps), dominant %s, peak %.2f, "+
		"overruns %d/%d skipped, underruns %d, capture overruns %d, dropped %d, "+
		"display %d shown/%d superseded/%d bus errors",
		s.Frames, s.FPS(), dominant, s.InputPeak,
		s.DeadlineOverruns, s.SkippedTicks, s.Underruns, s.CaptureOverruns, s.DroppedBlocks,
		s.DisplayFrames, s.SupersededFrames, s.BusErrors)
}
