// SPDX-License-Identifier: MIT
package analysis

import (
	"errors"
	"math"
	"testing"

	"spectrum/internal/audio"
	"spectrum/internal/fft"
	"spectrum/pkg/synth"
)

const (
	testSize       = 1024
	testSampleRate = 48000
)

func newTestEngine(t testing.TB) *Engine {
	t.Helper()
	transform, err := fft.NewGonum(testSize)
	if err != nil {
		t.Fatal(err)
	}
	e, err := NewEngine(DefaultEngineConfig(testSampleRate), transform)
	if err != nil {
		t.Fatal(err)
	}
	return e
}

// sineFrame assembles a frame the way the pipeline does: int32 blocks
// through the assembler.
func sineFrame(frequency, amplitude float64) []float64 {
	samples := make([]int32, testSize)
	synth.Sine(samples, testSampleRate, frequency, amplitude, 0, 1)
	a := NewFrameAssembler(testSize, 1)
	for off := 0; off < testSize; off += 256 {
		a.Push([]audio.Block{{Samples: samples[off : off+256]}})
	}
	return a.Frame()
}

func TestNewEngineValidates(t *testing.T) {
	transform, _ := fft.NewGonum(testSize)
	small, _ := fft.NewGonum(512)

	tests := []struct {
		name      string
		mutate    func(*EngineConfig)
		transform fft.Transformer
	}{
		{"size not power of two", func(c *EngineConfig) { c.Size = 1000 }, transform},
		{"transform mismatch", func(c *EngineConfig) {}, small},
		{"nil transform", func(c *EngineConfig) {}, nil},
		{"sample rate", func(c *EngineConfig) { c.SampleRate = 0 }, transform},
		{"reference", func(c *EngineConfig) { c.ReferenceLevel = 0 }, transform},
		{"floor", func(c *EngineConfig) { c.FloorDB = 0 }, transform},
		{"window", func(c *EngineConfig) { c.Window = Window(99) }, transform},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultEngineConfig(testSampleRate)
			tt.mutate(&cfg)
			if _, err := NewEngine(cfg, tt.transform); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestAnalyzeBinCountAndNonNegative(t *testing.T) {
	e := newTestEngine(t)
	if e.State() != Idle {
		t.Errorf("initial state = %v, want idle", e.State())
	}

	frames := [][]float64{
		make([]float64, testSize),
		sineFrame(440, 0.3),
		sineFrame(15000, 1),
	}
	noise := make([]float64, testSize)
	seed := uint32(1)
	for i := range noise {
		seed = seed*1664525 + 1013904223
		noise[i] = float64(int32(seed)) * normalize
	}
	frames = append(frames, noise)

	for _, frame := range frames {
		s, err := e.Analyze(frame)
		if err != nil {
			t.Fatal(err)
		}
		if s.Bins() != 512 || len(s.DB) != 512 || len(s.Levels) != 512 {
			t.Fatalf("got %d bins, want 512", s.Bins())
		}
		for i, m := range s.Magnitudes {
			if m < 0 || math.IsNaN(m) {
				t.Fatalf("magnitude[%d] = %v", i, m)
			}
			if s.Levels[i] < 0 || s.Levels[i] > 1 {
				t.Fatalf("level[%d] = %v outside [0, 1]", i, s.Levels[i])
			}
			if s.DB[i] < -90 {
				t.Fatalf("dB[%d] = %v below floor", i, s.DB[i])
			}
		}
	}
	if e.State() != Ready {
		t.Errorf("state = %v, want ready", e.State())
	}
}

func TestAnalyzeSinePeak(t *testing.T) {
	e := newTestEngine(t)
	for _, f := range []float64{100, 440, 1000, 3000, 7777, 12345, 20000} {
		s, err := e.Analyze(sineFrame(f, 0.5))
		if err != nil {
			t.Fatal(err)
		}
		want := synth.ExpectedBin(f, testSampleRate, testSize)
		if d := s.Peak - want; d < -1 || d > 1 {
			t.Errorf("%.0fHz: peak bin %d, want %d±1", f, s.Peak, want)
		}
	}
}

func TestAnalyzeAmplitudeCorrected(t *testing.T) {
	e := newTestEngine(t)
	// 3000Hz sits exactly on bin 64.
	s, err := e.Analyze(sineFrame(3000, 0.5))
	if err != nil {
		t.Fatal(err)
	}
	if s.Peak != 64 {
		t.Fatalf("peak = %d, want 64", s.Peak)
	}
	if math.Abs(s.PeakMagnitude()-0.5) > 0.01 {
		t.Errorf("peak magnitude = %.4f, want 0.5", s.PeakMagnitude())
	}
	if math.Abs(s.DB[64]-20*math.Log10(0.5)) > 0.2 {
		t.Errorf("peak dB = %.2f, want -6.02", s.DB[64])
	}
}

// TestEndToEnd1kHz feeds 1024 samples of a 1kHz sine at 48kHz/32-bit and
// expects bin 21 to dominate with every bin away from the main lobe more
// than 40dB down.
func TestEndToEnd1kHz(t *testing.T) {
	e := newTestEngine(t)
	raw := synth.GenerateSineWave(testSize, testSampleRate, 1000)

	a := NewFrameAssembler(testSize, 1)
	a.Push([]audio.Block{{Samples: raw}})

	s, err := e.Analyze(a.Frame())
	if err != nil {
		t.Fatal(err)
	}
	if s.Peak != 21 {
		t.Fatalf("dominant bin = %d, want 21", s.Peak)
	}
	if !s.Significant() {
		t.Error("1kHz tone should be significant")
	}
	if f := s.DominantFrequency(); math.Abs(f-1000) > s.BinWidth {
		t.Errorf("dominant frequency = %.1f, want ~1000", f)
	}

	const noiseFloor = 40.0
	peakDB := s.DB[s.Peak]
	for i, db := range s.DB {
		if i >= 18 && i <= 24 {
			continue // Main lobe.
		}
		if peakDB-db < noiseFloor {
			t.Errorf("bin %d at %.1fdB is within %.0fdB of the peak (%.1fdB)", i, db, noiseFloor, peakDB)
		}
	}
}

func TestAnalyzeSilence(t *testing.T) {
	e := newTestEngine(t)
	s, err := e.Analyze(make([]float64, testSize))
	if err != nil {
		t.Fatal(err)
	}
	for i := range s.Levels {
		if s.Levels[i] != 0 || s.DB[i] != -90 {
			t.Fatalf("bin %d: level %v, dB %v; want floor", i, s.Levels[i], s.DB[i])
		}
	}
	if s.Significant() || s.DominantFrequency() != 0 {
		t.Error("silence must not report a dominant frequency")
	}
}

func TestAnalyzeDeterministic(t *testing.T) {
	e := newTestEngine(t)
	frame := sineFrame(2345, 0.7)

	first, _ := e.Analyze(frame)
	want := append([]float64(nil), first.Magnitudes...)

	// Analyze something else in between to dirty the scratch buffers.
	_, _ = e.Analyze(sineFrame(50, 1))

	second, _ := e.Analyze(frame)
	for i := range want {
		if second.Magnitudes[i] != want[i] {
			t.Fatalf("bin %d differs between runs: %v != %v", i, second.Magnitudes[i], want[i])
		}
	}
}

func TestAnalyzeInvalidFrameLength(t *testing.T) {
	e := newTestEngine(t)
	for _, n := range []int{0, 1023, 1025, 2048} {
		s, err := e.Analyze(make([]float64, n))
		if !errors.Is(err, ErrInvalidFrameLength) {
			t.Errorf("len %d: err = %v, want ErrInvalidFrameLength", n, err)
		}
		if s != nil {
			t.Errorf("len %d: expected nil spectrum", n)
		}
	}
}

func TestAnalyzeHotPath(t *testing.T) {
	e := newTestEngine(t)
	frame := sineFrame(1000, 0.5)

	_, _ = e.Analyze(frame)
	allocs := testing.AllocsPerRun(100, func() {
		_, _ = e.Analyze(frame)
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations in Analyze, got %.1f", allocs)
	}
}

func TestSpectrumFrequencies(t *testing.T) {
	e := newTestEngine(t)
	s, _ := e.Analyze(sineFrame(1000, 0.5))
	if s.BinWidth != 46.875 {
		t.Errorf("BinWidth = %v, want 46.875", s.BinWidth)
	}
	if s.BinFrequency(21) != 984.375 {
		t.Errorf("BinFrequency(21) = %v", s.BinFrequency(21))
	}
	if s.Frame != 1 {
		t.Errorf("Frame = %d, want 1", s.Frame)
	}
}

func BenchmarkAnalyze(b *testing.B) {
	e := newTestEngine(b)
	frame := sineFrame(1000, 0.5)
	b.ReportAllocs()
	for b.Loop() {
		_, _ = e.Analyze(frame)
	}
}
