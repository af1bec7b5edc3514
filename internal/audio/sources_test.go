// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"spectrum/pkg/synth"
)

var testFormat = Format{SampleRate: 48000, BitDepth: 32, Channels: 1, BlockSize: 240}

func TestFormat(t *testing.T) {
	if got := testFormat.BlockDuration(); got != 5*time.Millisecond {
		t.Errorf("BlockDuration() = %v, want 5ms", got)
	}
	stereo := testFormat
	stereo.Channels = 2
	if got := stereo.Samples(); got != 480 {
		t.Errorf("Samples() = %d, want 480", got)
	}

	bad := []Format{
		{SampleRate: 0, BitDepth: 32, Channels: 1, BlockSize: 1},
		{SampleRate: 48000, BitDepth: 16, Channels: 1, BlockSize: 1},
		{SampleRate: 48000, BitDepth: 32, Channels: 0, BlockSize: 1},
		{SampleRate: 48000, BitDepth: 32, Channels: 1, BlockSize: 0},
	}
	for _, f := range bad {
		if err := f.Validate(); !errors.Is(err, ErrFormat) {
			t.Errorf("Validate(%v) = %v, want ErrFormat", f, err)
		}
	}
}

func TestSineSource(t *testing.T) {
	src := NewSineSource(1000, 0.5, false)
	block := NewBlock(testFormat)

	if err := src.Pull(&block, time.Millisecond); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("Pull before Configure = %v, want ErrNotConfigured", err)
	}
	if err := src.Configure(testFormat); err != nil {
		t.Fatal(err)
	}

	whole := make([]int32, 480)
	synth.Sine(whole, 48000, 1000, 0.5, 0, 1)

	for i := range 2 {
		if err := src.Pull(&block, time.Millisecond); err != nil {
			t.Fatalf("Pull %d: %v", i, err)
		}
		for j, v := range block.Samples {
			if v != whole[i*240+j] {
				t.Fatalf("block %d sample %d = %d, want %d", i, j, v, whole[i*240+j])
			}
		}
	}
}

func TestSineSourceOverrunInjection(t *testing.T) {
	src := NewSineSource(440, 0.5, false)
	src.OverrunEvery = 3
	if err := src.Configure(testFormat); err != nil {
		t.Fatal(err)
	}

	block := NewBlock(testFormat)
	var overruns int
	for range 9 {
		if err := src.Pull(&block, time.Millisecond); errors.Is(err, ErrCaptureOverrun) {
			overruns++
		}
	}
	if overruns != 3 {
		t.Errorf("overruns = %d, want 3", overruns)
	}
}

func TestPacer(t *testing.T) {
	now := time.Unix(100, 0)
	var slept []time.Duration
	p := newPacer(true, 5*time.Millisecond)
	p.now = func() time.Time { return now }
	p.sleep = func(d time.Duration) {
		slept = append(slept, d)
		now = now.Add(d)
	}

	if err := p.wait(time.Second); err != nil {
		t.Fatal(err)
	}
	if err := p.wait(2 * time.Millisecond); !errors.Is(err, ErrTimeout) {
		t.Fatalf("wait with short timeout = %v, want ErrTimeout", err)
	}
	if err := p.wait(time.Second); err != nil {
		t.Fatal(err)
	}

	want := []time.Duration{5 * time.Millisecond, 2 * time.Millisecond, 3 * time.Millisecond}
	if len(slept) != len(want) {
		t.Fatalf("slept %v, want %v", slept, want)
	}
	for i := range want {
		if slept[i] != want[i] {
			t.Errorf("sleep %d = %v, want %v", i, slept[i], want[i])
		}
	}
}

func writeTestWAV(t *testing.T, rate, bitDepth, channels int, data []int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tone.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	enc := wav.NewEncoder(f, rate, bitDepth, channels, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: rate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestWAVSource(t *testing.T) {
	// 300 mono 16-bit frames: a ramp so positions are recognizable.
	data := make([]int, 300)
	for i := range data {
		data[i] = i * 100
	}
	path := writeTestWAV(t, 48000, 16, 1, data)

	src, err := NewWAVSource(path, false)
	if err != nil {
		t.Fatalf("NewWAVSource: %v", err)
	}
	if src.SampleRate() != 48000 || src.Channels() != 1 {
		t.Fatalf("rate/channels = %.0f/%d", src.SampleRate(), src.Channels())
	}

	wrongRate := testFormat
	wrongRate.SampleRate = 44100
	if err := src.Configure(wrongRate); !errors.Is(err, ErrFormat) {
		t.Errorf("Configure(44.1kHz) = %v, want ErrFormat", err)
	}

	stereo := testFormat
	stereo.Channels = 2
	if err := src.Configure(stereo); err != nil {
		t.Fatal(err)
	}

	block := NewBlock(stereo)
	if err := src.Pull(&block, time.Millisecond); err != nil {
		t.Fatal(err)
	}
	// 16-bit samples are rescaled to 32 bits and duplicated to both channels.
	if block.Samples[2*10] != 1000<<16 || block.Samples[2*10+1] != 1000<<16 {
		t.Errorf("frame 10 = %d/%d, want %d", block.Samples[20], block.Samples[21], 1000<<16)
	}

	// The second block wraps after 60 frames.
	if err := src.Pull(&block, time.Millisecond); err != nil {
		t.Fatal(err)
	}
	if src.Loops() != 1 {
		t.Errorf("Loops() = %d, want 1", src.Loops())
	}
	if block.Samples[2*60] != 0 {
		t.Errorf("frame after wrap = %d, want 0", block.Samples[120])
	}

	if err := src.Close(); err != nil {
		t.Fatal(err)
	}
	if err := src.Pull(&block, time.Millisecond); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("Pull after Close = %v, want ErrNotConfigured", err)
	}
}

func TestWAVSourceRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "noise.wav")
	if err := os.WriteFile(path, []byte("not a riff file"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewWAVSource(path, false); err == nil {
		t.Error("expected error for invalid WAV")
	}
	if _, err := NewWAVSource(filepath.Join(t.TempDir(), "missing.wav"), false); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestRescaleFor(t *testing.T) {
	for _, depth := range []int{8, 16, 24, 32} {
		shift, _, err := rescaleFor(depth)
		if err != nil || int(shift)+depth != 32 {
			t.Errorf("rescaleFor(%d) = %d, %v", depth, shift, err)
		}
	}
	if _, _, err := rescaleFor(12); !errors.Is(err, ErrFormat) {
		t.Errorf("rescaleFor(12) = %v, want ErrFormat", err)
	}
}

func TestBlockSilence(t *testing.T) {
	b := Block{Samples: []int32{1, -2, math.MaxInt32}}
	b.Silence()
	if !b.Gap || PeakAmplitude(b.Samples) != 0 {
		t.Errorf("Silence() left %+v", b)
	}
}
