// SPDX-License-Identifier: MIT
package config

import "time"

// Defaults and limits for the analyzer. The frame rate, transform size and
// display resolution match a 128x64 OLED panel refreshed every 5ms from a
// 48kHz capture.
const (
	DefaultSource        = SourcePortAudio
	DefaultDeviceID      = MinDeviceID // System default input.
	DefaultSampleRate    = 48000
	DefaultBitDepth      = 32
	DefaultChannels      = 1
	DefaultBlockSize     = 240 // 5ms at 48kHz.
	DefaultRingCapacity  = 64
	DefaultPullTimeout   = 20 * time.Millisecond
	DefaultSineFrequency = 1000.0
	DefaultSineAmplitude = 0.5

	DefaultFFTSize        = 1024
	DefaultWindow         = "hann"
	DefaultReferenceLevel = 1.0
	DefaultFloorDB        = -90.0
	DefaultSignificance   = 0.01

	DefaultDisplay        = DisplayTerminal
	DefaultWidth          = 128
	DefaultHeight         = 64
	DefaultOrientation    = 0
	DefaultGrouping       = "log"
	DefaultAggregate      = "max"
	DefaultPeakHoldFrames = 60
	DefaultPeakFallRate   = 0.25 // Pixels per frame.
	DefaultWebSocketAddr  = "127.0.0.1:8080"
	DefaultUDPTarget      = "127.0.0.1:9090"

	DefaultFrameRate     = 200
	DefaultPolicy        = PolicySkip
	DefaultStatsInterval = 5 * time.Second

	MinDeviceID   = -1
	MinSampleRate = 8000
	MaxSampleRate = 192000
	MaxBlockSize  = 8192
	MaxFrameRate  = 1000
)

// Capture sources.
const (
	SourcePortAudio = "portaudio"
	SourceWAV       = "wav"
	SourceSine      = "sine"
)

// Display sinks.
const (
	DisplayNull      = "null"
	DisplayLog       = "log"
	DisplayWebSocket = "websocket"
	DisplayUDP       = "udp"
	DisplayTerminal  = "terminal"
)

// Deadline overrun policies.
const (
	PolicySkip    = "skip"
	PolicyCatchUp = "catchup"
)

// Config is the complete runtime configuration, loaded from YAML and
// overridden by the environment and command line flags.
type Config struct {
	Debug     bool            `yaml:"debug"`     // Forces debug logging.
	LogLevel  string          `yaml:"log_level"` // debug, info, warn, error.
	Audio     AudioConfig     `yaml:"audio"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Display   DisplayConfig   `yaml:"display"`
	Scheduler SchedulerConfig `yaml:"scheduler"`

	// Set from the command line only.
	Command     string `yaml:"-"` // One-off command ("list").
	Interactive bool   `yaml:"-"` // Pick the input device from a list.
	ConfigPath  string `yaml:"-"`
}

// AudioConfig describes the capture side.
type AudioConfig struct {
	Source        string        `yaml:"source"`         // portaudio, wav or sine.
	InputDevice   int           `yaml:"input_device"`   // PortAudio device index (-1 for default).
	SampleRate    float64       `yaml:"sample_rate"`    // Hz.
	BitDepth      int           `yaml:"bit_depth"`      // Only 32-bit integer samples are carried.
	Channels      int           `yaml:"channels"`       // Interleaved channel count; channel 0 is analyzed.
	BlockSize     int           `yaml:"block_size"`     // Frames per capture block.
	RingCapacity  int           `yaml:"ring_capacity"`  // Blocks; rounded up to a power of two.
	PullTimeout   time.Duration `yaml:"pull_timeout"`   // Longest wait for one block.
	LowLatency    bool          `yaml:"low_latency"`    // Use the device's low input latency.
	WAVPath       string        `yaml:"wav_path"`       // File replayed by the wav source.
	Pace          bool          `yaml:"pace"`           // Pace file and sine sources at the sample clock.
	SineFrequency float64       `yaml:"sine_frequency"` // Hz.
	SineAmplitude float64       `yaml:"sine_amplitude"` // 0..1 of full scale.
}

// AnalysisConfig describes the spectrum engine.
type AnalysisConfig struct {
	FFTSize        int     `yaml:"fft_size"`        // Power of two.
	Window         string  `yaml:"window"`          // hann, hamming, blackman, ...
	ReferenceLevel float64 `yaml:"reference_level"` // Amplitude mapped to 0dB.
	FloorDB        float64 `yaml:"floor_db"`        // Levels below are clamped.
	Significance   float64 `yaml:"significance"`    // Minimum magnitude of a dominant peak.
}

// DisplayConfig describes the renderer and the display sink.
type DisplayConfig struct {
	Kind           string  `yaml:"kind"`        // null, log, websocket, udp, terminal.
	Width          int     `yaml:"width"`       // Columns, one bar each.
	Height         int     `yaml:"height"`      // Rows; multiple of 8.
	Orientation    int     `yaml:"orientation"` // 0 or 180 degrees.
	Grouping       string  `yaml:"grouping"`    // linear or log.
	Aggregate      string  `yaml:"aggregate"`   // max or mean.
	Ballistics     bool    `yaml:"ballistics"`  // Spring-smoothed bars.
	PeakHoldFrames int     `yaml:"peak_hold_frames"`
	PeakFallRate   float64 `yaml:"peak_fall_rate"`
	WebSocketAddr  string  `yaml:"websocket_addr"`
	UDPTarget      string  `yaml:"udp_target"`
}

// SchedulerConfig describes the frame cadence.
type SchedulerConfig struct {
	FrameRate     float64       `yaml:"frame_rate"`     // Frames per second.
	Policy        string        `yaml:"policy"`         // skip or catchup.
	StatsInterval time.Duration `yaml:"stats_interval"` // 0 disables the periodic stats line.
	MaxFrames     uint64        `yaml:"max_frames"`     // 0 runs until stopped.
}

// NewConfig returns a Config holding the built-in defaults.
func NewConfig() *Config {
	return &Config{
		LogLevel: "info",
		Audio: AudioConfig{
			Source:        DefaultSource,
			InputDevice:   DefaultDeviceID,
			SampleRate:    DefaultSampleRate,
			BitDepth:      DefaultBitDepth,
			Channels:      DefaultChannels,
			BlockSize:     DefaultBlockSize,
			RingCapacity:  DefaultRingCapacity,
			PullTimeout:   DefaultPullTimeout,
			Pace:          true,
			SineFrequency: DefaultSineFrequency,
			SineAmplitude: DefaultSineAmplitude,
		},
		Analysis: AnalysisConfig{
			FFTSize:        DefaultFFTSize,
			Window:         DefaultWindow,
			ReferenceLevel: DefaultReferenceLevel,
			FloorDB:        DefaultFloorDB,
			Significance:   DefaultSignificance,
		},
		Display: DisplayConfig{
			Kind:           DefaultDisplay,
			Width:          DefaultWidth,
			Height:         DefaultHeight,
			Orientation:    DefaultOrientation,
			Grouping:       DefaultGrouping,
			Aggregate:      DefaultAggregate,
			Ballistics:     true,
			PeakHoldFrames: DefaultPeakHoldFrames,
			PeakFallRate:   DefaultPeakFallRate,
			WebSocketAddr:  DefaultWebSocketAddr,
			UDPTarget:      DefaultUDPTarget,
		},
		Scheduler: SchedulerConfig{
			FrameRate:     DefaultFrameRate,
			Policy:        DefaultPolicy,
			StatsInterval: DefaultStatsInterval,
		},
	}
}
