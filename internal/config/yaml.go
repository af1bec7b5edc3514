// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"spectrum/internal/log"
	"spectrum/pkg/bitint"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// candidates are searched, in order, when no path is given.
var candidates = []string{
	"config.yaml",
	"spectrum.yaml",
}

// LoadConfig loads configuration from the YAML file at path. If path is empty,
// the default locations are searched and, when none exists, the built-in
// defaults are used. A .env file in the working directory is loaded into the
// environment first; ENV_* variables then override file values and the result
// is validated.
func LoadConfig(path string) (*Config, error) {
	cfg := NewConfig()

	if err := LoadEnvFile(".env"); err != nil {
		return nil, err
	}

	if path == "" {
		for _, candidate := range candidates {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		cfg.ConfigPath = path
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadEnvFile loads KEY=value pairs from path into the process environment.
// Variables that are already set keep their value. A missing file is not an
// error.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Validate checks every section and returns the first problem found, wrapped
// in ErrInvalid.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
	}

	if _, ok := log.ParseLevel(c.LogLevel); !ok {
		return invalid("log_level %q is not recognized", c.LogLevel)
	}

	a := &c.Audio
	switch a.Source {
	case SourcePortAudio, SourceSine:
	case SourceWAV:
		if a.WAVPath == "" {
			return invalid("audio.wav_path must be set for the wav source")
		}
	default:
		return invalid("audio.source %q must be one of portaudio, wav, sine", a.Source)
	}
	if a.InputDevice < MinDeviceID {
		return invalid("audio.input_device %d is below %d", a.InputDevice, MinDeviceID)
	}
	if a.SampleRate < MinSampleRate || a.SampleRate > MaxSampleRate {
		return invalid("audio.sample_rate %.0f outside [%d, %d]", a.SampleRate, MinSampleRate, MaxSampleRate)
	}
	if a.BitDepth != 32 {
		return invalid("audio.bit_depth %d is not supported, samples are 32-bit", a.BitDepth)
	}
	if a.Channels < 1 {
		return invalid("audio.channels must be positive")
	}
	if a.BlockSize < 1 || a.BlockSize > MaxBlockSize {
		return invalid("audio.block_size %d outside [1, %d]", a.BlockSize, MaxBlockSize)
	}
	if a.RingCapacity < 2 {
		return invalid("audio.ring_capacity must be at least 2")
	}
	if a.PullTimeout <= 0 {
		return invalid("audio.pull_timeout must be positive")
	}
	if a.SineAmplitude < 0 || a.SineAmplitude > 1 {
		return invalid("audio.sine_amplitude %.2f outside [0, 1]", a.SineAmplitude)
	}
	if a.SineFrequency <= 0 || a.SineFrequency >= a.SampleRate/2 {
		return invalid("audio.sine_frequency %.1f must be below Nyquist", a.SineFrequency)
	}

	an := &c.Analysis
	if !bitint.IsPowerOfTwo(an.FFTSize) || an.FFTSize < 16 {
		return invalid("analysis.fft_size %d must be a power of two >= 16", an.FFTSize)
	}
	if an.ReferenceLevel <= 0 {
		return invalid("analysis.reference_level must be positive")
	}
	if an.FloorDB >= 0 {
		return invalid("analysis.floor_db must be negative")
	}
	if an.Significance < 0 {
		return invalid("analysis.significance must not be negative")
	}

	d := &c.Display
	switch d.Kind {
	case DisplayNull, DisplayLog, DisplayWebSocket, DisplayUDP, DisplayTerminal:
	default:
		return invalid("display.kind %q is not recognized", d.Kind)
	}
	if d.Width < 1 || d.Width > an.FFTSize/2-1 {
		return invalid("display.width %d outside [1, %d]", d.Width, an.FFTSize/2-1)
	}
	if d.Height < 8 || d.Height%8 != 0 {
		return invalid("display.height %d must be a positive multiple of 8", d.Height)
	}
	if d.Orientation != 0 && d.Orientation != 180 {
		return invalid("display.orientation must be 0 or 180")
	}
	if d.Grouping != "linear" && d.Grouping != "log" {
		return invalid("display.grouping %q must be linear or log", d.Grouping)
	}
	if d.Aggregate != "max" && d.Aggregate != "mean" {
		return invalid("display.aggregate %q must be max or mean", d.Aggregate)
	}
	if d.PeakHoldFrames < 0 || d.PeakFallRate < 0 {
		return invalid("display peak hold settings must not be negative")
	}
	if d.Kind == DisplayWebSocket && d.WebSocketAddr == "" {
		return invalid("display.websocket_addr must be set for the websocket display")
	}
	if d.Kind == DisplayUDP && !strings.Contains(d.UDPTarget, ":") {
		return invalid("display.udp_target %q appears invalid (missing port?)", d.UDPTarget)
	}

	s := &c.Scheduler
	if s.FrameRate <= 0 || s.FrameRate > MaxFrameRate {
		return invalid("scheduler.frame_rate %.1f outside (0, %d]", s.FrameRate, MaxFrameRate)
	}
	if s.Policy != PolicySkip && s.Policy != PolicyCatchUp {
		return invalid("scheduler.policy %q must be skip or catchup", s.Policy)
	}
	if s.StatsInterval < 0 {
		return invalid("scheduler.stats_interval must not be negative")
	}

	return nil
}

// applyEnvOverrides applies ENV_* variables on top of the file values.
// Unparseable values are logged and ignored.
func (c *Config) applyEnvOverrides() {
	str := func(key string, dst *string) {
		if val, ok := os.LookupEnv(key); ok {
			*dst = val
			log.Debugf("Config: overriding %s from env: %s", key, val)
		}
	}
	parse := func(key string, set func(string) error) {
		val, ok := os.LookupEnv(key)
		if !ok {
			return
		}
		if err := set(val); err != nil {
			log.Warnf("Config: ignoring %s=%q: %v", key, val, err)
			return
		}
		log.Debugf("Config: overriding %s from env: %s", key, val)
	}

	parse("ENV_DEBUG", func(v string) error {
		b, err := strconv.ParseBool(v)
		if err == nil {
			c.Debug = b
		}
		return err
	})
	str("ENV_LOG_LEVEL", &c.LogLevel)

	// ENV_AUDIO_{...}
	str("ENV_AUDIO_SOURCE", &c.Audio.Source)
	parse("ENV_AUDIO_DEVICE", func(v string) error {
		n, err := strconv.Atoi(v)
		if err == nil {
			c.Audio.InputDevice = n
		}
		return err
	})
	parse("ENV_AUDIO_SAMPLE_RATE", func(v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			c.Audio.SampleRate = f
		}
		return err
	})
	str("ENV_AUDIO_WAV_PATH", &c.Audio.WAVPath)

	// ENV_DISPLAY_{...}
	str("ENV_DISPLAY_KIND", &c.Display.Kind)
	str("ENV_DISPLAY_WEBSOCKET_ADDR", &c.Display.WebSocketAddr)
	str("ENV_DISPLAY_UDP_TARGET", &c.Display.UDPTarget)

	// ENV_SCHEDULER_{...}
	parse("ENV_SCHEDULER_FRAME_RATE", func(v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			c.Scheduler.FrameRate = f
		}
		return err
	})
	str("ENV_SCHEDULER_POLICY", &c.Scheduler.Policy)
	parse("ENV_SCHEDULER_STATS_INTERVAL", func(v string) error {
		d, err := time.ParseDuration(v)
		if err == nil {
			c.Scheduler.StatsInterval = d
		}
		return err
	})
}
