// SPDX-License-Identifier: MIT
package pipeline

import (
	"context"
	"fmt"

	"spectrum/internal/audio"
	"spectrum/internal/config"
	"spectrum/internal/display"
	"spectrum/internal/transport"
	"spectrum/internal/transport/udp"
	"spectrum/internal/tui"
)

// NewSource returns the capture source selected by cfg.Audio.Source. A
// file source adopts the file's sample rate and channel count.
func NewSource(cfg *config.Config) (audio.Source, error) {
	a := &cfg.Audio
	switch a.Source {
	case config.SourcePortAudio:
		return audio.NewPortAudioSource(a.InputDevice, a.LowLatency), nil
	case config.SourceSine:
		return audio.NewSineSource(a.SineFrequency, a.SineAmplitude, a.Pace), nil
	case config.SourceWAV:
		src, err := audio.NewWAVSource(a.WAVPath, a.Pace)
		if err != nil {
			return nil, err
		}
		a.SampleRate = src.SampleRate()
		a.Channels = src.Channels()
		return src, nil
	}
	return nil, fmt.Errorf("unknown audio source %q", a.Source)
}

// NewDisplay returns the display sink selected by cfg.Display.Kind. cancel
// is called when an interactive display is closed by the user; status
// supplies its status line and may be nil.
func NewDisplay(cfg *config.Config, cancel context.CancelFunc, status func() string) (display.Display, error) {
	d := &cfg.Display
	switch d.Kind {
	case config.DisplayNull:
		return &display.Null{}, nil
	case config.DisplayLog:
		return transport.NewLogDisplay(cfg.Scheduler.StatsInterval), nil
	case config.DisplayWebSocket:
		return transport.NewWebSocketDisplay(d.WebSocketAddr), nil
	case config.DisplayUDP:
		return udp.NewDisplay(d.UDPTarget), nil
	case config.DisplayTerminal:
		return tui.NewTerminalDisplay(cancel, status), nil
	}
	return nil, fmt.Errorf("unknown display kind %q", d.Kind)
}
