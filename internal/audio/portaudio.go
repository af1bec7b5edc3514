// SPDX-License-Identifier: MIT
package audio

import (
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"
	"github.com/pkg/errors"
)

// pollInterval is how often Pull checks the stream while waiting for a block.
const pollInterval = 250 * time.Microsecond

// PortAudioSource captures from a PortAudio input device using a blocking
// stream. Initialize must have been called.
type PortAudioSource struct {
	deviceID   int
	lowLatency bool

	mu     sync.Mutex
	stream *portaudio.Stream
	buffer []int32 // PortAudio reads into this buffer.
	format Format
	device *portaudio.DeviceInfo
}

// NewPortAudioSource returns a source for the given device ID
// (MinDeviceID for the system default).
func NewPortAudioSource(deviceID int, lowLatency bool) *PortAudioSource {
	return &PortAudioSource{deviceID: deviceID, lowLatency: lowLatency}
}

// Configure opens and starts the input stream.
func (s *PortAudioSource) Configure(f Format) error {
	if err := f.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stream != nil {
		return errors.New("portaudio source already configured")
	}

	device, err := InputDevice(s.deviceID)
	if err != nil {
		return errors.Wrap(err, "portaudio input device")
	}
	if device.MaxInputChannels < f.Channels {
		return errors.Wrapf(ErrFormat, "device %q has %d input channels, need %d",
			device.Name, device.MaxInputChannels, f.Channels)
	}

	latency := device.DefaultHighInputLatency
	if s.lowLatency {
		latency = device.DefaultLowInputLatency
	}

	buffer := make([]int32, f.Samples())
	stream, err := portaudio.OpenStream(portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: f.Channels,
			Latency:  latency,
		},
		SampleRate:      f.SampleRate,
		FramesPerBuffer: f.BlockSize,
		Flags:           portaudio.ClipOff | portaudio.DitherOff,
	}, buffer)
	if err != nil {
		return errors.Wrapf(err, "open stream on %q", device.Name)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		return errors.Wrapf(err, "start stream on %q", device.Name)
	}

	s.stream = stream
	s.buffer = buffer
	s.format = f
	s.device = device
	return nil
}

// Pull waits until a whole block is buffered by the stream, then reads it.
func (s *PortAudioSource) Pull(dst *Block, timeout time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stream == nil {
		return ErrNotConfigured
	}

	deadline := time.Now().Add(timeout)
	for {
		ready, err := s.stream.AvailableToRead()
		if err != nil {
			return errors.Wrap(err, "portaudio available")
		}
		if ready >= s.format.BlockSize {
			break
		}
		if !time.Now().Before(deadline) {
			return ErrTimeout
		}
		time.Sleep(pollInterval)
	}

	err := s.stream.Read()
	copy(dst.Samples, s.buffer)
	dst.Gap = false
	switch {
	case err == nil:
		return nil
	case errors.Is(err, portaudio.InputOverflowed):
		return ErrCaptureOverrun
	default:
		return errors.Wrap(err, "portaudio read")
	}
}

// Device returns the opened device, nil before Configure.
func (s *PortAudioSource) Device() *portaudio.DeviceInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.device
}

// Close stops and closes the stream.
func (s *PortAudioSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stream == nil {
		return nil
	}
	stream := s.stream
	s.stream = nil

	if err := stream.Stop(); err != nil {
		stream.Close()
		return errors.Wrap(err, "stop stream")
	}
	return errors.Wrap(stream.Close(), "close stream")
}

var _ Source = (*PortAudioSource)(nil)
