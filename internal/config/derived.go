// SPDX-License-Identifier: MIT
package config

import (
	"math"
	"time"
)

// FramePeriod returns the scheduler cadence.
func (c *Config) FramePeriod() time.Duration {
	return time.Duration(float64(time.Second) / c.Scheduler.FrameRate)
}

// BlockDuration returns the capture time covered by one block.
func (c *Config) BlockDuration() time.Duration {
	return time.Duration(float64(c.Audio.BlockSize) / c.Audio.SampleRate * float64(time.Second))
}

// HopBlocks returns how many blocks the scheduler drains per frame so that,
// on average, it consumes capture at the rate it is produced. Frames longer
// than the hop overlap the previous frame.
func (c *Config) HopBlocks() int {
	hop := int(math.Round(float64(c.FramePeriod()) / float64(c.BlockDuration())))
	return max(hop, 1)
}

// LogLevelName returns the effective log level; Debug wins over LogLevel.
func (c *Config) LogLevelName() string {
	if c.Debug {
		return "debug"
	}
	return c.LogLevel
}
