// SPDX-License-Identifier: MIT
package scheduler

import (
	"context"
	"time"
)

// Clock is the time source of the frame loop.
type Clock interface {
	Now() time.Time
	// WaitUntil blocks until t or until ctx is done, returning ctx.Err()
	// in the latter case. It returns at once when t has passed.
	WaitUntil(ctx context.Context, t time.Time) error
}

// SystemClock is the wall clock. Its timer is reused between waits, so it
// must be used by one goroutine at a time.
type SystemClock struct {
	timer *time.Timer
}

// NewSystemClock returns a wall clock.
func NewSystemClock() *SystemClock {
	t := time.NewTimer(time.Hour)
	t.Stop()
	return &SystemClock{timer: t}
}

func (c *SystemClock) Now() time.Time {
	return time.Now()
}

func (c *SystemClock) WaitUntil(ctx context.Context, t time.Time) error {
	d := time.Until(t)
	if d <= 0 {
		return ctx.Err()
	}
	c.timer.Reset(d)
	defer c.timer.Stop()

	select {
	case <-c.timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
