// SPDX-License-Identifier: MIT
package audio

import "time"

// pacer releases blocks at the rate a device running at the configured
// sample clock would deliver them.
type pacer struct {
	enabled bool
	period  time.Duration
	start   time.Time
	n       uint64

	now   func() time.Time
	sleep func(time.Duration)
}

func newPacer(enabled bool, period time.Duration) pacer {
	return pacer{enabled: enabled, period: period, now: time.Now, sleep: time.Sleep}
}

// wait blocks until the next block is due. If it is due later than timeout
// from now, it waits out the timeout and returns ErrTimeout without
// consuming the block.
func (p *pacer) wait(timeout time.Duration) error {
	if !p.enabled {
		return nil
	}
	now := p.now()
	if p.start.IsZero() {
		p.start = now
	}
	due := p.start.Add(time.Duration(p.n+1) * p.period)
	if wait := due.Sub(now); wait > 0 {
		if wait > timeout {
			p.sleep(timeout)
			return ErrTimeout
		}
		p.sleep(wait)
	}
	p.n++
	return nil
}
