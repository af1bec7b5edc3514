// SPDX-License-Identifier: MIT

package log

import (
	"sync/atomic"
	"time"
)

// Limiter gates a repeating log line so it is written at most once per
// interval. It is safe for concurrent use and does not allocate, so it can be
// consulted on every frame of the hot path.
//
//	var overrunLog = log.Every(time.Second)
//
//	if n, ok := overrunLog.Allow(); ok {
//		log.Warnf("Scheduler: deadline overrun (%d suppressed)", n)
//	}
type Limiter struct {
	interval   int64
	next       atomic.Int64
	suppressed atomic.Uint64
	now        func() time.Time
}

// Every returns a Limiter that allows one event per interval.
func Every(interval time.Duration) *Limiter {
	return &Limiter{interval: int64(interval), now: time.Now}
}

// Allow reports whether the caller may log now. When it does, it also returns
// how many events were refused since the last allowed one.
func (l *Limiter) Allow() (uint64, bool) {
	now := l.now().UnixNano()
	next := l.next.Load()
	if now < next || !l.next.CompareAndSwap(next, now+l.interval) {
		l.suppressed.Add(1)
		return 0, false
	}
	return l.suppressed.Swap(0), true
}
