package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Default quota for the Docs API, kept below the published per-user limit.
const (
	DefaultMaxCalls = 50
	DefaultPeriod   = 60 * time.Second
)

// Limiter is a sliding-window throttle: at most maxCalls calls are let
// through in any window of length period. Callers over the limit block
// until the oldest recorded call leaves the window.
//
// A Limiter is shared by every document rendered through one client, since
// remote quotas belong to the credential, not to a document.
type Limiter struct {
	mu       sync.Mutex
	calls    []time.Time
	maxCalls int
	period   time.Duration
}

func New(maxCalls int, period time.Duration) *Limiter {
	if maxCalls <= 0 {
		maxCalls = DefaultMaxCalls
	}
	if period <= 0 {
		period = DefaultPeriod
	}
	return &Limiter{
		calls:    make([]time.Time, 0, maxCalls),
		maxCalls: maxCalls,
		period:   period,
	}
}

// Wait blocks until a call is allowed, then records it. It returns
// ctx.Err() if the context ends while waiting; no call is recorded then.
func (l *Limiter) Wait(ctx context.Context) error {
	for {
		l.mu.Lock()
		now := time.Now()
		l.pruneLocked(now)
		if len(l.calls) < l.maxCalls {
			l.calls = append(l.calls, now)
			l.mu.Unlock()
			return nil
		}
		wait := l.period - now.Sub(l.calls[0])
		l.mu.Unlock()

		if wait <= 0 {
			continue
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Remaining reports how many calls could be made right now without
// blocking. It does not record a call.
func (l *Limiter) Remaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pruneLocked(time.Now())
	return max(0, l.maxCalls-len(l.calls))
}

// Reset forgets all recorded calls.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = l.calls[:0]
}

// Limit returns the configured window size and period.
func (l *Limiter) Limit() (int, time.Duration) {
	return l.maxCalls, l.period
}

// pruneLocked drops timestamps older than period. calls is kept in
// insertion order, so the survivors are a suffix.
func (l *Limiter) pruneLocked(now time.Time) {
	i := 0
	for i < len(l.calls) && now.Sub(l.calls[i]) >= l.period {
		i++
	}
	if i > 0 {
		l.calls = append(l.calls[:0], l.calls[i:]...)
	}
}
