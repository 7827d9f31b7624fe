// Package ratelimit provides minimum-interval spacing between calls to
// throttled external services.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter enforces a minimum interval between granted slots per key.
// State is process-wide for the lifetime of the Limiter: construct it
// once and inject it into every call site that shares a throttled
// provider.
type Limiter struct {
	interval time.Duration
	now      func() time.Time
	sleep    func(context.Context, time.Duration) error

	mu   sync.Mutex
	last map[string]time.Time
}

// New returns a Limiter granting at most one slot per interval per key.
func New(interval time.Duration) *Limiter {
	return &Limiter{
		interval: interval,
		now:      time.Now,
		sleep:    Sleep,
		last:     make(map[string]time.Time),
	}
}

// Wait blocks until the minimum interval since the last granted slot
// for key has elapsed, then records the grant. It only fails when the
// context is cancelled while waiting.
func (l *Limiter) Wait(ctx context.Context, key string) error {
	l.mu.Lock()
	for {
		now := l.now()
		ready := l.last[key].Add(l.interval)
		if !now.Before(ready) {
			l.last[key] = now
			l.mu.Unlock()
			return nil
		}
		wait := ready.Sub(now)
		l.mu.Unlock()
		if err := l.sleep(ctx, wait); err != nil {
			return err
		}
		l.mu.Lock()
	}
}

// Sleep pauses for d or until ctx is cancelled, whichever comes first.
// Politeness pauses throughout the pipeline go through here so they
// stay cancellable.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
