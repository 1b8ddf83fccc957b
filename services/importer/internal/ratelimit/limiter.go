// Package ratelimit throttles reads against a foreign API with a fixed
// window call budget.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

const (
	DefaultBudget = 450
	DefaultWindow = 15 * time.Minute
)

// Limiter allows at most budget calls per window. When the budget is spent
// before the window ends, Wait blocks until the window expires and then
// starts a fresh one. Bursts across a window boundary are accepted.
type Limiter struct {
	budget int
	window time.Duration

	now   func() time.Time
	sleep func(context.Context, time.Duration) error

	mu      sync.Mutex
	started time.Time
	calls   int
	waited  time.Duration
}

// New creates a limiter; non-positive values fall back to the defaults
func New(budget int, window time.Duration) *Limiter {
	if budget <= 0 {
		budget = DefaultBudget
	}
	if window <= 0 {
		window = DefaultWindow
	}
	l := &Limiter{
		budget: budget,
		window: window,
		now:    time.Now,
		sleep:  sleepContext,
	}
	l.started = l.now()
	return l
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Wait accounts for one call, blocking first when the budget of the current
// window is exhausted. It only fails when ctx is done while blocked.
func (l *Limiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.started) >= l.window {
		l.started, l.calls = now, 0
	}
	if l.calls >= l.budget {
		remaining := l.window - now.Sub(l.started)
		if err := l.sleep(ctx, remaining); err != nil {
			return err
		}
		l.waited += remaining
		l.started, l.calls = l.now(), 0
	}
	l.calls++
	return nil
}

// Waited returns the total time spent blocked
func (l *Limiter) Waited() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.waited
}
