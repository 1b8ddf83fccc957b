package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t     time.Time
	slept []time.Duration
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) sleep(_ context.Context, d time.Duration) error {
	c.slept = append(c.slept, d)
	c.t = c.t.Add(d)
	return nil
}

func newFake(budget int, window time.Duration) (*Limiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := New(budget, window)
	l.now, l.sleep = clock.now, clock.sleep
	l.started = clock.now()
	return l, clock
}

func TestNew_Defaults(t *testing.T) {
	l := New(0, 0)
	assert.Equal(t, DefaultBudget, l.budget)
	assert.Equal(t, DefaultWindow, l.window)
}

func TestLimiter_BlocksWhenBudgetSpent(t *testing.T) {
	l, clock := newFake(4, 3*time.Second)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		require.NoError(t, l.Wait(ctx))
		clock.t = clock.t.Add(100 * time.Millisecond)
	}
	assert.Empty(t, clock.slept)

	require.NoError(t, l.Wait(ctx))
	require.Len(t, clock.slept, 1)
	assert.Equal(t, 2600*time.Millisecond, clock.slept[0])
	assert.Equal(t, 2600*time.Millisecond, l.Waited())
	assert.Equal(t, 1, l.calls)
}

func TestLimiter_ResetsAfterWindow(t *testing.T) {
	l, clock := newFake(2, time.Minute)
	ctx := context.Background()

	require.NoError(t, l.Wait(ctx))
	require.NoError(t, l.Wait(ctx))
	clock.t = clock.t.Add(time.Minute)
	require.NoError(t, l.Wait(ctx))
	assert.Empty(t, clock.slept)
}

func TestLimiter_RealClock(t *testing.T) {
	window := 300 * time.Millisecond
	start := time.Now()
	l := New(4, window)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, l.Wait(ctx))
	}
	assert.GreaterOrEqual(t, time.Since(start), window)
}

func TestLimiter_CancelWhileBlocked(t *testing.T) {
	l := New(1, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, l.Wait(ctx))

	cancel()
	assert.ErrorIs(t, l.Wait(ctx), context.Canceled)
}
