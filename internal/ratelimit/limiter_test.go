package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewLimiterRejectsBadRate(t *testing.T) {
	testCases := []struct {
		desc string
		rate float64
	}{
		{"zero", 0},
		{"negative", -1.5},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			_, err := NewLimiter(tc.rate, 1)
			require.ErrorIs(t, err, ErrInvalidRate)
		})
	}
}

func TestNewLimiterRaisesBurstToOne(t *testing.T) {
	l, err := NewLimiter(1, 0)
	require.NoError(t, err)
	require.Equal(t, 1.0, l.capacity)
	require.Equal(t, 1.0, l.tokens)
}

func TestAcquireBurstIsImmediate(t *testing.T) {
	l, err := NewLimiter(1, 3)
	require.NoError(t, err)

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, l.Acquire(context.Background()))
	}
	require.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestAcquireWaitsWhenDrained(t *testing.T) {
	l, err := NewLimiter(50, 1)
	require.NoError(t, err)

	require.NoError(t, l.Acquire(context.Background()))

	start := time.Now()
	require.NoError(t, l.Acquire(context.Background()))
	// One token at 50/s takes 20ms to refill.
	require.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond)
}

func TestTokensStayBounded(t *testing.T) {
	l, err := NewLimiter(500, 2)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		require.NoError(t, l.Acquire(context.Background()))
		l.mu.Lock()
		require.GreaterOrEqual(t, l.tokens, 0.0)
		require.LessOrEqual(t, l.tokens, l.capacity)
		l.mu.Unlock()
	}
}

func TestAcquireRateLowerBound(t *testing.T) {
	const (
		rate   = 1000.0
		burst  = 5
		grants = 20
	)
	l, err := NewLimiter(rate, burst)
	require.NoError(t, err)

	start := time.Now()
	for i := 0; i < grants; i++ {
		require.NoError(t, l.Acquire(context.Background()))
	}
	// Beyond the burst, each grant costs at least 1/rate seconds.
	minElapsed := time.Duration(float64(grants-burst) / rate * float64(time.Second))
	require.GreaterOrEqual(t, time.Since(start), minElapsed)
}

func TestAcquireWaitersServeInArrivalOrder(t *testing.T) {
	l, err := NewLimiter(200, 1)
	require.NoError(t, err)
	require.NoError(t, l.Acquire(context.Background()))

	order := make(chan int, 3)
	for i := 0; i < 3; i++ {
		i := i
		go func() {
			_ = l.Acquire(context.Background())
			order <- i
		}()
		time.Sleep(20 * time.Millisecond) // stagger arrivals past the 5ms refill
	}

	for want := 0; want < 3; want++ {
		select {
		case got := <-order:
			require.Equal(t, want, got)
		case <-time.After(time.Second):
			t.Fatal("waiter did not complete")
		}
	}
}

func TestAcquireCancelledWhileWaiting(t *testing.T) {
	l, err := NewLimiter(0.1, 1)
	require.NoError(t, err)
	require.NoError(t, l.Acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	err = l.Acquire(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Less(t, time.Since(start), time.Second)

	// The attempt consumed the wait; state remains in bounds.
	l.mu.Lock()
	defer l.mu.Unlock()
	require.GreaterOrEqual(t, l.tokens, 0.0)
	require.LessOrEqual(t, l.tokens, l.capacity)
}

func TestRegistryAcquireDelegates(t *testing.T) {
	r, err := NewRegistry(map[string]SourceConfig{
		"coinapi": {RatePerSec: 50, Burst: 1},
	})
	require.NoError(t, err)
	require.True(t, r.Has("coinapi"))

	require.NoError(t, r.Acquire(context.Background(), "coinapi"))

	start := time.Now()
	require.NoError(t, r.Acquire(context.Background(), "coinapi"))
	require.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond)
}

func TestRegistryUnknownSourceIsNoop(t *testing.T) {
	r, err := NewRegistry(map[string]SourceConfig{})
	require.NoError(t, err)
	require.False(t, r.Has("yahoo"))

	// Even a cancelled context returns nil: unknown names never block.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, r.Acquire(ctx, "yahoo"))
}

func TestRegistryRejectsBadSourceConfig(t *testing.T) {
	_, err := NewRegistry(map[string]SourceConfig{
		"santiment": {RatePerSec: 0, Burst: 2},
	})
	require.ErrorIs(t, err, ErrInvalidRate)
}
