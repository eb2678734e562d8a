// Package ratelimit provides per-source token-bucket admission control for
// outbound API calls.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"
)

// ErrInvalidRate is returned when a limiter is configured with a
// non-positive refill rate.
var ErrInvalidRate = errors.New("ratelimit: rate_per_sec must be > 0")

// Limiter is a token bucket with lazy refill. Tokens accumulate at
// ratePerSec up to capacity; each Acquire consumes one.
type Limiter struct {
	mu         sync.Mutex
	ratePerSec float64
	capacity   float64
	tokens     float64
	updatedAt  time.Time
}

// NewLimiter builds a limiter refilling at ratePerSec with the given burst
// capacity. A burst below 1 is raised to 1 so one token is available
// immediately at start.
func NewLimiter(ratePerSec float64, burst int) (*Limiter, error) {
	if ratePerSec <= 0 {
		return nil, fmt.Errorf("%w (got %v)", ErrInvalidRate, ratePerSec)
	}
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		ratePerSec: ratePerSec,
		capacity:   float64(burst),
		tokens:     float64(burst),
		updatedAt:  time.Now(),
	}, nil
}

// Acquire consumes one token, sleeping until the bucket can supply it. The
// mutex is held across the sleep, so concurrent callers are served in
// arrival order. If ctx is cancelled while waiting the token still counts
// as consumed (the attempt was admitted into the wait queue); limiter state
// stays consistent either way.
func (l *Limiter) Acquire(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(l.updatedAt).Seconds()
	l.updatedAt = now
	l.tokens = math.Min(l.capacity, l.tokens+elapsed*l.ratePerSec)

	if l.tokens >= 1 {
		l.tokens--
		return nil
	}

	// Not enough accumulated: wait out the deficit. The wait itself refills
	// exactly the missing fraction, which this acquire then consumes.
	wait := time.Duration((1 - l.tokens) / l.ratePerSec * float64(time.Second))
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-timer.C:
		l.updatedAt = time.Now()
		l.tokens = 0
		return nil
	case <-ctx.Done():
		l.updatedAt = time.Now()
		l.tokens = 0
		return ctx.Err()
	}
}
