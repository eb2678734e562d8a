package ratelimit

import (
	"context"
	"fmt"
)

// SourceConfig describes the bucket for one named source.
type SourceConfig struct {
	RatePerSec float64
	Burst      int
}

// Registry holds one limiter per source name. The map is fixed at
// construction, so lookups need no locking; each limiter serializes its own
// callers.
type Registry struct {
	limiters map[string]*Limiter
}

func NewRegistry(configs map[string]SourceConfig) (*Registry, error) {
	limiters := make(map[string]*Limiter, len(configs))
	for name, cfg := range configs {
		l, err := NewLimiter(cfg.RatePerSec, cfg.Burst)
		if err != nil {
			return nil, fmt.Errorf("source %q: %w", name, err)
		}
		limiters[name] = l
	}
	return &Registry{limiters: limiters}, nil
}

// Acquire blocks until the named source's bucket grants a token. Unknown
// names are not limited: the call returns nil immediately. Callers that
// need to fail closed can check Has first.
func (r *Registry) Acquire(ctx context.Context, name string) error {
	l, ok := r.limiters[name]
	if !ok {
		return nil
	}
	return l.Acquire(ctx)
}

func (r *Registry) Has(name string) bool {
	_, ok := r.limiters[name]
	return ok
}
