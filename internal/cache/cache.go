// Package cache holds the short-lived payload cache for upstream data
// sources plus the typed in-process cache for signals queries.
package cache

import (
	"encoding/json"
	"time"

	"github.com/dgraph-io/ristretto"

	"github.com/dhumphrey11/comoda-backend/internal/domain"
)

// PayloadCache keeps recent upstream payloads keyed by (source, ticker)
// so repeated ingest requests inside the TTL don't spend rate-limiter
// tokens.
type PayloadCache struct {
	c   *ristretto.Cache
	ttl time.Duration
}

func NewPayloadCache(maxCost int64, ttl time.Duration) (*PayloadCache, error) {
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e5,
		MaxCost:     maxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &PayloadCache{c: c, ttl: ttl}, nil
}

func payloadKey(source domain.Source, ticker string) string {
	return source.String() + "|" + ticker
}

func (c *PayloadCache) GetPayload(source domain.Source, ticker string) (json.RawMessage, bool) {
	v, ok := c.c.Get(payloadKey(source, ticker))
	if !ok {
		return nil, false
	}
	payload, ok := v.(json.RawMessage)
	return payload, ok
}

func (c *PayloadCache) SetPayload(source domain.Source, ticker string, payload json.RawMessage) {
	c.c.SetWithTTL(payloadKey(source, ticker), payload, int64(len(payload)), c.ttl)
}

// Wait flushes pending writes; used by tests and warmup paths that read
// right after SetPayload.
func (c *PayloadCache) Wait() { c.c.Wait() }

// SignalsKey identifies one signals query in the typed MapCache.
type SignalsKey struct {
	Ticker       string
	LookbackDays int
}
