// Package ingest holds the clients for the three upstream data sources.
// Every outbound call first passes the per-source rate-limiter registry;
// the token is spent whether or not the call succeeds.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/dhumphrey11/comoda-backend/internal/cache"
	"github.com/dhumphrey11/comoda-backend/internal/domain"
	"github.com/dhumphrey11/comoda-backend/internal/ratelimit"
)

// UpstreamError reports a non-2xx response from a data source.
type UpstreamError struct {
	Source domain.Source
	Status int
	URL    string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("ingest: %s returned %d for %s", e.Source, e.Status, e.URL)
}

// PriceSink receives prices observed in upstream payloads.
type PriceSink interface {
	RecordPrice(ctx context.Context, ticker string, price float64) error
}

// Deps are shared by all source clients. HTTP carries the upstream timeout;
// Cache is optional.
type Deps struct {
	HTTP    *http.Client
	Limiter *ratelimit.Registry
	Cache   *cache.PayloadCache
}

func (d Deps) cached(source domain.Source, ticker string) (json.RawMessage, bool) {
	if d.Cache == nil {
		return nil, false
	}
	return d.Cache.GetPayload(source, ticker)
}

func (d Deps) store(source domain.Source, ticker string, payload json.RawMessage) {
	if d.Cache != nil {
		d.Cache.SetPayload(source, ticker, payload)
	}
}

// getJSON performs one admitted GET and returns the raw body. The caller
// has already acquired a token for the source.
func getJSON(ctx context.Context, hc *http.Client, source domain.Source, url string, headers map[string]string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &UpstreamError{Source: source, Status: resp.StatusCode, URL: url}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(body), nil
}
