// Package signals proxies the ML scoring service.
package signals

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
)

type Service struct {
	BaseURL string
	http    *http.Client
}

func New(baseURL string, hc *http.Client) *Service {
	return &Service{BaseURL: baseURL, http: hc}
}

// FetchSignals returns the scoring service's response for the ticker (all
// tickers when empty) over the lookback window.
func (s *Service) FetchSignals(ctx context.Context, ticker string, lookbackDays int) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("lookback_days", strconv.Itoa(lookbackDays))
	if ticker != "" {
		params.Set("ticker", ticker)
	}
	return s.do(ctx, http.MethodGet, "/signals?"+params.Encode())
}

// TriggerRetraining kicks off model retraining on the ML service.
func (s *Service) TriggerRetraining(ctx context.Context) (json.RawMessage, error) {
	return s.do(ctx, http.MethodPost, "/admin/retrain")
}

func (s *Service) do(ctx context.Context, method, path string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, method, s.BaseURL+path, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("signals: ml service returned %d for %s", resp.StatusCode, path)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(body), nil
}
