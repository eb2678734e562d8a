package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/dhumphrey11/comoda-backend/internal/domain"
)

const (
	coinAPIBase   = "https://rest.coinapi.io/v1"
	santimentBase = "https://api.santiment.net"
	yahooBase     = "https://query1.finance.yahoo.com"
)

// CoinAPI fetches latest trade prices. Prices found in payloads are forwarded
// to the sink so the executor prices trades off real data.
type CoinAPI struct {
	BaseURL string
	deps    Deps
	apiKey  string
	prices  PriceSink
}

func NewCoinAPI(deps Deps, apiKey string, prices PriceSink) *CoinAPI {
	return &CoinAPI{BaseURL: coinAPIBase, deps: deps, apiKey: apiKey, prices: prices}
}

func (c *CoinAPI) FetchLivePrice(ctx context.Context, ticker string) (json.RawMessage, error) {
	if payload, ok := c.deps.cached(domain.SourceCoinAPI, ticker); ok {
		return payload, nil
	}
	if err := c.deps.Limiter.Acquire(ctx, domain.SourceCoinAPI.String()); err != nil {
		return nil, err
	}
	u := fmt.Sprintf("%s/trades/latest?symbol_id=%s", c.BaseURL, url.QueryEscape(ticker))
	payload, err := getJSON(ctx, c.deps.HTTP, domain.SourceCoinAPI, u,
		map[string]string{"X-CoinAPI-Key": c.apiKey})
	if err != nil {
		return nil, err
	}
	c.deps.store(domain.SourceCoinAPI, ticker, payload)
	if c.prices != nil {
		if price, ok := firstTradePrice(payload); ok {
			_ = c.prices.RecordPrice(ctx, ticker, price) // best effort
		}
	}
	return payload, nil
}

// firstTradePrice pulls the price off the newest trade in a CoinAPI
// trades/latest payload.
func firstTradePrice(payload json.RawMessage) (float64, bool) {
	var trades []struct {
		Price float64 `json:"price"`
	}
	if err := json.Unmarshal(payload, &trades); err != nil || len(trades) == 0 {
		return 0, false
	}
	if trades[0].Price <= 0 {
		return 0, false
	}
	return trades[0].Price, true
}

// Santiment fetches social volume for a slug.
type Santiment struct {
	BaseURL string
	deps    Deps
	apiKey  string
}

func NewSantiment(deps Deps, apiKey string) *Santiment {
	return &Santiment{BaseURL: santimentBase, deps: deps, apiKey: apiKey}
}

func (c *Santiment) FetchSocialVolume(ctx context.Context, ticker string) (json.RawMessage, error) {
	if payload, ok := c.deps.cached(domain.SourceSantiment, ticker); ok {
		return payload, nil
	}
	if err := c.deps.Limiter.Acquire(ctx, domain.SourceSantiment.String()); err != nil {
		return nil, err
	}
	u := fmt.Sprintf("%s/labs/sanapi/social_volume?slug=%s", c.BaseURL, url.QueryEscape(ticker))
	payload, err := getJSON(ctx, c.deps.HTTP, domain.SourceSantiment, u,
		map[string]string{"Authorization": "Apikey " + c.apiKey})
	if err != nil {
		return nil, err
	}
	c.deps.store(domain.SourceSantiment, ticker, payload)
	return payload, nil
}

// Yahoo fetches quote snapshots; no API key required.
type Yahoo struct {
	BaseURL string
	deps    Deps
}

func NewYahoo(deps Deps) *Yahoo {
	return &Yahoo{BaseURL: yahooBase, deps: deps}
}

func (c *Yahoo) FetchQuote(ctx context.Context, ticker string) (json.RawMessage, error) {
	if payload, ok := c.deps.cached(domain.SourceYahoo, ticker); ok {
		return payload, nil
	}
	if err := c.deps.Limiter.Acquire(ctx, domain.SourceYahoo.String()); err != nil {
		return nil, err
	}
	u := fmt.Sprintf("%s/v7/finance/quote?symbols=%s", c.BaseURL, url.QueryEscape(ticker))
	payload, err := getJSON(ctx, c.deps.HTTP, domain.SourceYahoo, u, nil)
	if err != nil {
		return nil, err
	}
	c.deps.store(domain.SourceYahoo, ticker, payload)
	return payload, nil
}
