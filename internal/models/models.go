package models

import "time"

type Trade struct {
	ID         string    `json:"id"`
	Ticker     string    `json:"ticker"`
	Action     string    `json:"action"`
	Quantity   float64   `json:"quantity"`
	Price      float64   `json:"price"`
	ExecutedAt time.Time `json:"executed_at"`
}

type Position struct {
	Ticker   string  `json:"ticker"`
	Quantity float64 `json:"quantity"`
}

type Portfolio struct {
	CashAvailable float64 `json:"cash_available"`
}

// TradeResult is what the executor hands back after a committed trade. The
// quantity may be smaller than requested when the allocation cap clamped it.
// PriceDefaulted marks results priced off the placeholder instead of a real
// market_prices row.
type TradeResult struct {
	Ticker         string  `json:"ticker"`
	Action         string  `json:"action"`
	Quantity       float64 `json:"quantity"`
	Price          float64 `json:"price"`
	CashAvailable  float64 `json:"cash_available"`
	PriceDefaulted bool    `json:"price_defaulted,omitempty"`
}

// Token is a symbol registered for ingestion, tagged with its universe.
type Token struct {
	Ticker   string `json:"ticker"`
	Name     string `json:"name,omitempty"`
	Universe string `json:"universe"`
}
