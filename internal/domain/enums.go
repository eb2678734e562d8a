package domain

import "strings"

// Action is a closed set of trade directions.
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
)

func (a Action) String() string { return string(a) }
func (a Action) Valid() bool    { return a == ActionBuy || a == ActionSell }

// Direction returns +1 for buys and -1 for sells.
func (a Action) Direction() float64 {
	if a == ActionBuy {
		return 1
	}
	return -1
}

func ParseAction(s string) (Action, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buy":
		return ActionBuy, true
	case "sell":
		return ActionSell, true
	default:
		return "", false
	}
}

// Source names an upstream market/social data provider.
type Source string

const (
	SourceCoinAPI   Source = "coinapi"
	SourceSantiment Source = "santiment"
	SourceYahoo     Source = "yahoo"
)

func (s Source) String() string { return string(s) }

func (s Source) Valid() bool {
	switch s {
	case SourceCoinAPI, SourceSantiment, SourceYahoo:
		return true
	default:
		return false
	}
}

func ParseSource(s string) (Source, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "coinapi":
		return SourceCoinAPI, true
	case "santiment":
		return SourceSantiment, true
	case "yahoo":
		return SourceYahoo, true
	default:
		return "", false
	}
}

func AllSources() []Source {
	return []Source{SourceCoinAPI, SourceSantiment, SourceYahoo}
}

// Universe classifies a token for ingestion purposes. Empty input parses to
// the default "market" universe.
type Universe string

const (
	UniversePortfolio Universe = "portfolio"
	UniverseWatchlist Universe = "watchlist"
	UniverseMarket    Universe = "market"
)

func (u Universe) String() string { return string(u) }

func (u Universe) Valid() bool {
	switch u {
	case UniversePortfolio, UniverseWatchlist, UniverseMarket:
		return true
	default:
		return false
	}
}

func ParseUniverse(s string) (Universe, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "market":
		return UniverseMarket, true
	case "portfolio":
		return UniversePortfolio, true
	case "watchlist":
		return UniverseWatchlist, true
	default:
		return "", false
	}
}
