// Package trading implements paper-trade execution against the portfolio
// state: allocation caps, slippage and fee adjustments, and atomic updates
// of cash, positions and the trade log.
package trading

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/dhumphrey11/comoda-backend/internal/domain"
	"github.com/dhumphrey11/comoda-backend/internal/models"
)

// Defaults are substituted when the corresponding rows are absent. Results
// priced off DefaultPrice carry PriceDefaulted so callers can tell the
// placeholder apart from a real quote.
type Defaults struct {
	Cash             float64
	Price            float64
	MaxAllocationPct float64
	SlippagePct      float64
	FeesPct          float64
}

func DefaultDefaults() Defaults {
	return Defaults{
		Cash:             20000.0,
		Price:            100.0,
		MaxAllocationPct: 5.0,
		SlippagePct:      0.1,
		FeesPct:          0.05,
	}
}

// Emitter receives a trade-executed event after commit. Emission failures
// do not affect the trade.
type Emitter interface {
	TradeExecuted(ctx context.Context, res models.TradeResult) error
}

type Executor struct {
	store    Store
	emitter  Emitter
	defaults Defaults
	now      func() time.Time
}

func NewExecutor(store Store, emitter Emitter, defaults Defaults) *Executor {
	return &Executor{store: store, emitter: emitter, defaults: defaults, now: time.Now}
}

// ExecuteTrade applies one buy or sell to the portfolio inside a single
// transaction. Buys are cost-adjusted for slippage and fees and clamped to
// the max-allocation rule (the filled quantity shrinks, the call does not
// fail). Sells credit fee-adjusted proceeds and floor the position at zero.
// Any storage failure rolls the whole trade back.
func (e *Executor) ExecuteTrade(ctx context.Context, ticker string, action domain.Action, quantity float64) (models.TradeResult, error) {
	var res models.TradeResult
	err := e.store.ExecuteInTx(ctx, func(tx Tx) error {
		rules, err := tx.TradeRules(ctx)
		if err != nil {
			return &StorageError{Op: "load trade rules", Err: err}
		}
		maxAllocPct := ruleOr(rules, "max_allocation_pct", e.defaults.MaxAllocationPct)
		slippagePct := ruleOr(rules, "slippage_pct", e.defaults.SlippagePct)
		feesPct := ruleOr(rules, "fees_pct", e.defaults.FeesPct)

		cash, haveCash, err := tx.CashAvailable(ctx)
		if err != nil {
			return &StorageError{Op: "load portfolio", Err: err}
		}
		if !haveCash {
			cash = e.defaults.Cash
		}

		price, havePrice, err := tx.LatestPrice(ctx, ticker)
		if err != nil {
			return &StorageError{Op: "load market price", Err: err}
		}
		if !havePrice {
			price = e.defaults.Price
		}

		qty := quantity
		var newCash float64
		if action == domain.ActionBuy {
			cost := price * qty * (1 + slippagePct/100 + feesPct/100)
			maxAllocValue := cash * maxAllocPct / 100
			if cost > maxAllocValue {
				cost = maxAllocValue
				qty = math.Max(cost/price, 0)
			}
			newCash = math.Max(cash-cost, 0)
			if err := tx.SetCash(ctx, newCash); err != nil {
				return &StorageError{Op: "update cash", Err: err}
			}
			if err := tx.AddToPosition(ctx, ticker, qty); err != nil {
				return &StorageError{Op: "update position", Err: err}
			}
		} else {
			proceeds := price * qty * (1 - feesPct/100)
			newCash = cash + proceeds
			if err := tx.SetCash(ctx, newCash); err != nil {
				return &StorageError{Op: "update cash", Err: err}
			}
			if err := tx.ReducePosition(ctx, ticker, qty); err != nil {
				return &StorageError{Op: "update position", Err: err}
			}
		}

		rec := models.Trade{
			ID:         uuid.NewString(),
			Ticker:     ticker,
			Action:     action.String(),
			Quantity:   qty,
			Price:      price,
			ExecutedAt: e.now().UTC(),
		}
		if err := tx.AppendTrade(ctx, rec); err != nil {
			return &StorageError{Op: "append trade log", Err: err}
		}

		res = models.TradeResult{
			Ticker:         ticker,
			Action:         action.String(),
			Quantity:       qty,
			Price:          price,
			CashAvailable:  newCash,
			PriceDefaulted: !havePrice,
		}
		return nil
	})
	if err != nil {
		var se *StorageError
		if !errors.As(err, &se) {
			err = &StorageError{Op: "transaction", Err: err}
		}
		return models.TradeResult{}, err
	}

	if e.emitter != nil {
		_ = e.emitter.TradeExecuted(ctx, res)
	}
	return res, nil
}

func ruleOr(rules map[string]float64, key string, def float64) float64 {
	if v, ok := rules[key]; ok {
		return v
	}
	return def
}
