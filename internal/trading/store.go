package trading

import (
	"context"

	"github.com/dhumphrey11/comoda-backend/internal/models"
)

// Store opens the atomic scope a trade executes in. Implementations must
// roll back everything when fn returns an error and commit only when it
// returns nil.
type Store interface {
	ExecuteInTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the set of row operations a trade needs. The production
// implementation locks the portfolio row for the duration of the
// transaction so concurrent trades serialize on it.
type Tx interface {
	TradeRules(ctx context.Context) (map[string]float64, error)
	CashAvailable(ctx context.Context) (cash float64, ok bool, err error)
	LatestPrice(ctx context.Context, ticker string) (price float64, ok bool, err error)
	SetCash(ctx context.Context, cash float64) error
	AddToPosition(ctx context.Context, ticker string, quantity float64) error
	ReducePosition(ctx context.Context, ticker string, quantity float64) error
	AppendTrade(ctx context.Context, rec models.Trade) error
}
