package trading

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dhumphrey11/comoda-backend/internal/models"
)

// PgStore runs trades in read-committed transactions against Postgres.
type PgStore struct{ DB *pgxpool.Pool }

func NewPgStore(pool *pgxpool.Pool) *PgStore { return &PgStore{DB: pool} }

// tradeTxOptions: the FOR UPDATE lock on the portfolio row is what
// serializes concurrent trades. Read committed lets a trade that blocked
// on that lock re-read the winner's committed cash once it acquires the
// row; repeatable read would instead abort it with a serialization
// failure, and no retry exists at this layer.
var tradeTxOptions = pgx.TxOptions{IsoLevel: pgx.ReadCommitted}

func (s *PgStore) ExecuteInTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.DB.BeginTx(ctx, tradeTxOptions)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // no-op once committed

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type pgTx struct{ tx pgx.Tx }

func (t *pgTx) TradeRules(ctx context.Context) (map[string]float64, error) {
	rows, err := t.tx.Query(ctx, `SELECT key, value FROM trade_rules`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]float64)
	for rows.Next() {
		var key, raw string
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, err
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue // malformed rule rows fall back to defaults
		}
		out[key] = v
	}
	return out, rows.Err()
}

// CashAvailable locks the singleton portfolio row until commit or
// rollback. A concurrent trade blocks here and then reads the updated
// cash, so two trades never compute from the same stale snapshot.
func (t *pgTx) CashAvailable(ctx context.Context) (float64, bool, error) {
	var cash float64
	err := t.tx.QueryRow(ctx,
		`SELECT cash_available FROM portfolio ORDER BY id LIMIT 1 FOR UPDATE`,
	).Scan(&cash)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return cash, true, nil
}

func (t *pgTx) LatestPrice(ctx context.Context, ticker string) (float64, bool, error) {
	var price float64
	err := t.tx.QueryRow(ctx,
		`SELECT price FROM market_prices WHERE ticker=$1 ORDER BY ts DESC LIMIT 1`,
		ticker,
	).Scan(&price)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return price, true, nil
}

func (t *pgTx) SetCash(ctx context.Context, cash float64) error {
	tag, err := t.tx.Exec(ctx, `UPDATE portfolio SET cash_available=$1`, cash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		_, err = t.tx.Exec(ctx, `INSERT INTO portfolio (cash_available) VALUES ($1)`, cash)
	}
	return err
}

func (t *pgTx) AddToPosition(ctx context.Context, ticker string, quantity float64) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO positions (ticker, quantity)
		VALUES ($1, $2)
		ON CONFLICT (ticker)
		DO UPDATE SET quantity = positions.quantity + EXCLUDED.quantity;
	`, ticker, quantity)
	return err
}

func (t *pgTx) ReducePosition(ctx context.Context, ticker string, quantity float64) error {
	_, err := t.tx.Exec(ctx,
		`UPDATE positions SET quantity = GREATEST(positions.quantity - $1, 0) WHERE ticker=$2`,
		quantity, ticker)
	return err
}

func (t *pgTx) AppendTrade(ctx context.Context, rec models.Trade) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO trades (id, ticker, action, quantity, price, executed_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.ID, rec.Ticker, rec.Action, rec.Quantity, rec.Price, rec.ExecutedAt)
	return err
}
