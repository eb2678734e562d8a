package trading

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dhumphrey11/comoda-backend/internal/models"
)

// Reader serves the read-only portfolio endpoints outside any trade
// transaction.
type Reader struct{ DB *pgxpool.Pool }

func NewReader(pool *pgxpool.Pool) *Reader { return &Reader{DB: pool} }

func (r *Reader) Portfolio(ctx context.Context) (models.Portfolio, error) {
	var p models.Portfolio
	err := r.DB.QueryRow(ctx,
		`SELECT cash_available FROM portfolio ORDER BY id LIMIT 1`,
	).Scan(&p.CashAvailable)
	return p, err
}

func (r *Reader) Positions(ctx context.Context) ([]models.Position, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT ticker, quantity FROM positions WHERE quantity > 0 ORDER BY ticker`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]models.Position, 0)
	for rows.Next() {
		var p models.Position
		if err := rows.Scan(&p.Ticker, &p.Quantity); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Reader) RecentTrades(ctx context.Context, limit int) ([]models.Trade, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id::text, ticker, action, quantity, price, executed_at
		FROM trades ORDER BY executed_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]models.Trade, 0)
	for rows.Next() {
		var t models.Trade
		if err := rows.Scan(&t.ID, &t.Ticker, &t.Action, &t.Quantity, &t.Price, &t.ExecutedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
