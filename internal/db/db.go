package db

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

func Connect(ctx context.Context, url string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// InitSchema creates the tables the backend needs and seeds the singleton
// portfolio row and default trade rules. Safe to run on every start.
func InitSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS error_logs (
			id SERIAL PRIMARY KEY,
			created_at TIMESTAMPTZ DEFAULT now(),
			context TEXT NOT NULL,
			message TEXT NOT NULL,
			extra JSONB
		);
		CREATE TABLE IF NOT EXISTS portfolio (
			id SERIAL PRIMARY KEY,
			cash_available NUMERIC DEFAULT 20000
		);
		INSERT INTO portfolio (cash_available)
		SELECT 20000 WHERE NOT EXISTS (SELECT 1 FROM portfolio);
		CREATE TABLE IF NOT EXISTS positions (
			ticker TEXT PRIMARY KEY,
			quantity NUMERIC NOT NULL DEFAULT 0
		);
		CREATE TABLE IF NOT EXISTS trades (
			id UUID PRIMARY KEY,
			ticker TEXT NOT NULL,
			action TEXT NOT NULL,
			quantity NUMERIC NOT NULL,
			price NUMERIC NOT NULL,
			executed_at TIMESTAMPTZ DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS trade_rules (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
		INSERT INTO trade_rules (key, value) VALUES
			('max_allocation_pct', '5.0'),
			('slippage_pct', '0.1'),
			('fees_pct', '0.05')
		ON CONFLICT (key) DO NOTHING;
		CREATE TABLE IF NOT EXISTS market_prices (
			ticker TEXT NOT NULL,
			price NUMERIC NOT NULL,
			ts TIMESTAMPTZ DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS market_prices_ticker_ts ON market_prices (ticker, ts DESC);
		CREATE TABLE IF NOT EXISTS tokens (
			ticker TEXT PRIMARY KEY,
			name TEXT,
			universe TEXT NOT NULL DEFAULT 'market'
		);
	`)
	return err
}

// ErrorLog records failure rows for later inspection. Best effort: the
// caller already has the original error, so a failing insert is only
// returned, never fatal.
type ErrorLog struct{ DB *pgxpool.Pool }

func NewErrorLog(pool *pgxpool.Pool) *ErrorLog { return &ErrorLog{DB: pool} }

func (l *ErrorLog) Log(ctx context.Context, where, message string, extra map[string]any) error {
	var payload []byte
	if extra != nil {
		payload, _ = json.Marshal(extra)
	}
	_, err := l.DB.Exec(ctx,
		`INSERT INTO error_logs (context, message, extra) VALUES ($1, $2, $3)`,
		where, message, payload)
	return err
}

// PriceRecorder appends observed market prices so the trade executor can
// price trades off real data instead of its placeholder.
type PriceRecorder struct{ DB *pgxpool.Pool }

func NewPriceRecorder(pool *pgxpool.Pool) *PriceRecorder { return &PriceRecorder{DB: pool} }

func (r *PriceRecorder) RecordPrice(ctx context.Context, ticker string, price float64) error {
	_, err := r.DB.Exec(ctx,
		`INSERT INTO market_prices (ticker, price) VALUES ($1, $2)`,
		ticker, price)
	return err
}
