// Package tokens manages the set of symbols registered for ingestion and
// their universe tags.
package tokens

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dhumphrey11/comoda-backend/internal/domain"
	"github.com/dhumphrey11/comoda-backend/internal/models"
)

// ErrNotFound is returned when the requested ticker is not registered.
var ErrNotFound = errors.New("tokens: not found")

type Service struct{ DB *pgxpool.Pool }

func New(pool *pgxpool.Pool) *Service { return &Service{DB: pool} }

func (s *Service) List(ctx context.Context, ticker string, universe domain.Universe) ([]models.Token, error) {
	q := `SELECT ticker, COALESCE(name, ''), universe FROM tokens`
	var args []any
	switch {
	case ticker != "":
		q += ` WHERE ticker=$1`
		args = append(args, ticker)
	case universe != "":
		q += ` WHERE universe=$1`
		args = append(args, universe.String())
	}
	q += ` ORDER BY ticker`

	rows, err := s.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]models.Token, 0)
	for rows.Next() {
		var t models.Token
		if err := rows.Scan(&t.Ticker, &t.Name, &t.Universe); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Service) Upsert(ctx context.Context, t models.Token) error {
	_, err := s.DB.Exec(ctx, `
		INSERT INTO tokens (ticker, name, universe)
		VALUES ($1, NULLIF($2, ''), $3)
		ON CONFLICT (ticker)
		DO UPDATE SET name = COALESCE(EXCLUDED.name, tokens.name),
		              universe = EXCLUDED.universe;
	`, t.Ticker, t.Name, t.Universe)
	return err
}

func (s *Service) Delete(ctx context.Context, ticker string) error {
	tag, err := s.DB.Exec(ctx, `DELETE FROM tokens WHERE ticker=$1`, ticker)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
