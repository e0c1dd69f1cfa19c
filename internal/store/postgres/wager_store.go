package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arenalabs/debatearena/internal/domain"
)

// WagerStore implements domain.WagerStore using PostgreSQL.
type WagerStore struct {
	pool *pgxpool.Pool
}

// NewWagerStore creates a WagerStore backed by the given connection pool.
func NewWagerStore(pool *pgxpool.Pool) *WagerStore {
	return &WagerStore{pool: pool}
}

// Create inserts a wager.
func (s *WagerStore) Create(ctx context.Context, w domain.Wager) error {
	const query = `
		INSERT INTO wagers (id, debate_id, wagerer_id, amount, side, settled, payout, created_at)
		VALUES ($1, $2, $3, $4, $5, FALSE, 0, $6)`

	_, err := s.pool.Exec(ctx, query,
		w.ID, w.DebateID, w.WagererID, w.Amount, string(w.Side), w.CreatedAt)
	if err != nil {
		return fmt.Errorf("postgres: create wager %s: %w", w.ID, err)
	}
	return nil
}

// ListByDebate returns a debate's wagers in placement order.
func (s *WagerStore) ListByDebate(ctx context.Context, debateID string) ([]domain.Wager, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, debate_id, wagerer_id, amount, side, settled, payout, created_at
		 FROM wagers WHERE debate_id = $1 ORDER BY created_at ASC`, debateID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list wagers %s: %w", debateID, err)
	}
	defer rows.Close()

	var out []domain.Wager
	for rows.Next() {
		var w domain.Wager
		var side string
		if err := rows.Scan(&w.ID, &w.DebateID, &w.WagererID, &w.Amount,
			&side, &w.Settled, &w.Payout, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan wager: %w", err)
		}
		w.Side = domain.Side(side)
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate wagers %s: %w", debateID, err)
	}
	return out, nil
}

// Settle marks a wager settled with its payout. The settled guard in the
// WHERE clause makes settlement exactly-once even under concurrent callers.
func (s *WagerStore) Settle(ctx context.Context, wagerID string, payout int64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE wagers SET settled = TRUE, payout = $2
		 WHERE id = $1 AND settled = FALSE`, wagerID, payout)
	if err != nil {
		return fmt.Errorf("postgres: settle wager %s: %w", wagerID, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var settled bool
	err = s.pool.QueryRow(ctx,
		`SELECT settled FROM wagers WHERE id = $1`, wagerID).Scan(&settled)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("postgres: settle wager %s: %w", wagerID, err)
	}
	if settled {
		return domain.ErrAlreadySettled
	}
	return fmt.Errorf("postgres: settle wager %s: update matched no rows", wagerID)
}

// Compile-time interface check.
var _ domain.WagerStore = (*WagerStore)(nil)
