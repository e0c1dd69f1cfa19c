package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arenalabs/debatearena/internal/domain"
)

// DebateStore implements domain.DebateStore using PostgreSQL. Round results
// live in a companion table keyed by (debate_id, round) so each completed
// round is recorded exactly once.
type DebateStore struct {
	pool *pgxpool.Pool
}

// NewDebateStore creates a DebateStore backed by the given connection pool.
func NewDebateStore(pool *pgxpool.Pool) *DebateStore {
	return &DebateStore{pool: pool}
}

const debateCols = `id, topic_id, topic, preset_id, pro_id, con_id,
	status, current_round, round_status, winner, stake, spectator_count,
	created_at, started_at, completed_at, updated_at`

// Create inserts a new debate session.
func (s *DebateStore) Create(ctx context.Context, d domain.DebateSession) error {
	const query = `
		INSERT INTO debates (
			id, topic_id, topic, preset_id, pro_id, con_id,
			status, current_round, round_status, winner, stake, spectator_count,
			created_at, started_at, completed_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11, $12,
			$13, $14, $15, NOW()
		)`

	_, err := s.pool.Exec(ctx, query,
		d.ID, d.TopicID, d.Topic, d.PresetID, d.ProID, d.ConID,
		string(d.Status), d.CurrentRound, string(d.RoundStatus),
		winnerText(d.Winner), d.Stake, d.SpectatorCount,
		d.CreatedAt, d.StartedAt, d.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: create debate %s: %w", d.ID, err)
	}
	return nil
}

// Get retrieves a debate with its round results in round order.
func (s *DebateStore) Get(ctx context.Context, id string) (domain.DebateSession, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+debateCols+` FROM debates WHERE id = $1`, id)
	d, err := scanDebate(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.DebateSession{}, domain.ErrNotFound
		}
		return domain.DebateSession{}, fmt.Errorf("postgres: get debate %s: %w", id, err)
	}

	results, err := s.roundResults(ctx, id)
	if err != nil {
		return domain.DebateSession{}, err
	}
	d.RoundResults = results
	return d, nil
}

// Update overwrites the mutable fields of a debate session.
func (s *DebateStore) Update(ctx context.Context, d domain.DebateSession) error {
	const query = `
		UPDATE debates SET
			status          = $2,
			current_round   = $3,
			round_status    = $4,
			winner          = $5,
			spectator_count = $6,
			started_at      = $7,
			completed_at    = $8,
			updated_at      = NOW()
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query,
		d.ID, string(d.Status), d.CurrentRound, string(d.RoundStatus),
		winnerText(d.Winner), d.SpectatorCount, d.StartedAt, d.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: update debate %s: %w", d.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// AppendRoundResult records one completed round. The composite primary key
// rejects a duplicate append for the same round.
func (s *DebateStore) AppendRoundResult(ctx context.Context, debateID string, r domain.RoundResult) error {
	const query = `
		INSERT INTO round_results (debate_id, round, pro_votes, con_votes, winner)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := s.pool.Exec(ctx, query,
		debateID, r.Round, r.ProVotes, r.ConVotes, string(r.Winner))
	if err != nil {
		return fmt.Errorf("postgres: append round result %s/%d: %w", debateID, r.Round, err)
	}
	return nil
}

// ListRecent returns sessions newest-first.
func (s *DebateStore) ListRecent(ctx context.Context, opts domain.ListOpts) ([]domain.DebateSession, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+debateCols+` FROM debates
		 ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent debates: %w", err)
	}
	defer rows.Close()

	return collectDebates(rows)
}

// ListStale returns non-terminal sessions not updated since the cutoff.
func (s *DebateStore) ListStale(ctx context.Context, updatedBefore time.Time) ([]domain.DebateSession, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+debateCols+` FROM debates
		 WHERE status NOT IN ('completed', 'cancelled') AND updated_at < $1
		 ORDER BY updated_at ASC`, updatedBefore)
	if err != nil {
		return nil, fmt.Errorf("postgres: list stale debates: %w", err)
	}
	defer rows.Close()

	return collectDebates(rows)
}

// ListCompletedBetween returns completed sessions in the half-open interval
// [from, to), oldest first. Used by the transcript archiver.
func (s *DebateStore) ListCompletedBetween(ctx context.Context, from, to time.Time) ([]domain.DebateSession, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+debateCols+` FROM debates
		 WHERE status = 'completed' AND completed_at >= $1 AND completed_at < $2
		 ORDER BY completed_at ASC`, from, to)
	if err != nil {
		return nil, fmt.Errorf("postgres: list completed debates: %w", err)
	}
	defer rows.Close()

	return collectDebates(rows)
}

func (s *DebateStore) roundResults(ctx context.Context, debateID string) ([]domain.RoundResult, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT round, pro_votes, con_votes, winner
		 FROM round_results WHERE debate_id = $1 ORDER BY round ASC`, debateID)
	if err != nil {
		return nil, fmt.Errorf("postgres: round results %s: %w", debateID, err)
	}
	defer rows.Close()

	var results []domain.RoundResult
	for rows.Next() {
		var r domain.RoundResult
		var winner string
		if err := rows.Scan(&r.Round, &r.ProVotes, &r.ConVotes, &winner); err != nil {
			return nil, fmt.Errorf("postgres: scan round result: %w", err)
		}
		r.Winner = domain.Side(winner)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: round results %s: %w", debateID, err)
	}
	return results, nil
}

func scanDebate(row pgx.Row) (domain.DebateSession, error) {
	var d domain.DebateSession
	var status, roundStatus string
	var winner *string
	err := row.Scan(
		&d.ID, &d.TopicID, &d.Topic, &d.PresetID, &d.ProID, &d.ConID,
		&status, &d.CurrentRound, &roundStatus, &winner, &d.Stake, &d.SpectatorCount,
		&d.CreatedAt, &d.StartedAt, &d.CompletedAt, &d.UpdatedAt,
	)
	if err != nil {
		return domain.DebateSession{}, err
	}
	d.Status = domain.DebateStatus(status)
	d.RoundStatus = domain.RoundStatus(roundStatus)
	if winner != nil {
		side := domain.Side(*winner)
		d.Winner = &side
	}
	return d, nil
}

func collectDebates(rows pgx.Rows) ([]domain.DebateSession, error) {
	var out []domain.DebateSession
	for rows.Next() {
		d, err := scanDebate(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan debate: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate debates: %w", err)
	}
	return out, nil
}

func winnerText(w *domain.Side) *string {
	if w == nil {
		return nil
	}
	s := string(*w)
	return &s
}

// Compile-time interface check.
var _ domain.DebateStore = (*DebateStore)(nil)
