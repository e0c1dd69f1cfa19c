package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arenalabs/debatearena/internal/domain"
)

// ParticipantStore implements domain.ParticipantStore using PostgreSQL.
// Credential columns hold sealed ciphertext; decryption happens in the
// service layer before a gateway call.
type ParticipantStore struct {
	pool *pgxpool.Pool
}

// NewParticipantStore creates a ParticipantStore backed by the given pool.
func NewParticipantStore(pool *pgxpool.Pool) *ParticipantStore {
	return &ParticipantStore{pool: pool}
}

const participantCols = `id, owner_id, name, endpoint, protocol,
	shared_secret, api_key, model, skill_rating, wins, losses, active, created_at`

// Create inserts a participant.
func (s *ParticipantStore) Create(ctx context.Context, p domain.Participant) error {
	const query = `
		INSERT INTO participants (
			id, owner_id, name, endpoint, protocol,
			shared_secret, api_key, model, skill_rating, wins, losses, active, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := s.pool.Exec(ctx, query,
		p.ID, p.OwnerID, p.Name, p.Endpoint, string(p.Protocol),
		p.SharedSecret, p.APIKey, p.Model, p.SkillRating,
		p.Wins, p.Losses, p.Active, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: create participant %s: %w", p.ID, err)
	}
	return nil
}

// Get retrieves a participant by id.
func (s *ParticipantStore) Get(ctx context.Context, id string) (domain.Participant, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+participantCols+` FROM participants WHERE id = $1`, id)

	var p domain.Participant
	var protocol string
	err := row.Scan(
		&p.ID, &p.OwnerID, &p.Name, &p.Endpoint, &protocol,
		&p.SharedSecret, &p.APIKey, &p.Model, &p.SkillRating,
		&p.Wins, &p.Losses, &p.Active, &p.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Participant{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Participant{}, fmt.Errorf("postgres: get participant %s: %w", id, err)
	}
	p.Protocol = domain.Protocol(protocol)
	return p, nil
}

// RecordResult applies a post-debate rating and win/loss update in one
// statement.
func (s *ParticipantStore) RecordResult(ctx context.Context, id string, newRating int, won bool) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE participants SET
			skill_rating = $2,
			wins   = wins   + CASE WHEN $3 THEN 1 ELSE 0 END,
			losses = losses + CASE WHEN $3 THEN 0 ELSE 1 END
		 WHERE id = $1`, id, newRating, won)
	if err != nil {
		return fmt.Errorf("postgres: record result %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// UpdateRating sets the rating without touching the win/loss record.
func (s *ParticipantStore) UpdateRating(ctx context.Context, id string, newRating int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE participants SET skill_rating = $2 WHERE id = $1`, id, newRating)
	if err != nil {
		return fmt.Errorf("postgres: update rating %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Compile-time interface check.
var _ domain.ParticipantStore = (*ParticipantStore)(nil)
