package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arenalabs/debatearena/internal/domain"
)

// MessageStore implements domain.MessageStore using PostgreSQL. Messages are
// append-only: no update or delete path exists.
type MessageStore struct {
	pool *pgxpool.Pool
}

// NewMessageStore creates a MessageStore backed by the given connection pool.
func NewMessageStore(pool *pgxpool.Pool) *MessageStore {
	return &MessageStore{pool: pool}
}

// Create inserts an agent message.
func (s *MessageStore) Create(ctx context.Context, m domain.Message) error {
	const query = `
		INSERT INTO messages (
			id, debate_id, round, side, participant_id, content, fallback, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := s.pool.Exec(ctx, query,
		m.ID, m.DebateID, m.Round, string(m.Side),
		m.ParticipantID, m.Content, m.Fallback, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: create message %s: %w", m.ID, err)
	}
	return nil
}

// ListByDebate returns a debate's messages in speaking order.
func (s *MessageStore) ListByDebate(ctx context.Context, debateID string) ([]domain.Message, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, debate_id, round, side, participant_id, content, fallback, created_at
		 FROM messages WHERE debate_id = $1
		 ORDER BY round ASC, created_at ASC`, debateID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list messages %s: %w", debateID, err)
	}
	defer rows.Close()

	var out []domain.Message
	for rows.Next() {
		var m domain.Message
		var side string
		if err := rows.Scan(&m.ID, &m.DebateID, &m.Round, &side,
			&m.ParticipantID, &m.Content, &m.Fallback, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan message: %w", err)
		}
		m.Side = domain.Side(side)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate messages %s: %w", debateID, err)
	}
	return out, nil
}

// Compile-time interface check.
var _ domain.MessageStore = (*MessageStore)(nil)
