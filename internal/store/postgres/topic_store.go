package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arenalabs/debatearena/internal/domain"
)

// TopicStore implements domain.TopicStore using PostgreSQL.
type TopicStore struct {
	pool *pgxpool.Pool
}

// NewTopicStore creates a TopicStore backed by the given connection pool.
func NewTopicStore(pool *pgxpool.Pool) *TopicStore {
	return &TopicStore{pool: pool}
}

const topicCols = `id, text, category, upvotes, downvotes, times_used, created_at`

// Create inserts a topic.
func (s *TopicStore) Create(ctx context.Context, t domain.Topic) error {
	const query = `
		INSERT INTO topics (id, text, category, upvotes, downvotes, times_used, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := s.pool.Exec(ctx, query,
		t.ID, t.Text, t.Category, t.Upvotes, t.Downvotes, t.TimesUsed, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("postgres: create topic %s: %w", t.ID, err)
	}
	return nil
}

// Get retrieves a topic by id.
func (s *TopicStore) Get(ctx context.Context, id string) (domain.Topic, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+topicCols+` FROM topics WHERE id = $1`, id)
	t, err := scanTopic(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Topic{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Topic{}, fmt.Errorf("postgres: get topic %s: %w", id, err)
	}
	return t, nil
}

// PickNext selects the highest-ranked, least-used topic and bumps its usage
// counter in the same statement, so concurrent matchmakers rotate through
// topics instead of piling onto one.
func (s *TopicStore) PickNext(ctx context.Context) (domain.Topic, error) {
	const query = `
		UPDATE topics SET times_used = times_used + 1
		WHERE id = (
			SELECT id FROM topics
			ORDER BY (upvotes - downvotes) DESC, times_used ASC, created_at ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + topicCols

	row := s.pool.QueryRow(ctx, query)
	t, err := scanTopic(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Topic{}, domain.ErrNoTopic
	}
	if err != nil {
		return domain.Topic{}, fmt.Errorf("postgres: pick next topic: %w", err)
	}
	return t, nil
}

func scanTopic(row pgx.Row) (domain.Topic, error) {
	var t domain.Topic
	err := row.Scan(&t.ID, &t.Text, &t.Category, &t.Upvotes, &t.Downvotes,
		&t.TimesUsed, &t.CreatedAt)
	if err != nil {
		return domain.Topic{}, err
	}
	return t, nil
}

// Compile-time interface check.
var _ domain.TopicStore = (*TopicStore)(nil)
