package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination for list queries.
type ListOpts struct {
	Limit  int
	Offset int
}

// DebateStore persists debate sessions and their round results.
type DebateStore interface {
	Create(ctx context.Context, s DebateSession) error
	Get(ctx context.Context, id string) (DebateSession, error)
	Update(ctx context.Context, s DebateSession) error
	AppendRoundResult(ctx context.Context, debateID string, r RoundResult) error
	ListRecent(ctx context.Context, opts ListOpts) ([]DebateSession, error)
	// ListStale returns non-terminal sessions whose last update is older
	// than the cutoff; candidates for crash recovery.
	ListStale(ctx context.Context, updatedBefore time.Time) ([]DebateSession, error)
	// ListCompletedBetween returns completed sessions for transcript archival.
	ListCompletedBetween(ctx context.Context, from, to time.Time) ([]DebateSession, error)
}

// MessageStore persists agent messages.
type MessageStore interface {
	Create(ctx context.Context, m Message) error
	ListByDebate(ctx context.Context, debateID string) ([]Message, error)
}

// WagerStore persists wagers and their settlement outcomes.
type WagerStore interface {
	Create(ctx context.Context, w Wager) error
	ListByDebate(ctx context.Context, debateID string) ([]Wager, error)
	// Settle marks a wager settled with its payout. Returns
	// ErrAlreadySettled if it was settled before.
	Settle(ctx context.Context, wagerID string, payout int64) error
}

// ParticipantStore persists registered bots.
type ParticipantStore interface {
	Create(ctx context.Context, p Participant) error
	Get(ctx context.Context, id string) (Participant, error)
	// RecordResult applies a post-debate rating adjustment and win/loss
	// increment in one statement.
	RecordResult(ctx context.Context, id string, newRating int, won bool) error
	// UpdateRating sets the rating without touching the win/loss record
	// (used for draws).
	UpdateRating(ctx context.Context, id string, newRating int) error
}

// TopicStore persists debate topics.
type TopicStore interface {
	Create(ctx context.Context, t Topic) error
	Get(ctx context.Context, id string) (Topic, error)
	// PickNext returns the highest-ranked least-used topic and increments
	// its usage counter. Returns ErrNoTopic when the table is empty.
	PickNext(ctx context.Context) (Topic, error)
}
