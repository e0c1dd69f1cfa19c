package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/arenalabs/debatearena/internal/domain"
)

// queueKey is the hash holding every live matchmaking entry, keyed by
// participant id so all orchestrator instances see one queue.
const queueKey = "queue:entries"

// QueueStore implements domain.QueueStore on a single Redis hash with
// JSON-serialized entries. Pair removal is one HDEL, so two instances can
// never both claim the same matched pair.
type QueueStore struct {
	rdb *redis.Client
}

// NewQueueStore creates a QueueStore backed by the given Client.
func NewQueueStore(c *Client) *QueueStore {
	return &QueueStore{rdb: c.Underlying()}
}

// Put upserts the entry under its participant id.
func (qs *QueueStore) Put(ctx context.Context, e domain.QueueEntry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("redis: marshal queue entry %s: %w", e.ParticipantID, err)
	}
	if err := qs.rdb.HSet(ctx, queueKey, e.ParticipantID, data).Err(); err != nil {
		return fmt.Errorf("redis: put queue entry %s: %w", e.ParticipantID, err)
	}
	return nil
}

// Get returns the entry for a participant, or domain.ErrNotFound.
func (qs *QueueStore) Get(ctx context.Context, participantID string) (domain.QueueEntry, error) {
	data, err := qs.rdb.HGet(ctx, queueKey, participantID).Bytes()
	if err == redis.Nil {
		return domain.QueueEntry{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.QueueEntry{}, fmt.Errorf("redis: get queue entry %s: %w", participantID, err)
	}

	var e domain.QueueEntry
	if err := json.Unmarshal(data, &e); err != nil {
		return domain.QueueEntry{}, fmt.Errorf("redis: decode queue entry %s: %w", participantID, err)
	}
	return e, nil
}

// List returns every queued entry, oldest first.
func (qs *QueueStore) List(ctx context.Context) ([]domain.QueueEntry, error) {
	raw, err := qs.rdb.HGetAll(ctx, queueKey).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: list queue: %w", err)
	}

	entries := make([]domain.QueueEntry, 0, len(raw))
	for id, data := range raw {
		var e domain.QueueEntry
		if err := json.Unmarshal([]byte(data), &e); err != nil {
			return nil, fmt.Errorf("redis: decode queue entry %s: %w", id, err)
		}
		entries = append(entries, e)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].JoinedAt.Before(entries[j].JoinedAt) })
	return entries, nil
}

// Remove deletes the given participants' entries in one HDEL and returns how
// many were present.
func (qs *QueueStore) Remove(ctx context.Context, participantIDs ...string) (int, error) {
	if len(participantIDs) == 0 {
		return 0, nil
	}
	n, err := qs.rdb.HDel(ctx, queueKey, participantIDs...).Result()
	if err != nil {
		return 0, fmt.Errorf("redis: remove queue entries: %w", err)
	}
	return int(n), nil
}

// Compile-time interface check.
var _ domain.QueueStore = (*QueueStore)(nil)
