package domain

import (
	"context"
	"io"
	"time"
)

// LeaseStore provides time-bounded exclusive ownership claims keyed by
// debate id. At most one live lease exists per key.
type LeaseStore interface {
	// Acquire atomically sets the lease if absent. It returns false when
	// another owner already holds a live lease.
	Acquire(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)
	// Renew extends the lease only if owner still holds it.
	Renew(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)
	// Release deletes the lease only if owner holds it.
	Release(ctx context.Context, key, owner string) error
	// Owner returns the current holder, or "" when no live lease exists.
	Owner(ctx context.Context, key string) (string, error)
}

// QueueStore holds matchmaking queue entries shared across orchestrator
// instances. All mutation is atomic at the store level.
type QueueStore interface {
	Put(ctx context.Context, e QueueEntry) error
	Get(ctx context.Context, participantID string) (QueueEntry, error)
	List(ctx context.Context) ([]QueueEntry, error)
	// Remove deletes the entries for the given participants in one atomic
	// operation and returns how many were actually present.
	Remove(ctx context.Context, participantIDs ...string) (int, error)
}

// LockManager provides short-lived distributed mutual exclusion (e.g. one
// matchmaking cycle at a time across the fleet).
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// SignalBus provides pub/sub fan-out plus durable, ordered streams.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	StreamAppend(ctx context.Context, stream string, payload []byte) error
	StreamRead(ctx context.Context, stream string, lastID string, count int) ([]StreamMessage, error)
}

// StreamMessage is a single entry read from a durable stream.
type StreamMessage struct {
	ID      string
	Payload []byte
}

// RateLimiter provides distributed rate limiting (per-voter vote caps).
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// BlobWriter uploads objects to blob storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
	// PutMultipart uploads large payloads in concurrently-uploaded parts.
	PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64) error
}
