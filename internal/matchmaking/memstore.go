package matchmaking

import (
	"context"
	"sort"
	"sync"

	"github.com/arenalabs/debatearena/internal/domain"
)

// MemoryQueueStore is an in-process QueueStore for single-instance
// deployments and tests. All operations take one lock, so multi-entry
// removal is atomic like its Redis counterpart.
type MemoryQueueStore struct {
	mu      sync.Mutex
	entries map[string]domain.QueueEntry // keyed by participant id
}

// NewMemoryQueueStore creates an empty in-memory queue store.
func NewMemoryQueueStore() *MemoryQueueStore {
	return &MemoryQueueStore{entries: make(map[string]domain.QueueEntry)}
}

func (s *MemoryQueueStore) Put(_ context.Context, e domain.QueueEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[e.ParticipantID] = e
	return nil
}

func (s *MemoryQueueStore) Get(_ context.Context, participantID string) (domain.QueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[participantID]
	if !ok {
		return domain.QueueEntry{}, domain.ErrNotFound
	}
	return e, nil
}

func (s *MemoryQueueStore) List(_ context.Context) ([]domain.QueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.QueueEntry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JoinedAt.Before(out[j].JoinedAt) })
	return out, nil
}

func (s *MemoryQueueStore) Remove(_ context.Context, participantIDs ...string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for _, id := range participantIDs {
		if _, ok := s.entries[id]; ok {
			delete(s.entries, id)
			removed++
		}
	}
	return removed, nil
}

// Compile-time interface check.
var _ domain.QueueStore = (*MemoryQueueStore)(nil)
