package memory

import (
	"context"
	"sync"
	"time"

	"github.com/arenalabs/debatearena/internal/domain"
)

type lease struct {
	owner     string
	expiresAt time.Time
}

// LeaseStore is an in-process domain.LeaseStore. In a single-instance
// deployment it degenerates to "this instance always wins", which is the
// correct no-op coordination behavior.
type LeaseStore struct {
	mu     sync.Mutex
	leases map[string]lease
	now    func() time.Time
}

var _ domain.LeaseStore = (*LeaseStore)(nil)

// NewLeaseStore creates an empty lease store.
func NewLeaseStore() *LeaseStore {
	return &LeaseStore{
		leases: make(map[string]lease),
		now:    time.Now,
	}
}

// Acquire sets the lease if no live lease exists for key.
func (s *LeaseStore) Acquire(_ context.Context, key, owner string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if l, ok := s.leases[key]; ok && s.now().Before(l.expiresAt) && l.owner != owner {
		return false, nil
	}
	s.leases[key] = lease{owner: owner, expiresAt: s.now().Add(ttl)}
	return true, nil
}

// Renew extends the lease only while owner still holds it.
func (s *LeaseStore) Renew(_ context.Context, key, owner string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.leases[key]
	if !ok || !s.now().Before(l.expiresAt) || l.owner != owner {
		return false, nil
	}
	s.leases[key] = lease{owner: owner, expiresAt: s.now().Add(ttl)}
	return true, nil
}

// Release deletes the lease only if owner holds it.
func (s *LeaseStore) Release(_ context.Context, key, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if l, ok := s.leases[key]; ok && l.owner == owner {
		delete(s.leases, key)
	}
	return nil
}

// Owner returns the current live holder of key, or "".
func (s *LeaseStore) Owner(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.leases[key]
	if !ok || !s.now().Before(l.expiresAt) {
		return "", nil
	}
	return l.owner, nil
}
