// Package ownership tracks which debates this instance is allowed to drive.
// Every active debate is wrapped in a time-bounded lease in the coordination
// store; a crashed instance's leases expire and its debates become claimable
// by the rest of the fleet.
package ownership

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/arenalabs/debatearena/internal/domain"
)

// Config holds lease timing parameters.
type Config struct {
	InstanceID string
	TTL        time.Duration // lease lifetime
	RenewEvery time.Duration // renewal tick interval, must be < TTL
	StaleAfter time.Duration // update-age threshold for crash recovery
}

func (c Config) withDefaults() Config {
	if c.TTL <= 0 {
		c.TTL = 5 * time.Minute
	}
	if c.RenewEvery <= 0 {
		c.RenewEvery = 2 * time.Minute
	}
	if c.StaleAfter <= 0 {
		c.StaleAfter = 10 * time.Minute
	}
	return c
}

// Manager claims, renews, and releases debate leases for one instance.
type Manager struct {
	leases  domain.LeaseStore
	debates domain.DebateStore
	cfg     Config
	logger  *slog.Logger
	now     func() time.Time

	mu    sync.Mutex
	owned map[string]context.CancelFunc // claimed debates; non-nil cancels the bound run
}

// New creates a Manager identified by cfg.InstanceID.
func New(leases domain.LeaseStore, debates domain.DebateStore, cfg Config, logger *slog.Logger) *Manager {
	return &Manager{
		leases:  leases,
		debates: debates,
		cfg:     cfg.withDefaults(),
		logger:  logger.With(slog.String("component", "ownership"), slog.String("instance", cfg.InstanceID)),
		now:     time.Now,
		owned:   make(map[string]context.CancelFunc),
	}
}

// RenewInterval returns how often RenewAll should run.
func (m *Manager) RenewInterval() time.Duration { return m.cfg.RenewEvery }

// InstanceID returns this instance's lease owner identity.
func (m *Manager) InstanceID() string { return m.cfg.InstanceID }

// Claim attempts to take exclusive ownership of a debate. It returns false
// when another live instance holds the lease.
func (m *Manager) Claim(ctx context.Context, debateID string) (bool, error) {
	ok, err := m.leases.Acquire(ctx, debateID, m.cfg.InstanceID, m.cfg.TTL)
	if err != nil {
		return false, fmt.Errorf("ownership: claim %s: %w", debateID, err)
	}
	if !ok {
		return false, nil
	}

	m.mu.Lock()
	if _, exists := m.owned[debateID]; !exists {
		m.owned[debateID] = nil
	}
	m.mu.Unlock()
	return true, nil
}

// Bind derives the run context for an owned debate from parent. The context
// is cancelled if the lease is later lost, so the goroutine driving the
// debate stops before a recovering peer starts driving it too. Binding a
// debate this instance does not own returns an already-cancelled context.
func (m *Manager) Bind(parent context.Context, debateID string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	m.mu.Lock()
	if _, ok := m.owned[debateID]; ok {
		m.owned[debateID] = cancel
	} else {
		cancel()
	}
	m.mu.Unlock()
	return ctx, cancel
}

// Release gives up ownership of a debate, immediately freeing it for other
// instances.
func (m *Manager) Release(ctx context.Context, debateID string) error {
	m.mu.Lock()
	delete(m.owned, debateID)
	m.mu.Unlock()

	if err := m.leases.Release(ctx, debateID, m.cfg.InstanceID); err != nil {
		return fmt.Errorf("ownership: release %s: %w", debateID, err)
	}
	return nil
}

// Owned returns the debates this instance currently believes it owns.
func (m *Manager) Owned() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.owned))
	for id := range m.owned {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// RenewAll extends every owned lease. A lease that can no longer be renewed
// was lost (expired and taken, or force-released); it is dropped from the
// owned set and its bound run context is cancelled, halting the goroutine
// still driving that debate before another instance claims it.
func (m *Manager) RenewAll(ctx context.Context) {
	for _, id := range m.Owned() {
		ok, err := m.leases.Renew(ctx, id, m.cfg.InstanceID, m.cfg.TTL)
		if err != nil {
			m.logger.Warn("lease renewal errored",
				slog.String("debate", id),
				slog.String("error", err.Error()),
			)
			continue
		}
		if !ok {
			m.logger.Warn("lease lost, halting run", slog.String("debate", id))
			m.mu.Lock()
			cancelRun := m.owned[id]
			delete(m.owned, id)
			m.mu.Unlock()
			if cancelRun != nil {
				cancelRun()
			}
		}
	}
}

// RecoverStuck scans persistence for non-terminal debates whose last update
// is older than the staleness threshold, claims each, and hands claimed ids
// to resume. Debates owned by a live instance are skipped. Returns how many
// were claimed.
func (m *Manager) RecoverStuck(ctx context.Context, resume func(debateID string)) (int, error) {
	cutoff := m.now().UTC().Add(-m.cfg.StaleAfter)
	stale, err := m.debates.ListStale(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("ownership: list stale sessions: %w", err)
	}

	claimed := 0
	for _, s := range stale {
		ok, err := m.Claim(ctx, s.ID)
		if err != nil {
			m.logger.Warn("recovery claim errored",
				slog.String("debate", s.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		if !ok {
			continue
		}
		m.logger.Info("recovering stuck debate",
			slog.String("debate", s.ID),
			slog.String("status", string(s.Status)),
			slog.Int("round", s.CurrentRound),
		)
		claimed++
		resume(s.ID)
	}
	return claimed, nil
}

// ReleaseAll releases every owned lease. Called on graceful shutdown so
// other instances can recover immediately instead of waiting out the TTL.
func (m *Manager) ReleaseAll(ctx context.Context) {
	for _, id := range m.Owned() {
		if err := m.Release(ctx, id); err != nil {
			m.logger.Warn("shutdown release failed",
				slog.String("debate", id),
				slog.String("error", err.Error()),
			)
		}
	}
}
