// Package matchmaking pairs waiting participants by skill and stake. Each
// entry's acceptable rating window widens the longer it waits, bounded above,
// so thin queues still eventually match.
package matchmaking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/arenalabs/debatearena/internal/domain"
)

// cycleLockKey serializes matchmaking cycles across orchestrator instances.
const cycleLockKey = "matchmaker:cycle"

// Config holds matchmaking tunables.
type Config struct {
	MinWindow      int           // initial acceptable rating difference
	MaxWindow      int           // expansion ceiling
	WindowGrowth   int           // points added per GrowthInterval waited
	GrowthInterval time.Duration
	MaxStakeSpread float64       // stake difference tolerance as a fraction of the larger stake
	EntryTTL       time.Duration // entries older than this expire unmatched
	CycleLockTTL   time.Duration
}

// withDefaults fills zero fields with production values.
func (c Config) withDefaults() Config {
	if c.MinWindow <= 0 {
		c.MinWindow = 50
	}
	if c.MaxWindow <= 0 {
		c.MaxWindow = 500
	}
	if c.WindowGrowth <= 0 {
		c.WindowGrowth = 25
	}
	if c.GrowthInterval <= 0 {
		c.GrowthInterval = 10 * time.Second
	}
	if c.MaxStakeSpread <= 0 {
		c.MaxStakeSpread = 0.20
	}
	if c.EntryTTL <= 0 {
		c.EntryTTL = 15 * time.Minute
	}
	if c.CycleLockTTL <= 0 {
		c.CycleLockTTL = 10 * time.Second
	}
	return c
}

// CreateSession is the match callback: given two compatible entries it
// creates a debate session and returns its id. A callback error leaves both
// entries queued for the next cycle.
type CreateSession func(ctx context.Context, a, b domain.QueueEntry) (string, error)

// Matchmaker runs the queue. Entries live in a QueueStore shared across
// instances; a distributed lock ensures one instance runs a given cycle.
type Matchmaker struct {
	store  domain.QueueStore
	locks  domain.LockManager // nil in single-instance deployments
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

// New creates a Matchmaker. locks may be nil when only one orchestrator
// instance runs.
func New(store domain.QueueStore, locks domain.LockManager, cfg Config, logger *slog.Logger) *Matchmaker {
	return &Matchmaker{
		store:  store,
		locks:  locks,
		cfg:    cfg.withDefaults(),
		logger: logger.With(slog.String("component", "matchmaker")),
		now:    time.Now,
	}
}

// Join queues a participant. Any stale entry for the same participant is
// removed first; the fresh entry starts at the minimum rating window.
func (m *Matchmaker) Join(ctx context.Context, p domain.Participant, ownerID string, stake int64, presetID string) (domain.QueueEntry, error) {
	if !p.Active {
		return domain.QueueEntry{}, domain.ErrInactiveBot
	}
	if stake < 0 {
		return domain.QueueEntry{}, fmt.Errorf("matchmaking: negative stake %d", stake)
	}

	if _, err := m.store.Remove(ctx, p.ID); err != nil {
		return domain.QueueEntry{}, fmt.Errorf("matchmaking: clear stale entry: %w", err)
	}

	entry := domain.QueueEntry{
		ID:            uuid.New().String(),
		ParticipantID: p.ID,
		OwnerID:       ownerID,
		PresetID:      presetID,
		SkillRating:   p.SkillRating,
		Stake:         stake,
		JoinedAt:      m.now().UTC(),
		RatingWindow:  m.cfg.MinWindow,
	}
	if err := m.store.Put(ctx, entry); err != nil {
		return domain.QueueEntry{}, fmt.Errorf("matchmaking: queue entry: %w", err)
	}
	return entry, nil
}

// Leave withdraws a participant from the queue. Returns false when no entry
// existed.
func (m *Matchmaker) Leave(ctx context.Context, participantID string) (bool, error) {
	n, err := m.store.Remove(ctx, participantID)
	if err != nil {
		return false, fmt.Errorf("matchmaking: leave: %w", err)
	}
	return n > 0, nil
}

// IsQueued reports whether a participant currently has a queue entry.
func (m *Matchmaker) IsQueued(ctx context.Context, participantID string) (bool, error) {
	_, err := m.store.Get(ctx, participantID)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("matchmaking: lookup: %w", err)
	}
	return true, nil
}

// Stats returns the queue size and average wait.
func (m *Matchmaker) Stats(ctx context.Context) (domain.QueueStats, error) {
	entries, err := m.store.List(ctx)
	if err != nil {
		return domain.QueueStats{}, fmt.Errorf("matchmaking: stats: %w", err)
	}

	stats := domain.QueueStats{Size: len(entries)}
	if len(entries) == 0 {
		return stats, nil
	}

	now := m.now()
	var total time.Duration
	for _, e := range entries {
		total += e.WaitingFor(now)
	}
	stats.AvgWaitSeconds = (total / time.Duration(len(entries))).Seconds()
	return stats, nil
}

// RunCycle executes one matchmaking pass: expire stale entries, expand
// rating windows, pair compatible entries oldest-first with best-score
// candidate selection, and hand each pair to the callback. Entries are
// removed only after the callback succeeds, and no participant is matched
// twice in one cycle.
func (m *Matchmaker) RunCycle(ctx context.Context, create CreateSession) ([]domain.MatchResult, error) {
	if m.locks != nil {
		unlock, err := m.locks.Acquire(ctx, cycleLockKey, m.cfg.CycleLockTTL)
		if errors.Is(err, domain.ErrLockHeld) {
			// Another instance is running this cycle.
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("matchmaking: cycle lock: %w", err)
		}
		defer unlock()
	}

	entries, err := m.expandWindows(ctx)
	if err != nil {
		return nil, err
	}

	var results []domain.MatchResult
	consumed := make(map[string]bool, len(entries))

	for i := range entries {
		a := entries[i]
		if consumed[a.ParticipantID] {
			continue
		}

		best := -1
		bestDiff := 0
		for j := i + 1; j < len(entries); j++ {
			b := entries[j]
			if consumed[b.ParticipantID] {
				continue
			}
			diff, ok := m.compatible(a, b)
			if !ok {
				continue
			}
			if best == -1 || diff < bestDiff {
				best, bestDiff = j, diff
			}
		}
		if best == -1 {
			continue
		}

		b := entries[best]
		// Matched entries are out of contention for the rest of the
		// cycle whether or not the callback succeeds.
		consumed[a.ParticipantID] = true
		consumed[b.ParticipantID] = true

		debateID, err := create(ctx, a, b)
		if err != nil {
			// Both entries stay in the store and are eligible next cycle.
			m.logger.Warn("match callback failed, pair requeued",
				slog.String("pro", a.ParticipantID),
				slog.String("con", b.ParticipantID),
				slog.String("error", err.Error()),
			)
			continue
		}

		removed, err := m.store.Remove(ctx, a.ParticipantID, b.ParticipantID)
		if err != nil {
			return results, fmt.Errorf("matchmaking: remove matched pair: %w", err)
		}
		if removed != 2 {
			m.logger.Warn("matched pair partially missing from queue",
				slog.Int("removed", removed),
				slog.String("debate", debateID),
			)
		}

		results = append(results, domain.MatchResult{
			EntryA:     a,
			EntryB:     b,
			RatingDiff: bestDiff,
			DebateID:   debateID,
		})
	}

	return results, nil
}

// expandWindows drops expired entries, widens each survivor's rating window
// from its wait time, and returns survivors oldest-first. Window growth is
// monotone: it is a pure function of wait time, capped at MaxWindow.
func (m *Matchmaker) expandWindows(ctx context.Context) ([]domain.QueueEntry, error) {
	entries, err := m.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("matchmaking: list queue: %w", err)
	}

	now := m.now()
	kept := entries[:0]
	for _, e := range entries {
		if e.WaitingFor(now) > m.cfg.EntryTTL {
			if _, err := m.store.Remove(ctx, e.ParticipantID); err != nil {
				return nil, fmt.Errorf("matchmaking: expire entry: %w", err)
			}
			m.logger.Info("queue entry expired",
				slog.String("participant", e.ParticipantID),
				slog.Duration("waited", e.WaitingFor(now)),
			)
			continue
		}

		window := m.WindowFor(e.WaitingFor(now))
		if window > e.RatingWindow {
			e.RatingWindow = window
			if err := m.store.Put(ctx, e); err != nil {
				return nil, fmt.Errorf("matchmaking: update window: %w", err)
			}
		}
		kept = append(kept, e)
	}

	sort.Slice(kept, func(i, j int) bool { return kept[i].JoinedAt.Before(kept[j].JoinedAt) })
	return kept, nil
}

// WindowFor computes the rating window earned by a given wait time.
func (m *Matchmaker) WindowFor(waited time.Duration) int {
	steps := int(waited / m.cfg.GrowthInterval)
	window := m.cfg.MinWindow + steps*m.cfg.WindowGrowth
	if window > m.cfg.MaxWindow {
		return m.cfg.MaxWindow
	}
	return window
}

// compatible reports whether two entries can face each other, returning
// their rating difference for best-match ranking.
func (m *Matchmaker) compatible(a, b domain.QueueEntry) (int, bool) {
	if a.PresetID != b.PresetID {
		return 0, false
	}
	if a.ParticipantID == b.ParticipantID {
		return 0, false
	}

	diff := a.SkillRating - b.SkillRating
	if diff < 0 {
		diff = -diff
	}
	window := a.RatingWindow
	if b.RatingWindow > window {
		window = b.RatingWindow
	}
	if diff > window {
		return 0, false
	}

	maxStake := a.Stake
	minStake := b.Stake
	if minStake > maxStake {
		maxStake, minStake = minStake, maxStake
	}
	if maxStake > 0 && float64(maxStake-minStake) > m.cfg.MaxStakeSpread*float64(maxStake) {
		return 0, false
	}

	return diff, true
}
