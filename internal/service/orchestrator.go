// Package service composes the domain packages into the operations the HTTP
// layer and the orchestrator loops expose.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/arenalabs/debatearena/internal/debate"
	"github.com/arenalabs/debatearena/internal/domain"
	"github.com/arenalabs/debatearena/internal/matchmaking"
	"github.com/arenalabs/debatearena/internal/ownership"
)

// OrchestratorConfig holds loop timing for one orchestrator instance.
type OrchestratorConfig struct {
	MatchTick    time.Duration // matchmaking cycle interval
	ArchiveEvery time.Duration // transcript archival interval
}

func (c OrchestratorConfig) withDefaults() OrchestratorConfig {
	if c.MatchTick <= 0 {
		c.MatchTick = 5 * time.Second
	}
	if c.ArchiveEvery <= 0 {
		c.ArchiveEvery = time.Hour
	}
	return c
}

// Notifier delivers operator alerts for notable orchestrator events. A nil
// Notifier disables alerting.
type Notifier interface {
	DebateCompleted(ctx context.Context, d domain.DebateSession) error
	DebateCancelled(ctx context.Context, d domain.DebateSession) error
	RecoveryRun(ctx context.Context, instanceID string, count int) error
}

// Archiver uploads transcripts of debates completed in a time window. A nil
// Archiver disables archival.
type Archiver interface {
	ArchiveWindow(ctx context.Context, from, to time.Time) (int, error)
}

// Orchestrator runs the background loops of one instance: the matchmaking
// tick, the lease-renewal tick, and startup crash recovery. Each matched or
// recovered debate runs on its own goroutine.
type Orchestrator struct {
	matchmaker *matchmaking.Matchmaker
	engine     *debate.Engine
	ownership  *ownership.Manager
	debates    domain.DebateStore
	topics     domain.TopicStore
	notifier   Notifier
	archiver   Archiver
	cfg        OrchestratorConfig
	logger     *slog.Logger

	active sync.WaitGroup
}

// NewOrchestrator wires the orchestrator loops. notifier and archiver may be
// nil.
func NewOrchestrator(
	matchmaker *matchmaking.Matchmaker,
	engine *debate.Engine,
	own *ownership.Manager,
	debates domain.DebateStore,
	topics domain.TopicStore,
	notifier Notifier,
	archiver Archiver,
	cfg OrchestratorConfig,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		matchmaker: matchmaker,
		engine:     engine,
		ownership:  own,
		debates:    debates,
		topics:     topics,
		notifier:   notifier,
		archiver:   archiver,
		cfg:        cfg.withDefaults(),
		logger:     logger.With(slog.String("component", "orchestrator")),
	}
}

// Run blocks until ctx is cancelled, then waits for active debates to stop
// and releases every held lease so other instances can recover immediately.
func (o *Orchestrator) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return o.recoverLoop(gctx) })
	g.Go(func() error { return o.matchLoop(gctx) })
	g.Go(func() error { return o.renewLoop(gctx) })
	if o.archiver != nil {
		g.Go(func() error { return o.archiveLoop(gctx) })
	}

	err := g.Wait()
	o.active.Wait()

	releaseCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	o.ownership.ReleaseAll(releaseCtx)

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// recoverLoop resumes debates abandoned by crashed instances: once at
// startup, then at every lease TTL in case a peer dies later.
func (o *Orchestrator) recoverLoop(ctx context.Context) error {
	ticker := time.NewTicker(o.ownership.RenewInterval() * 2)
	defer ticker.Stop()

	for {
		n, err := o.ownership.RecoverStuck(ctx, o.launch)
		if err != nil {
			o.logger.Error("recovery scan failed", slog.String("error", err.Error()))
		} else if n > 0 {
			o.logger.Info("recovered stuck debates", slog.Int("count", n))
			if o.notifier != nil {
				if nerr := o.notifier.RecoveryRun(ctx, o.ownership.InstanceID(), n); nerr != nil {
					o.logger.Warn("recovery notification failed", slog.String("error", nerr.Error()))
				}
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (o *Orchestrator) matchLoop(ctx context.Context) error {
	ticker := time.NewTicker(o.cfg.MatchTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			results, err := o.matchmaker.RunCycle(ctx, o.createSession)
			if err != nil {
				o.logger.Error("matchmaking cycle failed", slog.String("error", err.Error()))
				continue
			}
			for _, r := range results {
				o.logger.Info("matched pair",
					slog.String("debate", r.DebateID),
					slog.String("pro", r.EntryA.ParticipantID),
					slog.String("con", r.EntryB.ParticipantID),
					slog.Int("rating_diff", r.RatingDiff),
				)
			}
		}
	}
}

func (o *Orchestrator) renewLoop(ctx context.Context) error {
	ticker := time.NewTicker(o.ownership.RenewInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			o.ownership.RenewAll(ctx)
		}
	}
}

// archiveLoop periodically uploads transcripts of debates completed since
// the previous window. Failed windows are retried whole next tick.
func (o *Orchestrator) archiveLoop(ctx context.Context) error {
	ticker := time.NewTicker(o.cfg.ArchiveEvery)
	defer ticker.Stop()

	from := time.Now().UTC().Add(-o.cfg.ArchiveEvery)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			to := time.Now().UTC()
			n, err := o.archiver.ArchiveWindow(ctx, from, to)
			if err != nil {
				o.logger.Error("transcript archival failed",
					slog.Int("archived", n),
					slog.String("error", err.Error()),
				)
				continue
			}
			from = to
		}
	}
}

// createSession is the match callback: pick a topic, persist the session,
// claim it, and launch its engine. Any error leaves both queue entries in
// place for the next cycle.
func (o *Orchestrator) createSession(ctx context.Context, a, b domain.QueueEntry) (string, error) {
	topic, err := o.topics.PickNext(ctx)
	if err != nil {
		return "", fmt.Errorf("pick topic: %w", err)
	}

	// The longer-waiting entry argues pro; the session stake is the
	// smaller of the two offered stakes.
	stake := a.Stake
	if b.Stake < stake {
		stake = b.Stake
	}

	session := domain.DebateSession{
		ID:          uuid.New().String(),
		TopicID:     topic.ID,
		Topic:       topic.Text,
		PresetID:    a.PresetID,
		ProID:       a.ParticipantID,
		ConID:       b.ParticipantID,
		Status:      domain.StatusPending,
		RoundStatus: domain.RoundPending,
		Stake:       stake,
		CreatedAt:   time.Now().UTC(),
	}
	if err := o.debates.Create(ctx, session); err != nil {
		return "", fmt.Errorf("persist session: %w", err)
	}

	claimed, err := o.ownership.Claim(ctx, session.ID)
	if err != nil || !claimed {
		// The session exists but is unowned; the recovery loop (ours or
		// a peer's) will pick it up once it goes stale.
		o.logger.Warn("could not claim freshly created debate",
			slog.String("debate", session.ID),
		)
		return session.ID, nil
	}

	o.launch(session.ID)
	return session.ID, nil
}

// launch runs one debate's state machine on its own goroutine. The engine
// releases the lease when the debate reaches a terminal state.
func (o *Orchestrator) launch(debateID string) {
	o.active.Add(1)
	go func() {
		defer o.active.Done()
		// Debates outlive the loop contexts only long enough to reach a
		// clean suspension point; they use their own context so shutdown
		// does not corrupt a round mid-write. The context is bound to the
		// ownership lease: if renewal loses it, the run halts and a
		// recovering peer takes over.
		base, cancel := context.WithTimeout(context.Background(), time.Hour)
		defer cancel()
		ctx, unbind := o.ownership.Bind(base, debateID)
		defer unbind()
		if err := o.engine.Run(ctx, debateID); err != nil {
			o.logger.Error("debate run ended with error",
				slog.String("debate", debateID),
				slog.String("error", err.Error()),
			)
		}
		o.notifyOutcome(ctx, debateID)
	}()
}

// notifyOutcome alerts operators once a debate reaches a terminal state.
func (o *Orchestrator) notifyOutcome(ctx context.Context, debateID string) {
	if o.notifier == nil {
		return
	}
	d, err := o.debates.Get(ctx, debateID)
	if err != nil {
		return
	}

	switch d.Status {
	case domain.StatusCompleted:
		err = o.notifier.DebateCompleted(ctx, d)
	case domain.StatusCancelled:
		err = o.notifier.DebateCancelled(ctx, d)
	default:
		return
	}
	if err != nil {
		o.logger.Warn("outcome notification failed",
			slog.String("debate", debateID),
			slog.String("error", err.Error()),
		)
	}
}
