package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/arenalabs/debatearena/internal/debate"
	"github.com/arenalabs/debatearena/internal/matchmaking"
	"github.com/arenalabs/debatearena/internal/ownership"
	"github.com/arenalabs/debatearena/internal/server"
	"github.com/arenalabs/debatearena/internal/server/handler"
	"github.com/arenalabs/debatearena/internal/server/ws"
	"github.com/arenalabs/debatearena/internal/service"
)

// shutdownTimeout bounds graceful HTTP drain after the run context ends.
const shutdownTimeout = 10 * time.Second

// APIMode serves the HTTP and WebSocket API without running debates. It is
// meant for horizontally scaled read/write frontends; a separate orchestrator
// instance drives matchmaking and rounds.
func (a *App) APIMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting api mode")
	return a.runAPI(ctx, deps)
}

// OrchestratorMode runs matchmaking, debate execution, crash recovery, and
// transcript archival without exposing the HTTP API.
func (a *App) OrchestratorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting orchestrator mode")
	orch := a.buildOrchestrator(deps)
	return orch.Run(ctx)
}

// FullMode runs the API server and the orchestrator in a single process. This
// is the default deployment shape for small installations.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	orch := a.buildOrchestrator(deps)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return orch.Run(ctx) })
	g.Go(func() error { return a.runAPI(ctx, deps) })
	return g.Wait()
}

// runAPI builds the HTTP handlers, WebSocket hub, and server, then blocks
// until the context ends and the server has drained.
func (a *App) runAPI(ctx context.Context, deps *Dependencies) error {
	cfg := a.cfg

	matchmaker := a.buildMatchmaker(deps)

	votes := service.NewVoteService(deps.DebateStore, deps.SignalBus, deps.RateLimiter, service.VoteConfig{
		RateLimit:  cfg.Debate.VoteRateLimit,
		RateWindow: cfg.Debate.VoteRateWindow.Duration,
	}, a.logger)
	wagers := service.NewWagerService(deps.DebateStore, deps.WagerStore, a.logger)
	participants := service.NewParticipantService(deps.ParticipantStore, deps.Gateway, a.logger)

	handlers := server.Handlers{
		Health:       handler.NewHealthHandler(a.logger),
		Queue:        handler.NewQueueHandler(matchmaker, deps.ParticipantStore, a.logger),
		Debates:      handler.NewDebateHandler(deps.DebateStore, deps.MessageStore, a.logger),
		Wagers:       handler.NewWagerHandler(wagers, a.logger),
		Votes:        handler.NewVoteHandler(votes, a.logger),
		Participants: handler.NewParticipantHandler(participants, a.logger),
	}

	hub := ws.NewHub(deps.SignalBus, a.logger)

	srv := server.NewServer(server.Config{
		Port:          cfg.Server.Port,
		CORSOrigins:   cfg.Server.CORSOrigins,
		APIKey:        cfg.Server.APIKey,
		RequestLimit:  cfg.Server.RequestLimit,
		RequestWindow: cfg.Server.RequestWindow.Duration,
	}, handlers, hub, deps.RateLimiter, a.logger)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return hub.Run(ctx) })
	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("app: http shutdown: %w", err)
		}
		return nil
	})
	return g.Wait()
}

// buildOrchestrator assembles the matchmaker, ownership manager, debate
// engine, and orchestrator loops from wired dependencies.
func (a *App) buildOrchestrator(deps *Dependencies) *service.Orchestrator {
	cfg := a.cfg

	instanceID := cfg.Ownership.InstanceID
	if instanceID == "" {
		instanceID = uuid.New().String()
		a.logger.Info("generated instance id", slog.String("instance_id", instanceID))
	}

	own := ownership.New(deps.LeaseStore, deps.DebateStore, ownership.Config{
		InstanceID: instanceID,
		TTL:        cfg.Ownership.LeaseTTL.Duration,
		RenewEvery: cfg.Ownership.RenewEvery.Duration,
		StaleAfter: cfg.Ownership.StaleAfter.Duration,
	}, a.logger)

	engine := debate.New(debate.Deps{
		Debates:      deps.DebateStore,
		Messages:     deps.MessageStore,
		Wagers:       deps.WagerStore,
		Participants: deps.ParticipantStore,
		Invoker:      deps.Gateway,
		Bus:          deps.SignalBus,
		Leases:       own,
	}, debate.Config{
		TieBreak: debate.TieBreak(cfg.Debate.TieBreak),
		FeeBps:   cfg.Debate.FeeBps,
	}, a.logger)

	matchmaker := a.buildMatchmaker(deps)

	// The orchestrator skips the archival and notification loops when the
	// corresponding dependency is absent. The nil checks matter: assigning a
	// nil *TranscriptArchiver straight into the interface field would make it
	// non-nil.
	var archiver service.Archiver
	if deps.Archiver != nil {
		archiver = deps.Archiver
	}
	var notifier service.Notifier
	if deps.Notifier != nil {
		notifier = deps.Notifier
	}

	return service.NewOrchestrator(
		matchmaker,
		engine,
		own,
		deps.DebateStore,
		deps.TopicStore,
		notifier,
		archiver,
		service.OrchestratorConfig{
			MatchTick:    cfg.Matchmaking.MatchTick.Duration,
			ArchiveEvery: cfg.S3.ArchiveEvery.Duration,
		},
		a.logger,
	)
}

func (a *App) buildMatchmaker(deps *Dependencies) *matchmaking.Matchmaker {
	cfg := a.cfg.Matchmaking
	return matchmaking.New(deps.QueueStore, deps.LockManager, matchmaking.Config{
		MinWindow:      cfg.MinWindow,
		MaxWindow:      cfg.MaxWindow,
		WindowGrowth:   cfg.WindowGrowth,
		GrowthInterval: cfg.GrowthInterval.Duration,
		MaxStakeSpread: cfg.MaxStakeSpread,
		EntryTTL:       cfg.EntryTTL.Duration,
	}, a.logger)
}
