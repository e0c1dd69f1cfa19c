package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/arenalabs/debatearena/internal/domain"
)

// VoteConfig bounds how fast one spectator may vote.
type VoteConfig struct {
	RateLimit  int
	RateWindow time.Duration
}

func (c VoteConfig) withDefaults() VoteConfig {
	if c.RateLimit <= 0 {
		c.RateLimit = 10
	}
	if c.RateWindow <= 0 {
		c.RateWindow = time.Minute
	}
	return c
}

// VoteService validates spectator votes and publishes them on the debate's
// vote channel, where the owning orchestrator instance tallies them. The API
// instance receiving the vote and the instance driving the debate need not
// be the same process.
type VoteService struct {
	debates domain.DebateStore
	bus     domain.SignalBus
	limiter domain.RateLimiter
	cfg     VoteConfig
	logger  *slog.Logger
}

// NewVoteService creates a VoteService.
func NewVoteService(debates domain.DebateStore, bus domain.SignalBus, limiter domain.RateLimiter, cfg VoteConfig, logger *slog.Logger) *VoteService {
	return &VoteService{
		debates: debates,
		bus:     bus,
		limiter: limiter,
		cfg:     cfg.withDefaults(),
		logger:  logger.With(slog.String("component", "votes")),
	}
}

// Submit accepts one vote for the round currently open for voting.
func (s *VoteService) Submit(ctx context.Context, v domain.Vote) error {
	if v.Choice != domain.SidePro && v.Choice != domain.SideCon {
		return fmt.Errorf("service: invalid vote choice %q", v.Choice)
	}
	if v.VoterID == "" {
		return fmt.Errorf("service: vote missing voter id")
	}

	d, err := s.debates.Get(ctx, v.DebateID)
	if err != nil {
		return fmt.Errorf("service: load debate %s: %w", v.DebateID, err)
	}
	if d.RoundStatus != domain.RoundVoting || d.CurrentRound != v.Round {
		return domain.ErrVotingClosed
	}

	allowed, err := s.limiter.Allow(ctx, "vote:"+v.VoterID, s.cfg.RateLimit, s.cfg.RateWindow)
	if err != nil {
		return fmt.Errorf("service: vote rate limit: %w", err)
	}
	if !allowed {
		return domain.ErrRateLimited
	}

	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("service: encode vote: %w", err)
	}
	if err := s.bus.Publish(ctx, domain.VoteChannel(v.DebateID), payload); err != nil {
		return fmt.Errorf("service: publish vote: %w", err)
	}

	s.logger.Debug("vote published",
		slog.String("debate", v.DebateID),
		slog.Int("round", v.Round),
		slog.String("choice", string(v.Choice)),
	)
	return nil
}
