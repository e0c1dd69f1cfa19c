package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/arenalabs/debatearena/internal/domain"
	"github.com/arenalabs/debatearena/internal/gateway"
)

// ParticipantService registers debate bots and tests their endpoints. It is
// given a credential-sealing store (see CredentialStore), so secrets are
// plaintext here and ciphertext at rest.
type ParticipantService struct {
	participants domain.ParticipantStore
	prober       gateway.Prober
	logger       *slog.Logger
}

// NewParticipantService creates a ParticipantService.
func NewParticipantService(participants domain.ParticipantStore, prober gateway.Prober, logger *slog.Logger) *ParticipantService {
	return &ParticipantService{
		participants: participants,
		prober:       prober,
		logger:       logger.With(slog.String("component", "participants")),
	}
}

// Register validates and stores a new bot. The endpoint must answer a probe
// before the bot is accepted.
func (s *ParticipantService) Register(ctx context.Context, p domain.Participant) (domain.Participant, error) {
	if p.Name == "" {
		return domain.Participant{}, fmt.Errorf("service: participant name required")
	}
	if p.Protocol != domain.ProtocolSigned && p.Protocol != domain.ProtocolRelay {
		return domain.Participant{}, fmt.Errorf("service: unknown protocol %q", p.Protocol)
	}
	if p.Protocol == domain.ProtocolSigned && p.SharedSecret == "" {
		return domain.Participant{}, fmt.Errorf("service: signed protocol requires a shared secret")
	}
	if u, err := url.Parse(p.Endpoint); err != nil || u.Scheme == "" || u.Host == "" {
		return domain.Participant{}, fmt.Errorf("service: invalid endpoint %q", p.Endpoint)
	}

	p.ID = uuid.New().String()
	p.SkillRating = domain.StartingRating
	p.Wins = 0
	p.Losses = 0
	p.Active = true
	p.CreatedAt = time.Now().UTC()

	if err := s.prober.Probe(ctx, p); err != nil {
		return domain.Participant{}, fmt.Errorf("service: endpoint probe failed: %w", err)
	}

	if err := s.participants.Create(ctx, p); err != nil {
		return domain.Participant{}, fmt.Errorf("service: create participant: %w", err)
	}

	s.logger.Info("participant registered",
		slog.String("participant", p.ID),
		slog.String("name", p.Name),
		slog.String("protocol", string(p.Protocol)),
	)
	return p, nil
}

// Probe re-tests a registered bot's endpoint with live credentials.
func (s *ParticipantService) Probe(ctx context.Context, id string) error {
	p, err := s.participants.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("service: load participant %s: %w", id, err)
	}
	return s.prober.Probe(ctx, p)
}

// Get returns a participant with credentials redacted for API responses.
func (s *ParticipantService) Get(ctx context.Context, id string) (domain.Participant, error) {
	p, err := s.participants.Get(ctx, id)
	if err != nil {
		return domain.Participant{}, err
	}
	p.SharedSecret = ""
	p.APIKey = ""
	return p, nil
}
