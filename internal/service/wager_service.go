package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/arenalabs/debatearena/internal/domain"
)

// WagerService accepts spectator wagers. Wagers are only valid while the
// debate is still pending; once the first round starts the book is closed.
type WagerService struct {
	debates domain.DebateStore
	wagers  domain.WagerStore
	logger  *slog.Logger
}

// NewWagerService creates a WagerService.
func NewWagerService(debates domain.DebateStore, wagers domain.WagerStore, logger *slog.Logger) *WagerService {
	return &WagerService{
		debates: debates,
		wagers:  wagers,
		logger:  logger.With(slog.String("component", "wagers")),
	}
}

// Place records a wager on one side of a pending debate.
func (s *WagerService) Place(ctx context.Context, debateID, wagererID string, amount int64, side domain.Side) (domain.Wager, error) {
	if amount <= 0 {
		return domain.Wager{}, fmt.Errorf("service: wager amount must be positive, got %d", amount)
	}
	if side != domain.SidePro && side != domain.SideCon {
		return domain.Wager{}, fmt.Errorf("service: invalid wager side %q", side)
	}

	d, err := s.debates.Get(ctx, debateID)
	if err != nil {
		return domain.Wager{}, fmt.Errorf("service: load debate %s: %w", debateID, err)
	}
	if d.Status != domain.StatusPending {
		return domain.Wager{}, domain.ErrWageringClosed
	}

	w := domain.Wager{
		ID:        uuid.New().String(),
		DebateID:  debateID,
		WagererID: wagererID,
		Amount:    amount,
		Side:      side,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.wagers.Create(ctx, w); err != nil {
		return domain.Wager{}, fmt.Errorf("service: create wager: %w", err)
	}

	s.logger.Info("wager placed",
		slog.String("debate", debateID),
		slog.String("wagerer", wagererID),
		slog.Int64("amount", amount),
		slog.String("side", string(side)),
	)
	return w, nil
}

// ListByDebate returns a debate's wagers.
func (s *WagerService) ListByDebate(ctx context.Context, debateID string) ([]domain.Wager, error) {
	return s.wagers.ListByDebate(ctx, debateID)
}
