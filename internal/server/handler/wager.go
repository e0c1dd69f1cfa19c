package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/arenalabs/debatearena/internal/domain"
)

// WagerPlacer defines the wager operations the handler needs.
type WagerPlacer interface {
	Place(ctx context.Context, debateID, wagererID string, amount int64, side domain.Side) (domain.Wager, error)
	ListByDebate(ctx context.Context, debateID string) ([]domain.Wager, error)
}

// WagerHandler serves wager endpoints.
type WagerHandler struct {
	wagers WagerPlacer
	logger *slog.Logger
}

// NewWagerHandler creates a WagerHandler with the given service and logger.
func NewWagerHandler(wagers WagerPlacer, logger *slog.Logger) *WagerHandler {
	return &WagerHandler{
		wagers: wagers,
		logger: logger,
	}
}

// placeWagerRequest is the body of the wager placement endpoint.
type placeWagerRequest struct {
	WagererID string `json:"wagerer_id"`
	Amount    int64  `json:"amount"`
	Side      string `json:"side"`
}

// wagerBody is the JSON shape of a wager.
type wagerBody struct {
	ID        string    `json:"id"`
	DebateID  string    `json:"debate_id"`
	WagererID string    `json:"wagerer_id"`
	Amount    int64     `json:"amount"`
	Side      string    `json:"side"`
	Settled   bool      `json:"settled"`
	Payout    int64     `json:"payout"`
	CreatedAt time.Time `json:"created_at"`
}

func toWagerBody(w domain.Wager) wagerBody {
	return wagerBody{
		ID:        w.ID,
		DebateID:  w.DebateID,
		WagererID: w.WagererID,
		Amount:    w.Amount,
		Side:      string(w.Side),
		Settled:   w.Settled,
		Payout:    w.Payout,
		CreatedAt: w.CreatedAt,
	}
}

// PlaceWager places a stake on one side of a pending debate.
// POST /api/debates/{id}/wagers
func (h *WagerHandler) PlaceWager(w http.ResponseWriter, r *http.Request) {
	debateID := pathParam(r, "id")
	if debateID == "" {
		writeError(w, http.StatusBadRequest, "missing debate id")
		return
	}

	var req placeWagerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.WagererID == "" {
		writeError(w, http.StatusBadRequest, "missing wagerer_id")
		return
	}
	if req.Amount <= 0 {
		writeError(w, http.StatusBadRequest, "amount must be positive")
		return
	}
	if req.Side != string(domain.SidePro) && req.Side != string(domain.SideCon) {
		writeError(w, http.StatusBadRequest, "side must be pro or con")
		return
	}

	wager, err := h.wagers.Place(r.Context(), debateID, req.WagererID, req.Amount, domain.Side(req.Side))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "debate not found")
		case errors.Is(err, domain.ErrWageringClosed):
			writeError(w, http.StatusConflict, "wagering is closed for this debate")
		default:
			h.logger.ErrorContext(r.Context(), "handler: place wager failed",
				slog.String("debate_id", debateID),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "failed to place wager")
		}
		return
	}

	writeJSON(w, http.StatusCreated, toWagerBody(wager))
}

// ListWagers returns all wagers placed on a debate.
// GET /api/debates/{id}/wagers
func (h *WagerHandler) ListWagers(w http.ResponseWriter, r *http.Request) {
	debateID := pathParam(r, "id")
	if debateID == "" {
		writeError(w, http.StatusBadRequest, "missing debate id")
		return
	}

	wagers, err := h.wagers.ListByDebate(r.Context(), debateID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list wagers failed",
			slog.String("debate_id", debateID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list wagers")
		return
	}

	out := make([]wagerBody, 0, len(wagers))
	for _, wg := range wagers {
		out = append(out, toWagerBody(wg))
	}
	writeJSON(w, http.StatusOK, map[string]any{"wagers": out})
}
