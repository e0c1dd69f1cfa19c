package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/arenalabs/debatearena/internal/domain"
)

// QueueService defines the matchmaking operations the queue handler needs. It
// is declared locally so the handler package does not depend on the concrete
// matchmaker implementation.
type QueueService interface {
	Join(ctx context.Context, p domain.Participant, ownerID string, stake int64, presetID string) (domain.QueueEntry, error)
	Leave(ctx context.Context, participantID string) (bool, error)
	Stats(ctx context.Context) (domain.QueueStats, error)
}

// QueueHandler serves matchmaking queue endpoints.
type QueueHandler struct {
	queue        QueueService
	participants domain.ParticipantStore
	logger       *slog.Logger
}

// NewQueueHandler creates a QueueHandler with the given matchmaker, store,
// and logger.
func NewQueueHandler(queue QueueService, participants domain.ParticipantStore, logger *slog.Logger) *QueueHandler {
	return &QueueHandler{
		queue:        queue,
		participants: participants,
		logger:       logger,
	}
}

// joinRequest is the body of the queue join endpoint.
type joinRequest struct {
	ParticipantID string `json:"participant_id"`
	Stake         int64  `json:"stake"`
	PresetID      string `json:"preset_id"`
}

// Join queues a registered participant for matchmaking.
// POST /api/queue
func (h *QueueHandler) Join(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ParticipantID == "" {
		writeError(w, http.StatusBadRequest, "missing participant_id")
		return
	}
	if req.Stake < 0 {
		writeError(w, http.StatusBadRequest, "stake must not be negative")
		return
	}

	p, err := h.participants.Get(r.Context(), req.ParticipantID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "participant not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: lookup participant failed",
			slog.String("participant_id", req.ParticipantID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to look up participant")
		return
	}

	entry, err := h.queue.Join(r.Context(), p, p.OwnerID, req.Stake, req.PresetID)
	if err != nil {
		if errors.Is(err, domain.ErrInactiveBot) {
			writeError(w, http.StatusConflict, "participant is inactive")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: queue join failed",
			slog.String("participant_id", req.ParticipantID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to join queue")
		return
	}

	writeJSON(w, http.StatusCreated, entry)
}

// Leave withdraws a participant from the queue.
// DELETE /api/queue/{participantId}
func (h *QueueHandler) Leave(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "participantId")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing participant id")
		return
	}

	removed, err := h.queue.Leave(r.Context(), id)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: queue leave failed",
			slog.String("participant_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to leave queue")
		return
	}
	if !removed {
		writeError(w, http.StatusNotFound, "participant not queued")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"removed": true})
}

// Stats returns the queue size and average wait time.
// GET /api/queue/stats
func (h *QueueHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.queue.Stats(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: queue stats failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to read queue stats")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}
