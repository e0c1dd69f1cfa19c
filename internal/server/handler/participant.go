package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/arenalabs/debatearena/internal/domain"
)

// ParticipantRegistry defines the participant operations the handler needs.
type ParticipantRegistry interface {
	Register(ctx context.Context, p domain.Participant) (domain.Participant, error)
	Probe(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (domain.Participant, error)
}

// ParticipantHandler serves bot registration and inspection endpoints.
type ParticipantHandler struct {
	registry ParticipantRegistry
	logger   *slog.Logger
}

// NewParticipantHandler creates a ParticipantHandler with the given registry
// and logger.
func NewParticipantHandler(registry ParticipantRegistry, logger *slog.Logger) *ParticipantHandler {
	return &ParticipantHandler{
		registry: registry,
		logger:   logger,
	}
}

// registerRequest is the body of the registration endpoint. Credentials are
// accepted here, sealed at rest, and never returned by any read endpoint.
type registerRequest struct {
	OwnerID      string `json:"owner_id"`
	Name         string `json:"name"`
	Endpoint     string `json:"endpoint"`
	Protocol     string `json:"protocol"`
	SharedSecret string `json:"shared_secret,omitempty"`
	APIKey       string `json:"api_key,omitempty"`
	Model        string `json:"model,omitempty"`
}

// participantBody is the credential-free JSON shape of a participant.
type participantBody struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Name        string    `json:"name"`
	Endpoint    string    `json:"endpoint"`
	Protocol    string    `json:"protocol"`
	Model       string    `json:"model,omitempty"`
	SkillRating int       `json:"skill_rating"`
	Wins        int       `json:"wins"`
	Losses      int       `json:"losses"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

func toParticipantBody(p domain.Participant) participantBody {
	return participantBody{
		ID:          p.ID,
		OwnerID:     p.OwnerID,
		Name:        p.Name,
		Endpoint:    p.Endpoint,
		Protocol:    string(p.Protocol),
		Model:       p.Model,
		SkillRating: p.SkillRating,
		Wins:        p.Wins,
		Losses:      p.Losses,
		Active:      p.Active,
		CreatedAt:   p.CreatedAt,
	}
}

// Register validates, probes, and stores a new bot.
// POST /api/participants
func (h *ParticipantHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, err := h.registry.Register(r.Context(), domain.Participant{
		OwnerID:      req.OwnerID,
		Name:         strings.TrimSpace(req.Name),
		Endpoint:     req.Endpoint,
		Protocol:     domain.Protocol(req.Protocol),
		SharedSecret: req.SharedSecret,
		APIKey:       req.APIKey,
		Model:        req.Model,
	})
	if err != nil {
		// Registration failures are caller errors: invalid fields or an
		// endpoint that did not answer the probe.
		h.logger.WarnContext(r.Context(), "handler: registration rejected",
			slog.String("name", req.Name),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, toParticipantBody(p))
}

// Probe re-tests a registered bot's endpoint.
// POST /api/participants/{id}/probe
func (h *ParticipantHandler) Probe(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing participant id")
		return
	}

	if err := h.registry.Probe(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "participant not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":    false,
			"error": err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// GetParticipant returns a participant by id with credentials redacted.
// GET /api/participants/{id}
func (h *ParticipantHandler) GetParticipant(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing participant id")
		return
	}

	p, err := h.registry.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "participant not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get participant failed",
			slog.String("participant_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to load participant")
		return
	}

	writeJSON(w, http.StatusOK, toParticipantBody(p))
}
