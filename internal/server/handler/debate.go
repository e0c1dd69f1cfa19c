package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/arenalabs/debatearena/internal/domain"
)

// DebateHandler serves read endpoints for debate sessions.
type DebateHandler struct {
	debates  domain.DebateStore
	messages domain.MessageStore
	logger   *slog.Logger
}

// NewDebateHandler creates a DebateHandler with the given stores and logger.
func NewDebateHandler(debates domain.DebateStore, messages domain.MessageStore, logger *slog.Logger) *DebateHandler {
	return &DebateHandler{
		debates:  debates,
		messages: messages,
		logger:   logger,
	}
}

// debateResponse is the JSON shape of a debate session.
type debateResponse struct {
	ID           string            `json:"id"`
	TopicID      string            `json:"topic_id"`
	Topic        string            `json:"topic"`
	PresetID     string            `json:"preset_id"`
	ProID        string            `json:"pro_id"`
	ConID        string            `json:"con_id"`
	Status       string            `json:"status"`
	CurrentRound int               `json:"current_round"`
	RoundStatus  string            `json:"round_status"`
	RoundResults []roundResultBody `json:"round_results"`
	Winner       *string           `json:"winner,omitempty"`
	Stake        int64             `json:"stake"`
	CreatedAt    time.Time         `json:"created_at"`
	StartedAt    *time.Time        `json:"started_at,omitempty"`
	CompletedAt  *time.Time        `json:"completed_at,omitempty"`
	Messages     []messageBody     `json:"messages,omitempty"`
}

type roundResultBody struct {
	Round    int    `json:"round"`
	ProVotes int    `json:"pro_votes"`
	ConVotes int    `json:"con_votes"`
	Winner   string `json:"winner"`
}

type messageBody struct {
	ID            string    `json:"id"`
	Round         int       `json:"round"`
	Side          string    `json:"side"`
	ParticipantID string    `json:"participant_id"`
	Content       string    `json:"content"`
	Fallback      bool      `json:"fallback,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func toDebateResponse(d domain.DebateSession) debateResponse {
	resp := debateResponse{
		ID:           d.ID,
		TopicID:      d.TopicID,
		Topic:        d.Topic,
		PresetID:     d.PresetID,
		ProID:        d.ProID,
		ConID:        d.ConID,
		Status:       string(d.Status),
		CurrentRound: d.CurrentRound,
		RoundStatus:  string(d.RoundStatus),
		RoundResults: make([]roundResultBody, 0, len(d.RoundResults)),
		Stake:        d.Stake,
		CreatedAt:    d.CreatedAt,
		StartedAt:    d.StartedAt,
		CompletedAt:  d.CompletedAt,
	}
	if d.Winner != nil {
		w := string(*d.Winner)
		resp.Winner = &w
	}
	for _, r := range d.RoundResults {
		resp.RoundResults = append(resp.RoundResults, roundResultBody{
			Round:    r.Round,
			ProVotes: r.ProVotes,
			ConVotes: r.ConVotes,
			Winner:   string(r.Winner),
		})
	}
	return resp
}

// GetDebate returns a single debate session with its transcript.
// GET /api/debates/{id}
func (h *DebateHandler) GetDebate(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing debate id")
		return
	}

	d, err := h.debates.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "debate not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get debate failed",
			slog.String("debate_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to load debate")
		return
	}

	resp := toDebateResponse(d)

	msgs, err := h.messages.ListByDebate(r.Context(), id)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list messages failed",
			slog.String("debate_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to load transcript")
		return
	}
	resp.Messages = make([]messageBody, 0, len(msgs))
	for _, m := range msgs {
		resp.Messages = append(resp.Messages, messageBody{
			ID:            m.ID,
			Round:         m.Round,
			Side:          string(m.Side),
			ParticipantID: m.ParticipantID,
			Content:       m.Content,
			Fallback:      m.Fallback,
			CreatedAt:     m.CreatedAt,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// listDebatesResponse wraps the list endpoint output with pagination metadata.
type listDebatesResponse struct {
	Debates []debateResponse `json:"debates"`
	Limit   int              `json:"limit"`
	Offset  int              `json:"offset"`
}

// ListDebates returns recent debate sessions, newest first.
// GET /api/debates?limit=50&offset=0
func (h *DebateHandler) ListDebates(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)

	debates, err := h.debates.ListRecent(r.Context(), opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list debates failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list debates")
		return
	}

	resp := listDebatesResponse{
		Debates: make([]debateResponse, 0, len(debates)),
		Limit:   opts.Limit,
		Offset:  opts.Offset,
	}
	for _, d := range debates {
		resp.Debates = append(resp.Debates, toDebateResponse(d))
	}

	writeJSON(w, http.StatusOK, resp)
}
