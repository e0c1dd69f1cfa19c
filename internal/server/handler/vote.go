package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/arenalabs/debatearena/internal/domain"
)

// VoteSubmitter defines the vote operation the handler needs.
type VoteSubmitter interface {
	Submit(ctx context.Context, v domain.Vote) error
}

// VoteHandler serves the spectator vote endpoint.
type VoteHandler struct {
	votes  VoteSubmitter
	logger *slog.Logger
}

// NewVoteHandler creates a VoteHandler with the given service and logger.
func NewVoteHandler(votes VoteSubmitter, logger *slog.Logger) *VoteHandler {
	return &VoteHandler{
		votes:  votes,
		logger: logger,
	}
}

// submitVoteRequest is the body of the vote endpoint.
type submitVoteRequest struct {
	Round   int    `json:"round"`
	VoterID string `json:"voter_id"`
	Choice  string `json:"choice"`
}

// SubmitVote casts one vote on the round currently open for voting.
// POST /api/debates/{id}/votes
func (h *VoteHandler) SubmitVote(w http.ResponseWriter, r *http.Request) {
	debateID := pathParam(r, "id")
	if debateID == "" {
		writeError(w, http.StatusBadRequest, "missing debate id")
		return
	}

	var req submitVoteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.VoterID == "" {
		writeError(w, http.StatusBadRequest, "missing voter_id")
		return
	}
	if req.Choice != string(domain.SidePro) && req.Choice != string(domain.SideCon) {
		writeError(w, http.StatusBadRequest, "choice must be pro or con")
		return
	}

	err := h.votes.Submit(r.Context(), domain.Vote{
		DebateID: debateID,
		Round:    req.Round,
		VoterID:  req.VoterID,
		Choice:   domain.Side(req.Choice),
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "debate not found")
		case errors.Is(err, domain.ErrVotingClosed):
			writeError(w, http.StatusConflict, "no vote window is open for this round")
		case errors.Is(err, domain.ErrRateLimited):
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "vote rate limit exceeded")
		default:
			h.logger.ErrorContext(r.Context(), "handler: submit vote failed",
				slog.String("debate_id", debateID),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "failed to submit vote")
		}
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{"accepted": true})
}
