package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/arenalabs/debatearena/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newMux registers routes the way the server does so path parameters resolve.
func newMux(pattern string, fn http.HandlerFunc) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc(pattern, fn)
	return mux
}

func doJSON(t *testing.T, mux *http.ServeMux, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

// --- vote handler ---

type voteFunc func(ctx context.Context, v domain.Vote) error

func (f voteFunc) Submit(ctx context.Context, v domain.Vote) error { return f(ctx, v) }

func TestSubmitVoteStatusMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"accepted", nil, http.StatusAccepted},
		{"voting closed", domain.ErrVotingClosed, http.StatusConflict},
		{"rate limited", domain.ErrRateLimited, http.StatusTooManyRequests},
		{"unknown debate", domain.ErrNotFound, http.StatusNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewVoteHandler(voteFunc(func(context.Context, domain.Vote) error {
				return tc.err
			}), testLogger())
			mux := newMux("POST /api/debates/{id}/votes", h.SubmitVote)

			rec := doJSON(t, mux, http.MethodPost, "/api/debates/d1/votes",
				`{"round":0,"voter_id":"v1","choice":"pro"}`)
			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
		})
	}
}

func TestSubmitVoteRejectsBadChoice(t *testing.T) {
	called := false
	h := NewVoteHandler(voteFunc(func(context.Context, domain.Vote) error {
		called = true
		return nil
	}), testLogger())
	mux := newMux("POST /api/debates/{id}/votes", h.SubmitVote)

	rec := doJSON(t, mux, http.MethodPost, "/api/debates/d1/votes",
		`{"round":0,"voter_id":"v1","choice":"maybe"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if called {
		t.Fatal("service should not be called for an invalid choice")
	}
}

func TestSubmitVoteForwardsPathDebateID(t *testing.T) {
	var got domain.Vote
	h := NewVoteHandler(voteFunc(func(_ context.Context, v domain.Vote) error {
		got = v
		return nil
	}), testLogger())
	mux := newMux("POST /api/debates/{id}/votes", h.SubmitVote)

	doJSON(t, mux, http.MethodPost, "/api/debates/d42/votes",
		`{"round":2,"voter_id":"v1","choice":"con"}`)
	if got.DebateID != "d42" || got.Round != 2 || got.Choice != domain.SideCon {
		t.Fatalf("vote = %+v, want debate d42 round 2 con", got)
	}
}

// --- wager handler ---

type stubWagers struct {
	placeErr error
	placed   domain.Wager
}

func (s *stubWagers) Place(_ context.Context, debateID, wagererID string, amount int64, side domain.Side) (domain.Wager, error) {
	if s.placeErr != nil {
		return domain.Wager{}, s.placeErr
	}
	s.placed = domain.Wager{
		ID:        "w1",
		DebateID:  debateID,
		WagererID: wagererID,
		Amount:    amount,
		Side:      side,
		CreatedAt: time.Now().UTC(),
	}
	return s.placed, nil
}

func (s *stubWagers) ListByDebate(context.Context, string) ([]domain.Wager, error) {
	return []domain.Wager{s.placed}, nil
}

func TestPlaceWagerCreated(t *testing.T) {
	stub := &stubWagers{}
	h := NewWagerHandler(stub, testLogger())
	mux := newMux("POST /api/debates/{id}/wagers", h.PlaceWager)

	rec := doJSON(t, mux, http.MethodPost, "/api/debates/d1/wagers",
		`{"wagerer_id":"u1","amount":500,"side":"pro"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	var body wagerBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.DebateID != "d1" || body.Amount != 500 || body.Side != "pro" {
		t.Fatalf("wager = %+v", body)
	}
}

func TestPlaceWagerClosedBookConflicts(t *testing.T) {
	stub := &stubWagers{placeErr: domain.ErrWageringClosed}
	h := NewWagerHandler(stub, testLogger())
	mux := newMux("POST /api/debates/{id}/wagers", h.PlaceWager)

	rec := doJSON(t, mux, http.MethodPost, "/api/debates/d1/wagers",
		`{"wagerer_id":"u1","amount":500,"side":"con"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

func TestPlaceWagerValidatesBeforeService(t *testing.T) {
	stub := &stubWagers{placeErr: domain.ErrWageringClosed}
	h := NewWagerHandler(stub, testLogger())
	mux := newMux("POST /api/debates/{id}/wagers", h.PlaceWager)

	for _, body := range []string{
		`{"wagerer_id":"u1","amount":0,"side":"pro"}`,
		`{"wagerer_id":"u1","amount":10,"side":"neither"}`,
		`{"amount":10,"side":"pro"}`,
	} {
		rec := doJSON(t, mux, http.MethodPost, "/api/debates/d1/wagers", body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %s: status = %d, want 400", body, rec.Code)
		}
	}
}

// --- queue handler ---

type stubQueue struct {
	joinErr error
	left    bool
	stats   domain.QueueStats
}

func (s *stubQueue) Join(_ context.Context, p domain.Participant, ownerID string, stake int64, presetID string) (domain.QueueEntry, error) {
	if s.joinErr != nil {
		return domain.QueueEntry{}, s.joinErr
	}
	return domain.QueueEntry{
		ID:            "q1",
		ParticipantID: p.ID,
		OwnerID:       ownerID,
		PresetID:      presetID,
		Stake:         stake,
		JoinedAt:      time.Now().UTC(),
	}, nil
}

func (s *stubQueue) Leave(context.Context, string) (bool, error) { return s.left, nil }

func (s *stubQueue) Stats(context.Context) (domain.QueueStats, error) { return s.stats, nil }

type stubParticipants struct {
	p   domain.Participant
	err error
}

func (s *stubParticipants) Create(context.Context, domain.Participant) error { return nil }

func (s *stubParticipants) Get(context.Context, string) (domain.Participant, error) {
	return s.p, s.err
}

func (s *stubParticipants) RecordResult(context.Context, string, int, bool) error { return nil }

func (s *stubParticipants) UpdateRating(context.Context, string, int) error { return nil }

func TestQueueJoinCreatesEntry(t *testing.T) {
	parts := &stubParticipants{p: domain.Participant{ID: "p1", OwnerID: "o1", Active: true}}
	h := NewQueueHandler(&stubQueue{}, parts, testLogger())
	mux := newMux("POST /api/queue", h.Join)

	rec := doJSON(t, mux, http.MethodPost, "/api/queue",
		`{"participant_id":"p1","stake":100,"preset_id":"standard-3"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	var entry domain.QueueEntry
	if err := json.Unmarshal(rec.Body.Bytes(), &entry); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if entry.ParticipantID != "p1" || entry.OwnerID != "o1" || entry.Stake != 100 {
		t.Fatalf("entry = %+v", entry)
	}
}

func TestQueueJoinUnknownParticipant(t *testing.T) {
	parts := &stubParticipants{err: domain.ErrNotFound}
	h := NewQueueHandler(&stubQueue{}, parts, testLogger())
	mux := newMux("POST /api/queue", h.Join)

	rec := doJSON(t, mux, http.MethodPost, "/api/queue", `{"participant_id":"ghost"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestQueueJoinInactiveConflicts(t *testing.T) {
	parts := &stubParticipants{p: domain.Participant{ID: "p1"}}
	h := NewQueueHandler(&stubQueue{joinErr: domain.ErrInactiveBot}, parts, testLogger())
	mux := newMux("POST /api/queue", h.Join)

	rec := doJSON(t, mux, http.MethodPost, "/api/queue", `{"participant_id":"p1"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

func TestQueueLeaveNotQueued(t *testing.T) {
	h := NewQueueHandler(&stubQueue{left: false}, &stubParticipants{}, testLogger())
	mux := newMux("DELETE /api/queue/{participantId}", h.Leave)

	rec := doJSON(t, mux, http.MethodDelete, "/api/queue/p1", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
