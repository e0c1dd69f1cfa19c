package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/arenalabs/debatearena/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubDebates struct {
	domain.DebateStore
	sessions map[string]domain.DebateSession
}

func (s *stubDebates) Get(ctx context.Context, id string) (domain.DebateSession, error) {
	d, ok := s.sessions[id]
	if !ok {
		return domain.DebateSession{}, domain.ErrNotFound
	}
	return d, nil
}

type fakeBus struct {
	domain.SignalBus
	published map[string][][]byte
}

func (b *fakeBus) Publish(ctx context.Context, channel string, payload []byte) error {
	if b.published == nil {
		b.published = map[string][][]byte{}
	}
	b.published[channel] = append(b.published[channel], payload)
	return nil
}

type fakeLimiter struct {
	allow bool
	err   error
	keys  []string
}

func (l *fakeLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	l.keys = append(l.keys, key)
	return l.allow, l.err
}

func votingDebate(id string, round int) domain.DebateSession {
	return domain.DebateSession{
		ID:           id,
		Status:       domain.StatusInProgress,
		CurrentRound: round,
		RoundStatus:  domain.RoundVoting,
	}
}

func TestSubmitPublishesVoteOnDebateChannel(t *testing.T) {
	debates := &stubDebates{sessions: map[string]domain.DebateSession{
		"d1": votingDebate("d1", 2),
	}}
	bus := &fakeBus{}
	limiter := &fakeLimiter{allow: true}
	svc := NewVoteService(debates, bus, limiter, VoteConfig{}, testLogger())

	v := domain.Vote{DebateID: "d1", Round: 2, VoterID: "alice", Choice: domain.SidePro}
	if err := svc.Submit(context.Background(), v); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	msgs := bus.published[domain.VoteChannel("d1")]
	if len(msgs) != 1 {
		t.Fatalf("published %d messages on vote channel, want 1", len(msgs))
	}
	var got domain.Vote
	if err := json.Unmarshal(msgs[0], &got); err != nil {
		t.Fatalf("decode published vote: %v", err)
	}
	if got != v {
		t.Errorf("published vote = %+v, want %+v", got, v)
	}
	if len(limiter.keys) != 1 || limiter.keys[0] != "vote:alice" {
		t.Errorf("limiter keys = %v, want [vote:alice]", limiter.keys)
	}
}

func TestSubmitRejectsWhenRoundNotVoting(t *testing.T) {
	d := votingDebate("d1", 1)
	d.RoundStatus = domain.RoundResponding
	debates := &stubDebates{sessions: map[string]domain.DebateSession{"d1": d}}
	bus := &fakeBus{}
	svc := NewVoteService(debates, bus, &fakeLimiter{allow: true}, VoteConfig{}, testLogger())

	err := svc.Submit(context.Background(), domain.Vote{
		DebateID: "d1", Round: 1, VoterID: "alice", Choice: domain.SideCon,
	})
	if !errors.Is(err, domain.ErrVotingClosed) {
		t.Fatalf("Submit while bots responding = %v, want ErrVotingClosed", err)
	}
	if len(bus.published) != 0 {
		t.Error("vote was published despite closed voting")
	}
}

func TestSubmitRejectsStaleRound(t *testing.T) {
	debates := &stubDebates{sessions: map[string]domain.DebateSession{
		"d1": votingDebate("d1", 3),
	}}
	svc := NewVoteService(debates, &fakeBus{}, &fakeLimiter{allow: true}, VoteConfig{}, testLogger())

	// A vote for round 2 arriving while round 3 is open must not count.
	err := svc.Submit(context.Background(), domain.Vote{
		DebateID: "d1", Round: 2, VoterID: "alice", Choice: domain.SidePro,
	})
	if !errors.Is(err, domain.ErrVotingClosed) {
		t.Fatalf("Submit stale round = %v, want ErrVotingClosed", err)
	}
}

func TestSubmitRateLimitsPerVoter(t *testing.T) {
	debates := &stubDebates{sessions: map[string]domain.DebateSession{
		"d1": votingDebate("d1", 1),
	}}
	bus := &fakeBus{}
	svc := NewVoteService(debates, bus, &fakeLimiter{allow: false}, VoteConfig{}, testLogger())

	err := svc.Submit(context.Background(), domain.Vote{
		DebateID: "d1", Round: 1, VoterID: "alice", Choice: domain.SidePro,
	})
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("Submit over limit = %v, want ErrRateLimited", err)
	}
	if len(bus.published) != 0 {
		t.Error("vote was published despite rate limit")
	}
}

func TestSubmitUnknownDebate(t *testing.T) {
	debates := &stubDebates{sessions: map[string]domain.DebateSession{}}
	svc := NewVoteService(debates, &fakeBus{}, &fakeLimiter{allow: true}, VoteConfig{}, testLogger())

	err := svc.Submit(context.Background(), domain.Vote{
		DebateID: "nope", Round: 1, VoterID: "alice", Choice: domain.SidePro,
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Submit unknown debate = %v, want ErrNotFound", err)
	}
}

func TestSubmitValidatesBeforeStoreAccess(t *testing.T) {
	limiter := &fakeLimiter{allow: true}
	svc := NewVoteService(&stubDebates{}, &fakeBus{}, limiter, VoteConfig{}, testLogger())

	cases := []domain.Vote{
		{DebateID: "d1", Round: 1, VoterID: "alice", Choice: "maybe"},
		{DebateID: "d1", Round: 1, VoterID: "", Choice: domain.SidePro},
	}
	for _, v := range cases {
		if err := svc.Submit(context.Background(), v); err == nil {
			t.Errorf("Submit(%+v) succeeded, want validation error", v)
		}
	}
	if len(limiter.keys) != 0 {
		t.Error("rate limiter consulted for invalid votes")
	}
}
