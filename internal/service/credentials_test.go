package service

import (
	"context"
	"testing"

	"github.com/arenalabs/debatearena/internal/crypto"
	"github.com/arenalabs/debatearena/internal/domain"
)

type fakeParticipants struct {
	domain.ParticipantStore
	stored map[string]domain.Participant
}

func (f *fakeParticipants) Create(ctx context.Context, p domain.Participant) error {
	if f.stored == nil {
		f.stored = map[string]domain.Participant{}
	}
	f.stored[p.ID] = p
	return nil
}

func (f *fakeParticipants) Get(ctx context.Context, id string) (domain.Participant, error) {
	p, ok := f.stored[id]
	if !ok {
		return domain.Participant{}, domain.ErrNotFound
	}
	return p, nil
}

func TestCredentialStoreSealsAtRest(t *testing.T) {
	sealer, err := crypto.NewSealer("test-passphrase")
	if err != nil {
		t.Fatalf("NewSealer: %v", err)
	}
	inner := &fakeParticipants{}
	store := NewCredentialStore(inner, sealer)
	ctx := context.Background()

	p := domain.Participant{
		ID:           "p1",
		Name:         "socrates",
		SharedSecret: "hmac-secret",
		APIKey:       "sk-live-123",
	}
	if err := store.Create(ctx, p); err != nil {
		t.Fatalf("Create: %v", err)
	}

	// The inner store must never see plaintext.
	raw := inner.stored["p1"]
	if raw.SharedSecret == p.SharedSecret {
		t.Error("shared secret stored in plaintext")
	}
	if raw.APIKey == p.APIKey {
		t.Error("api key stored in plaintext")
	}

	// Reads reverse the sealing.
	got, err := store.Get(ctx, "p1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.SharedSecret != p.SharedSecret || got.APIKey != p.APIKey {
		t.Errorf("round-trip = %q/%q, want %q/%q",
			got.SharedSecret, got.APIKey, p.SharedSecret, p.APIKey)
	}
}

func TestCredentialStoreSkipsEmptyCredentials(t *testing.T) {
	sealer, err := crypto.NewSealer("test-passphrase")
	if err != nil {
		t.Fatalf("NewSealer: %v", err)
	}
	inner := &fakeParticipants{}
	store := NewCredentialStore(inner, sealer)
	ctx := context.Background()

	if err := store.Create(ctx, domain.Participant{ID: "p2", Name: "hume"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if raw := inner.stored["p2"]; raw.SharedSecret != "" || raw.APIKey != "" {
		t.Errorf("empty credentials were mutated: %+v", raw)
	}

	got, err := store.Get(ctx, "p2")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.SharedSecret != "" || got.APIKey != "" {
		t.Errorf("empty credentials after read: %+v", got)
	}
}
