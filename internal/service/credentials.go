package service

import (
	"context"
	"fmt"

	"github.com/arenalabs/debatearena/internal/crypto"
	"github.com/arenalabs/debatearena/internal/domain"
)

// CredentialStore decorates a ParticipantStore so credentials are sealed on
// the way into the database and opened on the way out. Everything above this
// layer only ever sees plaintext secrets.
type CredentialStore struct {
	inner  domain.ParticipantStore
	sealer *crypto.Sealer
}

// NewCredentialStore wraps a participant store with credential sealing.
func NewCredentialStore(inner domain.ParticipantStore, sealer *crypto.Sealer) *CredentialStore {
	return &CredentialStore{inner: inner, sealer: sealer}
}

// Create seals credentials then stores the participant.
func (c *CredentialStore) Create(ctx context.Context, p domain.Participant) error {
	var err error
	if p.SharedSecret != "" {
		if p.SharedSecret, err = c.sealer.Seal(p.SharedSecret); err != nil {
			return fmt.Errorf("service: seal shared secret: %w", err)
		}
	}
	if p.APIKey != "" {
		if p.APIKey, err = c.sealer.Seal(p.APIKey); err != nil {
			return fmt.Errorf("service: seal api key: %w", err)
		}
	}
	return c.inner.Create(ctx, p)
}

// Get loads a participant and opens its credentials.
func (c *CredentialStore) Get(ctx context.Context, id string) (domain.Participant, error) {
	p, err := c.inner.Get(ctx, id)
	if err != nil {
		return domain.Participant{}, err
	}
	if p.SharedSecret != "" {
		if p.SharedSecret, err = c.sealer.Open(p.SharedSecret); err != nil {
			return domain.Participant{}, fmt.Errorf("service: open shared secret for %s: %w", id, err)
		}
	}
	if p.APIKey != "" {
		if p.APIKey, err = c.sealer.Open(p.APIKey); err != nil {
			return domain.Participant{}, fmt.Errorf("service: open api key for %s: %w", id, err)
		}
	}
	return p, nil
}

// RecordResult delegates to the inner store.
func (c *CredentialStore) RecordResult(ctx context.Context, id string, newRating int, won bool) error {
	return c.inner.RecordResult(ctx, id, newRating, won)
}

// UpdateRating delegates to the inner store.
func (c *CredentialStore) UpdateRating(ctx context.Context, id string, newRating int) error {
	return c.inner.UpdateRating(ctx, id, newRating)
}

// Compile-time interface check.
var _ domain.ParticipantStore = (*CredentialStore)(nil)
