package service

import (
	"context"
	"errors"
	"testing"

	"github.com/arenalabs/debatearena/internal/domain"
)

type fakeWagers struct {
	domain.WagerStore
	created []domain.Wager
}

func (f *fakeWagers) Create(ctx context.Context, w domain.Wager) error {
	f.created = append(f.created, w)
	return nil
}

func (f *fakeWagers) ListByDebate(ctx context.Context, debateID string) ([]domain.Wager, error) {
	var out []domain.Wager
	for _, w := range f.created {
		if w.DebateID == debateID {
			out = append(out, w)
		}
	}
	return out, nil
}

func TestPlaceRecordsWagerWhilePending(t *testing.T) {
	debates := &stubDebates{sessions: map[string]domain.DebateSession{
		"d1": {ID: "d1", Status: domain.StatusPending},
	}}
	wagers := &fakeWagers{}
	svc := NewWagerService(debates, wagers, testLogger())

	w, err := svc.Place(context.Background(), "d1", "bob", 250, domain.SideCon)
	if err != nil {
		t.Fatalf("Place: %v", err)
	}
	if w.ID == "" {
		t.Error("wager has no generated id")
	}
	if w.Amount != 250 || w.Side != domain.SideCon || w.WagererID != "bob" {
		t.Errorf("wager = %+v", w)
	}
	if len(wagers.created) != 1 {
		t.Fatalf("stored %d wagers, want 1", len(wagers.created))
	}
}

func TestPlaceClosesBookOnceDebateStarts(t *testing.T) {
	statuses := []domain.DebateStatus{
		domain.StatusInProgress,
		domain.StatusCompleted,
		domain.StatusCancelled,
	}
	for _, status := range statuses {
		debates := &stubDebates{sessions: map[string]domain.DebateSession{
			"d1": {ID: "d1", Status: status},
		}}
		wagers := &fakeWagers{}
		svc := NewWagerService(debates, wagers, testLogger())

		_, err := svc.Place(context.Background(), "d1", "bob", 100, domain.SidePro)
		if !errors.Is(err, domain.ErrWageringClosed) {
			t.Errorf("Place on %s debate = %v, want ErrWageringClosed", status, err)
		}
		if len(wagers.created) != 0 {
			t.Errorf("wager stored on %s debate", status)
		}
	}
}

func TestPlaceRejectsInvalidInput(t *testing.T) {
	debates := &stubDebates{sessions: map[string]domain.DebateSession{
		"d1": {ID: "d1", Status: domain.StatusPending},
	}}
	svc := NewWagerService(debates, &fakeWagers{}, testLogger())
	ctx := context.Background()

	if _, err := svc.Place(ctx, "d1", "bob", 0, domain.SidePro); err == nil {
		t.Error("zero amount accepted")
	}
	if _, err := svc.Place(ctx, "d1", "bob", -5, domain.SidePro); err == nil {
		t.Error("negative amount accepted")
	}
	if _, err := svc.Place(ctx, "d1", "bob", 100, "both"); err == nil {
		t.Error("invalid side accepted")
	}
}

func TestPlaceUnknownDebate(t *testing.T) {
	svc := NewWagerService(&stubDebates{sessions: map[string]domain.DebateSession{}}, &fakeWagers{}, testLogger())

	_, err := svc.Place(context.Background(), "missing", "bob", 100, domain.SidePro)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Place on unknown debate = %v, want ErrNotFound", err)
	}
}
