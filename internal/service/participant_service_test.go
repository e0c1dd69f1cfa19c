package service

import (
	"context"
	"errors"
	"testing"

	"github.com/arenalabs/debatearena/internal/domain"
)

type fakeProber struct {
	err    error
	probed []string
}

func (f *fakeProber) Probe(ctx context.Context, p domain.Participant) error {
	f.probed = append(f.probed, p.Name)
	return f.err
}

func validRegistration() domain.Participant {
	return domain.Participant{
		Name:         "socrates",
		Endpoint:     "https://bots.example.com/socrates",
		Protocol:     domain.ProtocolSigned,
		SharedSecret: "hmac-secret",
	}
}

func TestRegisterAssignsDefaults(t *testing.T) {
	inner := &fakeParticipants{}
	prober := &fakeProber{}
	svc := NewParticipantService(inner, prober, testLogger())

	p, err := svc.Register(context.Background(), validRegistration())
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if p.ID == "" {
		t.Error("no id assigned")
	}
	if p.SkillRating != domain.StartingRating {
		t.Errorf("rating = %d, want %d", p.SkillRating, domain.StartingRating)
	}
	if !p.Active {
		t.Error("new participant not active")
	}
	if len(prober.probed) != 1 {
		t.Errorf("probed %d times, want 1", len(prober.probed))
	}
	if _, ok := inner.stored[p.ID]; !ok {
		t.Error("participant not stored")
	}
}

func TestRegisterRejectsUnreachableEndpoint(t *testing.T) {
	inner := &fakeParticipants{}
	prober := &fakeProber{err: errors.New("connection refused")}
	svc := NewParticipantService(inner, prober, testLogger())

	if _, err := svc.Register(context.Background(), validRegistration()); err == nil {
		t.Fatal("Register succeeded with failing probe")
	}
	if len(inner.stored) != 0 {
		t.Error("participant stored despite failed probe")
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := NewParticipantService(&fakeParticipants{}, &fakeProber{}, testLogger())
	ctx := context.Background()

	cases := map[string]func(*domain.Participant){
		"missing name":        func(p *domain.Participant) { p.Name = "" },
		"unknown protocol":    func(p *domain.Participant) { p.Protocol = "carrier-pigeon" },
		"signed needs secret": func(p *domain.Participant) { p.SharedSecret = "" },
		"bad endpoint":        func(p *domain.Participant) { p.Endpoint = "not-a-url" },
	}
	for name, mutate := range cases {
		p := validRegistration()
		mutate(&p)
		if _, err := svc.Register(ctx, p); err == nil {
			t.Errorf("%s: Register succeeded, want error", name)
		}
	}
}

func TestGetRedactsCredentials(t *testing.T) {
	inner := &fakeParticipants{stored: map[string]domain.Participant{
		"p1": {ID: "p1", Name: "hume", SharedSecret: "s", APIKey: "k"},
	}}
	svc := NewParticipantService(inner, &fakeProber{}, testLogger())

	p, err := svc.Get(context.Background(), "p1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if p.SharedSecret != "" || p.APIKey != "" {
		t.Errorf("credentials leaked: %+v", p)
	}
}
