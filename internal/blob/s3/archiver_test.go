package s3blob

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/arenalabs/debatearena/internal/domain"
)

type memWriter struct {
	objects map[string][]byte
	types   map[string]string
}

func newMemWriter() *memWriter {
	return &memWriter{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memWriter) Put(_ context.Context, path string, data io.Reader, contentType string) error {
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	m.objects[path] = b
	m.types[path] = contentType
	return nil
}

func (m *memWriter) PutMultipart(_ context.Context, path string, data io.Reader, _ int64) error {
	return m.Put(context.Background(), path, data, "application/octet-stream")
}

type stubDebates struct {
	domain.DebateStore
	completed []domain.DebateSession
}

func (s *stubDebates) ListCompletedBetween(context.Context, time.Time, time.Time) ([]domain.DebateSession, error) {
	return s.completed, nil
}

type stubMessages struct {
	byDebate map[string][]domain.Message
}

func (s *stubMessages) Create(context.Context, domain.Message) error { return nil }

func (s *stubMessages) ListByDebate(_ context.Context, id string) ([]domain.Message, error) {
	return s.byDebate[id], nil
}

func TestArchiveWindowWritesJSONLPerDebate(t *testing.T) {
	completed := time.Date(2026, 8, 25, 14, 0, 0, 0, time.UTC)
	winner := domain.SidePro
	debate := domain.DebateSession{
		ID:          "d1",
		Topic:       "Remote work beats office work",
		PresetID:    "standard-3",
		ProID:       "p1",
		ConID:       "p2",
		Status:      domain.StatusCompleted,
		Winner:      &winner,
		Stake:       100,
		RoundResults: []domain.RoundResult{
			{Round: 0, ProVotes: 3, ConVotes: 1, Winner: domain.SidePro},
		},
		CompletedAt: &completed,
	}

	msgs := &stubMessages{byDebate: map[string][]domain.Message{
		"d1": {
			{Round: 0, Side: domain.SidePro, ParticipantID: "p1", Content: "opening pro"},
			{Round: 0, Side: domain.SideCon, ParticipantID: "p2", Content: "opening con"},
		},
	}}

	w := newMemWriter()
	a := NewTranscriptArchiver(w, &stubDebates{completed: []domain.DebateSession{debate}}, msgs,
		slog.New(slog.NewTextHandler(io.Discard, nil)))

	n, err := a.ArchiveWindow(context.Background(), completed.Add(-time.Hour), completed.Add(time.Hour))
	if err != nil {
		t.Fatalf("ArchiveWindow: %v", err)
	}
	if n != 1 {
		t.Fatalf("archived = %d, want 1", n)
	}

	const wantPath = "transcripts/2026-08-25/d1.jsonl"
	data, ok := w.objects[wantPath]
	if !ok {
		t.Fatalf("object %s not written; got %v", wantPath, keys(w.objects))
	}
	if ct := w.types[wantPath]; ct != "application/x-ndjson" {
		t.Fatalf("content type = %q", ct)
	}

	sc := bufio.NewScanner(bytes.NewReader(data))
	if !sc.Scan() {
		t.Fatal("missing header line")
	}
	var hdr transcriptHeader
	if err := json.Unmarshal(sc.Bytes(), &hdr); err != nil {
		t.Fatalf("decode header: %v", err)
	}
	if hdr.DebateID != "d1" || hdr.Winner == nil || *hdr.Winner != "pro" || hdr.Rounds != 1 {
		t.Fatalf("header = %+v", hdr)
	}

	var lines int
	for sc.Scan() {
		var line transcriptLine
		if err := json.Unmarshal(sc.Bytes(), &line); err != nil {
			t.Fatalf("decode line %d: %v", lines, err)
		}
		lines++
	}
	if lines != 2 {
		t.Fatalf("message lines = %d, want 2", lines)
	}
}

func keys(m map[string][]byte) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
