package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/arenalabs/debatearena/internal/domain"
)

// multipartThreshold is the transcript size above which the archiver switches
// from a single PutObject to a managed multipart upload.
const multipartThreshold = 8 * 1024 * 1024

// TranscriptArchiver serialises completed debates to JSONL and uploads them
// to blob storage. One object is written per debate; re-archiving a window
// overwrites the same keys, so the operation is idempotent.
//
// Deletion of archived rows from the primary store is intentionally NOT
// performed here.
type TranscriptArchiver struct {
	writer   domain.BlobWriter
	debates  domain.DebateStore
	messages domain.MessageStore
	logger   *slog.Logger
}

// NewTranscriptArchiver creates a TranscriptArchiver.
func NewTranscriptArchiver(
	writer domain.BlobWriter,
	debates domain.DebateStore,
	messages domain.MessageStore,
	logger *slog.Logger,
) *TranscriptArchiver {
	return &TranscriptArchiver{
		writer:   writer,
		debates:  debates,
		messages: messages,
		logger:   logger.With(slog.String("component", "archiver")),
	}
}

// transcriptHeader is the first JSONL line of an archived transcript.
type transcriptHeader struct {
	DebateID    string     `json:"debate_id"`
	Topic       string     `json:"topic"`
	PresetID    string     `json:"preset_id"`
	ProID       string     `json:"pro_id"`
	ConID       string     `json:"con_id"`
	Winner      *string    `json:"winner,omitempty"`
	Stake       int64      `json:"stake"`
	Rounds      int        `json:"rounds"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// transcriptLine is one message line of an archived transcript.
type transcriptLine struct {
	Round         int       `json:"round"`
	Side          string    `json:"side"`
	ParticipantID string    `json:"participant_id"`
	Content       string    `json:"content"`
	Fallback      bool      `json:"fallback,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// ArchiveWindow uploads a transcript for every debate completed in [from, to).
// It returns the number of debates archived. A failed upload aborts the run
// so a retry revisits the same window.
func (a *TranscriptArchiver) ArchiveWindow(ctx context.Context, from, to time.Time) (int, error) {
	debates, err := a.debates.ListCompletedBetween(ctx, from, to)
	if err != nil {
		return 0, fmt.Errorf("s3blob: list completed debates: %w", err)
	}

	archived := 0
	for _, d := range debates {
		if err := a.archiveOne(ctx, d); err != nil {
			return archived, err
		}
		archived++
	}

	if archived > 0 {
		a.logger.Info("transcripts archived",
			slog.Int("count", archived),
			slog.Time("from", from),
			slog.Time("to", to),
		)
	}
	return archived, nil
}

// archiveOne serialises a single debate and uploads it.
func (a *TranscriptArchiver) archiveOne(ctx context.Context, d domain.DebateSession) error {
	msgs, err := a.messages.ListByDebate(ctx, d.ID)
	if err != nil {
		return fmt.Errorf("s3blob: load transcript %s: %w", d.ID, err)
	}

	buf, err := marshalTranscript(d, msgs)
	if err != nil {
		return fmt.Errorf("s3blob: encode transcript %s: %w", d.ID, err)
	}

	path := transcriptPath(d)
	if len(buf) > multipartThreshold {
		err = a.writer.PutMultipart(ctx, path, bytes.NewReader(buf), 0)
	} else {
		err = a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson")
	}
	if err != nil {
		return fmt.Errorf("s3blob: upload transcript %s: %w", d.ID, err)
	}
	return nil
}

// transcriptPath builds the object key for a debate transcript, partitioned
// by completion date:
//
//	transcripts/2026-08-26/<debate-id>.jsonl
func transcriptPath(d domain.DebateSession) string {
	day := d.CreatedAt
	if d.CompletedAt != nil {
		day = *d.CompletedAt
	}
	return fmt.Sprintf("transcripts/%s/%s.jsonl", day.Format("2006-01-02"), d.ID)
}

// marshalTranscript encodes a debate as newline-delimited JSON: one header
// line followed by one line per message in round order.
func marshalTranscript(d domain.DebateSession, msgs []domain.Message) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	hdr := transcriptHeader{
		DebateID:    d.ID,
		Topic:       d.Topic,
		PresetID:    d.PresetID,
		ProID:       d.ProID,
		ConID:       d.ConID,
		Stake:       d.Stake,
		Rounds:      len(d.RoundResults),
		CompletedAt: d.CompletedAt,
	}
	if d.Winner != nil {
		w := string(*d.Winner)
		hdr.Winner = &w
	}
	if err := enc.Encode(hdr); err != nil {
		return nil, fmt.Errorf("encode header: %w", err)
	}

	for i, m := range msgs {
		line := transcriptLine{
			Round:         m.Round,
			Side:          string(m.Side),
			ParticipantID: m.ParticipantID,
			Content:       m.Content,
			Fallback:      m.Fallback,
			CreatedAt:     m.CreatedAt,
		}
		if err := enc.Encode(line); err != nil {
			return nil, fmt.Errorf("encode message %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
