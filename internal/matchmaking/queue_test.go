package matchmaking

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/arenalabs/debatearena/internal/domain"
)

func testMatchmaker(t *testing.T, cfg Config) (*Matchmaker, *time.Time) {
	t.Helper()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	m := New(NewMemoryQueueStore(), nil, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	m.now = func() time.Time { return now }
	return m, &now
}

func bot(id string, rating int) domain.Participant {
	return domain.Participant{ID: id, OwnerID: "owner-" + id, SkillRating: rating, Active: true}
}

func noSession(ctx context.Context, a, b domain.QueueEntry) (string, error) {
	return "debate-" + a.ParticipantID + "-" + b.ParticipantID, nil
}

func TestJoinReplacesStaleEntry(t *testing.T) {
	m, _ := testMatchmaker(t, Config{})
	ctx := context.Background()

	first, err := m.Join(ctx, bot("p1", 1500), "o1", 100, "standard-3")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	second, err := m.Join(ctx, bot("p1", 1500), "o1", 200, "standard-3")
	if err != nil {
		t.Fatalf("Join again: %v", err)
	}
	if first.ID == second.ID {
		t.Fatal("second join did not replace the entry")
	}

	stats, _ := m.Stats(ctx)
	if stats.Size != 1 {
		t.Fatalf("queue size = %d, want 1", stats.Size)
	}
	entry, err := m.store.Get(ctx, "p1")
	if err != nil || entry.Stake != 200 {
		t.Fatalf("surviving entry = %+v, %v; want stake 200", entry, err)
	}
}

func TestWindowExpansionIsMonotoneAndBounded(t *testing.T) {
	m, _ := testMatchmaker(t, Config{MinWindow: 50, MaxWindow: 200, WindowGrowth: 25, GrowthInterval: 10 * time.Second})

	prev := 0
	for waited := time.Duration(0); waited <= 2*time.Minute; waited += time.Second {
		w := m.WindowFor(waited)
		if w < prev {
			t.Fatalf("window shrank from %d to %d at wait %v", prev, w, waited)
		}
		if w > 200 {
			t.Fatalf("window %d exceeds cap at wait %v", w, waited)
		}
		prev = w
	}
	if m.WindowFor(0) != 50 {
		t.Fatalf("initial window = %d, want 50", m.WindowFor(0))
	}
	if m.WindowFor(time.Hour) != 200 {
		t.Fatalf("saturated window = %d, want 200", m.WindowFor(time.Hour))
	}
}

func TestRunCycleMatchesCloseRatingsFirstCycle(t *testing.T) {
	// Ratings 1500 and 1520, stakes 100 and 105, same preset, queued
	// together; the 20-point gap fits the initial window.
	m, _ := testMatchmaker(t, Config{MinWindow: 50})
	ctx := context.Background()

	if _, err := m.Join(ctx, bot("p1", 1500), "o1", 100, "standard-3"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Join(ctx, bot("p2", 1520), "o2", 105, "standard-3"); err != nil {
		t.Fatal(err)
	}

	results, err := m.RunCycle(ctx, noSession)
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d matches, want 1", len(results))
	}
	if results[0].RatingDiff != 20 {
		t.Fatalf("rating diff = %d, want 20", results[0].RatingDiff)
	}

	stats, _ := m.Stats(ctx)
	if stats.Size != 0 {
		t.Fatalf("queue size after match = %d, want 0", stats.Size)
	}
}

func TestRunCyclePicksBestCandidateNotFirst(t *testing.T) {
	m, _ := testMatchmaker(t, Config{MinWindow: 100})
	ctx := context.Background()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	// p1 is oldest; p2 is a worse match (80 apart) than p3 (10 apart).
	for i, b := range []domain.Participant{bot("p1", 1500), bot("p2", 1580), bot("p3", 1510)} {
		m.now = func() time.Time { return now.Add(time.Duration(i) * time.Second) }
		if _, err := m.Join(ctx, b, b.OwnerID, 100, "standard-3"); err != nil {
			t.Fatal(err)
		}
	}
	m.now = func() time.Time { return now.Add(time.Minute) }

	results, err := m.RunCycle(ctx, noSession)
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d matches, want 1", len(results))
	}
	pair := map[string]bool{
		results[0].EntryA.ParticipantID: true,
		results[0].EntryB.ParticipantID: true,
	}
	if !pair["p1"] || !pair["p3"] {
		t.Fatalf("matched %v, want p1+p3 (best score, not first candidate)", pair)
	}
}

func TestRunCycleRespectsCompatibilityBounds(t *testing.T) {
	m, _ := testMatchmaker(t, Config{MinWindow: 50})
	ctx := context.Background()

	cases := []struct {
		name string
		a, b domain.Participant
		sa   int64
		sb   int64
		pa   string
		pb   string
	}{
		{"rating gap beyond both windows", bot("a1", 1500), bot("b1", 1600), 100, 100, "std", "std"},
		{"stake spread beyond 20 percent", bot("a2", 1500), bot("b2", 1510), 100, 130, "std", "std"},
		{"different presets", bot("a3", 1500), bot("b3", 1510), 100, 100, "std", "blitz"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m.store = NewMemoryQueueStore()
			if _, err := m.Join(ctx, tc.a, tc.a.OwnerID, tc.sa, tc.pa); err != nil {
				t.Fatal(err)
			}
			if _, err := m.Join(ctx, tc.b, tc.b.OwnerID, tc.sb, tc.pb); err != nil {
				t.Fatal(err)
			}

			results, err := m.RunCycle(ctx, noSession)
			if err != nil {
				t.Fatalf("RunCycle: %v", err)
			}
			if len(results) != 0 {
				t.Fatalf("incompatible pair matched: %+v", results)
			}
		})
	}
}

func TestRunCycleStakeSpreadAtBoundaryMatches(t *testing.T) {
	m, _ := testMatchmaker(t, Config{MinWindow: 50})
	ctx := context.Background()

	// 120 vs 100: difference is exactly 20% of the larger stake.
	if _, err := m.Join(ctx, bot("p1", 1500), "o1", 120, "std"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Join(ctx, bot("p2", 1505), "o2", 100, "std"); err != nil {
		t.Fatal(err)
	}

	results, err := m.RunCycle(ctx, noSession)
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("boundary stake spread did not match: %+v", results)
	}
}

func TestRunCycleCallbackFailureLeavesEntriesQueued(t *testing.T) {
	m, _ := testMatchmaker(t, Config{MinWindow: 50})
	ctx := context.Background()

	if _, err := m.Join(ctx, bot("p1", 1500), "o1", 100, "std"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Join(ctx, bot("p2", 1510), "o2", 100, "std"); err != nil {
		t.Fatal(err)
	}

	boom := errors.New("persistence down")
	results, err := m.RunCycle(ctx, func(ctx context.Context, a, b domain.QueueEntry) (string, error) {
		return "", boom
	})
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("failed callback still produced results: %+v", results)
	}

	for _, id := range []string{"p1", "p2"} {
		queued, err := m.IsQueued(ctx, id)
		if err != nil || !queued {
			t.Fatalf("IsQueued(%s) = %v, %v; want true", id, queued, err)
		}
	}

	// Next cycle with a working callback pairs them.
	results, err = m.RunCycle(ctx, noSession)
	if err != nil || len(results) != 1 {
		t.Fatalf("retry cycle = %v, %v; want one match", results, err)
	}
}

func TestRunCycleNoParticipantMatchedTwice(t *testing.T) {
	m, _ := testMatchmaker(t, Config{MinWindow: 500})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("p%d", i)
		if _, err := m.Join(ctx, bot(id, 1500+i), "o-"+id, 100, "std"); err != nil {
			t.Fatal(err)
		}
	}

	results, err := m.RunCycle(ctx, noSession)
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d matches from 5 entries, want 2", len(results))
	}

	seen := make(map[string]bool)
	for _, r := range results {
		for _, id := range []string{r.EntryA.ParticipantID, r.EntryB.ParticipantID} {
			if seen[id] {
				t.Fatalf("participant %s matched twice in one cycle", id)
			}
			seen[id] = true
		}
	}

	stats, _ := m.Stats(ctx)
	if stats.Size != 1 {
		t.Fatalf("leftover queue size = %d, want 1", stats.Size)
	}
}

func TestRunCycleExpiresStaleEntries(t *testing.T) {
	m, now := testMatchmaker(t, Config{MinWindow: 50, EntryTTL: time.Minute})
	ctx := context.Background()

	if _, err := m.Join(ctx, bot("p1", 1500), "o1", 100, "std"); err != nil {
		t.Fatal(err)
	}

	*now = now.Add(2 * time.Minute)
	if _, err := m.RunCycle(ctx, noSession); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}

	queued, err := m.IsQueued(ctx, "p1")
	if err != nil || queued {
		t.Fatalf("expired entry still queued: %v, %v", queued, err)
	}
}

func TestLeaveAndIsQueued(t *testing.T) {
	m, _ := testMatchmaker(t, Config{})
	ctx := context.Background()

	if ok, _ := m.Leave(ctx, "ghost"); ok {
		t.Fatal("Leave reported true for unknown participant")
	}

	if _, err := m.Join(ctx, bot("p1", 1500), "o1", 100, "std"); err != nil {
		t.Fatal(err)
	}
	if ok, _ := m.IsQueued(ctx, "p1"); !ok {
		t.Fatal("IsQueued false after Join")
	}
	if ok, _ := m.Leave(ctx, "p1"); !ok {
		t.Fatal("Leave false for queued participant")
	}
	if ok, _ := m.IsQueued(ctx, "p1"); ok {
		t.Fatal("IsQueued true after Leave")
	}
}

func TestJoinRejectsInactiveBot(t *testing.T) {
	m, _ := testMatchmaker(t, Config{})
	p := bot("p1", 1500)
	p.Active = false
	if _, err := m.Join(context.Background(), p, "o1", 100, "std"); !errors.Is(err, domain.ErrInactiveBot) {
		t.Fatalf("err = %v, want ErrInactiveBot", err)
	}
}
