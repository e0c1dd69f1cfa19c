package ws

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

	"github.com/gorilla/websocket"

	"github.com/arenalabs/debatearena/internal/cache/memory"
	"github.com/arenalabs/debatearena/internal/domain"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

// seededBus returns a bus whose durable stream for debateID already holds
// the given number of events, so a joining client triggers a replay.
func seededBus(t *testing.T, debateID string, events int) *memory.SignalBus {
	t.Helper()
	bus := memory.NewSignalBus()
	for i := 0; i < events; i++ {
		ev := domain.NewEvent(domain.EventBotMessage, debateID, map[string]int{"seq": i})
		raw, err := json.Marshal(ev)
		if err != nil {
			t.Fatal(err)
		}
		if err := bus.StreamAppend(context.Background(), domain.DebateStream(debateID), raw); err != nil {
			t.Fatal(err)
		}
	}
	return bus
}

func TestReplayToDisconnectedClientReturnsCleanly(t *testing.T) {
	bus := seededBus(t, "d1", 50)
	h := NewHub(bus, discard())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	c := &client{
		hub:      h,
		send:     make(chan []byte, 4),
		done:     make(chan struct{}),
		watching: make(map[string]bool),
	}
	h.register <- c
	h.unregister <- c
	select {
	case <-c.done:
	case <-time.After(time.Second):
		t.Fatal("hub never dropped the client")
	}

	// The connection is gone but its replay may still be running. It must
	// observe the shutdown signal and return instead of writing into a
	// torn-down client.
	c.startWatching(context.Background(), "d1")

	time.Sleep(20 * time.Millisecond)
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.watchers["d1"]) != 0 {
		t.Fatal("disconnected client registered as a watcher")
	}
}

func TestClientsDroppingMidReplayLeaveHubHealthy(t *testing.T) {
	bus := seededBus(t, "d1", replayLimit)
	h := NewHub(bus, discard())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(h.HandleWS))
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "?debate_id=d1"

	// Connect with an immediate replay pending and hang up right away,
	// racing the disconnect against the in-flight replay.
	for i := 0; i < 20; i++ {
		conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		if err != nil {
			t.Fatalf("dial %d: %v", i, err)
		}
		conn.Close()
	}

	// The hub must still serve a client that sticks around.
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err != nil {
		t.Fatalf("surviving client received no replay: %v", err)
	}
}
