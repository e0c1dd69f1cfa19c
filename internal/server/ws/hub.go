// Package ws bridges the debate signal bus to WebSocket spectators. Each
// client watches one or more debates; the hub subscribes to a debate's push
// channel while at least one local client is watching it.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/arenalabs/debatearena/internal/domain"
)

const (
	// writeWait is the maximum time to wait for a write to complete.
	writeWait = 10 * time.Second

	// pongWait is the maximum time to wait for a pong from the client.
	pongWait = 60 * time.Second

	// pingPeriod sends pings at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize is the maximum size of an incoming message.
	maxMessageSize = 4096

	// sendBufferSize is the channel buffer for outgoing messages per client.
	sendBufferSize = 256

	// replayLimit caps how many stored events a late joiner receives.
	replayLimit = 500
)

// upgrader configures the WebSocket upgrade parameters.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins. In production, restrict this to known origins.
		return true
	},
}

// client represents a single WebSocket connection. The hub signals shutdown
// by closing done; send is never closed, so replay and broadcast writers can
// race a disconnect without panicking.
type client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	done     chan struct{}
	watching map[string]bool // debate ids this client watches
	mu       sync.RWMutex
}

// watchMsg is the JSON message a client sends to start or stop watching a
// debate: {"action":"watch","debate_id":"..."}.
type watchMsg struct {
	Action   string `json:"action"` // "watch" or "unwatch"
	DebateID string `json:"debate_id"`
}

// Hub manages connected spectators and routes debate events from the signal
// bus to the clients watching each debate.
type Hub struct {
	clients    map[*client]bool
	watchers   map[string]map[*client]bool // debate id -> watching clients
	subs       map[string]context.CancelFunc
	register   chan *client
	unregister chan *client
	watch      chan watchReq
	broadcast  chan broadcastMsg
	bus        domain.SignalBus
	logger     *slog.Logger
	mu         sync.RWMutex
}

// watchReq asks the hub to start or stop routing a debate's events to a
// client.
type watchReq struct {
	c        *client
	debateID string
	add      bool
}

// broadcastMsg carries an event along with the debate it belongs to.
type broadcastMsg struct {
	debateID string
	data     []byte
}

// NewHub creates a hub that bridges the signal bus to WebSocket spectators.
func NewHub(bus domain.SignalBus, logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*client]bool),
		watchers:   make(map[string]map[*client]bool),
		subs:       make(map[string]context.CancelFunc),
		register:   make(chan *client),
		unregister: make(chan *client),
		watch:      make(chan watchReq),
		broadcast:  make(chan broadcastMsg, 256),
		bus:        bus,
		logger:     logger,
	}
}

// Run starts the hub's main event loop. It should be called in a goroutine.
// All watcher bookkeeping happens here; the loop exits when the provided
// context is cancelled.
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				close(c.done)
				delete(h.clients, c)
			}
			for id, cancel := range h.subs {
				cancel()
				delete(h.subs, id)
			}
			h.mu.Unlock()
			return ctx.Err()

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()
			h.logger.Info("ws: client connected",
				slog.Int("total_clients", h.clientCount()),
			)

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.done)
			}
			var emptied []string
			for id, set := range h.watchers {
				if set[c] {
					delete(set, c)
					emptied = append(emptied, id)
				}
			}
			h.mu.Unlock()
			for _, id := range emptied {
				h.afterWatchChange(ctx, id)
			}
			h.logger.Info("ws: client disconnected",
				slog.Int("total_clients", h.clientCount()),
			)

		case req := <-h.watch:
			h.mu.Lock()
			set := h.watchers[req.debateID]
			if req.add {
				if !h.clients[req.c] {
					// Disconnected while its watch request was in flight.
					h.mu.Unlock()
					continue
				}
				if set == nil {
					set = make(map[*client]bool)
					h.watchers[req.debateID] = set
				}
				set[req.c] = true
			} else if set != nil {
				delete(set, req.c)
			}
			h.mu.Unlock()
			h.afterWatchChange(ctx, req.debateID)

		case msg := <-h.broadcast:
			h.mu.RLock()
			for c := range h.watchers[msg.debateID] {
				select {
				case c.send <- msg.data:
				case <-c.done:
				default:
					// Client's send buffer is full; drop the message.
					h.logger.Warn("ws: dropping event for slow client",
						slog.String("debate", msg.debateID),
					)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// afterWatchChange starts or stops the bus subscription for a debate based on
// its watcher count and notifies remaining watchers of the new count.
func (h *Hub) afterWatchChange(ctx context.Context, debateID string) {
	h.mu.Lock()
	count := len(h.watchers[debateID])
	_, subscribed := h.subs[debateID]
	switch {
	case count > 0 && !subscribed:
		subCtx, cancel := context.WithCancel(ctx)
		h.subs[debateID] = cancel
		go h.subscribeToDebate(subCtx, debateID)
	case count == 0 && subscribed:
		h.subs[debateID]()
		delete(h.subs, debateID)
		delete(h.watchers, debateID)
	}
	h.mu.Unlock()

	h.announceSpectators(debateID, count)
}

// announceSpectators sends a spectator_count event to everyone watching the
// debate. The count reflects this instance's local watchers.
func (h *Hub) announceSpectators(debateID string, count int) {
	ev := domain.NewEvent(domain.EventSpectatorCount, debateID, map[string]int{"count": count})
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	select {
	case h.broadcast <- broadcastMsg{debateID: debateID, data: data}:
	default:
	}
}

// subscribeToDebate subscribes to one debate's push channel and forwards
// received events to the hub's broadcast channel.
func (h *Hub) subscribeToDebate(ctx context.Context, debateID string) {
	msgCh, err := h.bus.Subscribe(ctx, domain.DebateChannel(debateID))
	if err != nil {
		h.logger.Error("ws: failed to subscribe to debate channel",
			slog.String("debate", debateID),
			slog.String("error", err.Error()),
		)
		return
	}

	h.logger.Info("ws: subscribed to debate", slog.String("debate", debateID))

	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-msgCh:
			if !ok {
				h.logger.Warn("ws: debate subscription closed",
					slog.String("debate", debateID),
				)
				return
			}
			h.broadcast <- broadcastMsg{debateID: debateID, data: data}
		}
	}
}

// HandleWS upgrades an HTTP request to a WebSocket connection and registers
// the client with the hub. A debate_id query parameter starts watching that
// debate immediately.
// GET /ws
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("ws: upgrade failed", slog.String("error", err.Error()))
		return
	}

	c := &client{
		hub:      h,
		conn:     conn,
		send:     make(chan []byte, sendBufferSize),
		done:     make(chan struct{}),
		watching: make(map[string]bool),
	}

	h.register <- c

	go c.writePump()
	go c.readPump()

	if id := r.URL.Query().Get("debate_id"); id != "" {
		c.startWatching(context.Background(), id)
	}
}

// clientCount returns the number of currently connected clients.
func (h *Hub) clientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// startWatching replays the debate's stored event history to the client and
// then registers it for live events. Replay happens before registration so
// the client sees history strictly before new events.
func (c *client) startWatching(ctx context.Context, debateID string) {
	c.mu.Lock()
	already := c.watching[debateID]
	c.watching[debateID] = true
	c.mu.Unlock()
	if already {
		return
	}

	history, err := c.hub.bus.StreamRead(ctx, domain.DebateStream(debateID), "", replayLimit)
	if err != nil {
		c.hub.logger.Warn("ws: event replay failed",
			slog.String("debate", debateID),
			slog.String("error", err.Error()),
		)
	}
	for _, msg := range history {
		select {
		case <-c.done:
			return
		case c.send <- msg.Payload:
		default:
			// Replay overflowed the client buffer; live events matter more.
		}
	}

	select {
	case c.hub.watch <- watchReq{c: c, debateID: debateID, add: true}:
	case <-c.done:
	}
}

// stopWatching unregisters the client from a debate's events.
func (c *client) stopWatching(debateID string) {
	c.mu.Lock()
	watching := c.watching[debateID]
	delete(c.watching, debateID)
	c.mu.Unlock()
	if !watching {
		return
	}
	select {
	case c.hub.watch <- watchReq{c: c, debateID: debateID, add: false}:
	case <-c.done:
	}
}

// readPump reads messages from the WebSocket connection. It handles watch
// management requests (JSON text frames) from the client.
func (c *client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("ws: unexpected close error",
					slog.String("error", err.Error()),
				)
			}
			return
		}

		var req watchMsg
		if err := json.Unmarshal(message, &req); err != nil || req.DebateID == "" {
			continue
		}
		switch req.Action {
		case "watch":
			c.startWatching(context.Background(), req.DebateID)
		case "unwatch":
			c.stopWatching(req.DebateID)
		}
	}
}

// writePump pumps events from the hub to the WebSocket connection as JSON
// text frames, with periodic ping frames for keepalive.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			// The hub dropped this client.
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
