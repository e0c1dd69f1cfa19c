package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/arenalabs/debatearena/internal/domain"
	"github.com/arenalabs/debatearena/internal/server/handler"
	"github.com/arenalabs/debatearena/internal/server/middleware"
	"github.com/arenalabs/debatearena/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled

	// RequestLimit caps requests per client IP per RequestWindow. Zero
	// disables the limiter.
	RequestLimit  int
	RequestWindow time.Duration
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health       *handler.HealthHandler
	Queue        *handler.QueueHandler
	Debates      *handler.DebateHandler
	Wagers       *handler.WagerHandler
	Votes        *handler.VoteHandler
	Participants *handler.ParticipantHandler
}

// Server is the HTTP + WebSocket API for the debate arena.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux.
// It wires up middleware (logging, CORS, auth, optional rate limiting) and
// attaches the WebSocket hub. limiter may be nil when RequestLimit is zero.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// --- Register routes ---

	// Health check (no auth required).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Matchmaking queue.
	mux.HandleFunc("POST /api/queue", handlers.Queue.Join)
	mux.HandleFunc("DELETE /api/queue/{participantId}", handlers.Queue.Leave)
	mux.HandleFunc("GET /api/queue/stats", handlers.Queue.Stats)

	// Debate sessions.
	mux.HandleFunc("GET /api/debates", handlers.Debates.ListDebates)
	mux.HandleFunc("GET /api/debates/{id}", handlers.Debates.GetDebate)

	// Wagers and spectator votes.
	mux.HandleFunc("POST /api/debates/{id}/wagers", handlers.Wagers.PlaceWager)
	mux.HandleFunc("GET /api/debates/{id}/wagers", handlers.Wagers.ListWagers)
	mux.HandleFunc("POST /api/debates/{id}/votes", handlers.Votes.SubmitVote)

	// Participant registration.
	mux.HandleFunc("POST /api/participants", handlers.Participants.Register)
	mux.HandleFunc("GET /api/participants/{id}", handlers.Participants.GetParticipant)
	mux.HandleFunc("POST /api/participants/{id}/probe", handlers.Participants.Probe)

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain.
	var h http.Handler = mux

	// Apply per-IP rate limiting when configured.
	if limiter != nil && cfg.RequestLimit > 0 {
		window := cfg.RequestWindow
		if window <= 0 {
			window = time.Minute
		}
		h = middleware.RateLimit(limiter, cfg.RequestLimit, window)(h)
	}

	// Apply auth middleware (skips if APIKey is empty).
	h = middleware.Auth(cfg.APIKey)(h)

	// Apply request logging middleware.
	h = middleware.Logging(logger)(h)

	// Apply CORS middleware.
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
