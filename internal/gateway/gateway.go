// Package gateway calls externally hosted debate agents over one of two
// protocols and normalizes replies under a shared timeout and validation
// policy.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/arenalabs/debatearena/internal/domain"
)

const (
	// maxMessageChars is the hard ceiling on agent reply length.
	maxMessageChars = 10000
)

// Result is the normalized outcome of one invocation.
type Result struct {
	Response *domain.AgentResponse
	Err      error
	Latency  time.Duration
}

// Success reports whether the invocation produced a valid response.
func (r Result) Success() bool { return r.Err == nil }

// Invoker is the capability the debate engine needs: one call, one result.
type Invoker interface {
	Invoke(ctx context.Context, p domain.Participant, req domain.AgentRequest, timeout time.Duration) Result
}

// Prober tests endpoint connectivity at registration time, without a full
// debate context and with its own shorter timeout.
type Prober interface {
	Probe(ctx context.Context, p domain.Participant) error
}

// Config holds gateway timing parameters.
type Config struct {
	InvokeTimeout time.Duration // per-call budget when the caller passes none
	ProbeTimeout  time.Duration
}

// Gateway implements Invoker and Prober for both participant protocols.
type Gateway struct {
	httpClient *http.Client
	cfg        Config
	logger     *slog.Logger
}

// New creates a Gateway. The underlying http.Client carries no timeout of
// its own; every call is bounded by a per-request context deadline.
func New(cfg Config, logger *slog.Logger) *Gateway {
	if cfg.InvokeTimeout <= 0 {
		cfg.InvokeTimeout = 30 * time.Second
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = 5 * time.Second
	}
	return &Gateway{
		httpClient: &http.Client{},
		cfg:        cfg,
		logger:     logger.With(slog.String("component", "gateway")),
	}
}

// Invoke calls the participant over its configured protocol, bounded by
// timeout (or the configured default when timeout <= 0). Failures are typed;
// see FailureKind.
func (g *Gateway) Invoke(ctx context.Context, p domain.Participant, req domain.AgentRequest, timeout time.Duration) Result {
	if timeout <= 0 {
		timeout = g.cfg.InvokeTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	var resp *domain.AgentResponse
	var err error

	switch p.Protocol {
	case domain.ProtocolRelay:
		resp, err = g.invokeRelay(callCtx, p, req)
	default:
		resp, err = g.invokeSigned(callCtx, p, req)
	}
	latency := time.Since(start)

	if err == nil {
		err = validateResponse(resp, req.WordLimitMin, req.WordLimitMax)
	}
	if err != nil {
		g.logger.Warn("agent invocation failed",
			slog.String("participant", p.ID),
			slog.String("protocol", string(p.Protocol)),
			slog.Duration("latency", latency),
			slog.String("error", err.Error()),
		)
		return Result{Err: err, Latency: latency}
	}

	return Result{Response: resp, Latency: latency}
}

// Probe checks the participant's endpoint without debate context. Used when
// a bot is registered.
func (g *Gateway) Probe(ctx context.Context, p domain.Participant) error {
	probeCtx, cancel := context.WithTimeout(ctx, g.cfg.ProbeTimeout)
	defer cancel()

	switch p.Protocol {
	case domain.ProtocolRelay:
		return g.probeRelay(probeCtx, p)
	default:
		return g.probeSigned(probeCtx, p)
	}
}

// validateResponse enforces the shared response-size and word-count policy.
func validateResponse(resp *domain.AgentResponse, wordMin, wordMax int) error {
	if resp == nil {
		return &Failure{Kind: FailSchema, Message: "empty response"}
	}
	msg := strings.TrimSpace(resp.Message)
	if msg == "" {
		return &Failure{Kind: FailSchema, Message: "empty message"}
	}
	if utf8.RuneCountInString(msg) > maxMessageChars {
		return &Failure{Kind: FailSchema, Message: fmt.Sprintf("message exceeds %d chars", maxMessageChars)}
	}
	if resp.Confidence != nil && (*resp.Confidence < 0 || *resp.Confidence > 1) {
		return &Failure{Kind: FailSchema, Message: "confidence outside [0,1]"}
	}

	words := len(strings.Fields(msg))
	if wordMax > 0 && words > wordMax {
		return &Failure{Kind: FailSchema, Message: fmt.Sprintf("%d words over limit %d", words, wordMax)}
	}
	if wordMin > 0 && words < wordMin {
		return &Failure{Kind: FailSchema, Message: fmt.Sprintf("%d words under minimum %d", words, wordMin)}
	}

	resp.Message = msg
	return nil
}

// classifyTransport maps low-level HTTP client errors to typed failures.
func classifyTransport(err error) *Failure {
	if errors.Is(err, context.DeadlineExceeded) {
		return timeoutFailure(err)
	}
	return &Failure{Kind: FailTransport, Message: "endpoint unreachable", Cause: err}
}
