package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/arenalabs/debatearena/internal/domain"
)

// chatRequest is the chat-completion-shaped payload accepted by relay
// participants.
type chatRequest struct {
	Model    string        `json:"model,omitempty"`
	User     string        `json:"user"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse is the subset of a chat completion reply the gateway reads.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// SessionKey derives the stable session identity for one side of a debate so
// the remote relay can keep multi-turn context.
func SessionKey(debateID string, side domain.Side) string {
	return debateID + ":" + string(side)
}

// invokeRelay addresses a gateway-style participant's chat-completion
// endpoint. The reply text is the first completion choice; no choice is a
// schema failure.
func (g *Gateway) invokeRelay(ctx context.Context, p domain.Participant, req domain.AgentRequest) (*domain.AgentResponse, error) {
	payload := chatRequest{
		Model:    p.Model,
		User:     SessionKey(req.DebateID, req.Side),
		Messages: relayMessages(req),
	}

	raw, err := g.postRelay(ctx, p, payload)
	if err != nil {
		return nil, err
	}

	var resp chatResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, &Failure{Kind: FailSchema, Message: "malformed completion JSON", Cause: err}
	}
	if len(resp.Choices) == 0 {
		return nil, &Failure{Kind: FailSchema, Message: "completion has no choices"}
	}

	return &domain.AgentResponse{Message: resp.Choices[0].Message.Content}, nil
}

// probeRelay sends a one-word completion request and only checks that a
// choice comes back.
func (g *Gateway) probeRelay(ctx context.Context, p domain.Participant) error {
	payload := chatRequest{
		Model: p.Model,
		User:  "probe",
		Messages: []chatMessage{
			{Role: "user", Content: "ping"},
		},
	}

	raw, err := g.postRelay(ctx, p, payload)
	if err != nil {
		return err
	}

	var resp chatResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return &Failure{Kind: FailSchema, Message: "malformed completion JSON", Cause: err}
	}
	if len(resp.Choices) == 0 {
		return &Failure{Kind: FailSchema, Message: "completion has no choices"}
	}
	return nil
}

func (g *Gateway) postRelay(ctx context.Context, p domain.Participant, payload chatRequest) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &Failure{Kind: FailSchema, Message: "marshal request", Cause: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &Failure{Kind: FailTransport, Message: "build request", Cause: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Session-Key", payload.User)
	if p.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.APIKey)
	}

	httpResp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, classifyTransport(err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBody))
	if err != nil {
		return nil, classifyTransport(err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, &Failure{
			Kind:    FailStatus,
			Message: fmt.Sprintf("relay replied %s", httpResp.Status),
			Status:  httpResp.StatusCode,
		}
	}
	return raw, nil
}

// relayMessages renders the agent request as a chat transcript: a system
// brief, the prior exchange, then the speaking instruction.
func relayMessages(req domain.AgentRequest) []chatMessage {
	msgs := []chatMessage{{
		Role: "system",
		Content: fmt.Sprintf(
			"You are debating the %s side of: %s. Round type: %s. Reply with your %s argument only, %d-%d words.",
			req.Side, req.Topic, req.RoundType, req.RoundType, req.WordLimitMin, req.WordLimitMax,
		),
	}}

	for _, turn := range req.History {
		role := "user"
		if turn.Side == req.Side {
			role = "assistant"
		}
		msgs = append(msgs, chatMessage{Role: role, Content: turn.Content})
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Deliver your %s statement now.", req.RoundType)
	if req.OpponentLastMessage != "" {
		fmt.Fprintf(&b, " Your opponent just argued: %s", req.OpponentLastMessage)
	}
	msgs = append(msgs, chatMessage{Role: "user", Content: b.String()})

	return msgs
}
