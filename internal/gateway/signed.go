package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/arenalabs/debatearena/internal/crypto"
	"github.com/arenalabs/debatearena/internal/domain"
)

// maxResponseBody caps how much of a reply body is read, malformed or not.
const maxResponseBody = 1 << 20

// invokeSigned performs the signed synchronous HTTP protocol: the request is
// serialized to a fixed JSON shape and authenticated with an HMAC signature
// over timestamp + "." + body.
func (g *Gateway) invokeSigned(ctx context.Context, p domain.Participant, req domain.AgentRequest) (*domain.AgentResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, &Failure{Kind: FailSchema, Message: "marshal request", Cause: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &Failure{Kind: FailTransport, Message: "build request", Cause: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	auth := crypto.HMACAuth{Secret: p.SharedSecret}
	for k, v := range auth.Headers(string(body)) {
		httpReq.Header.Set(k, v)
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
			Message: fmt.Sprintf("agent replied %s", httpResp.Status),
			Status:  httpResp.StatusCode,
		}
	}

	var resp domain.AgentResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, &Failure{Kind: FailSchema, Message: "malformed response JSON", Cause: err}
	}

	return &resp, nil
}

// probeSigned sends a signed empty-context probe and expects any 2xx.
func (g *Gateway) probeSigned(ctx context.Context, p domain.Participant) error {
	body := []byte(`{"probe":true}`)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.Endpoint, bytes.NewReader(body))
	if err != nil {
		return &Failure{Kind: FailTransport, Message: "build probe request", Cause: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	auth := crypto.HMACAuth{Secret: p.SharedSecret}
	for k, v := range auth.Headers(string(body)) {
		httpReq.Header.Set(k, v)
	}

	httpResp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return classifyTransport(err)
	}
	defer httpResp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(httpResp.Body, maxResponseBody))

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return &Failure{
			Kind:    FailStatus,
			Message: fmt.Sprintf("probe replied %s", httpResp.Status),
			Status:  httpResp.StatusCode,
		}
	}
	return nil
}
