// internal/dify/client.go
package dify

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"
)

// chatRequest is the wire payload for /v1/chat-messages. The API has no pure
// blocking mode for agent turns, so response_mode is always "streaming" and
// the stream is read to completion before aggregation.
type chatRequest struct {
	Query          string         `json:"query"`
	Inputs         map[string]any `json:"inputs"`
	ResponseMode   string         `json:"response_mode"`
	User           string         `json:"user"`
	ConversationID *string        `json:"conversation_id"`
}

// Client issues single chat turns against the upstream service.
type Client struct {
	url    string
	apiKey string
	http   *http.Client
}

// NewClient creates a client for the chat-messages endpoint at url.
func NewClient(url, apiKey string, timeout time.Duration) *Client {
	return &Client{
		url:    url,
		apiKey: apiKey,
		http:   &http.Client{Timeout: timeout},
	}
}

// Send submits one turn and returns the raw streamed payload. Failures are
// always *UpstreamError; callers can inspect Status to tell a rejected call
// from an unreachable upstream.
func (c *Client) Send(ctx context.Context, turn ChatTurn) (string, error) {
	payload := chatRequest{
		Query:        turn.Query,
		Inputs:       turn.Inputs,
		ResponseMode: "streaming",
		User:         turn.User,
	}
	if payload.Inputs == nil {
		payload.Inputs = map[string]any{}
	}
	if payload.User == "" {
		payload.User = AnonymousUser
	}
	if turn.ConversationID != "" {
		payload.ConversationID = &turn.ConversationID
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", &UpstreamError{Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", &UpstreamError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &UpstreamError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &UpstreamError{Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &UpstreamError{Status: resp.StatusCode, Body: string(raw)}
	}
	return string(raw), nil
}
