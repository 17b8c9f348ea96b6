// Package client is the Go consumer of the gateway's HTTP API. Its
// streaming path demonstrates the intended consumption model: the frame
// parser yields events lazily and the caller's handlers run in exact
// arrival order.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/lennylodge/gateway/core/extract"
	"github.com/lennylodge/gateway/core/stream"
	"github.com/lennylodge/gateway/internal/utils"
)

// ChatRequest is the conversational request body.
type ChatRequest struct {
	Message        string        `json:"message"`
	History        []HistoryItem `json:"history,omitempty"`
	ResearchMode   bool          `json:"researchMode,omitempty"`
	AllowedDomains []string      `json:"allowedDomains,omitempty"`
}

// HistoryItem is one prior conversation turn.
type HistoryItem struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatResponse is the buffered conversational response.
type ChatResponse struct {
	OK      bool             `json:"ok"`
	Text    string           `json:"text"`
	Sources []extract.Source `json:"sources"`
}

// Handlers receives stream events as they arrive. Nil handlers are skipped.
// OnDone is invoked exactly once per stream, whatever way the stream ends.
type Handlers struct {
	OnDelta   func(delta string)
	OnSources func(sources []extract.Source)
	OnDone    func()
}

// Client talks to a gateway instance.
type Client struct {
	baseURL string
	client  *http.Client
}

// New creates a Client for the gateway at baseURL.
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{},
	}
}

// WithHTTPClient sets a custom HTTP client.
func (c *Client) WithHTTPClient(client *http.Client) *Client {
	c.client = client
	return c
}

// Chat sends a conversational request in buffered mode and returns the
// single JSON response.
func (c *Client) Chat(ctx context.Context, request ChatRequest) (*ChatResponse, error) {
	status, body, err := utils.PostJSON(ctx, c.client, c.baseURL+"/api/ai/chat", "", request)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("chat request failed (%d): %s", status, utils.TruncateString(string(body), 500))
	}

	var response ChatResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("error parsing chat response: %w", err)
	}
	return &response, nil
}

// StreamChat sends a conversational request in streaming mode and dispatches
// parsed events to the handlers until the stream completes. Cancelling ctx
// stops consumption and releases the connection.
func (c *Client) StreamChat(ctx context.Context, request ChatRequest, handlers Handlers) error {
	jsonBody, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("error marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/ai/chat", bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("error sending stream request: %w", err)
	}
	defer utils.CloseWithLog(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		return fmt.Errorf("stream request failed (%d): %s", resp.StatusCode, utils.TruncateString(string(body), 500))
	}

	// A mid-stream error is remembered but does not break the loop: the
	// parser still delivers its final completion event, so OnDone fires
	// exactly once no matter how the stream ended.
	var streamFailure error
	for event, streamErr := range stream.Events(resp.Body) {
		if streamErr != nil {
			streamFailure = streamErr
			continue
		}

		switch event.Kind {
		case stream.KindDelta:
			if handlers.OnDelta != nil {
				handlers.OnDelta(event.Delta)
			}
		case stream.KindSources:
			if handlers.OnSources != nil {
				handlers.OnSources(event.Sources)
			}
		case stream.KindDone:
			if handlers.OnDone != nil {
				handlers.OnDone()
			}
		case stream.KindIgnored:
			// Frames carrying nothing of interest.
		}
	}

	if streamFailure != nil {
		return fmt.Errorf("stream read error: %w", streamFailure)
	}
	return nil
}
