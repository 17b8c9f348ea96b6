// Package xai adapts the xAI chat-completions API to the uniform provider
// contract. xAI is the gateway's optional secondary provider: it is only
// called for second opinions and for fallback after defined primary
// failures, and it does not stream.
package xai

import (
	"context"
	"encoding/json"
	"net/http"
	"os"

	"github.com/lennylodge/gateway/internal/utils"
	"github.com/lennylodge/gateway/providers/ai"
)

const (
	defaultBaseURL          = "https://api.x.ai/v1"
	chatCompletionsEndpoint = "/chat/completions"

	// DefaultModel is used when a request does not name a model.
	DefaultModel = "grok-2"

	// requestTemperature keeps fallback answers close to deterministic.
	requestTemperature = 0.2
)

// chatRequest is the OpenAI-compatible chat-completions request body.
type chatRequest struct {
	Model       string       `json:"model"`
	Messages    []ai.Message `json:"messages"`
	Temperature float64      `json:"temperature"`
}

// chatResponse models the subset of the chat-completions response the
// gateway reads.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Provider implements ai.Provider for the xAI chat-completions API. It is
// stateless and safe for concurrent use.
type Provider struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

// New creates an xAI provider configured from the environment
// (XAI_API_KEY, XAI_API_BASE_URL).
func New() *Provider {
	baseURL := os.Getenv("XAI_API_BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Provider{
		apiKey:  os.Getenv("XAI_API_KEY"),
		baseURL: baseURL,
		model:   DefaultModel,
		client:  &http.Client{Timeout: utils.DefaultCallTimeout},
	}
}

// WithAPIKey sets the API key for the provider.
func (p *Provider) WithAPIKey(apiKey string) *Provider {
	p.apiKey = apiKey
	return p
}

// WithBaseURL overrides the default base URL for API requests.
func (p *Provider) WithBaseURL(baseURL string) *Provider {
	p.baseURL = baseURL
	return p
}

// WithModel sets the default model used when a request does not name one.
func (p *Provider) WithModel(model string) *Provider {
	p.model = model
	return p
}

// WithHTTPClient sets a custom HTTP client.
func (p *Provider) WithHTTPClient(client *http.Client) *Provider {
	p.client = client
	return p
}

// ID implements ai.Provider.
func (p *Provider) ID() ai.ProviderID { return ai.ProviderXAI }

// Configured implements ai.Provider.
func (p *Provider) Configured() bool { return p.apiKey != "" }

// Call issues one synchronous chat-completions request and normalizes the
// result. Web search flags in the request are ignored: xAI is only used for
// plain text answers. The returned error is reserved for transport failures.
func (p *Provider) Call(ctx context.Context, request ai.CallRequest) (*ai.CallResult, error) {
	model := request.Model
	if model == "" {
		model = p.model
	}

	payload := chatRequest{
		Model:       model,
		Messages:    request.Messages,
		Temperature: requestTemperature,
	}

	status, body, err := utils.PostJSON(ctx, p.client, p.baseURL+chatCompletionsEndpoint, p.apiKey, payload)
	if err != nil {
		return nil, err
	}

	result := &ai.CallResult{
		Succeeded: status >= 200 && status < 300,
		Status:    status,
		RawText:   string(body),
	}

	if json.Valid(body) {
		result.Raw = json.RawMessage(body)
	}
	var parsed chatResponse
	if json.Unmarshal(body, &parsed) == nil && len(parsed.Choices) > 0 {
		result.OutputText = parsed.Choices[0].Message.Content
	}

	return result, nil
}
