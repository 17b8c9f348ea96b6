// Package openai adapts the OpenAI Responses API (`/v1/responses`) to the
// uniform provider contract. It is the gateway's primary provider and the
// only one that supports streaming and the web search tool.
package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"os"

	"github.com/lennylodge/gateway/core/extract"
	"github.com/lennylodge/gateway/internal/utils"
	"github.com/lennylodge/gateway/providers/ai"
)

const (
	defaultBaseURL    = "https://api.openai.com/v1"
	responsesEndpoint = "/responses"

	// DefaultModel is used when a request does not name a model.
	DefaultModel = "gpt-4o-mini"
)

// Provider implements ai.Provider and ai.StreamProvider for the OpenAI
// Responses API. It is stateless and safe for concurrent use.
type Provider struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

// New creates an OpenAI provider configured from the environment
// (OPENAI_API_KEY, OPENAI_API_BASE_URL).
func New() *Provider {
	baseURL := os.Getenv("OPENAI_API_BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Provider{
		apiKey:  os.Getenv("OPENAI_API_KEY"),
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
func (p *Provider) ID() ai.ProviderID { return ai.ProviderOpenAI }

// Configured implements ai.Provider.
func (p *Provider) Configured() bool { return p.apiKey != "" }

// Call issues one synchronous Responses API request and normalizes the
// result. A non-2xx upstream response comes back as a CallResult with
// Succeeded false; the returned error is reserved for transport failures.
func (p *Provider) Call(ctx context.Context, request ai.CallRequest) (*ai.CallResult, error) {
	payload := p.buildRequest(request, false)

	status, body, err := utils.PostJSON(ctx, p.client, p.baseURL+responsesEndpoint, p.apiKey, payload)
	if err != nil {
		return nil, err
	}

	result := &ai.CallResult{
		Succeeded: status >= 200 && status < 300,
		Status:    status,
		RawText:   string(body),
	}

	// Body parsing is best-effort: a non-JSON body leaves Raw nil and the
	// caller can still use RawText.
	if json.Valid(body) {
		result.Raw = json.RawMessage(body)
	}
	var doc extract.ResponseDocument
	if json.Unmarshal(body, &doc) == nil {
		result.OutputText = extract.Text(&doc)
		result.Sources = extract.Sources(&doc)
		result.Citations = extract.Citations(&doc)
	}

	return result, nil
}

// Stream issues one streaming Responses API request and returns the open
// event-stream body for verbatim relaying. A non-2xx response before the
// stream starts is returned as a *ai.StatusError; other errors are transport
// failures.
func (p *Provider) Stream(ctx context.Context, request ai.CallRequest) (*ai.StreamHandle, error) {
	payload := p.buildRequest(request, true)

	resp, errBody, err := utils.PostStream(ctx, p.client, p.baseURL+responsesEndpoint, p.apiKey, payload)
	if err != nil {
		return nil, err
	}
	if errBody != nil {
		return nil, &ai.StatusError{Status: resp.StatusCode, Body: errBody}
	}

	return &ai.StreamHandle{
		Body:        resp.Body,
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}

// buildRequest converts the uniform call request into the Responses API
// wire shape.
func (p *Provider) buildRequest(request ai.CallRequest, stream bool) responseRequest {
	model := request.Model
	if model == "" {
		model = p.model
	}

	input := make([]inputItem, 0, len(request.Messages))
	for _, msg := range request.Messages {
		input = append(input, inputItem{Role: string(msg.Role), Content: msg.Content})
	}

	payload := responseRequest{
		Model:  model,
		Input:  input,
		Stream: &stream,
	}

	if request.WebSearch {
		tool := responseTool{Type: "web_search"}
		if len(request.AllowedDomains) > 0 {
			tool.Filters = &toolFilters{AllowedDomains: request.AllowedDomains}
		}
		payload.Tools = []responseTool{tool}
		payload.Include = []string{includeSources}
	}

	if request.MaxToolCalls > 0 {
		maxCalls := request.MaxToolCalls
		payload.MaxToolCalls = &maxCalls
	}

	return payload
}
