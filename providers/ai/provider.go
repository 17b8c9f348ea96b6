package ai

import (
	"context"
	"encoding/json"
	"io"

	"github.com/lennylodge/gateway/core/extract"
)

// ProviderID identifies a configured upstream LLM provider.
type ProviderID string

const (
	// ProviderOpenAI is the primary provider (Responses API).
	ProviderOpenAI ProviderID = "openai"
	// ProviderXAI is the optional secondary provider (chat-completions API).
	ProviderXAI ProviderID = "xai"
)

// Role tags a conversation message with its author.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one role-tagged entry in a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// CallRequest describes one upstream provider call. It is immutable once
// issued: retries and fallbacks build fresh requests rather than mutating
// an existing one.
type CallRequest struct {
	// Model overrides the provider's default model when non-empty.
	Model string

	// Messages is the ordered conversation, typically system first.
	Messages []Message

	// WebSearch enables the provider's web search tool and asks it to
	// include the search call's source list in the response.
	WebSearch bool

	// AllowedDomains restricts web search results to the given domains.
	// Only meaningful when WebSearch is set.
	AllowedDomains []string

	// MaxToolCalls bounds how many tool invocations the provider may make.
	// Zero means no explicit bound.
	MaxToolCalls int

	// Stream asks the provider for an incremental event stream.
	Stream bool
}

// CallResult is the normalized outcome of one synchronous provider call.
// A non-2xx upstream response is a normal, representable outcome here, not
// an error: Succeeded is false and Status carries the upstream code. Each
// attempt produces a new CallResult; results are never mutated.
type CallResult struct {
	// Succeeded reports whether the upstream returned a 2xx response.
	Succeeded bool

	// Status is the upstream HTTP status code.
	Status int

	// RawText is the upstream response body, always retained even when it
	// is not valid JSON.
	RawText string

	// Raw is the response body as JSON when it parsed, nil otherwise.
	// Parsing is best-effort; callers that only need text can ignore it.
	Raw json.RawMessage

	// OutputText is the assistant text extracted from the provider's
	// response shape. Empty when the response carried no message output.
	OutputText string

	// Sources lists web search sources in first-appearance order, not
	// deduplicated.
	Sources []extract.Source

	// Citations lists URL citations attached to the output text, in
	// first-appearance order, not deduplicated.
	Citations []extract.Source
}

// StreamHandle wraps an open upstream event-stream body. The caller owns the
// body and must close it; abandoning a handle leaks the upstream connection.
type StreamHandle struct {
	// Body is the raw upstream byte stream, framing untouched.
	Body io.ReadCloser

	// ContentType is the upstream Content-Type header value.
	ContentType string
}

// Provider is the uniform contract every upstream adapter satisfies.
// Implementations are stateless and safe for concurrent use; each Call makes
// exactly one outbound HTTP request. The returned error is reserved for
// transport-level failures (DNS, connection reset, timeout, cancellation);
// an upstream error document comes back as a CallResult instead.
type Provider interface {
	// ID returns the provider's identifier for routing and logging.
	ID() ProviderID

	// Configured reports whether the adapter has the credentials it needs.
	Configured() bool

	// Call issues one synchronous request and normalizes the response.
	Call(ctx context.Context, request CallRequest) (*CallResult, error)
}

// StreamProvider is implemented by providers that can return an incremental
// event stream. Callers detect support via type assertion and fall back to
// Call when the assertion fails. A pre-stream upstream error (non-2xx before
// any bytes flow) is returned as a *StatusError so the caller can degrade to
// a buffered response; any other error is a transport failure.
type StreamProvider interface {
	Provider
	Stream(ctx context.Context, request CallRequest) (*StreamHandle, error)
}
