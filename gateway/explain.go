package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/lennylodge/gateway/core/router"
	"github.com/lennylodge/gateway/providers/ai"
)

// explainRequestBody asks for a plain-language explanation of a topic.
type explainRequestBody struct {
	Topic   string `json:"topic"`
	Context any    `json:"context,omitempty"`
}

// explainEnvelope is the explanation success response.
type explainEnvelope struct {
	OK   bool   `json:"ok"`
	Text string `json:"text"`
}

// handleExplain answers with the primary provider, enabling web search for
// time-sensitive topics, and falls back to the secondary provider only on a
// rate-limit or server error.
func (s *Server) handleExplain(w http.ResponseWriter, r *http.Request) {
	var body explainRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeFailure(w, http.StatusBadRequest, ErrCodeInvalidBody, "invalid JSON: "+err.Error())
		return
	}

	body.Topic = strings.TrimSpace(body.Topic)
	if body.Topic == "" {
		writeFailure(w, http.StatusBadRequest, ErrCodeInvalidBody, "topic is required")
		return
	}

	needWeb := needsWebSearch(body.Topic)
	provider := s.provider(router.Route(router.TaskExplain, router.Flags{NeedWeb: needWeb}))
	if provider == nil || !provider.Configured() {
		writeFailure(w, http.StatusInternalServerError, ErrCodeNotConfigured, "provider API key is not set")
		return
	}

	contextJSON, _ := json.Marshal(body.Context)
	userPrompt := fmt.Sprintf("Topic:\n%s\n\nContext (JSON):\n%s\n\nExplain it clearly and concisely.", body.Topic, contextJSON)

	request := ai.CallRequest{
		Messages: []ai.Message{
			{Role: ai.RoleSystem, Content: explainPersona},
			{Role: ai.RoleUser, Content: userPrompt},
		},
		WebSearch: needWeb,
	}

	result, err := provider.Call(r.Context(), request)
	if err != nil {
		writeFailure(w, http.StatusBadGateway, ErrCodeCallFailed, err.Error())
		return
	}

	if result.Succeeded {
		writeJSON(w, http.StatusOK, explainEnvelope{OK: true, Text: result.OutputText})
		return
	}

	// Fallback is gated on the defined failure classes only.
	if provider.ID() == ai.ProviderOpenAI && fallbackStatus(result.Status) && s.secondaryAvailable() {
		fallbackRequest := ai.CallRequest{
			Messages: []ai.Message{
				{Role: ai.RoleSystem, Content: explainPersona},
				{Role: ai.RoleUser, Content: fmt.Sprintf("%s\n\nContext: %s", body.Topic, contextJSON)},
			},
		}

		fallbackResult, fallbackErr := s.secondary.Call(r.Context(), fallbackRequest)
		if fallbackErr == nil && fallbackResult.Succeeded && fallbackResult.OutputText != "" {
			writeJSON(w, http.StatusOK, explainEnvelope{OK: true, Text: fallbackResult.OutputText})
			return
		}
	}

	writeUpstreamFailure(w, ErrCodeUpstreamError, result.Status)
}

// fallbackStatus reports whether an upstream status opens the secondary
// fallback gate: rate limiting or a server error.
func fallbackStatus(status int) bool {
	return status == http.StatusTooManyRequests || (status >= 500 && status <= 599)
}
