package gateway

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/lennylodge/gateway/core/extract"
	"github.com/lennylodge/gateway/core/router"
	"github.com/lennylodge/gateway/providers/ai"
)

// chatHistoryItem is one prior turn of the conversation.
type chatHistoryItem struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequestBody is the conversational request.
type chatRequestBody struct {
	Message        string            `json:"message"`
	History        []chatHistoryItem `json:"history,omitempty"`
	ResearchMode   bool              `json:"researchMode,omitempty"`
	AllowedDomains []string          `json:"allowedDomains,omitempty"`
}

// chatEnvelope is the buffered conversational success response.
type chatEnvelope struct {
	OK      bool             `json:"ok"`
	Text    string           `json:"text"`
	Sources []extract.Source `json:"sources"`
	Raw     json.RawMessage  `json:"raw,omitempty"`
}

// wantsEventStream reports whether the client asked for an incremental
// stream via content negotiation. Absence of the header selects buffered
// JSON mode.
func wantsEventStream(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/event-stream")
}

// handleChat drives one conversational request through the relay states:
// route, call, then either stream the upstream bytes through verbatim or
// degrade to a single buffered JSON response.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	body, errDetail := decodeChatBody(r)
	if errDetail != "" {
		writeFailure(w, http.StatusBadRequest, ErrCodeInvalidBody, errDetail)
		return
	}

	provider := s.provider(router.Route(router.TaskChat, router.Flags{NeedWeb: body.ResearchMode}))
	if !provider.Configured() {
		writeFailure(w, http.StatusInternalServerError, ErrCodeNotConfigured, "primary provider API key is not set")
		return
	}

	messages := make([]ai.Message, 0, len(body.History)+2)
	messages = append(messages, ai.Message{Role: ai.RoleSystem, Content: chatSystemPrompt(body.Message)})
	for _, item := range body.History {
		messages = append(messages, ai.Message{Role: ai.Role(item.Role), Content: item.Content})
	}
	messages = append(messages, ai.Message{Role: ai.RoleUser, Content: body.Message})

	request := ai.CallRequest{
		Messages:       messages,
		WebSearch:      body.ResearchMode,
		AllowedDomains: body.AllowedDomains,
	}

	if !wantsEventStream(r) {
		s.bufferedChat(w, r, provider, request)
		return
	}

	streamer, ok := provider.(ai.StreamProvider)
	if !ok {
		// Provider cannot stream; buffered mode is the only option.
		s.bufferedChat(w, r, provider, request)
		return
	}

	streamRequest := request
	streamRequest.Stream = true

	handle, err := streamer.Stream(r.Context(), streamRequest)
	if err != nil {
		var statusErr *ai.StatusError
		if !errors.As(err, &statusErr) {
			// Transport failure: upstream never answered at all.
			writeFailure(w, http.StatusBadGateway, ErrCodeCallFailed, err.Error())
			return
		}

		// Streaming was refused upstream. Re-issue a non-streaming request
		// and synthesize a buffered success envelope; if that also fails,
		// pass the original upstream error through unmodified.
		result, callErr := provider.Call(r.Context(), request)
		if callErr == nil && result.Succeeded {
			writeChatEnvelope(w, result)
			return
		}
		passthrough(w, statusErr.Status, statusErr.Body)
		return
	}

	s.streamThrough(w, r, handle)
}

// bufferedChat issues a synchronous call and writes a single JSON document.
func (s *Server) bufferedChat(w http.ResponseWriter, r *http.Request, provider ai.Provider, request ai.CallRequest) {
	result, err := provider.Call(r.Context(), request)
	if err != nil {
		writeFailure(w, http.StatusBadGateway, ErrCodeCallFailed, err.Error())
		return
	}

	if !result.Succeeded {
		passthrough(w, result.Status, []byte(result.RawText))
		return
	}

	writeChatEnvelope(w, result)
}

// writeChatEnvelope writes the buffered success envelope. When the upstream
// body was not JSON the raw text is forwarded as-is so text-only consumers
// still get an answer.
func writeChatEnvelope(w http.ResponseWriter, result *ai.CallResult) {
	if result.Raw == nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if _, err := io.WriteString(w, result.RawText); err != nil {
			return
		}
		return
	}

	sources := result.Sources
	if sources == nil {
		sources = []extract.Source{}
	}

	writeJSON(w, http.StatusOK, chatEnvelope{
		OK:      true,
		Text:    result.OutputText,
		Sources: sources,
		Raw:     result.Raw,
	})
}

// streamThrough forwards upstream bytes to the client verbatim and
// unbuffered, flushing after every chunk, until upstream finishes or either
// side fails. Upstream framing is not parsed or altered on this path.
func (s *Server) streamThrough(w http.ResponseWriter, r *http.Request, handle *ai.StreamHandle) {
	defer func() {
		if err := handle.Body.Close(); err != nil {
			s.logger.Warn("failed to close upstream stream", "error", err.Error())
		}
	}()

	contentType := handle.ContentType
	if contentType == "" {
		contentType = "text/event-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)

	buf := make([]byte, 32*1024)
	for {
		n, readErr := handle.Body.Read(buf)
		if n > 0 {
			if _, writeErr := w.Write(buf[:n]); writeErr != nil {
				// Client went away; release upstream promptly.
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if readErr == io.EOF {
			return
		}
		if readErr != nil {
			if r.Context().Err() != nil {
				// Client cancelled; nothing left to signal.
				return
			}
			// Upstream died mid-flight. Bytes already sent cannot be
			// retracted, so abort the connection as the error signal.
			s.logger.Warn("upstream stream failed mid-flight", "error", readErr.Error())
			panic(http.ErrAbortHandler)
		}
	}
}

// decodeChatBody parses and validates the conversational request body. The
// returned string is empty on success and a field-level detail otherwise.
func decodeChatBody(r *http.Request) (chatRequestBody, string) {
	var body chatRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return body, "invalid JSON: " + err.Error()
	}

	body.Message = strings.TrimSpace(body.Message)
	if body.Message == "" {
		return body, "message is required"
	}

	for _, item := range body.History {
		if item.Role != string(ai.RoleUser) && item.Role != string(ai.RoleAssistant) {
			return body, "history role must be user or assistant"
		}
	}

	cleaned := body.AllowedDomains[:0]
	for _, domain := range body.AllowedDomains {
		domain = strings.TrimSpace(domain)
		if domain == "" {
			return body, "allowedDomains entries must be non-empty"
		}
		cleaned = append(cleaned, domain)
	}
	body.AllowedDomains = cleaned

	return body, ""
}
