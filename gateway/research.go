package gateway

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/lennylodge/gateway/core/extract"
	"github.com/lennylodge/gateway/core/router"
	"github.com/lennylodge/gateway/providers/ai"
)

// maxResearchToolCalls bounds web search usage per research request.
const maxResearchToolCalls = 3

// researchRequestBody is the non-streaming research request.
type researchRequestBody struct {
	Query          string   `json:"query"`
	SeriousMode    bool     `json:"seriousMode,omitempty"`
	HumorDial      string   `json:"humorDial,omitempty"`
	AllowedDomains []string `json:"allowedDomains,omitempty"`
}

// researchEnvelope is the research success response. Citations come from
// url_citation annotations on the answer text, sources from the web search
// calls themselves; both are URL-deduplicated here and nowhere else.
type researchEnvelope struct {
	OK        bool             `json:"ok"`
	Text      string           `json:"text"`
	Citations []extract.Source `json:"citations"`
	Sources   []extract.Source `json:"sources"`
	Raw       json.RawMessage  `json:"raw,omitempty"`
}

func (s *Server) handleResearch(w http.ResponseWriter, r *http.Request) {
	var body researchRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeFailure(w, http.StatusBadRequest, ErrCodeInvalidBody, "invalid JSON: "+err.Error())
		return
	}

	body.Query = strings.TrimSpace(body.Query)
	if body.Query == "" {
		writeFailure(w, http.StatusBadRequest, ErrCodeInvalidBody, "query is required")
		return
	}

	humorDial := body.HumorDial
	switch humorDial {
	case "":
		humorDial = "medium"
	case "low", "medium", "high":
	default:
		writeFailure(w, http.StatusBadRequest, ErrCodeInvalidBody, "humorDial must be low, medium, or high")
		return
	}
	if body.SeriousMode {
		humorDial = "low"
	}

	provider := s.provider(router.Route(router.TaskChat, router.Flags{NeedWeb: true}))
	if !provider.Configured() {
		writeFailure(w, http.StatusInternalServerError, ErrCodeNotConfigured, "primary provider API key is not set")
		return
	}

	request := ai.CallRequest{
		Messages: []ai.Message{
			{Role: ai.RoleSystem, Content: researchSystemPrompt(humorDial, body.SeriousMode)},
			{Role: ai.RoleUser, Content: body.Query},
		},
		WebSearch:      true,
		AllowedDomains: body.AllowedDomains,
		MaxToolCalls:   maxResearchToolCalls,
	}

	result, err := provider.Call(r.Context(), request)
	if err != nil {
		writeFailure(w, http.StatusBadGateway, ErrCodeCallFailed, err.Error())
		return
	}

	if !result.Succeeded {
		writeUpstreamFailure(w, ErrCodeUpstreamError, result.Status)
		return
	}

	citations := extract.UniqueByURL(result.Citations)
	if citations == nil {
		citations = []extract.Source{}
	}
	sources := extract.UniqueByURL(result.Sources)
	if sources == nil {
		sources = []extract.Source{}
	}

	writeJSON(w, http.StatusOK, researchEnvelope{
		OK:        true,
		Text:      result.OutputText,
		Citations: citations,
		Sources:   sources,
		Raw:       result.Raw,
	})
}
