package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/lennylodge/gateway/core/orchestrate"
	"github.com/lennylodge/gateway/core/router"
	"github.com/lennylodge/gateway/providers/ai"
)

// fallbackReason tags a substituted safe default so it is never mistaken
// for a genuine model decision.
const fallbackReason = "I couldn't reliably compute a suggestion, so I chose a safe default we can revise."

// suggestChoice is one candidate value offered to the model. Values are
// JSON scalars: string, number, or boolean.
type suggestChoice struct {
	Label  string `json:"label"`
	Value  any    `json:"value"`
	Helper string `json:"helper,omitempty"`
}

// suggestRequestBody asks for the single best choice for a wizard question.
type suggestRequestBody struct {
	QuestionID string          `json:"questionId"`
	Choices    []suggestChoice `json:"choices"`
	Context    any             `json:"context,omitempty"`
}

// Suggestion is the structured choice-suggestion result. Value is always
// one of the offered choice values.
type Suggestion struct {
	OK     bool   `json:"ok"`
	Value  any    `json:"value"`
	Reason string `json:"reason"`
}

// handleSuggest asks the model to pick one of the offered choice values.
// Suggestions are low stakes, so an exhausted retry ladder degrades to a
// deterministic safe default (the first offered value) tagged with a fixed
// fallback reason, rather than an error.
func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	var body suggestRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeFailure(w, http.StatusBadRequest, ErrCodeInvalidBody, "invalid JSON: "+err.Error())
		return
	}

	if strings.TrimSpace(body.QuestionID) == "" {
		writeFailure(w, http.StatusBadRequest, ErrCodeInvalidBody, "questionId is required")
		return
	}
	if len(body.Choices) == 0 {
		writeFailure(w, http.StatusBadRequest, ErrCodeInvalidBody, "choices must be non-empty")
		return
	}
	for _, choice := range body.Choices {
		switch choice.Value.(type) {
		case string, float64, bool:
		default:
			writeFailure(w, http.StatusBadRequest, ErrCodeInvalidBody, "choice values must be strings, numbers, or booleans")
			return
		}
	}

	choicesJSON, _ := json.Marshal(body.Choices)
	contextJSON, _ := json.Marshal(body.Context)
	userPrompt := fmt.Sprintf("questionId: %s\nchoices: %s\ncontext: %s\n", body.QuestionID, choicesJSON, contextJSON)

	policy := orchestrate.Policy{
		Primary:   s.provider(router.Route(router.TaskSuggest, router.Flags{})),
		Secondary: s.secondary,
		Request: ai.CallRequest{
			Messages: []ai.Message{
				{Role: ai.RoleSystem, Content: suggestPersona},
				{Role: ai.RoleUser, Content: userPrompt},
			},
		},
	}

	validate := func(suggestion *Suggestion) error {
		if !suggestion.OK {
			return errors.New("suggestion: ok must be true")
		}
		if suggestion.Reason == "" {
			return errors.New("suggestion: reason must be non-empty")
		}
		for _, choice := range body.Choices {
			if choice.Value == suggestion.Value {
				return nil
			}
		}
		return errors.New("suggestion: value must be one of the offered choice values")
	}

	suggestion, err := orchestrate.Run(r.Context(), policy, validate)
	if err != nil {
		// Deterministic safe default, visibly tagged as a fallback.
		writeJSON(w, http.StatusOK, Suggestion{
			OK:     true,
			Value:  body.Choices[0].Value,
			Reason: fallbackReason,
		})
		return
	}

	writeJSON(w, http.StatusOK, suggestion)
}
