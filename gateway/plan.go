package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/lennylodge/gateway/core/orchestrate"
	"github.com/lennylodge/gateway/core/router"
	"github.com/lennylodge/gateway/providers/ai"
)

// planRequestBody carries opaque wizard context for plan generation. The
// gateway never interprets the context; it arrives pre-serialized from the
// client and is forwarded to the model as JSON.
type planRequestBody struct {
	Context any `json:"context,omitempty"`
}

// Plan is the structured move plan. Every required field must be present
// and non-empty; a single bad field invalidates the whole payload.
type Plan struct {
	OK           bool              `json:"ok"`
	Recommended  PlanStrategy      `json:"recommended"`
	Alternatives []PlanAlternative `json:"alternatives"`
	Timeline     []PlanMilestone   `json:"timeline"`
	Next3        []PlanStep        `json:"next3"`
	WatchOuts    []string          `json:"watchOuts"`
}

// PlanStrategy is the recommended approach with its rationale and risks.
type PlanStrategy struct {
	Name         string   `json:"name"`
	Rationale    string   `json:"rationale"`
	WhenItWorks  string   `json:"whenItWorks"`
	BiggestRisks string   `json:"biggestRisks"`
	Mitigations  []string `json:"mitigations"`
}

// PlanAlternative is a briefly-argued alternative strategy.
type PlanAlternative struct {
	Name        string `json:"name"`
	Rationale   string `json:"rationale"`
	WhenItWorks string `json:"whenItWorks"`
}

// PlanMilestone is one timeline entry.
type PlanMilestone struct {
	Milestone    string `json:"milestone"`
	Stage        string `json:"stage"`
	TargetWindow string `json:"targetWindow"`
	Notes        string `json:"notes"`
}

// PlanStep is one of the three immediate next steps.
type PlanStep struct {
	Step string `json:"step"`
	Why  string `json:"why"`
}

// Validate checks the plan against its schema. There is no partial
// acceptance: the first violation fails the whole payload.
func (p *Plan) Validate() error {
	if !p.OK {
		return errors.New("plan: ok must be true")
	}

	if err := p.Recommended.validate(); err != nil {
		return err
	}

	if len(p.Alternatives) > 2 {
		return fmt.Errorf("plan: at most 2 alternatives, got %d", len(p.Alternatives))
	}
	for _, alt := range p.Alternatives {
		if alt.Name == "" || alt.Rationale == "" || alt.WhenItWorks == "" {
			return errors.New("plan: alternative fields must be non-empty")
		}
	}

	for _, milestone := range p.Timeline {
		if milestone.Milestone == "" || milestone.Stage == "" || milestone.TargetWindow == "" || milestone.Notes == "" {
			return errors.New("plan: timeline fields must be non-empty")
		}
	}

	if len(p.Next3) != 3 {
		return fmt.Errorf("plan: next3 must have exactly 3 steps, got %d", len(p.Next3))
	}
	for _, step := range p.Next3 {
		if step.Step == "" || step.Why == "" {
			return errors.New("plan: next3 fields must be non-empty")
		}
	}

	if len(p.WatchOuts) == 0 {
		return errors.New("plan: watchOuts must be non-empty")
	}
	for _, watchOut := range p.WatchOuts {
		if watchOut == "" {
			return errors.New("plan: watchOuts entries must be non-empty")
		}
	}

	return nil
}

func (s *PlanStrategy) validate() error {
	if s.Name == "" || s.Rationale == "" || s.WhenItWorks == "" || s.BiggestRisks == "" {
		return errors.New("plan: recommended fields must be non-empty")
	}
	if len(s.Mitigations) == 0 {
		return errors.New("plan: recommended.mitigations must be non-empty")
	}
	for _, mitigation := range s.Mitigations {
		if mitigation == "" {
			return errors.New("plan: mitigation entries must be non-empty")
		}
	}
	return nil
}

// handlePlan generates a validated move plan or a definitive
// PLAN_UNAVAILABLE failure. There is no safe default for a plan: an invalid
// result after the bounded retry ladder surfaces as an upstream failure
// with the last known status, never as a made-up plan.
func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	var body planRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeFailure(w, http.StatusBadRequest, ErrCodeInvalidBody, "invalid JSON: "+err.Error())
		return
	}

	contextJSON, _ := json.Marshal(body.Context)
	userPrompt := fmt.Sprintf("Context (JSON):\n%s\n\nOutput the plan JSON now.", contextJSON)

	policy := orchestrate.Policy{
		Primary:   s.provider(router.Route(router.TaskPlan, router.Flags{})),
		Secondary: s.secondary,
		Request: ai.CallRequest{
			Messages: []ai.Message{
				{Role: ai.RoleSystem, Content: planPersona},
				{Role: ai.RoleUser, Content: userPrompt},
			},
		},
	}

	plan, err := orchestrate.Run(r.Context(), policy, (*Plan).Validate)
	if err != nil {
		var unavailable *orchestrate.UnavailableError
		if errors.As(err, &unavailable) {
			writeUpstreamFailure(w, ErrCodePlanUnavailable, unavailable.Status)
			return
		}
		writeFailure(w, http.StatusBadGateway, ErrCodePlanUnavailable, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, plan)
}
