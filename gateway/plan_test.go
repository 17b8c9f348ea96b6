package gateway

import (
	"encoding/json"
	"net/http"
	"testing"
)

func validPlan() Plan {
	return Plan{
		OK: true,
		Recommended: PlanStrategy{
			Name:         "Sell first, then buy",
			Rationale:    "Frees equity and avoids carrying two homes.",
			WhenItWorks:  "When the market favors sellers.",
			BiggestRisks: "Temporary housing gap.",
			Mitigations:  []string{"Negotiate a leaseback."},
		},
		Alternatives: []PlanAlternative{
			{Name: "Buy first", Rationale: "No housing gap.", WhenItWorks: "With strong reserves."},
		},
		Timeline: []PlanMilestone{
			{Milestone: "List the home", Stage: "prep", TargetWindow: "Weeks 1-2", Notes: "Photos and pricing."},
		},
		Next3: []PlanStep{
			{Step: "Get a CMA", Why: "Pricing anchors everything."},
			{Step: "Interview agents", Why: "Execution quality varies."},
			{Step: "Pre-approval", Why: "Needed for the purchase side."},
		},
		WatchOuts: []string{"Board approval timelines."},
	}
}

func planJSON(t *testing.T, p Plan) string {
	t.Helper()
	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("failed to marshal plan: %v", err)
	}
	return string(data)
}

func TestPlanValidate_ValidPlan_Passes(t *testing.T) {
	plan := validPlan()
	if err := plan.Validate(); err != nil {
		t.Errorf("expected valid plan, got %v", err)
	}
}

func TestPlanValidate_Violations(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Plan)
	}{
		{"ok false", func(p *Plan) { p.OK = false }},
		{"empty recommended name", func(p *Plan) { p.Recommended.Name = "" }},
		{"no mitigations", func(p *Plan) { p.Recommended.Mitigations = nil }},
		{"empty mitigation entry", func(p *Plan) { p.Recommended.Mitigations = []string{""} }},
		{"three alternatives", func(p *Plan) {
			p.Alternatives = append(p.Alternatives,
				PlanAlternative{Name: "b", Rationale: "r", WhenItWorks: "w"},
				PlanAlternative{Name: "c", Rationale: "r", WhenItWorks: "w"})
		}},
		{"alternative missing rationale", func(p *Plan) { p.Alternatives[0].Rationale = "" }},
		{"timeline missing window", func(p *Plan) { p.Timeline[0].TargetWindow = "" }},
		{"two next steps", func(p *Plan) { p.Next3 = p.Next3[:2] }},
		{"four next steps", func(p *Plan) { p.Next3 = append(p.Next3, PlanStep{Step: "s", Why: "w"}) }},
		{"next step missing why", func(p *Plan) { p.Next3[0].Why = "" }},
		{"no watch outs", func(p *Plan) { p.WatchOuts = nil }},
		{"empty watch out entry", func(p *Plan) { p.WatchOuts = []string{""} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := validPlan()
			tt.mutate(&plan)
			if err := plan.Validate(); err == nil {
				t.Error("expected validation failure")
			}
		})
	}
}

func TestPlan_ValidFirstAttempt_ReturnsPlan(t *testing.T) {
	primary := openAIStub(succeededResult(planJSON(t, validPlan())))
	handler := New(primary).Handler()

	rec := postJSON(t, handler, "/api/ai/plan", map[string]any{"context": map[string]any{"borough": "Brooklyn"}})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var plan Plan
	if err := json.Unmarshal(rec.Body.Bytes(), &plan); err != nil {
		t.Fatalf("response is not a plan: %v", err)
	}
	if plan.Recommended.Name != "Sell first, then buy" {
		t.Errorf("unexpected plan: %+v", plan.Recommended)
	}
	if len(primary.requests) != 1 {
		t.Errorf("expected 1 call, got %d", len(primary.requests))
	}
}

func TestPlan_InvalidThenValid_RetriesOnce(t *testing.T) {
	primary := openAIStub(
		succeededResult(`{"ok":true}`),
		succeededResult(planJSON(t, validPlan())),
	)
	handler := New(primary).Handler()

	rec := postJSON(t, handler, "/api/ai/plan", map[string]any{})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 after retry, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(primary.requests) != 2 {
		t.Errorf("expected exactly 2 primary calls, got %d", len(primary.requests))
	}
}

func TestPlan_Exhausted_ReturnsPlanUnavailable(t *testing.T) {
	primary := openAIStub(
		succeededResult(`{"ok":false}`),
		succeededResult(`{"ok":false}`),
	)
	handler := New(primary).Handler()

	rec := postJSON(t, handler, "/api/ai/plan", map[string]any{})

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
	envelope := decodeEnvelope(t, rec)
	if envelope["error"] != ErrCodePlanUnavailable {
		t.Errorf("expected %s, got %v", ErrCodePlanUnavailable, envelope["error"])
	}
}

func TestPlan_PrimaryServerError_SecondaryRescues(t *testing.T) {
	primary := openAIStub(
		upstreamFailure(503, "down"),
		upstreamFailure(503, "down"),
	)
	secondary := xaiStub(succeededResult(planJSON(t, validPlan())))
	handler := New(primary, WithSecondary(secondary)).Handler()

	rec := postJSON(t, handler, "/api/ai/plan", map[string]any{})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 via secondary, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(primary.requests) != 2 {
		t.Errorf("expected primary called exactly twice, got %d", len(primary.requests))
	}
	if len(secondary.requests) != 1 {
		t.Errorf("expected secondary called exactly once, got %d", len(secondary.requests))
	}
}
