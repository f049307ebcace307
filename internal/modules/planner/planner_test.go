// README: Plan generator tests (invariants, bounded correction, humanizer cleanup).
package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"navmarg/internal/ai"
	"navmarg/internal/modules/slot"
)

type recordedCall struct {
	model, system, user string
	temp                float32
}

type fakeProvider struct {
	replies []string
	errs    []error
	calls   []recordedCall
}

func (f *fakeProvider) Call(ctx context.Context, model, systemPrompt, userPrompt string, temperature float32) (string, error) {
	f.calls = append(f.calls, recordedCall{model: model, system: systemPrompt, user: userPrompt, temp: temperature})
	i := len(f.calls) - 1
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i < len(f.replies) {
		return f.replies[i], nil
	}
	return "", fmt.Errorf("unexpected model call %d", i)
}

func testSlots(budget string) slot.Values {
	v := slot.NewValues()
	v["origin"] = "Mumbai"
	v["destination"] = "Goa"
	v["start_date"] = "2026-10-01"
	v["end_date"] = "2026-10-03"
	v["travel_type"] = "Couple"
	v["adults"] = "2"
	v["children"] = "0"
	v["budget"] = budget
	v["budget_tier"] = "Mid-range"
	v["interests"] = "beaches, food"
	v["pace"] = "Relaxed"
	v["experience"] = "Mix"
	return v
}

// draftJSON builds a planner reply whose breakdown sums to breakdownSum and
// whose days carry dayCosts with the given reported total.
func draftJSON(breakdownSum int, dayCosts []int, total int) string {
	days := make([]string, len(dayCosts))
	for i, cost := range dayCosts {
		days[i] = fmt.Sprintf(`{
			"day": %d, "title": "Day %d", "morning": "m", "afternoon": "a",
			"evening": "e", "estimated_cost": %d,
			"hotel_suggestion": "Hotel Sea View", "optional_addons": ["spa"]
		}`, i+1, i+1, cost)
	}
	stay := breakdownSum - 300
	return fmt.Sprintf(`{
		"trip_summary": "Mumbai to Goa",
		"budget_breakdown": {"total_budget": %d, "stay": %d, "food": 100, "transport": 100, "activities": 50, "buffer": 50},
		"days": [%s],
		"total_estimated_cost": %d,
		"safety_notes": ["stay hydrated"]
	}`, breakdownSum, stay, strings.Join(days, ","), total)
}

func TestRetryBudgetIsOne(t *testing.T) {
	if maxCorrectionRetries != 1 {
		t.Fatalf("maxCorrectionRetries = %d, want 1", maxCorrectionRetries)
	}
}

func TestGenerateHappyPath(t *testing.T) {
	provider := &fakeProvider{replies: []string{
		draftJSON(30000, []int{9000, 10000, 9500}, 28500),
		"Here is your warm trip narrative.",
	}}
	svc := NewService(provider, "planner-model", "humanizer-model")

	plan, err := svc.Generate(context.Background(), testSlots("30000"), "", "")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(provider.calls) != 2 {
		t.Fatalf("expected 2 model calls (planner + humanizer), got %d", len(provider.calls))
	}
	if provider.calls[0].temp != 0.2 || provider.calls[1].temp != 0.4 {
		t.Errorf("stage temperatures = %.1f, %.1f; want 0.2, 0.4",
			provider.calls[0].temp, provider.calls[1].temp)
	}
	if provider.calls[0].model != "planner-model" || provider.calls[1].model != "humanizer-model" {
		t.Errorf("stage models = %q, %q", provider.calls[0].model, provider.calls[1].model)
	}
	if !strings.Contains(provider.calls[0].user, "origin: Mumbai") ||
		!strings.Contains(provider.calls[0].user, "budget: 30000") {
		t.Error("planner prompt missing trip context lines")
	}

	if got := plan.Draft.DayCostSum(); got != 28500 {
		t.Errorf("day cost sum = %d, want 28500", got)
	}
	if int(plan.Draft.TotalEstimatedCost) > 30000 {
		t.Errorf("total %d exceeds budget", plan.Draft.TotalEstimatedCost)
	}
	if plan.Final != "Here is your warm trip narrative." {
		t.Errorf("final plan = %q", plan.Final)
	}

	var roundTrip Draft
	if err := json.Unmarshal([]byte(plan.Raw), &roundTrip); err != nil {
		t.Fatalf("canonical draft is not valid JSON: %v", err)
	}
	if roundTrip.BudgetBreakdown.Sum() != 30000 {
		t.Errorf("canonical breakdown sums to %d, want 30000", roundTrip.BudgetBreakdown.Sum())
	}
}

func TestGenerateTripContextOrderIsStable(t *testing.T) {
	ctxBlock := BuildTripContext(testSlots("30000"))
	lines := strings.Split(ctxBlock, "\n")
	if len(lines) != 12 {
		t.Fatalf("trip context has %d lines, want 12", len(lines))
	}
	for i, q := range slot.Questions {
		if !strings.HasPrefix(lines[i], q.Name+": ") {
			t.Errorf("line %d = %q, want prefix %q", i, lines[i], q.Name)
		}
	}
	if again := BuildTripContext(testSlots("30000")); again != ctxBlock {
		t.Error("trip context is not deterministic for identical slots")
	}
}

func TestGenerateCorrectionConverges(t *testing.T) {
	provider := &fakeProvider{replies: []string{
		// day costs sum 20000 but reported total 25000
		draftJSON(30000, []int{10000, 10000}, 25000),
		draftJSON(30000, []int{10000, 10000}, 20000),
		"Corrected narrative.",
	}}
	svc := NewService(provider, "p", "h")

	plan, err := svc.Generate(context.Background(), testSlots("30000"), "", "")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(provider.calls) != 3 {
		t.Fatalf("expected 3 model calls (planner + correction + humanizer), got %d", len(provider.calls))
	}
	if !strings.Contains(provider.calls[1].user, "invalid math") {
		t.Error("correction prompt does not flag invalid math")
	}
	if !strings.Contains(provider.calls[1].user, `"total_estimated_cost":25000`) {
		t.Error("correction prompt does not carry the invalid draft verbatim")
	}
	if provider.calls[1].temp != 0.0 {
		t.Errorf("correction temperature = %.1f, want 0.0", provider.calls[1].temp)
	}
	if int(plan.Draft.TotalEstimatedCost) != 20000 {
		t.Errorf("corrected total = %d, want 20000", plan.Draft.TotalEstimatedCost)
	}
}

func TestGenerateSecondViolationIsTerminal(t *testing.T) {
	provider := &fakeProvider{replies: []string{
		draftJSON(30000, []int{10000, 10000}, 25000),
		draftJSON(30000, []int{10000, 10000}, 26000),
		"must never be requested",
	}}
	svc := NewService(provider, "p", "h")

	_, err := svc.Generate(context.Background(), testSlots("30000"), "", "")
	if !errors.Is(err, ErrPlanning) {
		t.Fatalf("expected ErrPlanning, got %v", err)
	}
	if len(provider.calls) != 2 {
		t.Fatalf("expected exactly 2 model calls (no third attempt), got %d", len(provider.calls))
	}
}

func TestGenerateBudgetViolationsTriggerCorrection(t *testing.T) {
	cases := []struct {
		name  string
		first string
	}{
		{"total exceeds budget", draftJSON(30000, []int{20000, 15000}, 35000)},
		{"breakdown does not sum to budget", draftJSON(29000, []int{10000, 10000}, 20000)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			provider := &fakeProvider{replies: []string{
				tc.first,
				draftJSON(30000, []int{10000, 10000}, 20000),
				"narrative",
			}}
			svc := NewService(provider, "p", "h")
			if _, err := svc.Generate(context.Background(), testSlots("30000"), "", ""); err != nil {
				t.Fatalf("generate: %v", err)
			}
			if len(provider.calls) != 3 {
				t.Fatalf("expected correction call, got %d calls", len(provider.calls))
			}
		})
	}
}

func TestGenerateRefinementPrompt(t *testing.T) {
	provider := &fakeProvider{replies: []string{
		draftJSON(20000, []int{9000, 10000}, 19000),
		"Cheaper narrative.",
	}}
	svc := NewService(provider, "p", "h")

	previous := "Day 1: beaches. Day 2: forts. Total 28500."
	plan, err := svc.Generate(context.Background(), testSlots("20000"), previous, "reduce budget to 20000")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	prompt := provider.calls[0].user
	if !strings.Contains(prompt, "Latest itinerary:") || !strings.Contains(prompt, previous) {
		t.Error("refinement prompt missing previous itinerary")
	}
	if !strings.Contains(prompt, "reduce budget to 20000") {
		t.Error("refinement prompt missing change request")
	}
	if int(plan.Draft.TotalEstimatedCost) > 20000 {
		t.Errorf("refined total %d exceeds reduced budget", plan.Draft.TotalEstimatedCost)
	}
}

func TestGenerateNonNumericCostIsHardFailure(t *testing.T) {
	bad := `{
		"trip_summary": "x",
		"budget_breakdown": {"total_budget": 30000, "stay": 29700, "food": 100, "transport": 100, "activities": 50, "buffer": 50},
		"days": [{"day": 1, "title": "d", "morning": "m", "afternoon": "a", "evening": "e",
			"estimated_cost": "around ten thousand", "hotel_suggestion": "h", "optional_addons": []}],
		"total_estimated_cost": 10000,
		"safety_notes": []
	}`
	svc := NewService(&fakeProvider{replies: []string{bad}}, "p", "h")

	_, err := svc.Generate(context.Background(), testSlots("30000"), "", "")
	if !errors.Is(err, ErrPlanning) || !errors.Is(err, ErrInvalidCost) {
		t.Fatalf("expected ErrPlanning wrapping ErrInvalidCost, got %v", err)
	}
}

func TestGenerateStructureFailures(t *testing.T) {
	cases := []struct {
		name  string
		reply string
	}{
		{"missing days", `{"budget_breakdown": {"stay": 1}}`},
		{"missing budget_breakdown", `{"days": []}`},
		{"not an object", `[1, 2, 3]`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := NewService(&fakeProvider{replies: []string{tc.reply}}, "p", "h")
			_, err := svc.Generate(context.Background(), testSlots("30000"), "", "")
			if !errors.Is(err, ErrPlanning) {
				t.Fatalf("expected ErrPlanning, got %v", err)
			}
		})
	}
}

func TestGenerateUnparseablePlannerOutput(t *testing.T) {
	svc := NewService(&fakeProvider{replies: []string{"I refuse to answer in JSON."}}, "p", "h")
	_, err := svc.Generate(context.Background(), testSlots("30000"), "", "")
	if !errors.Is(err, ai.ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
}

func TestGenerateGatewayFailurePropagates(t *testing.T) {
	wantErr := errors.New("timeout")
	svc := NewService(&fakeProvider{errs: []error{wantErr}}, "p", "h")
	_, err := svc.Generate(context.Background(), testSlots("30000"), "", "")
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected gateway error, got %v", err)
	}
}

func TestGenerateNonNumericBudgetSlot(t *testing.T) {
	provider := &fakeProvider{}
	svc := NewService(provider, "p", "h")
	_, err := svc.Generate(context.Background(), testSlots("plenty"), "", "")
	if !errors.Is(err, ErrPlanning) {
		t.Fatalf("expected ErrPlanning, got %v", err)
	}
	if len(provider.calls) != 0 {
		t.Errorf("non-numeric budget should fail before any model call, got %d calls", len(provider.calls))
	}
}

func TestHumanizerLineBreakCleanup(t *testing.T) {
	provider := &fakeProvider{replies: []string{
		draftJSON(30000, []int{28500}, 28500),
		"Day 1<br>Morning walk<br/>Evening cruise<br />Done",
	}}
	svc := NewService(provider, "p", "h")

	plan, err := svc.Generate(context.Background(), testSlots("30000"), "", "")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if strings.Contains(plan.Final, "<br") {
		t.Errorf("final plan still contains <br> markup: %q", plan.Final)
	}
	if want := "Day 1\nMorning walk\nEvening cruise\nDone"; plan.Final != want {
		t.Errorf("final plan = %q, want %q", plan.Final, want)
	}
}
