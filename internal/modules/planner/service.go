// README: Plan generator; planner stage, bounded arithmetic correction, humanizer stage.
package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"navmarg/internal/ai"
	"navmarg/internal/modules/slot"
)

// maxCorrectionRetries caps the arithmetic-correction loop. Models given
// their own faulty output as context tend to converge on the second attempt;
// anything past one retry is cost without benefit.
const maxCorrectionRetries = 1

const (
	plannerTemperature    = 0.2
	correctionTemperature = 0.0
	humanizerTemperature  = 0.4
)

// Service drives the two-stage generation pipeline against a model provider.
type Service struct {
	provider       ai.Provider
	plannerModel   string
	humanizerModel string
}

func NewService(provider ai.Provider, plannerModel, humanizerModel string) *Service {
	return &Service{
		provider:       provider,
		plannerModel:   plannerModel,
		humanizerModel: humanizerModel,
	}
}

// Generate produces a budget-consistent itinerary draft and its humanized
// narrative from a complete slot set. When previousPlan and changeRequest are
// both non-empty the planner is asked for a complete revised plan, never a
// delta. Fails with ErrPlanning if the model cannot be coerced into
// budget-consistent output within the retry budget.
func (s *Service) Generate(ctx context.Context, values slot.Values, previousPlan, changeRequest string) (*Plan, error) {
	budget, err := slot.ParseInt(values["budget"])
	if err != nil {
		return nil, fmt.Errorf("%w: budget slot is not numeric: %q", ErrPlanning, values["budget"])
	}

	tripContext := BuildTripContext(values)

	reply, err := s.provider.Call(ctx, s.plannerModel, plannerSystemPrompt,
		plannerUserPrompt(tripContext, previousPlan, changeRequest), plannerTemperature)
	if err != nil {
		return nil, fmt.Errorf("planner stage: %w", err)
	}

	draft, err := decodeDraft(reply)
	if err != nil {
		return nil, err
	}

	if vErr := verify(draft, budget); vErr != nil {
		for attempt := 0; attempt < maxCorrectionRetries; attempt++ {
			invalid, mErr := json.Marshal(draft)
			if mErr != nil {
				return nil, fmt.Errorf("%w: marshal invalid draft: %v", ErrPlanning, mErr)
			}

			corrected, cErr := s.provider.Call(ctx, s.plannerModel, plannerSystemPrompt,
				correctionUserPrompt(tripContext, string(invalid)), correctionTemperature)
			if cErr != nil {
				return nil, fmt.Errorf("correction stage: %w", cErr)
			}

			draft, err = decodeDraft(corrected)
			if err != nil {
				return nil, err
			}
			vErr = verify(draft, budget)
			if vErr == nil {
				break
			}
		}
		if vErr != nil {
			return nil, fmt.Errorf("%w: planner returned inconsistent costs after correction: %v", ErrPlanning, vErr)
		}
	}

	canonical, err := json.Marshal(draft)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal draft: %v", ErrPlanning, err)
	}

	final, err := s.provider.Call(ctx, s.humanizerModel, humanizerSystemPrompt,
		humanizerUserPrompt(tripContext, string(canonical)), humanizerTemperature)
	if err != nil {
		return nil, fmt.Errorf("humanizer stage: %w", err)
	}

	return &Plan{
		Draft: *draft,
		Raw:   string(canonical),
		Final: stripLineBreakMarkup(final),
	}, nil
}

// decodeDraft recovers the structured draft from a model reply and checks
// the required structure is present.
func decodeDraft(text string) (*Draft, error) {
	payload, err := ai.Extract(text)
	if err != nil {
		return nil, fmt.Errorf("planner output: %w", err)
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(payload, &probe); err != nil {
		return nil, fmt.Errorf("%w: planner did not return a JSON object", ErrPlanning)
	}
	if _, ok := probe["days"]; !ok {
		return nil, fmt.Errorf("%w: planner output missing 'days'", ErrPlanning)
	}
	if _, ok := probe["budget_breakdown"]; !ok {
		return nil, fmt.Errorf("%w: planner output missing 'budget_breakdown'", ErrPlanning)
	}

	var draft Draft
	if err := json.Unmarshal(payload, &draft); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPlanning, err)
	}
	return &draft, nil
}

// verify checks the three arithmetic invariants against the declared budget.
func verify(d *Draft, budget int) error {
	daySum := d.DayCostSum()
	total := int(d.TotalEstimatedCost)

	if daySum != total {
		return fmt.Errorf("day costs sum to %d but total_estimated_cost is %d", daySum, total)
	}
	if total > budget {
		return fmt.Errorf("total_estimated_cost %d exceeds budget %d", total, budget)
	}
	if sum := d.BudgetBreakdown.Sum(); sum != budget {
		return fmt.Errorf("budget_breakdown sums to %d but budget is %d", sum, budget)
	}
	return nil
}

// stripLineBreakMarkup normalizes literal <br> tokens the humanizer may emit
// despite instructions; its output is presentation-only and never re-validated.
func stripLineBreakMarkup(text string) string {
	replacer := strings.NewReplacer("<br>", "\n", "<br/>", "\n", "<br />", "\n")
	return replacer.Replace(text)
}
