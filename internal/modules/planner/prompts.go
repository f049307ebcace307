// README: Prompt templates and the deterministic trip-context block.
package planner

import (
	"fmt"
	"strings"

	"navmarg/internal/modules/slot"
)

const plannerSystemPrompt = `You are NavMarg's planning brain.
Create a structured, practical itinerary in strict JSON only.
Strictly respect budget and trip duration.
Do not include any preface, disclaimers, or meta commentary.
No markdown, no HTML, no <br>.

Output JSON schema:
{
  "trip_summary": "string",
  "budget_breakdown": {
    "total_budget": 0,
    "stay": 0,
    "food": 0,
    "transport": 0,
    "activities": 0,
    "buffer": 0
  },
  "days": [
    {
      "day": 1,
      "title": "string",
      "morning": "string",
      "afternoon": "string",
      "evening": "string",
      "estimated_cost": 0,
      "hotel_suggestion": "string",
      "optional_addons": ["string"]
    }
  ],
  "total_estimated_cost": 0,
  "safety_notes": ["string"]
}`

const humanizerSystemPrompt = `You are NavMarg's communication layer.
Rewrite the itinerary to sound warm, professional, and human.
Keep all important logistics and costs intact.
Do not invent new constraints.
Return markdown only.
No tables. No HTML tags. No <br>. Use clear sections and Day 1, Day 2 style.`

const arithmeticRules = `- Sum(days[].estimated_cost) must equal total_estimated_cost
- total_estimated_cost must be <= budget
- budget_breakdown parts must sum to total_budget`

// BuildTripContext renders the 12 trip slots as a fixed-order textual block.
// Identical slots always produce an identical block so every prompt in a
// generate call is reproducible.
func BuildTripContext(values slot.Values) string {
	lines := make([]string, 0, len(slot.Questions))
	for _, q := range slot.Questions {
		lines = append(lines, fmt.Sprintf("%s: %s", q.Name, values[q.Name]))
	}
	return strings.Join(lines, "\n")
}

func plannerUserPrompt(tripContext, previousPlan, changeRequest string) string {
	if previousPlan != "" && changeRequest != "" {
		return fmt.Sprintf(`Trip slots:
%s

Latest itinerary:
%s

User requested changes:
%s

Return a full revised plan in strict JSON with correct arithmetic:
%s`, tripContext, previousPlan, changeRequest, arithmeticRules)
	}

	return fmt.Sprintf(`Trip slots:
%s

Return a full plan in strict JSON with correct arithmetic:
%s`, tripContext, arithmeticRules)
}

func correctionUserPrompt(tripContext, invalidDraft string) string {
	return fmt.Sprintf(`Trip slots:
%s

Current JSON (invalid math):
%s

Fix arithmetic only and return valid JSON:
- Sum(days[].estimated_cost) == total_estimated_cost
- total_estimated_cost <= budget
- stay+food+transport+activities+buffer == total_budget`, tripContext, invalidDraft)
}

func humanizerUserPrompt(tripContext, draftJSON string) string {
	return fmt.Sprintf(`Trip context:
%s

Draft itinerary JSON:
%s

Output a cleaner final itinerary for end users with this structure:
- Trip Summary
- Budget Breakdown
- Day 1, Day 2... (each with Morning, Afternoon, Evening)
- Per-day Cost
- Total Estimated Cost
- Hotel Suggestions
- Optional Extra Places to Visit
- Safety Notes`, tripContext, draftJSON)
}
