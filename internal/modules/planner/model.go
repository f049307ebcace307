// README: Itinerary draft schema, flexible integer coercion, and planner errors.
package planner

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrPlanning is the terminal failure of a generate call: the model could
	// not be coerced into budget-consistent output, or its output lacked the
	// required structure.
	ErrPlanning = errors.New("planning failed")

	// ErrInvalidCost marks a cost field that could not be read as an integer.
	ErrInvalidCost = errors.New("invalid cost value in planner output")
)

// FlexInt is an integer that tolerates models emitting numbers as strings
// ("1200") or with a fractional part (1200.0). Anything non-numeric is a hard
// unmarshal failure, never a silent zero.
type FlexInt int

func (f *FlexInt) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	s = strings.Trim(s, `"`)
	if s == "" || s == "null" {
		return fmt.Errorf("%w: %q", ErrInvalidCost, string(data))
	}
	if n, err := strconv.Atoi(s); err == nil {
		*f = FlexInt(n)
		return nil
	}
	if fl, err := strconv.ParseFloat(s, 64); err == nil {
		*f = FlexInt(int(fl))
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidCost, string(data))
}

func (f FlexInt) MarshalJSON() ([]byte, error) {
	return json.Marshal(int(f))
}

// Breakdown is the five-way split of the declared budget.
type Breakdown struct {
	TotalBudget FlexInt `json:"total_budget"`
	Stay        FlexInt `json:"stay"`
	Food        FlexInt `json:"food"`
	Transport   FlexInt `json:"transport"`
	Activities  FlexInt `json:"activities"`
	Buffer      FlexInt `json:"buffer"`
}

// Sum adds the five budget components; TotalBudget is the model's own claim
// and is not part of the invariant check.
func (b Breakdown) Sum() int {
	return int(b.Stay) + int(b.Food) + int(b.Transport) + int(b.Activities) + int(b.Buffer)
}

// Day is one itinerary day in the structured draft.
type Day struct {
	Day             FlexInt  `json:"day"`
	Title           string   `json:"title"`
	Morning         string   `json:"morning"`
	Afternoon       string   `json:"afternoon"`
	Evening         string   `json:"evening"`
	EstimatedCost   FlexInt  `json:"estimated_cost"`
	HotelSuggestion string   `json:"hotel_suggestion"`
	OptionalAddons  []string `json:"optional_addons"`
}

// Draft is the invariant-checkable planner-stage output.
type Draft struct {
	TripSummary        string    `json:"trip_summary"`
	BudgetBreakdown    Breakdown `json:"budget_breakdown"`
	Days               []Day     `json:"days"`
	TotalEstimatedCost FlexInt   `json:"total_estimated_cost"`
	SafetyNotes        []string  `json:"safety_notes"`
}

// DayCostSum totals the per-day estimated costs.
func (d *Draft) DayCostSum() int {
	total := 0
	for _, day := range d.Days {
		total += int(day.EstimatedCost)
	}
	return total
}

// Plan bundles the validated draft with its canonical serialized form (for
// audit/storage) and the humanized narrative (for display).
type Plan struct {
	Draft Draft
	Raw   string
	Final string
}
