// README: Trip slot definitions, question order, and the Values collection.
package slot

// Question pairs a slot name with the prompt shown to the user.
type Question struct {
	Name   string
	Prompt string
}

// Questions is the fixed slot-filling order. The planner's trip context and
// the conversation flow both depend on this ordering staying stable.
var Questions = []Question{
	{"origin", "What is your origin city?"},
	{"destination", "What is your destination city?"},
	{"start_date", "What is your trip start date? (YYYY-MM-DD)"},
	{"end_date", "What is your trip end date? (YYYY-MM-DD)"},
	{"travel_type", "What is your travel type? (Solo/Couple/Family/Friends/Business Trip/Group Tour)"},
	{"adults", "How many adults (13+) are traveling?"},
	{"children", "How many children (0-12) are traveling?"},
	{"budget", "What is your total budget in INR?"},
	{"budget_tier", "What budget tier do you prefer? (Budget/Mid-range/Luxury etc.)"},
	{"interests", "What are your main interests? (comma separated)"},
	{"pace", "What travel pace do you prefer? (Relaxed/Balanced/Active)"},
	{"experience", "What experience style do you want? (Must-see/Hidden Gems/Mix/Local/Instagrammable)"},
}

// Names returns the slot names in question order.
func Names() []string {
	names := make([]string, len(Questions))
	for i, q := range Questions {
		names[i] = q.Name
	}
	return names
}

// Values maps slot names to their filled answers. An absent or empty entry
// means the slot is unfilled.
type Values map[string]string

// NewValues returns a Values set with every slot present and empty.
func NewValues() Values {
	v := make(Values, len(Questions))
	for _, q := range Questions {
		v[q.Name] = ""
	}
	return v
}

// Complete reports whether every slot holds a non-empty value.
func (v Values) Complete() bool {
	for _, q := range Questions {
		if v[q.Name] == "" {
			return false
		}
	}
	return true
}

// Clone returns an independent copy so stored snapshots cannot be mutated
// by later turns.
func (v Values) Clone() Values {
	out := make(Values, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}
