// README: Data-driven slot validation rules with user-facing error messages.
package slot

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MinBudget is the currency-unit-agnostic floor for the budget slot.
const MinBudget = 1000

const dateLayout = "2006-01-02"

// ParseInt parses a numeric answer, tolerating thousands separators and
// surrounding whitespace.
func ParseInt(value string) (int, error) {
	cleaned := strings.TrimSpace(strings.ReplaceAll(value, ",", ""))
	return strconv.Atoi(cleaned)
}

// Validate applies the slot-specific acceptance rule for name to value.
// prior carries already-filled slots so cross-slot rules (end_date vs
// start_date) can be checked. The returned message is shown to the user
// verbatim on failure.
func Validate(name, value string, prior Values) (bool, string) {
	if strings.TrimSpace(value) == "" {
		return false, "This answer is empty. Please provide a valid value."
	}

	switch name {
	case "start_date", "end_date":
		parsed, err := time.Parse(dateLayout, strings.TrimSpace(value))
		if err != nil {
			return false, "Invalid date format. Please use YYYY-MM-DD."
		}
		today, _ := time.Parse(dateLayout, time.Now().Format(dateLayout))
		if parsed.Before(today) {
			return false, "Date cannot be in the past. Please use YYYY-MM-DD."
		}
		if name == "end_date" {
			if start := prior["start_date"]; start != "" {
				startParsed, err := time.Parse(dateLayout, start)
				if err == nil && parsed.Before(startParsed) {
					return false, "End date cannot be before start date."
				}
			}
		}

	case "adults", "children", "budget":
		n, err := ParseInt(value)
		if err != nil {
			return false, fmt.Sprintf("Please provide a valid number for %s.", name)
		}
		switch {
		case name == "adults" && n < 1:
			return false, "At least 1 adult is required."
		case name == "children" && n < 0:
			return false, "Children cannot be negative."
		case name == "budget" && n < MinBudget:
			return false, fmt.Sprintf("Budget should be at least %d INR.", MinBudget)
		}
	}

	return true, ""
}
