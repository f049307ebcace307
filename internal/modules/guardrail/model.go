// README: Guardrail decision space and classification result.
package guardrail

import "errors"

// Decision categorizes an inbound utterance.
type Decision string

const (
	DecisionAllow    Decision = "ALLOW"
	DecisionGreeting Decision = "GREETING"
	DecisionOfftopic Decision = "OFFTOPIC"
	DecisionUnsafe   Decision = "UNSAFE"
)

// Result is the outcome of classifying one utterance.
type Result struct {
	Decision         Decision
	Reason           string
	AssistantMessage string
}

// ErrMissingDecision is returned when the classifier model's structured
// output lacks the decision key.
var ErrMissingDecision = errors.New("guardrail output missing 'decision'")
