// README: Model-backed answer normalization with a raw-text fallback.
package slot

import (
	"context"
	"fmt"
	"log"
	"strings"

	"navmarg/internal/ai"
)

const normalizerSystemPrompt = `You normalize user input for travel planning slots.
Return JSON only: {"normalized_value": "..."}.

Rules:
- Keep meaning unchanged.
- Remove extra fluff.
- For dates, prefer YYYY-MM-DD if clearly inferable.
- For numbers, return only the number.
- For interests, return comma-separated concise values.`

// Normalizer cleans raw slot answers via a model call.
type Normalizer struct {
	provider ai.Provider
	model    string
}

func NewNormalizer(provider ai.Provider, model string) *Normalizer {
	return &Normalizer{provider: provider, model: model}
}

type normalizedAnswer struct {
	NormalizedValue string `json:"normalized_value"`
}

// Normalize returns the cleaned value for a raw answer. Normalization never
// blocks the pipeline: any gateway failure, malformed response, or empty
// result falls back to the trimmed raw text.
func (n *Normalizer) Normalize(ctx context.Context, slotName, rawText string) string {
	fallback := strings.TrimSpace(rawText)
	if n == nil || n.provider == nil {
		return fallback
	}

	userPrompt := fmt.Sprintf("Slot: %s\nRaw user input: %s", slotName, rawText)
	reply, err := n.provider.Call(ctx, n.model, normalizerSystemPrompt, userPrompt, 0.0)
	if err != nil {
		log.Printf("slot normalize: falling back to raw input: %v", err)
		return fallback
	}

	var parsed normalizedAnswer
	if err := ai.ExtractInto(reply, &parsed); err != nil {
		log.Printf("slot normalize: malformed model output: %v", err)
		return fallback
	}
	if strings.TrimSpace(parsed.NormalizedValue) == "" {
		return fallback
	}
	return strings.TrimSpace(parsed.NormalizedValue)
}
