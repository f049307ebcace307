// README: Model gateway contract shared by all providers.
package ai

import (
	"context"
	"errors"
)

// ErrEmptyResponse is returned when a provider answers with blank content.
var ErrEmptyResponse = errors.New("model returned an empty response")

// Provider sends a system+user prompt pair to a language model and returns
// the raw text reply. Implementations carry no business logic; model is an
// opaque identifier resolved by the provider.
type Provider interface {
	Call(ctx context.Context, model, systemPrompt, userPrompt string, temperature float32) (string, error)
}
