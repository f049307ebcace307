// README: Gemini provider backed by Google's official SDK.
package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// defaultGeminiModel is used when a stage id does not name a Gemini model,
// e.g. when the configured stage ids come from the Groq catalogue.
const defaultGeminiModel = "gemini-2.0-flash"

// resolveGeminiModel maps a per-stage model id to the Gemini model to call.
func resolveGeminiModel(model string) string {
	model = strings.TrimSpace(model)
	if strings.HasPrefix(model, "gemini-") {
		return model
	}
	return defaultGeminiModel
}

// GeminiProvider implements Provider using Google's Gemini models.
type GeminiProvider struct {
	client *genai.Client
}

// NewGeminiProvider initializes a new Gemini client.
// apiKey should be provided from environment variables.
func NewGeminiProvider(ctx context.Context, apiKey string) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiProvider{client: client}, nil
}

// Close cleans up the Gemini client resources.
func (p *GeminiProvider) Close() {
	p.client.Close()
}

func (p *GeminiProvider) Call(ctx context.Context, model, systemPrompt, userPrompt string, temperature float32) (string, error) {
	m := p.client.GenerativeModel(resolveGeminiModel(model))
	m.SetTemperature(temperature)

	// Appending the system prompt directly keeps the context binding explicit
	// per request instead of relying on SystemInstruction.
	fullPrompt := fmt.Sprintf("%s\n\n%s", systemPrompt, userPrompt)

	resp, err := m.GenerateContent(ctx, genai.Text(fullPrompt))
	if err != nil {
		return "", fmt.Errorf("gemini generation error: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("gemini: no response candidates")
	}

	var textParts []string
	for _, part := range resp.Candidates[0].Content.Parts {
		txt, ok := part.(genai.Text)
		if !ok || strings.TrimSpace(string(txt)) == "" {
			continue
		}
		textParts = append(textParts, string(txt))
	}
	if len(textParts) == 0 {
		return "", fmt.Errorf("gemini: %w", ErrEmptyResponse)
	}

	return strings.TrimSpace(strings.Join(textParts, "\n")), nil
}
