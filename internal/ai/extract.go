// README: Structured extractor; recovers JSON payloads wrapped in prose or fences.
package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrParse is returned when no valid JSON payload can be recovered from a
// model response.
var ErrParse = errors.New("no valid JSON payload in model response")

// Extract recovers the JSON payload from a model response. Models routinely
// wrap structured output in prose or markdown fences despite instructions not
// to, so after a direct parse fails it looks inside a ```json fence, then
// inside any ``` fence.
func Extract(text string) ([]byte, error) {
	raw := strings.TrimSpace(text)
	if json.Valid([]byte(raw)) {
		return []byte(raw), nil
	}

	if idx := strings.Index(raw, "```json"); idx >= 0 {
		raw = raw[idx+len("```json"):]
		if end := strings.Index(raw, "```"); end >= 0 {
			raw = raw[:end]
		}
	} else if idx := strings.Index(raw, "```"); idx >= 0 {
		raw = raw[idx+len("```"):]
		if end := strings.Index(raw, "```"); end >= 0 {
			raw = raw[:end]
		}
	} else {
		return nil, ErrParse
	}

	raw = strings.TrimSpace(raw)
	if !json.Valid([]byte(raw)) {
		return nil, ErrParse
	}
	return []byte(raw), nil
}

// ExtractInto recovers the JSON payload from text and unmarshals it into v.
func ExtractInto(text string, v any) error {
	payload, err := Extract(text)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("%w: %v", ErrParse, err)
	}
	return nil
}
