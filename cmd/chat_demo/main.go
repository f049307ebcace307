// README: Terminal chat demo against a live provider, no persistence.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"

	"navmarg/internal/ai"
	"navmarg/internal/modules/conversation"
	"navmarg/internal/modules/guardrail"
	"navmarg/internal/modules/planner"
	"navmarg/internal/modules/slot"
)

func main() {
	apiKey := os.Getenv("GROQ_API_KEY")
	if apiKey == "" {
		log.Fatal("GROQ_API_KEY environment variable not set")
	}

	guardrailModel := envOrDefault("GUARDRAIL_MODEL", "groq/compound-mini")
	plannerModel := envOrDefault("PLANNER_MODEL", "openai/gpt-oss-120b")
	humanizerModel := envOrDefault("HUMANIZER_MODEL", "openai/gpt-oss-120b")

	provider := ai.NewGroqProvider(apiKey)
	classifier := guardrail.NewClassifier(provider, guardrailModel)
	normalizer := slot.NewNormalizer(provider, guardrailModel)
	planSvc := planner.NewService(provider, plannerModel, humanizerModel)
	conv := conversation.NewService(classifier, normalizer, planSvc, nil, nil)

	ctx := context.Background()
	sessionID := conv.StartSession(ctx)
	fmt.Println("NavMarg chat demo. Type your message (ctrl-D to quit).")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		replies, err := conv.HandleMessage(ctx, sessionID, scanner.Text())
		if err != nil {
			log.Fatalf("turn failed: %v", err)
		}
		for _, r := range replies {
			fmt.Printf("NavMarg: %s\n", r)
		}
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
