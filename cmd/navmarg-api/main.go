// README: Entry point; loads config, wires services, starts the HTTP server.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"navmarg/internal/ai"
	"navmarg/internal/config"
	httptransport "navmarg/internal/http"
	"navmarg/internal/infra"
	"navmarg/internal/modules/conversation"
	"navmarg/internal/modules/geo"
	"navmarg/internal/modules/guardrail"
	"navmarg/internal/modules/planner"
	"navmarg/internal/modules/slot"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var provider ai.Provider
	switch cfg.AI.Provider {
	case "gemini":
		gemini, err := ai.NewGeminiProvider(ctx, cfg.AI.GeminiKey)
		if err != nil {
			log.Fatalf("gemini init: %v", err)
		}
		defer gemini.Close()
		provider = gemini
	default:
		provider = ai.NewGroqProvider(cfg.AI.GroqKey)
	}

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		log.Fatal(err)
	}
	defer dbPool.Close()

	redisClient := infra.NewRedis(cfg.Redis.Addr)

	var places conversation.PlaceChecker
	if cfg.Maps.APIKey != "" {
		geoSvc, err := geo.NewService(cfg.Maps.APIKey)
		if err != nil {
			log.Fatalf("maps init: %v", err)
		}
		places = geoSvc
	}

	classifier := guardrail.NewClassifier(provider, cfg.AI.GuardrailModel)
	normalizer := slot.NewNormalizer(provider, cfg.AI.GuardrailModel)
	planSvc := planner.NewService(provider, cfg.AI.PlannerModel, cfg.AI.HumanizerModel)
	store := conversation.NewStore(dbPool, redisClient)
	if err := store.EnsureSchema(ctx); err != nil {
		log.Fatal(err)
	}
	convSvc := conversation.NewService(classifier, normalizer, planSvc, store, places)

	server := &http.Server{Addr: cfg.HTTP.Addr, Handler: httptransport.NewRouter(convSvc)}

	go func() {
		<-ctx.Done()
		_ = server.Shutdown(context.Background())
	}()

	log.Printf("navmarg listening on %s (provider=%s)", cfg.HTTP.Addr, cfg.AI.Provider)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}
