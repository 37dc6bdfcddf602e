package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/EricMurray-e-m-dev/RankMonkey/internal/config"
	"github.com/EricMurray-e-m-dev/RankMonkey/internal/orchestrator"
)

func main() {
	log.Printf("RankMonkey Monitor starting...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Configuration loaded")
	log.Printf("  Domain: %s", cfg.Domain)
	log.Printf("  Keywords: %d", len(cfg.Keywords))
	log.Printf("  Competitors: %d", len(cfg.Competitors))
	log.Printf("  Ranking Interval: %s", cfg.RankingInterval)
	log.Printf("  Audit Interval: %s", cfg.AuditInterval)

	orch := orchestrator.NewOrchestrator(cfg)

	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Listen for shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	if err := orch.Start(ctx); err != nil {
		log.Fatalf("Failed to start orchestrator: %v", err)
	}

	runErr := make(chan error, 1)
	go func() {
		runErr <- orch.Run(ctx)
	}()

	// Block until shutdown signal or a server failure
	select {
	case <-sigChan:
		log.Printf("Shutdown signal received...")
	case err := <-runErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("Orchestrator error: %v", err)
		}
	}

	cancel()

	if err := orch.Stop(); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	log.Printf("Monitor stopped successfully")
}
