package main

import (
	"chatgraph/backend/internal/chathub"
	"chatgraph/backend/internal/config"
	"chatgraph/backend/internal/models"
	"chatgraph/backend/internal/storage"
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	log.Println("Starting chatgraph...")

	// 1. Конфігурація
	cfg := config.Load()
	limits, err := cfg.Limits()
	if err != nil {
		log.Fatalf("Failed to load limits: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Ініціалізація залежностей
	st, _, err := storage.Connect(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to set up storage: %v", err)
	}

	// 3. Store та Chat Hub
	store := models.NewStore(models.WithLimits(limits))
	hub := chathub.NewManagerService(store, st, cfg.SnapshotInterval)
	if err := hub.RestoreLatest(ctx); err != nil {
		log.Fatalf("Failed to restore latest snapshot: %v", err)
	}

	go hub.Run(context.Background())
	log.Printf("INFO: Snapshots every %s. Press Ctrl+C to stop.", cfg.SnapshotInterval)

	<-ctx.Done()
	log.Println("INFO: Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := hub.Shutdown(shutdownCtx); err != nil {
		log.Printf("ERROR: Shutdown did not finish: %v", err)
	}
}
