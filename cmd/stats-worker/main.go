package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/Pesokrava/movie_reviews/internal/config"
	"github.com/Pesokrava/movie_reviews/internal/delivery/events"
	"github.com/Pesokrava/movie_reviews/internal/pkg/cache"
	"github.com/Pesokrava/movie_reviews/internal/pkg/logger"
	cacheRepo "github.com/Pesokrava/movie_reviews/internal/repository/cache"
	"github.com/Pesokrava/movie_reviews/internal/stats"
	"github.com/Pesokrava/movie_reviews/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.New(cfg.Env, cfg.LogLevel)
	appLogger.Info("Starting stats worker...")

	appLogger.Info("Connecting to Redis...")
	redisClient, err := cache.WaitForRedis(cfg, 10, 2*time.Second)
	if err != nil {
		appLogger.Fatal("Failed to connect to Redis", err)
	}
	defer redisClient.Close()

	store := cacheRepo.NewRedisCache(redisClient, cacheRepo.TTLs{
		Search:   cfg.Cache.SearchTTL,
		Identity: cfg.Cache.IdentityTTL,
		Stats:    cfg.Cache.StatsTTL,
	})
	statsWorker := worker.NewStatsWorker(stats.NewRegistry(appLogger), store, cfg.Worker.Debounce, appLogger)

	appLogger.Info("Connecting to NATS JetStream...")
	nc, err := nats.Connect(cfg.NATS.URL, nats.Name("movie-reviews-stats-worker"))
	if err != nil {
		appLogger.Fatal("Failed to connect to NATS", err)
	}
	defer nc.Close()

	js, err := nc.JetStream()
	if err != nil {
		appLogger.Fatal("Failed to create JetStream context", err)
	}

	appLogger.WithFields(map[string]any{
		"url": cfg.NATS.URL,
	}).Info("Connected to NATS JetStream")

	if err := events.NewTopology(js, appLogger).Ensure(); err != nil {
		appLogger.Fatal("Failed to declare JetStream topology", err)
	}

	sub, err := js.PullSubscribe(events.StreamSubjects, events.ConsumerName, nats.ManualAck())
	if err != nil {
		appLogger.Fatal("Failed to subscribe to JetStream consumer", err)
	}
	defer func() {
		if err := sub.Unsubscribe(); err != nil {
			appLogger.Error("Failed to unsubscribe from JetStream", err)
		}
	}()

	appLogger.WithFields(map[string]any{
		"stream":   events.StreamName,
		"consumer": events.ConsumerName,
	}).Info("Subscribed to JetStream consumer")

	ctx, stop := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		events.RunPull(ctx, sub, cfg.Worker.BatchSize, statsWorker.HandleEvent, appLogger)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	<-sigCh
	appLogger.Info("Received shutdown signal")

	stop()
	<-done

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := statsWorker.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Error during shutdown", err)
	}

	appLogger.Info("Stats worker stopped")
}
