package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Pesokrava/movie_reviews/internal/config"
	"github.com/Pesokrava/movie_reviews/internal/delivery/events"
	"github.com/Pesokrava/movie_reviews/internal/notify"
	"github.com/Pesokrava/movie_reviews/internal/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.New(cfg.Env, cfg.LogLevel)
	appLogger.Info("Starting notifier service...")

	consumer, err := events.NewConsumer(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to create NATS consumer", err)
	}
	defer consumer.Close()

	handlers := map[string]events.Handler{
		events.StreamSubjects: events.ReviewEventHandler(appLogger.With("subject", events.StreamSubjects)),
		notify.Subject:        events.LoggingHandler(appLogger.With("subject", notify.Subject)),
	}
	for subject, handle := range handlers {
		if err := consumer.Subscribe(subject, handle); err != nil {
			appLogger.Fatal("Failed to subscribe to "+subject, err)
		}
	}

	appLogger.Info("Notifier service started and listening for events...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down notifier service...")
}
