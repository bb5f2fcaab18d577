package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Pesokrava/movie_reviews/internal/config"
	"github.com/Pesokrava/movie_reviews/internal/delivery/events"
	httpDelivery "github.com/Pesokrava/movie_reviews/internal/delivery/http"
	"github.com/Pesokrava/movie_reviews/internal/delivery/http/handler"
	"github.com/Pesokrava/movie_reviews/internal/domain"
	"github.com/Pesokrava/movie_reviews/internal/notify"
	"github.com/Pesokrava/movie_reviews/internal/pkg/cache"
	"github.com/Pesokrava/movie_reviews/internal/pkg/logger"
	cacheRepo "github.com/Pesokrava/movie_reviews/internal/repository/cache"
	"github.com/Pesokrava/movie_reviews/internal/repository/remote"
	"github.com/Pesokrava/movie_reviews/internal/usecase/identity"
	"github.com/Pesokrava/movie_reviews/internal/usecase/movie"
	"github.com/Pesokrava/movie_reviews/internal/usecase/session"

	_ "github.com/Pesokrava/movie_reviews/docs"
)

// @title Movie Reviews API
// @version 1.0
// @description Gateway for movie search and reviews with local fallback when the review API is down.
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.url http://github.com/Pesokrava/movie_reviews

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

// @tag.name Auth
// @tag.description Login and the current user

// @tag.name Movies
// @tag.description Movie search, details, and stats

// @tag.name Reviews
// @tag.description Review management endpoints

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.New(cfg.Env, cfg.LogLevel)
	logger.SetGlobalLogger(appLogger)
	appLogger.Info("Starting Movie Reviews API...")

	appLogger.Info("Connecting to Redis...")
	redisClient, err := cache.WaitForRedis(cfg, 10, 2*time.Second)
	if err != nil {
		appLogger.Fatal("Failed to connect to Redis", err)
	}
	defer redisClient.Close()
	appLogger.Info("Connected to Redis successfully")

	appLogger.Info("Connecting to NATS...")
	publisher, err := events.NewPublisher(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to create NATS publisher", err)
	}
	defer publisher.Close()

	if err := events.NewTopology(publisher.JetStream(), appLogger).EnsureStream(); err != nil {
		appLogger.Fatal("Failed to ensure JetStream stream", err)
	}

	redisCache := cacheRepo.NewRedisCache(redisClient, cacheRepo.TTLs{
		Search:   cfg.Cache.SearchTTL,
		Identity: cfg.Cache.IdentityTTL,
		Stats:    cfg.Cache.StatsTTL,
	})

	reviewAPI := remote.NewReviewClient(remote.NewClient("reviews", cfg.Remote.ReviewAPIURL, cfg.Remote, appLogger))
	catalog := remote.NewCatalogClient(remote.NewClient("catalog", cfg.Remote.CatalogAPIURL, cfg.Remote, appLogger))

	dispatcher := notify.NewDispatcher(appLogger, publisher)

	identityService := identity.NewService(redisCache, dispatcher, rand.New(rand.NewSource(time.Now().UnixNano())), appLogger)
	movieService := movie.NewService(catalog, redisCache, redisCache, dispatcher, appLogger)
	sessions := session.NewManager(session.Config{
		API:       reviewAPI,
		Publisher: publisher,
		Notifier:  func(userID string) domain.Notifier { return dispatcher.ForUser(userID) },
	}, appLogger)

	authHandler := handler.NewAuthHandler(identityService, sessions, appLogger)
	movieHandler := handler.NewMovieHandler(movieService, appLogger)
	reviewHandler := handler.NewReviewHandler(appLogger)

	router := httpDelivery.NewRouter(authHandler, movieHandler, reviewHandler, identityService, sessions, cfg, appLogger)
	httpHandler := router.Setup()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      httpHandler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		appLogger.Infof("HTTP server listening on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("HTTP server failed", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		appLogger.Fatal("Server forced to shutdown", err)
	}

	appLogger.Infof("Server stopped gracefully, %d review sessions dropped", len(sessions.Users()))
}
