package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/Pesokrava/movie_reviews/internal/config"
	"github.com/Pesokrava/movie_reviews/internal/delivery/http/handler"
	"github.com/Pesokrava/movie_reviews/internal/delivery/http/middleware"
	"github.com/Pesokrava/movie_reviews/internal/delivery/http/response"
	"github.com/Pesokrava/movie_reviews/internal/pkg/logger"
)

// Router holds HTTP handlers and router configuration
type Router struct {
	authHandler   *handler.AuthHandler
	movieHandler  *handler.MovieHandler
	reviewHandler *handler.ReviewHandler
	resolver      middleware.Resolver
	sessions      middleware.SessionProvider
	logger        *logger.Logger
	cfg           *config.Config
}

// NewRouter creates a new HTTP router
func NewRouter(
	authHandler *handler.AuthHandler,
	movieHandler *handler.MovieHandler,
	reviewHandler *handler.ReviewHandler,
	resolver middleware.Resolver,
	sessions middleware.SessionProvider,
	cfg *config.Config,
	log *logger.Logger,
) *Router {
	return &Router{
		authHandler:   authHandler,
		movieHandler:  movieHandler,
		reviewHandler: reviewHandler,
		resolver:      resolver,
		sessions:      sessions,
		logger:        log,
		cfg:           cfg,
	}
}

// Setup configures and returns the HTTP router
func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Recovery(rt.logger))
	r.Use(middleware.Logger(rt.logger))
	r.Use(middleware.Metrics())
	r.Use(middleware.Notifications())
	r.Use(chimw.Timeout(rt.cfg.Server.RequestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   rt.cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", rt.healthCheck)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	limiter := middleware.NewRateLimiter(rt.cfg.RateLimit.RPS, rt.cfg.RateLimit.Burst, middleware.KeyByTokenOrIP())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(limiter.Handler())

		r.Post("/auth/login", rt.authHandler.Login)
		r.Post("/auth/demo", rt.authHandler.Demo)
		r.Get("/movies/search", rt.movieHandler.Search)
		r.Get("/movies/popular", rt.movieHandler.Popular)
		r.Get("/movies/{id}/stats/global", rt.movieHandler.GlobalStats)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(rt.resolver, rt.sessions, rt.logger))

			r.Get("/auth/me", rt.authHandler.Me)
			r.Put("/auth/me", rt.authHandler.UpdateMe)
			r.Post("/auth/logout", rt.authHandler.Logout)

			r.Get("/movies/unrated", rt.movieHandler.Unrated)
			r.Get("/movies/{id}", rt.movieHandler.Get)
			r.Get("/movies/{id}/reviews", rt.movieHandler.Reviews)
			r.Get("/movies/{id}/stats", rt.movieHandler.Stats)
			r.Post("/movies/{id}/leave", rt.movieHandler.Leave)

			r.Route("/reviews", func(r chi.Router) {
				r.Get("/", rt.reviewHandler.List)
				r.Post("/", rt.reviewHandler.Create)
				r.Post("/reload", rt.reviewHandler.Reload)
				r.Get("/{id}", rt.reviewHandler.Get)
				r.Put("/{id}", rt.reviewHandler.Update)
				r.Delete("/{id}", rt.reviewHandler.Delete)
			})
		})
	})

	return r
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
