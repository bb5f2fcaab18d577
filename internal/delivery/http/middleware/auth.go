package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/Pesokrava/movie_reviews/internal/delivery/http/request"
	"github.com/Pesokrava/movie_reviews/internal/delivery/http/response"
	"github.com/Pesokrava/movie_reviews/internal/domain"
	"github.com/Pesokrava/movie_reviews/internal/notify"
	"github.com/Pesokrava/movie_reviews/internal/pkg/logger"
	"github.com/Pesokrava/movie_reviews/internal/usecase/session"
)

// Resolver maps a bearer token to a user
type Resolver interface {
	Resolve(ctx context.Context, token string) (*domain.User, error)
}

// SessionProvider hands out the review session of a user
type SessionProvider interface {
	Acquire(ctx context.Context, user domain.User) *session.Session
}

type tokenKey struct{}

// TokenFromContext returns the bearer token of an authenticated request
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

// Notifications attaches a fresh notification collector to every request
func Notifications() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, _ := notify.WithCollector(r.Context())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Authenticate resolves the bearer token and puts the user's session into the context
func Authenticate(resolver Resolver, sessions SessionProvider, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := request.BearerToken(r)
			if token == "" {
				response.Error(w, r, http.StatusUnauthorized, "Please log in to continue")
				return
			}

			user, err := resolver.Resolve(r.Context(), token)
			if err != nil {
				if errors.Is(err, domain.ErrUnauthorized) {
					response.Error(w, r, http.StatusUnauthorized, "Please log in to continue")
					return
				}
				log.Error("Failed to resolve bearer token", err)
				response.Error(w, r, http.StatusInternalServerError, "Internal server error")
				return
			}

			sess := sessions.Acquire(r.Context(), *user)
			ctx := session.NewContext(r.Context(), sess)
			ctx = context.WithValue(ctx, tokenKey{}, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
