package handler

import (
	"errors"
	"net/http"

	"github.com/Pesokrava/movie_reviews/internal/delivery/http/response"
	"github.com/Pesokrava/movie_reviews/internal/domain"
	"github.com/Pesokrava/movie_reviews/internal/pkg/logger"
	"github.com/Pesokrava/movie_reviews/internal/usecase/session"
)

// writeError maps service layer errors to HTTP responses
func writeError(w http.ResponseWriter, r *http.Request, log *logger.Logger, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		response.Error(w, r, http.StatusBadRequest, "Invalid input")
	case errors.Is(err, domain.ErrNotFound):
		response.Error(w, r, http.StatusNotFound, "Resource not found")
	case errors.Is(err, domain.ErrForbidden):
		response.Error(w, r, http.StatusForbidden, "You can only change your own reviews")
	case errors.Is(err, domain.ErrAlreadyExists):
		response.Error(w, r, http.StatusConflict, "You have already reviewed this movie")
	case errors.Is(err, domain.ErrUnauthorized):
		response.Error(w, r, http.StatusUnauthorized, "Please log in to continue")
	case errors.Is(err, domain.ErrRemoteUnavailable):
		response.Error(w, r, http.StatusBadGateway, "Upstream service unavailable")
	default:
		log.Error("Internal error in handler", err)
		response.Error(w, r, http.StatusInternalServerError, "Internal server error")
	}
}

// currentSession returns the session attached by the auth middleware, writing 401 when absent
func currentSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "Please log in to continue")
		return nil, false
	}
	return sess, true
}
