package handler

import (
	"net/http"

	"github.com/Pesokrava/movie_reviews/internal/delivery/http/middleware"
	"github.com/Pesokrava/movie_reviews/internal/delivery/http/request"
	"github.com/Pesokrava/movie_reviews/internal/delivery/http/response"
	"github.com/Pesokrava/movie_reviews/internal/domain"
	"github.com/Pesokrava/movie_reviews/internal/pkg/logger"
	"github.com/Pesokrava/movie_reviews/internal/usecase/identity"
)

// SessionReleaser drops the review session of a user
type SessionReleaser interface {
	Release(userID string)
}

// AuthHandler handles login, logout, and the current user
type AuthHandler struct {
	identity *identity.Service
	sessions SessionReleaser
	logger   *logger.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(identityService *identity.Service, sessions SessionReleaser, log *logger.Logger) *AuthHandler {
	return &AuthHandler{
		identity: identityService,
		sessions: sessions,
		logger:   log.Component("auth_handler"),
	}
}

// LoginRequest represents the request body for an email login
type LoginRequest struct {
	Email string `json:"email" example:"jane@example.com"`
}

// UpdateProfileRequest represents the request body for a profile edit
type UpdateProfileRequest struct {
	Name           string   `json:"name" example:"Jane Doe"`
	Email          string   `json:"email" example:"jane@example.com"`
	Bio            string   `json:"bio" example:"Movie enthusiast who loves sharing thoughts on films."`
	FavoriteGenres []string `json:"favoriteGenres" example:"Drama,Sci-Fi"`
}

// Me is the current user with a summary of their reviews
type Me struct {
	User    domain.User            `json:"user"`
	Profile domain.ReviewerProfile `json:"profile"`
}

// Login handles POST /api/v1/auth/login
// @Summary Log in with an email address
// @Description Any well-formed email logs in. The returned token is sent as a bearer token on later requests.
// @Tags Auth
// @Accept json
// @Produce json
// @Param login body LoginRequest true "Email address"
// @Success 200 {object} response.Envelope{data=identity.Session}
// @Failure 400 {object} response.ErrorBody "Invalid email"
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	sess, err := h.identity.Login(r.Context(), req.Email)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	response.Success(w, r, sess)
}

// Demo handles POST /api/v1/auth/demo
// @Summary Log in as a demo user
// @Tags Auth
// @Produce json
// @Success 200 {object} response.Envelope{data=identity.Session}
// @Router /auth/demo [post]
func (h *AuthHandler) Demo(w http.ResponseWriter, r *http.Request) {
	sess, err := h.identity.DemoLogin(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	response.Success(w, r, sess)
}

// Me handles GET /api/v1/auth/me
// @Summary Get the current user
// @Description Get the logged-in user and a summary of their reviews.
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope{data=Me}
// @Failure 401 {object} response.ErrorBody
// @Router /auth/me [get]
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	sess, ok := currentSession(w, r)
	if !ok {
		return
	}

	response.Success(w, r, Me{
		User:    sess.Reviews.Author(),
		Profile: sess.Reviews.Profile(),
	})
}

// UpdateMe handles PUT /api/v1/auth/me
// @Summary Edit your profile
// @Description Change your name, bio and favorite genres. An empty email keeps the current one.
// @Tags Auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param profile body UpdateProfileRequest true "Profile"
// @Success 200 {object} response.Envelope{data=Me}
// @Failure 400 {object} response.ErrorBody "Invalid profile"
// @Failure 401 {object} response.ErrorBody
// @Router /auth/me [put]
func (h *AuthHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	sess, ok := currentSession(w, r)
	if !ok {
		return
	}

	var req UpdateProfileRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.identity.UpdateProfile(r.Context(), middleware.TokenFromContext(r.Context()), identity.ProfileInput{
		Name:           req.Name,
		Email:          req.Email,
		Bio:            req.Bio,
		FavoriteGenres: req.FavoriteGenres,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	sess.Reviews.SetAuthor(*user)

	response.Success(w, r, Me{
		User:    *user,
		Profile: sess.Reviews.Profile(),
	})
}

// Logout handles POST /api/v1/auth/logout
// @Summary Log out
// @Description Revoke the bearer token and drop the review session.
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sess, ok := currentSession(w, r)
	if !ok {
		return
	}

	if err := h.identity.Logout(r.Context(), middleware.TokenFromContext(r.Context())); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.sessions.Release(sess.User.ID)

	response.Success(w, r, nil)
}
