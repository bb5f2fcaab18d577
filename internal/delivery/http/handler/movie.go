package handler

import (
	"net/http"

	"github.com/Pesokrava/movie_reviews/internal/delivery/http/request"
	"github.com/Pesokrava/movie_reviews/internal/delivery/http/response"
	"github.com/Pesokrava/movie_reviews/internal/domain"
	"github.com/Pesokrava/movie_reviews/internal/pkg/logger"
	"github.com/Pesokrava/movie_reviews/internal/usecase/movie"
)

// MovieHandler handles HTTP requests for movies and their stats
type MovieHandler struct {
	service *movie.Service
	logger  *logger.Logger
}

// NewMovieHandler creates a new movie handler
func NewMovieHandler(service *movie.Service, log *logger.Logger) *MovieHandler {
	return &MovieHandler{
		service: service,
		logger:  log.Component("movie_handler"),
	}
}

// MovieDetail is a movie with the session's view of its reviews
type MovieDetail struct {
	Movie     *domain.Movie        `json:"movie"`
	Stats     domain.StatsSnapshot `json:"stats"`
	OwnReview *ReviewView          `json:"ownReview,omitempty"`
}

// Search handles GET /api/v1/movies/search
// @Summary Search movies
// @Description Search one page of the movie catalog. Results are cached in Redis.
// @Tags Movies
// @Produce json
// @Param q query string true "Search term"
// @Param page query int false "Result page" default(1)
// @Param type query string false "Result type" Enums(all, movie, series, episode)
// @Param y query string false "Release year"
// @Success 200 {object} response.Envelope{data=domain.SearchResult}
// @Failure 400 {object} response.ErrorBody "Empty search term or invalid filter"
// @Failure 502 {object} response.ErrorBody "Catalog unavailable"
// @Router /movies/search [get]
func (h *MovieHandler) Search(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Search(r.Context(), request.SearchQuery(r))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	response.Success(w, r, result)
}

// Popular handles GET /api/v1/movies/popular
// @Summary List popular movies
// @Description Get the catalog's featured movies. Results are cached in Redis.
// @Tags Movies
// @Produce json
// @Success 200 {object} response.Envelope{data=[]domain.Movie}
// @Failure 502 {object} response.ErrorBody "Catalog unavailable"
// @Router /movies/popular [get]
func (h *MovieHandler) Popular(w http.ResponseWriter, r *http.Request) {
	movies, err := h.service.Popular(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	response.Success(w, r, movies)
}

// Get handles GET /api/v1/movies/:id
// @Summary Get movie details
// @Description Get a movie together with its stats and your own review, loading every review of the movie into the session.
// @Tags Movies
// @Produce json
// @Security BearerAuth
// @Param id path string true "Movie ID"
// @Success 200 {object} response.Envelope{data=MovieDetail}
// @Failure 404 {object} response.ErrorBody "Movie not found"
// @Router /movies/{id} [get]
func (h *MovieHandler) Get(w http.ResponseWriter, r *http.Request) {
	sess, ok := currentSession(w, r)
	if !ok {
		return
	}

	id, err := request.GetParam(r, "id")
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "Invalid movie ID")
		return
	}

	m, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	// A failed load keeps local data and already raised a notification
	_ = sess.Reviews.LoadMovie(r.Context(), id)

	detail := MovieDetail{
		Movie: m,
		Stats: sess.Stats.Snapshot(id),
	}
	if own, ok := sess.Reviews.Own(id); ok {
		view := newReviewView(own)
		detail.OwnReview = &view
	}

	response.Success(w, r, detail)
}

// Reviews handles GET /api/v1/movies/:id/reviews
// @Summary List reviews of a movie
// @Tags Movies
// @Produce json
// @Security BearerAuth
// @Param id path string true "Movie ID"
// @Param sort query string false "Sort order" Enums(newest, oldest, highest, lowest) default(newest)
// @Param others query bool false "Leave out your own review"
// @Success 200 {object} response.Envelope{data=ReviewList}
// @Router /movies/{id}/reviews [get]
func (h *MovieHandler) Reviews(w http.ResponseWriter, r *http.Request) {
	sess, ok := currentSession(w, r)
	if !ok {
		return
	}

	id, err := request.GetParam(r, "id")
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "Invalid movie ID")
		return
	}

	_ = sess.Reviews.LoadMovie(r.Context(), id)

	filter := domain.ReviewFilter{MovieID: id, Bucket: domain.BucketAll}
	if r.URL.Query().Get("others") == "true" {
		filter.ExcludeUserID = sess.User.ID
	}
	order := domain.ParseSortOrder(r.URL.Query().Get("sort"))

	response.Success(w, r, newReviewList(sess.Reviews.List(filter, order)))
}

// Leave handles POST /api/v1/movies/:id/leave
// @Summary Leave a movie page
// @Description Drop the other reviewers' reviews loaded for the movie page and discard or rebuild its session stats.
// @Tags Movies
// @Produce json
// @Security BearerAuth
// @Param id path string true "Movie ID"
// @Success 200 {object} response.Envelope
// @Router /movies/{id}/leave [post]
func (h *MovieHandler) Leave(w http.ResponseWriter, r *http.Request) {
	sess, ok := currentSession(w, r)
	if !ok {
		return
	}

	id, err := request.GetParam(r, "id")
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "Invalid movie ID")
		return
	}

	sess.Reviews.LeaveMovie(id)
	response.Success(w, r, nil)
}

// Stats handles GET /api/v1/movies/:id/stats
// @Summary Get movie stats
// @Description Get the average rating and rating distribution as seen by your session, including local-only reviews.
// @Tags Movies
// @Produce json
// @Security BearerAuth
// @Param id path string true "Movie ID"
// @Success 200 {object} response.Envelope{data=domain.StatsSnapshot}
// @Router /movies/{id}/stats [get]
func (h *MovieHandler) Stats(w http.ResponseWriter, r *http.Request) {
	sess, ok := currentSession(w, r)
	if !ok {
		return
	}

	id, err := request.GetParam(r, "id")
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "Invalid movie ID")
		return
	}

	response.Success(w, r, sess.Stats.Snapshot(id))
}

// GlobalStats handles GET /api/v1/movies/:id/stats/global
// @Summary Get global movie stats
// @Description Get the stats maintained by the stats worker across every user.
// @Tags Movies
// @Produce json
// @Param id path string true "Movie ID"
// @Success 200 {object} response.Envelope{data=domain.StatsSnapshot}
// @Router /movies/{id}/stats/global [get]
func (h *MovieHandler) GlobalStats(w http.ResponseWriter, r *http.Request) {
	id, err := request.GetParam(r, "id")
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "Invalid movie ID")
		return
	}

	snapshot, err := h.service.GlobalStats(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	response.Success(w, r, snapshot)
}

// Unrated handles GET /api/v1/movies/unrated
// @Summary Search movies you have not rated
// @Description Search the catalog and leave out the movies you already reviewed.
// @Tags Movies
// @Produce json
// @Security BearerAuth
// @Param q query string true "Search term"
// @Param page query int false "Result page" default(1)
// @Param type query string false "Result type" Enums(all, movie, series, episode)
// @Param y query string false "Release year"
// @Success 200 {object} response.Envelope{data=[]domain.Movie}
// @Failure 400 {object} response.ErrorBody "Empty search term or invalid filter"
// @Router /movies/unrated [get]
func (h *MovieHandler) Unrated(w http.ResponseWriter, r *http.Request) {
	sess, ok := currentSession(w, r)
	if !ok {
		return
	}

	result, err := h.service.Search(r.Context(), request.SearchQuery(r))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	response.Success(w, r, sess.Reviews.Unrated(result.Movies))
}
