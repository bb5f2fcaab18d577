package handler

import (
	"net/http"

	"github.com/Pesokrava/movie_reviews/internal/delivery/http/request"
	"github.com/Pesokrava/movie_reviews/internal/delivery/http/response"
	"github.com/Pesokrava/movie_reviews/internal/domain"
	"github.com/Pesokrava/movie_reviews/internal/pkg/logger"
	"github.com/Pesokrava/movie_reviews/internal/usecase/review"
)

// ReviewHandler handles HTTP requests for the reviews of the logged-in user
type ReviewHandler struct {
	logger *logger.Logger
}

// NewReviewHandler creates a new review handler
func NewReviewHandler(log *logger.Logger) *ReviewHandler {
	return &ReviewHandler{
		logger: log.Component("review_handler"),
	}
}

// CreateReviewRequest represents the request body for creating a review
type CreateReviewRequest struct {
	MovieID     string `json:"movieId"`
	MovieTitle  string `json:"movieTitle"`
	MoviePoster string `json:"moviePoster"`
	MovieYear   string `json:"movieYear"`
	MovieGenre  string `json:"movieGenre"`
	Rating      int    `json:"rating"`
	Comment     string `json:"comment"`
	Source      string `json:"source" enums:"detail,bulk"`
}

// UpdateReviewRequest represents the request body for updating a review.
// Omitted fields are left untouched.
type UpdateReviewRequest struct {
	Rating  *int    `json:"rating,omitempty"`
	Comment *string `json:"comment,omitempty"`
}

// ReviewView is a review as rendered to the browser
type ReviewView struct {
	*domain.Review
	Edited bool `json:"edited"`
	Local  bool `json:"local"`
}

// ReviewList is the body of a review listing
type ReviewList struct {
	Reviews []ReviewView `json:"reviews"`
	Total   int          `json:"total"`
}

func newReviewView(r *domain.Review) ReviewView {
	return ReviewView{Review: r, Edited: r.Edited(), Local: review.IsLocal(r.ID)}
}

func newReviewList(reviews []*domain.Review) ReviewList {
	views := make([]ReviewView, len(reviews))
	for i, r := range reviews {
		views[i] = newReviewView(r)
	}
	return ReviewList{Reviews: views, Total: len(views)}
}

func filterFromQuery(r *http.Request) (domain.ReviewFilter, domain.SortOrder) {
	q := r.URL.Query()
	filter := domain.ReviewFilter{
		Query:   q.Get("query"),
		Bucket:  domain.ParseBucket(q.Get("bucket")),
		MovieID: q.Get("movieId"),
	}
	return filter, domain.ParseSortOrder(q.Get("sort"))
}

// List handles GET /api/v1/reviews
// @Summary List reviews
// @Description List the reviews held by the session of the logged-in user. Filtering and sorting happen on the gateway.
// @Tags Reviews
// @Produce json
// @Security BearerAuth
// @Param query query string false "Case-insensitive match on movie title or comment"
// @Param bucket query string false "Review bucket" Enums(all, high-rated, low-rated, recent) default(all)
// @Param sort query string false "Sort order" Enums(newest, oldest, highest, lowest) default(newest)
// @Param movieId query string false "Restrict to one movie"
// @Success 200 {object} response.Envelope{data=ReviewList}
// @Failure 401 {object} response.ErrorBody
// @Router /reviews [get]
func (h *ReviewHandler) List(w http.ResponseWriter, r *http.Request) {
	sess, ok := currentSession(w, r)
	if !ok {
		return
	}

	filter, order := filterFromQuery(r)
	response.Success(w, r, newReviewList(sess.Reviews.List(filter, order)))
}

// Get handles GET /api/v1/reviews/:id
// @Summary Get a review
// @Tags Reviews
// @Produce json
// @Security BearerAuth
// @Param id path string true "Review ID"
// @Success 200 {object} response.Envelope{data=ReviewView}
// @Failure 404 {object} response.ErrorBody
// @Router /reviews/{id} [get]
func (h *ReviewHandler) Get(w http.ResponseWriter, r *http.Request) {
	sess, ok := currentSession(w, r)
	if !ok {
		return
	}

	id, err := request.GetParam(r, "id")
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "Invalid review ID")
		return
	}

	rev, err := sess.Reviews.Get(id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	response.Success(w, r, newReviewView(rev))
}

// Create handles POST /api/v1/reviews
// @Summary Create a review
// @Description Create a review for a movie. When the review API is unreachable the review is kept locally and the response is tagged local_only.
// @Tags Reviews
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param review body CreateReviewRequest true "Review details"
// @Success 201 {object} response.Envelope{data=domain.Review} "Review accepted"
// @Failure 400 {object} response.ErrorBody "Invalid request body"
// @Failure 409 {object} response.ErrorBody "Movie already reviewed"
// @Router /reviews [post]
func (h *ReviewHandler) Create(w http.ResponseWriter, r *http.Request) {
	sess, ok := currentSession(w, r)
	if !ok {
		return
	}

	var req CreateReviewRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := sess.Reviews.Create(r.Context(), review.CreateInput{
		MovieID:     req.MovieID,
		MovieTitle:  req.MovieTitle,
		MoviePoster: req.MoviePoster,
		MovieYear:   req.MovieYear,
		MovieGenre:  req.MovieGenre,
		Rating:      req.Rating,
		Comment:     req.Comment,
		Source:      domain.Source(req.Source),
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	response.Mutation(w, r, http.StatusCreated, result)
}

// Update handles PUT /api/v1/reviews/:id
// @Summary Update a review
// @Description Change the rating or comment of one of your reviews. The change is kept locally even when the review API fails.
// @Tags Reviews
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Review ID"
// @Param review body UpdateReviewRequest true "Fields to change"
// @Success 200 {object} response.Envelope{data=domain.Review}
// @Failure 400 {object} response.ErrorBody
// @Failure 403 {object} response.ErrorBody
// @Failure 404 {object} response.ErrorBody
// @Router /reviews/{id} [put]
func (h *ReviewHandler) Update(w http.ResponseWriter, r *http.Request) {
	sess, ok := currentSession(w, r)
	if !ok {
		return
	}

	id, err := request.GetParam(r, "id")
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "Invalid review ID")
		return
	}

	var req UpdateReviewRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := sess.Reviews.Update(r.Context(), id, domain.ReviewPatch{
		Rating:  req.Rating,
		Comment: req.Comment,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	response.Mutation(w, r, http.StatusOK, result)
}

// Delete handles DELETE /api/v1/reviews/:id
// @Summary Delete a review
// @Description Delete one of your reviews. The review is always removed from the session; persistence tells whether the review API confirmed it.
// @Tags Reviews
// @Produce json
// @Security BearerAuth
// @Param id path string true "Review ID"
// @Success 200 {object} response.Envelope{data=domain.Review}
// @Failure 403 {object} response.ErrorBody
// @Failure 404 {object} response.ErrorBody
// @Router /reviews/{id} [delete]
func (h *ReviewHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sess, ok := currentSession(w, r)
	if !ok {
		return
	}

	id, err := request.GetParam(r, "id")
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "Invalid review ID")
		return
	}

	result, err := sess.Reviews.Delete(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	response.Mutation(w, r, http.StatusOK, result)
}

// Reload handles POST /api/v1/reviews/reload
// @Summary Reload reviews
// @Description Fetch your reviews from the review API again. Local-only reviews survive the reload.
// @Tags Reviews
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope{data=ReviewList}
// @Router /reviews/reload [post]
func (h *ReviewHandler) Reload(w http.ResponseWriter, r *http.Request) {
	sess, ok := currentSession(w, r)
	if !ok {
		return
	}

	// A failed reload keeps local data and already raised a notification
	_ = sess.Reviews.Load(r.Context())

	filter, order := filterFromQuery(r)
	response.Success(w, r, newReviewList(sess.Reviews.List(filter, order)))
}
