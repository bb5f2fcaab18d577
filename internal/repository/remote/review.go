package remote

import (
	"context"
	"net/http"
	"net/url"

	"github.com/Pesokrava/movie_reviews/internal/domain"
)

// ReviewClient implements domain.ReviewAPI over the remote REST API
type ReviewClient struct {
	client *Client
}

// NewReviewClient creates a review API client
func NewReviewClient(client *Client) *ReviewClient {
	return &ReviewClient{client: client}
}

type createReviewRequest struct {
	MovieID     string `json:"movieId"`
	MovieTitle  string `json:"movieTitle,omitempty"`
	MoviePoster string `json:"moviePoster,omitempty"`
	MovieYear   string `json:"movieYear,omitempty"`
	MovieGenre  string `json:"movieGenre,omitempty"`
	Rating      int    `json:"rating"`
	Comment     string `json:"comment"`
	UserID      string `json:"userId"`
	UserName    string `json:"userName"`
}

type movieReviewsResponse struct {
	Reviews []*domain.Review `json:"reviews"`
}

// Create posts a new review and returns the server's copy
func (c *ReviewClient) Create(ctx context.Context, review *domain.Review) (*domain.Review, error) {
	req := createReviewRequest{
		MovieID:     review.MovieID,
		MovieTitle:  review.MovieTitle,
		MoviePoster: review.MoviePoster,
		MovieYear:   review.MovieYear,
		MovieGenre:  review.MovieGenre,
		Rating:      review.Rating,
		Comment:     review.Comment,
		UserID:      review.UserID,
		UserName:    review.UserName,
	}

	var created domain.Review
	if err := c.client.Do(ctx, http.MethodPost, "/reviews", req, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// Update sends a partial update; a 2xx without a body yields a nil review
func (c *ReviewClient) Update(ctx context.Context, id string, patch domain.ReviewPatch) (*domain.Review, error) {
	var updated domain.Review
	if err := c.client.Do(ctx, http.MethodPut, "/reviews/"+url.PathEscape(id), patch, &updated); err != nil {
		return nil, err
	}
	if updated.ID == "" {
		return nil, nil
	}
	return &updated, nil
}

// Delete removes a review; 404 counts as success since the review is gone either way
func (c *ReviewClient) Delete(ctx context.Context, id string) error {
	err := c.client.Do(ctx, http.MethodDelete, "/reviews/"+url.PathEscape(id), nil, nil)
	if err != nil && !IsNotFound(err) {
		return err
	}
	return nil
}

// ListByUser loads every review of a user
func (c *ReviewClient) ListByUser(ctx context.Context, userID string) ([]*domain.Review, error) {
	var reviews []*domain.Review
	if err := c.client.Do(ctx, http.MethodGet, "/users/"+url.PathEscape(userID)+"/reviews", nil, &reviews); err != nil {
		return nil, err
	}
	return reviews, nil
}

// ListByMovie loads every review of a movie
func (c *ReviewClient) ListByMovie(ctx context.Context, movieID string) ([]*domain.Review, error) {
	var resp movieReviewsResponse
	if err := c.client.Do(ctx, http.MethodGet, "/reviews/movie/"+url.PathEscape(movieID), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Reviews, nil
}
