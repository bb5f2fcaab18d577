package domain

import (
	"context"
	"time"
)

// MinRating and MaxRating bound the star rating of a review
const (
	MinRating = 1
	MaxRating = 5
)

// Review represents a user's rating and comment for one movie
type Review struct {
	ID          string    `json:"id"`
	MovieID     string    `json:"movieId" validate:"required"`
	MovieTitle  string    `json:"movieTitle,omitempty"`
	MoviePoster string    `json:"moviePoster,omitempty"`
	MovieYear   string    `json:"movieYear,omitempty"`
	MovieGenre  string    `json:"movieGenre,omitempty"`
	Rating      int       `json:"rating" validate:"rating"`
	Comment     string    `json:"comment"`
	UserID      string    `json:"userId" validate:"required"`
	UserName    string    `json:"userName"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Edited reports whether the review was changed after creation
func (r *Review) Edited() bool {
	return !r.UpdatedAt.Equal(r.CreatedAt)
}

// Clone returns a copy that can be handed out without exposing store state
func (r *Review) Clone() *Review {
	c := *r
	return &c
}

// Source identifies the screen a review was submitted from
type Source string

const (
	// SourceDetail is the movie detail page, which allows one review per movie
	SourceDetail Source = "detail"

	// SourceBulk is the "rate a movie" flow of the reviews overview
	SourceBulk Source = "bulk"
)

// ReviewPatch carries a partial update; nil fields are left untouched
type ReviewPatch struct {
	Rating  *int    `json:"rating,omitempty" validate:"omitempty,rating"`
	Comment *string `json:"comment,omitempty" validate:"omitempty,max=5000"`
}

// Empty reports whether the patch changes nothing
func (p ReviewPatch) Empty() bool {
	return p.Rating == nil && p.Comment == nil
}

// Persistence tells whether a write reached the remote review API
type Persistence string

const (
	// Persisted means the remote API confirmed the write
	Persisted Persistence = "persisted"

	// LocalOnly means the write was applied to session state only
	LocalOnly Persistence = "local_only"
)

// Result is the outcome of an accepted review mutation
type Result struct {
	Review      *Review     `json:"review"`
	Persistence Persistence `json:"persistence"`
	RemoteErr   error       `json:"-"`
}

// Durable reports whether the write is known to be stored remotely
func (r Result) Durable() bool {
	return r.Persistence == Persisted
}

// ReviewAPI is the remote review service the store writes through
type ReviewAPI interface {
	// Create stores a new review and returns it with the server-assigned ID
	Create(ctx context.Context, review *Review) (*Review, error)

	// Update applies a partial update; the returned review may be nil for empty 2xx bodies
	Update(ctx context.Context, id string, patch ReviewPatch) (*Review, error)

	// Delete removes a review; a missing review is not an error
	Delete(ctx context.Context, id string) error

	// ListByUser returns every review written by the user
	ListByUser(ctx context.Context, userID string) ([]*Review, error)

	// ListByMovie returns every review of a movie
	ListByMovie(ctx context.Context, movieID string) ([]*Review, error)
}
