// Package review implements the per-session review store: the single writer
// of a user's reviews, which writes through to the remote API and falls back
// to local state when the API cannot be reached.
package review

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/Pesokrava/movie_reviews/internal/domain"
	"github.com/Pesokrava/movie_reviews/internal/pkg/logger"
	"github.com/Pesokrava/movie_reviews/internal/pkg/metrics"
	validatorpkg "github.com/Pesokrava/movie_reviews/internal/pkg/validator"
)

// EventsSubject is the JetStream subject review events are published on
const EventsSubject = "reviews.events"

// LocalIDPrefix marks reviews that were never confirmed by the remote API
const LocalIDPrefix = "local_"

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(ctx context.Context, subject, msgID string, data []byte) error
}

// StatsSink receives the stats deltas produced by review mutations
type StatsSink interface {
	Apply(d domain.Delta)
	Rebuild(movieID string, ratings []int)
	Discard(movieID string)
}

// CreateInput is a new review as submitted by the author
type CreateInput struct {
	MovieID     string        `json:"movieId" validate:"required"`
	MovieTitle  string        `json:"movieTitle"`
	MoviePoster string        `json:"moviePoster"`
	MovieYear   string        `json:"movieYear"`
	MovieGenre  string        `json:"movieGenre"`
	Rating      int           `json:"rating" validate:"rating"`
	Comment     string        `json:"comment" validate:"max=5000"`
	Source      domain.Source `json:"source"`
}

// Option configures a Service
type Option func(*Service)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides how local review and event IDs are generated
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

// Service handles the review lifecycle of one author
type Service struct {
	api       domain.ReviewAPI
	author    domain.User
	stats     StatsSink
	publisher EventPublisher
	notifier  domain.Notifier
	validate  *validator.Validate
	logger    *logger.Logger

	now   func() time.Time
	newID func() string

	mu      sync.Mutex
	reviews []*domain.Review // newest first
	// server reviews whose last local edit or delete never reached the API
	pending    map[string]struct{}
	tombstones map[string]struct{}
}

// NewService creates a review store for author; publisher and notifier may be nil
func NewService(
	api domain.ReviewAPI,
	author domain.User,
	stats StatsSink,
	publisher EventPublisher,
	notifier domain.Notifier,
	log *logger.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		api:       api,
		author:    author,
		stats:     stats,
		publisher: publisher,
		notifier:  notifier,
		validate:  validatorpkg.Get(),
		logger:    log.Component("review").With("user_id", author.ID),
		now:        time.Now,
		newID:      uuid.NewString,
		pending:    make(map[string]struct{}),
		tombstones: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Author returns the acting user of the store
func (s *Service) Author() domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.author
}

// SetAuthor refreshes the author's profile; reviews written afterwards carry the new name.
// A user with a different ID is ignored.
func (s *Service) SetAuthor(user domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user.ID == s.author.ID {
		s.author = user
	}
}

// Create adds a new review, writing through to the remote API first
func (s *Service) Create(ctx context.Context, in CreateInput) (domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.validate.Struct(in); err != nil {
		msg := validatorpkg.Message(err)
		s.notify(ctx, msg, domain.SeverityWarning)
		s.logger.Debugf("Review validation failed: %v", err)
		return domain.Result{}, fmt.Errorf("%w: %s", domain.ErrInvalidInput, msg)
	}

	// The detail page allows one review per movie; bulk rating does not check
	if in.Source != domain.SourceBulk {
		if existing := s.ownLocked(in.MovieID); existing != nil {
			s.notify(ctx, "You have already reviewed this movie", domain.SeverityWarning)
			return domain.Result{Review: existing.Clone()}, domain.ErrAlreadyExists
		}
	}

	now := s.now()
	candidate := &domain.Review{
		MovieID:     in.MovieID,
		MovieTitle:  in.MovieTitle,
		MoviePoster: in.MoviePoster,
		MovieYear:   in.MovieYear,
		MovieGenre:  in.MovieGenre,
		Rating:      in.Rating,
		Comment:     in.Comment,
		UserID:      s.author.ID,
		UserName:    s.author.Name,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	created, remoteErr := s.api.Create(s.remoteContext(ctx), candidate)

	result := domain.Result{Persistence: domain.Persisted}
	if remoteErr != nil || created == nil {
		if remoteErr == nil {
			remoteErr = fmt.Errorf("%w: empty create response", domain.ErrRemoteUnavailable)
		}
		s.logger.Warnf("Remote create failed for movie %s, keeping review locally: %v", in.MovieID, remoteErr)
		candidate.ID = LocalIDPrefix + s.newID()
		result = domain.Result{Persistence: domain.LocalOnly, RemoteErr: remoteErr}
	} else {
		candidate = s.mergeCreated(created, candidate)
	}

	s.reviews = append([]*domain.Review{candidate}, s.reviews...)
	delta := domain.Delta{Kind: domain.DeltaCreated, MovieID: candidate.MovieID, NewRating: candidate.Rating}
	s.stats.Apply(delta)
	s.publishEvent(delta, result.Persistence, candidate)
	metrics.ReviewWrites.WithLabelValues("create", string(result.Persistence)).Inc()

	if result.Durable() {
		s.notify(ctx, createdMessage(candidate), domain.SeveritySuccess)
	} else {
		s.notify(ctx, "Review submitted successfully! (Saved locally)", domain.SeverityInfo)
	}

	s.logger.WithFields(map[string]any{
		"review_id":   candidate.ID,
		"movie_id":    candidate.MovieID,
		"rating":      candidate.Rating,
		"persistence": result.Persistence,
	}).Info("Review created")

	result.Review = candidate.Clone()
	return result, nil
}

// Update edits the rating and/or comment of one of the author's reviews
func (s *Service) Update(ctx context.Context, id string, patch domain.ReviewPatch) (domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		s.notify(ctx, "Review not found", domain.SeverityWarning)
		return domain.Result{}, domain.ErrNotFound
	}
	current := s.reviews[idx]
	if current.UserID != s.author.ID {
		s.notify(ctx, "You can only edit your own reviews", domain.SeverityWarning)
		return domain.Result{}, domain.ErrForbidden
	}

	if err := s.validate.Struct(patch); err != nil {
		msg := validatorpkg.Message(err)
		s.notify(ctx, msg, domain.SeverityWarning)
		return domain.Result{}, fmt.Errorf("%w: %s", domain.ErrInvalidInput, msg)
	}

	_, remoteErr := s.api.Update(s.remoteContext(ctx), id, patch)

	result := domain.Result{Persistence: domain.Persisted}
	if remoteErr != nil {
		s.logger.Warnf("Remote update failed for review %s, keeping change locally: %v", id, remoteErr)
		result = domain.Result{Persistence: domain.LocalOnly, RemoteErr: remoteErr}
		if !IsLocal(id) {
			s.pending[id] = struct{}{}
		}
	} else {
		delete(s.pending, id)
	}

	oldRating := current.Rating
	updated := current.Clone()
	if patch.Rating != nil {
		updated.Rating = *patch.Rating
	}
	if patch.Comment != nil {
		updated.Comment = *patch.Comment
	}
	updated.UpdatedAt = s.now()
	s.reviews[idx] = updated

	delta := domain.Delta{Kind: domain.DeltaUpdated, MovieID: updated.MovieID, OldRating: oldRating, NewRating: updated.Rating}
	if oldRating != updated.Rating {
		s.stats.Apply(delta)
	}
	s.publishEvent(delta, result.Persistence, updated)
	metrics.ReviewWrites.WithLabelValues("update", string(result.Persistence)).Inc()

	if result.Durable() {
		s.notify(ctx, "Review updated successfully!", domain.SeveritySuccess)
	} else {
		s.notify(ctx, "Review updated successfully! (Saved locally)", domain.SeverityInfo)
	}

	s.logger.WithFields(map[string]any{
		"review_id":   id,
		"movie_id":    updated.MovieID,
		"old_rating":  oldRating,
		"new_rating":  updated.Rating,
		"persistence": result.Persistence,
	}).Info("Review updated")

	result.Review = updated.Clone()
	return result, nil
}

// Delete removes one of the author's reviews; the local removal always happens
func (s *Service) Delete(ctx context.Context, id string) (domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		s.notify(ctx, "Review not found", domain.SeverityWarning)
		return domain.Result{}, domain.ErrNotFound
	}
	current := s.reviews[idx]
	if current.UserID != s.author.ID {
		s.notify(ctx, "You can only delete your own reviews", domain.SeverityWarning)
		return domain.Result{}, domain.ErrForbidden
	}

	remoteErr := s.api.Delete(s.remoteContext(ctx), id)

	result := domain.Result{Persistence: domain.Persisted}
	if remoteErr != nil {
		s.logger.Warnf("Remote delete failed for review %s, removing locally: %v", id, remoteErr)
		result = domain.Result{Persistence: domain.LocalOnly, RemoteErr: remoteErr}
		if !IsLocal(id) {
			s.tombstones[id] = struct{}{}
		}
	} else {
		delete(s.tombstones, id)
	}
	delete(s.pending, id)

	s.reviews = append(s.reviews[:idx:idx], s.reviews[idx+1:]...)
	delta := domain.Delta{Kind: domain.DeltaDeleted, MovieID: current.MovieID, OldRating: current.Rating}
	s.stats.Apply(delta)
	s.publishEvent(delta, result.Persistence, current)
	metrics.ReviewWrites.WithLabelValues("delete", string(result.Persistence)).Inc()

	if result.Durable() {
		s.notify(ctx, "Review deleted successfully!", domain.SeveritySuccess)
	} else {
		s.notify(ctx, "Review deleted successfully! (Removed locally)", domain.SeverityInfo)
	}

	s.logger.WithFields(map[string]any{
		"review_id":   id,
		"movie_id":    current.MovieID,
		"persistence": result.Persistence,
	}).Info("Review deleted")

	result.Review = current.Clone()
	return result, nil
}

// mergeCreated takes the server's copy and fills what it left out from the submitted review
func (s *Service) mergeCreated(server, submitted *domain.Review) *domain.Review {
	r := server.Clone()
	if r.ID == "" {
		r.ID = LocalIDPrefix + s.newID()
	}
	if r.MovieID == "" {
		r.MovieID = submitted.MovieID
	}
	if r.MovieTitle == "" {
		r.MovieTitle = submitted.MovieTitle
	}
	if r.MoviePoster == "" {
		r.MoviePoster = submitted.MoviePoster
	}
	if r.MovieYear == "" {
		r.MovieYear = submitted.MovieYear
	}
	if r.MovieGenre == "" {
		r.MovieGenre = submitted.MovieGenre
	}
	if r.Rating == 0 {
		r.Rating = submitted.Rating
	}
	if r.Comment == "" {
		r.Comment = submitted.Comment
	}
	if r.UserID == "" {
		r.UserID = submitted.UserID
	}
	if r.UserName == "" {
		r.UserName = submitted.UserName
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = submitted.CreatedAt
	}
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = r.CreatedAt
	}
	return r
}

func createdMessage(r *domain.Review) string {
	if r.MovieTitle == "" {
		return "Review submitted successfully!"
	}
	return fmt.Sprintf("Successfully rated %s!", r.MovieTitle)
}

// remoteContext detaches from request cancellation so an issued write is never abandoned halfway.
// Deadlines are left to the transport.
func (s *Service) remoteContext(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}

// indexLocked must be called with s.mu held
func (s *Service) indexLocked(id string) int {
	for i, r := range s.reviews {
		if r.ID == id {
			return i
		}
	}
	return -1
}

// ownLocked must be called with s.mu held
func (s *Service) ownLocked(movieID string) *domain.Review {
	for _, r := range s.reviews {
		if r.MovieID == movieID && r.UserID == s.author.ID {
			return r
		}
	}
	return nil
}

func (s *Service) notify(ctx context.Context, msg string, severity domain.Severity) {
	if s.notifier != nil {
		s.notifier.Notify(ctx, msg, severity)
	}
}

// publishEvent publishes a review event (non-blocking)
func (s *Service) publishEvent(delta domain.Delta, persistence domain.Persistence, review *domain.Review) {
	if s.publisher == nil {
		return
	}

	event := domain.ReviewEvent{
		EventID:     s.newID(),
		EventType:   delta.Kind.EventType(),
		Timestamp:   s.now().UTC(),
		MovieID:     delta.MovieID,
		Persistence: persistence,
		Delta:       delta,
		Review:      review.Clone(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		s.logger.Errorf(err, "Failed to marshal event for review %s", review.ID)
		return
	}

	// Publish in background to avoid blocking
	go func() {
		if err := s.publisher.Publish(context.Background(), EventsSubject, event.EventID, data); err != nil {
			s.logger.Errorf(err, "Failed to publish event for review %s", review.ID)
		}
	}()
}

// IsLocal reports whether a review ID was generated by the store
func IsLocal(id string) bool {
	return strings.HasPrefix(id, LocalIDPrefix)
}
