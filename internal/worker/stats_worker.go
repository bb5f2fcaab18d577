// Package worker folds review events from every gateway session into
// cross-session movie stats and persists the snapshots.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Pesokrava/movie_reviews/internal/domain"
	"github.com/Pesokrava/movie_reviews/internal/pkg/logger"
	"github.com/Pesokrava/movie_reviews/internal/stats"
)

const (
	// Retry configuration
	maxRetries     = 3
	initialBackoff = 100 * time.Millisecond

	attemptTimeout = 5 * time.Second

	// seenCapacity bounds how many event IDs are remembered for dedupe
	seenCapacity = 4096
)

// SnapshotStore persists movie stats snapshots
type SnapshotStore interface {
	GetMovieStats(ctx context.Context, movieID string) (*domain.StatsSnapshot, error)
	SetMovieStats(ctx context.Context, snap domain.StatsSnapshot) error
}

// StatsWorker applies review deltas to a global registry and writes debounced snapshots
type StatsWorker struct {
	registry *stats.Registry
	store    SnapshotStore
	debounce time.Duration
	logger   *logger.Logger

	mu             sync.Mutex
	pendingUpdates map[string]*pendingUpdate
	seen           *seenSet
	shutdownCh     chan struct{}
	wg             sync.WaitGroup
	ctx            context.Context
	cancel         context.CancelFunc
}

type pendingUpdate struct {
	movieID string
	timer   *time.Timer
}

// NewStatsWorker creates a new stats worker
func NewStatsWorker(registry *stats.Registry, store SnapshotStore, debounce time.Duration, log *logger.Logger) *StatsWorker {
	ctx, cancel := context.WithCancel(context.Background())

	return &StatsWorker{
		registry:       registry,
		store:          store,
		debounce:       debounce,
		logger:         log.Component("stats-worker"),
		pendingUpdates: make(map[string]*pendingUpdate),
		seen:           newSeenSet(seenCapacity),
		shutdownCh:     make(chan struct{}),
		ctx:            ctx,
		cancel:         cancel,
	}
}

// HandleEvent processes a review event
func (w *StatsWorker) HandleEvent(data []byte) error {
	var event domain.ReviewEvent
	if err := json.Unmarshal(data, &event); err != nil {
		w.logger.Error("Failed to unmarshal review event", err)
		return fmt.Errorf("failed to unmarshal event: %w", err)
	}
	if event.Delta.MovieID == "" {
		event.Delta.MovieID = event.MovieID
	}
	if event.Delta.MovieID == "" {
		return fmt.Errorf("%w: event %s has no movie", domain.ErrInvalidInput, event.EventID)
	}

	select {
	case <-w.shutdownCh:
		return errors.New("worker is shutting down")
	default:
	}

	w.mu.Lock()
	dup := event.EventID != "" && w.seen.has(event.EventID)
	w.mu.Unlock()
	if dup {
		w.logger.Debugf("Ignoring duplicate event %s", event.EventID)
		return nil
	}

	if err := w.seed(event.Delta.MovieID); err != nil {
		return err
	}

	w.registry.Apply(event.Delta)

	w.mu.Lock()
	if event.EventID != "" {
		w.seen.add(event.EventID)
	}
	w.mu.Unlock()

	w.logger.WithFields(map[string]any{
		"event_id":    event.EventID,
		"type":        event.EventType,
		"movie_id":    event.Delta.MovieID,
		"persistence": event.Persistence,
	}).Info("Applied review event")

	w.scheduleUpdate(event.Delta.MovieID)
	return nil
}

// seed loads the stored snapshot the first time a movie is seen
func (w *StatsWorker) seed(movieID string) error {
	if w.registry.Has(movieID) {
		return nil
	}

	ctx, cancel := context.WithTimeout(w.ctx, attemptTimeout)
	defer cancel()

	snap, err := w.store.GetMovieStats(ctx, movieID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		w.logger.Errorf(err, "Failed to load stored stats for movie %s", movieID)
		return fmt.Errorf("failed to load stats for %s: %w", movieID, err)
	}

	if w.registry.Seed(*snap) {
		w.logger.WithFields(map[string]any{
			"movie_id":     movieID,
			"review_count": snap.ReviewCount,
		}).Debug("Seeded movie stats from store")
	}
	return nil
}

// scheduleUpdate implements debouncing logic
// Multiple events for same movie within the debounce window result in a single write
func (w *StatsWorker) scheduleUpdate(movieID string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	// Check if already shutting down
	select {
	case <-w.shutdownCh:
		w.logger.Info("Worker shutting down, ignoring new event")
		return
	default:
	}

	existing, found := w.pendingUpdates[movieID]
	if found && existing.timer.Stop() {
		// Cancelled a timer that had not fired yet; its wait group slot is reused
		w.logger.WithFields(map[string]any{
			"movie_id": movieID,
		}).Debug("Debouncing: resetting timer for movie")
	} else {
		w.wg.Add(1)
	}

	update := &pendingUpdate{movieID: movieID}
	update.timer = time.AfterFunc(w.debounce, func() {
		w.processUpdate(update)
	})
	w.pendingUpdates[movieID] = update
}

// processUpdate writes the movie snapshot with retry logic
func (w *StatsWorker) processUpdate(update *pendingUpdate) {
	defer w.wg.Done()

	movieID := update.movieID
	w.mu.Lock()
	if w.pendingUpdates[movieID] == update {
		delete(w.pendingUpdates, movieID)
	}
	w.mu.Unlock()

	var lastErr error
	backoff := initialBackoff

	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			w.logger.WithFields(map[string]any{
				"movie_id":   movieID,
				"attempt":    attempt + 1,
				"backoff_ms": backoff.Milliseconds(),
			}).Warn("Retrying stats write")

			select {
			case <-time.After(backoff):
			case <-w.ctx.Done():
				w.logger.Info("Worker context cancelled, aborting retry")
				return
			}

			backoff *= 2
		}

		// Later deltas are picked up by taking the snapshot per attempt
		snap := w.registry.Snapshot(movieID)

		ctx, cancel := context.WithTimeout(w.ctx, attemptTimeout)
		err := w.store.SetMovieStats(ctx, snap)
		cancel()

		if err == nil {
			w.logger.WithFields(map[string]any{
				"movie_id":       movieID,
				"review_count":   snap.ReviewCount,
				"average_rating": snap.AverageRating,
			}).Info("Stored movie stats")
			return
		}

		lastErr = err
		w.logger.WithFields(map[string]any{
			"movie_id": movieID,
			"attempt":  attempt + 1,
		}).Error("Failed to store movie stats", err)
	}

	w.logger.WithFields(map[string]any{
		"movie_id":    movieID,
		"max_retries": maxRetries,
	}).Error("Stats write failed after all retries", lastErr)
}

// Shutdown gracefully shuts down the worker
// Flushes pending snapshots and waits for in-flight writes to complete
func (w *StatsWorker) Shutdown(ctx context.Context) error {
	w.logger.Info("Shutting down stats worker...")

	// Signal shutdown to prevent new updates
	close(w.shutdownCh)

	// Fire pending timers now instead of dropping the aggregated deltas
	w.mu.Lock()
	pendingCount := len(w.pendingUpdates)
	for _, update := range w.pendingUpdates {
		if update.timer.Stop() {
			go w.processUpdate(update)
		}
	}
	w.mu.Unlock()

	w.logger.WithFields(map[string]any{
		"flushed_updates": pendingCount,
	}).Info("Flushing pending updates")

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.cancel()
		w.logger.Info("All in-flight updates completed")
		return nil
	case <-ctx.Done():
		// Stop retries
		w.cancel()
		w.logger.Warn("Shutdown timeout reached, forcing exit")
		return ctx.Err()
	}
}

// PendingCount returns the number of pending updates (used for monitoring/testing)
func (w *StatsWorker) PendingCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pendingUpdates)
}

// seenSet remembers the most recent event IDs, evicting the oldest first
type seenSet struct {
	ids   map[string]struct{}
	order []string
	next  int
}

func newSeenSet(capacity int) *seenSet {
	return &seenSet{
		ids:   make(map[string]struct{}, capacity),
		order: make([]string, 0, capacity),
	}
}

func (s *seenSet) has(id string) bool {
	_, ok := s.ids[id]
	return ok
}

func (s *seenSet) add(id string) {
	if s.has(id) {
		return
	}
	if len(s.order) < cap(s.order) {
		s.order = append(s.order, id)
	} else {
		delete(s.ids, s.order[s.next])
		s.order[s.next] = id
		s.next = (s.next + 1) % len(s.order)
	}
	s.ids[id] = struct{}{}
}
