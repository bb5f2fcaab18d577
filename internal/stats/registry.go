package stats

import (
	"sort"
	"sync"

	"github.com/Pesokrava/movie_reviews/internal/domain"
	"github.com/Pesokrava/movie_reviews/internal/pkg/logger"
	"github.com/Pesokrava/movie_reviews/internal/pkg/metrics"
)

// Registry keeps one Aggregator per movie and is safe for concurrent use
type Registry struct {
	mu     sync.RWMutex
	movies map[string]*Aggregator
	logger *logger.Logger
}

// NewRegistry creates an empty registry
func NewRegistry(log *logger.Logger) *Registry {
	return &Registry{
		movies: make(map[string]*Aggregator),
		logger: log,
	}
}

// Apply folds a single delta into the movie's aggregate
func (r *Registry) Apply(d domain.Delta) {
	if d.MovieID == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.aggregator(d.MovieID).Apply(d)
}

// Rebuild replaces the movie's aggregate with a full rescan of ratings.
// Only cold start and context loads rescan; mutations go through Apply.
func (r *Registry) Rebuild(movieID string, ratings []int) {
	agg := NewAggregator(movieID, r.onClamp)
	for _, rating := range ratings {
		agg.ApplyCreate(rating)
	}

	r.mu.Lock()
	r.movies[movieID] = agg
	r.mu.Unlock()

	r.logger.WithFields(map[string]any{
		"movie_id":     movieID,
		"review_count": agg.Count(),
	}).Debug("Rebuilt movie stats")
}

// Seed installs a stored snapshot unless the movie is already tracked
func (r *Registry) Seed(s domain.StatsSnapshot) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.movies[s.MovieID]; ok {
		return false
	}
	r.movies[s.MovieID] = FromSnapshot(s, r.onClamp)
	return true
}

// Snapshot returns the movie's aggregate; unknown movies yield an empty snapshot
func (r *Registry) Snapshot(movieID string) domain.StatsSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if agg, ok := r.movies[movieID]; ok {
		return agg.Snapshot()
	}
	return NewAggregator(movieID, nil).Snapshot()
}

// Has reports whether the movie has an aggregate
func (r *Registry) Has(movieID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.movies[movieID]
	return ok
}

// Discard drops the movie's aggregate when its context goes away
func (r *Registry) Discard(movieID string) {
	r.mu.Lock()
	delete(r.movies, movieID)
	r.mu.Unlock()
}

// Movies lists tracked movie IDs in sorted order
func (r *Registry) Movies() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.movies))
	for id := range r.movies {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	sort.Strings(ids)
	return ids
}

// aggregator must be called with r.mu held for writing
func (r *Registry) aggregator(movieID string) *Aggregator {
	agg, ok := r.movies[movieID]
	if !ok {
		agg = NewAggregator(movieID, r.onClamp)
		r.movies[movieID] = agg
	}
	return agg
}

func (r *Registry) onClamp(movieID string, rating int) {
	metrics.StatsClamps.Inc()
	r.logger.WithFields(map[string]any{
		"movie_id": movieID,
		"rating":   rating,
	}).Warn("Rating distribution clamped at zero")
}
