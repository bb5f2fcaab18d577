// Package stats maintains per-movie rating aggregates incrementally from review deltas.
package stats

import (
	"github.com/Pesokrava/movie_reviews/internal/domain"
)

// ClampFunc is called whenever an update would push a count below zero
type ClampFunc func(movieID string, rating int)

// Aggregator folds review deltas of one movie into a running aggregate.
// It never fails: inconsistent input is clamped at zero and reported through onClamp.
type Aggregator struct {
	movieID string
	count   int
	// total is the running sum of ratings; averageRating is total/count
	total   float64
	dist    [domain.MaxRating + 1]int
	onClamp ClampFunc
}

// NewAggregator returns an empty aggregate for movieID
func NewAggregator(movieID string, onClamp ClampFunc) *Aggregator {
	return &Aggregator{movieID: movieID, onClamp: onClamp}
}

// FromSnapshot restores an aggregate from a previously taken snapshot
func FromSnapshot(s domain.StatsSnapshot, onClamp ClampFunc) *Aggregator {
	a := NewAggregator(s.MovieID, onClamp)
	if s.ReviewCount <= 0 {
		return a
	}
	a.count = s.ReviewCount
	a.total = s.AverageRating * float64(s.ReviewCount)
	for rating, n := range s.RatingDistribution {
		if validRating(rating) && n > 0 {
			a.dist[rating] = n
		}
	}
	return a
}

// ApplyCreate counts a new review with the given rating
func (a *Aggregator) ApplyCreate(rating int) {
	if !validRating(rating) {
		a.clamp(rating)
		return
	}
	a.count++
	a.dist[rating]++
	a.total += float64(rating)
}

// ApplyUpdate moves one review from oldRating to newRating; the count is unchanged
func (a *Aggregator) ApplyUpdate(oldRating, newRating int) {
	if !validRating(oldRating) || !validRating(newRating) || a.count == 0 {
		a.clamp(oldRating)
		return
	}
	if oldRating == newRating {
		return
	}
	a.decrement(oldRating)
	a.dist[newRating]++
	a.total += float64(newRating - oldRating)
}

// ApplyDelete removes one review with the given rating
func (a *Aggregator) ApplyDelete(rating int) {
	if !validRating(rating) {
		a.clamp(rating)
		return
	}
	if a.count == 0 {
		a.clamp(rating)
		return
	}
	a.decrement(rating)
	a.count--
	if a.count == 0 {
		a.total = 0
		return
	}
	a.total -= float64(rating)
}

// Apply dispatches a delta to the matching operation
func (a *Aggregator) Apply(d domain.Delta) {
	switch d.Kind {
	case domain.DeltaCreated:
		a.ApplyCreate(d.NewRating)
	case domain.DeltaUpdated:
		a.ApplyUpdate(d.OldRating, d.NewRating)
	case domain.DeltaDeleted:
		a.ApplyDelete(d.OldRating)
	}
}

// Average returns the mean rating, 0 when there are no reviews
func (a *Aggregator) Average() float64 {
	if a.count == 0 {
		return 0
	}
	return a.total / float64(a.count)
}

// Count returns the number of reviews folded in
func (a *Aggregator) Count() int {
	return a.count
}

// Snapshot returns an immutable copy of the aggregate
func (a *Aggregator) Snapshot() domain.StatsSnapshot {
	dist := make(map[int]int, domain.MaxRating)
	for r := domain.MinRating; r <= domain.MaxRating; r++ {
		dist[r] = a.dist[r]
	}
	return domain.StatsSnapshot{
		MovieID:            a.movieID,
		AverageRating:      a.Average(),
		ReviewCount:        a.count,
		RatingDistribution: dist,
	}
}

func (a *Aggregator) decrement(rating int) {
	if a.dist[rating] == 0 {
		a.clamp(rating)
		return
	}
	a.dist[rating]--
}

func (a *Aggregator) clamp(rating int) {
	if a.onClamp != nil {
		a.onClamp(a.movieID, rating)
	}
}

func validRating(r int) bool {
	return r >= domain.MinRating && r <= domain.MaxRating
}

// Recompute builds a snapshot from scratch over a full set of ratings
func Recompute(movieID string, ratings []int) domain.StatsSnapshot {
	a := NewAggregator(movieID, nil)
	for _, r := range ratings {
		a.ApplyCreate(r)
	}
	return a.Snapshot()
}
