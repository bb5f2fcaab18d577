package stats

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Pesokrava/movie_reviews/internal/domain"
	"github.com/Pesokrava/movie_reviews/internal/pkg/logger"
)

func TestRegistry_ApplyKeepsMoviesApart(t *testing.T) {
	reg := NewRegistry(logger.Nop())

	reg.Apply(domain.Delta{Kind: domain.DeltaCreated, MovieID: "tt001", NewRating: 5})
	reg.Apply(domain.Delta{Kind: domain.DeltaCreated, MovieID: "tt002", NewRating: 1})
	reg.Apply(domain.Delta{Kind: domain.DeltaUpdated, MovieID: "tt001", OldRating: 5, NewRating: 3})

	assert.Equal(t, Recompute("tt001", []int{3}), reg.Snapshot("tt001"))
	assert.Equal(t, Recompute("tt002", []int{1}), reg.Snapshot("tt002"))
	assert.Equal(t, []string{"tt001", "tt002"}, reg.Movies())
}

func TestRegistry_ApplyIgnoresDeltaWithoutMovie(t *testing.T) {
	reg := NewRegistry(logger.Nop())

	reg.Apply(domain.Delta{Kind: domain.DeltaCreated, NewRating: 4})

	assert.Empty(t, reg.Movies())
}

func TestRegistry_RebuildReplacesAggregate(t *testing.T) {
	reg := NewRegistry(logger.Nop())
	reg.Apply(domain.Delta{Kind: domain.DeltaCreated, MovieID: "tt001", NewRating: 1})

	reg.Rebuild("tt001", []int{4, 5, 5})

	snap := reg.Snapshot("tt001")
	assert.Equal(t, 3, snap.ReviewCount)
	assert.InDelta(t, 14.0/3.0, snap.AverageRating, tolerance)
	assert.Equal(t, 0, snap.RatingDistribution[1])
}

func TestRegistry_SeedOnlyWhenUnknown(t *testing.T) {
	reg := NewRegistry(logger.Nop())
	stored := Recompute("tt001", []int{2, 4})

	assert.True(t, reg.Seed(stored))
	assert.False(t, reg.Seed(Recompute("tt001", []int{5})))
	assert.Equal(t, stored, reg.Snapshot("tt001"))
}

func TestRegistry_SnapshotOfUnknownMovie(t *testing.T) {
	reg := NewRegistry(logger.Nop())

	snap := reg.Snapshot("missing")

	assert.Equal(t, "missing", snap.MovieID)
	assert.Equal(t, 0, snap.ReviewCount)
	assert.Equal(t, 0.0, snap.AverageRating)
	assert.False(t, reg.Has("missing"))
}

func TestRegistry_Discard(t *testing.T) {
	reg := NewRegistry(logger.Nop())
	reg.Rebuild("tt001", []int{3})

	reg.Discard("tt001")

	assert.False(t, reg.Has("tt001"))
	assert.Equal(t, 0, reg.Snapshot("tt001").ReviewCount)
}

func TestRegistry_ConcurrentApply(t *testing.T) {
	reg := NewRegistry(logger.Nop())
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(r int) {
			defer wg.Done()
			reg.Apply(domain.Delta{Kind: domain.DeltaCreated, MovieID: "tt001", NewRating: r%5 + 1})
		}(i)
	}
	wg.Wait()

	snap := reg.Snapshot("tt001")
	assert.Equal(t, 50, snap.ReviewCount)
	assert.InDelta(t, 3.0, snap.AverageRating, tolerance)
}
