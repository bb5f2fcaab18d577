package review

import (
	"context"
	"sort"

	"github.com/Pesokrava/movie_reviews/internal/domain"
)

// Load fetches the author's reviews from the remote API and rebuilds the stats
// of every affected movie. On failure the local state is kept as is.
func (s *Service) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fetched, err := s.api.ListByUser(s.remoteContext(ctx), s.author.ID)
	if err != nil {
		s.logger.Warnf("Failed to load reviews, keeping local state: %v", err)
		s.notify(ctx, "Could not load your reviews from the server. Showing local data.", domain.SeverityInfo)
		return err
	}

	touched := s.mergeLocked(fetched, func(r *domain.Review) bool {
		// Reviews that never reached the server are not in the response
		return r.UserID != s.author.ID || IsLocal(r.ID)
	})
	s.rebuildLocked(touched)

	s.logger.WithFields(map[string]any{
		"fetched": len(fetched),
		"movies":  len(touched),
	}).Info("Loaded reviews")
	return nil
}

// LoadMovie merges every review of one movie into the store and rebuilds its stats
func (s *Service) LoadMovie(ctx context.Context, movieID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fetched, err := s.api.ListByMovie(s.remoteContext(ctx), movieID)
	if err != nil {
		s.logger.Warnf("Failed to load reviews for movie %s: %v", movieID, err)
		s.notify(ctx, "Could not load reviews for this movie. Showing local data.", domain.SeverityInfo)
		return err
	}

	for _, r := range fetched {
		if r.MovieID == "" {
			r.MovieID = movieID
		}
	}
	touched := s.mergeLocked(fetched, func(r *domain.Review) bool {
		return r.MovieID != movieID || IsLocal(r.ID) || r.UserID == s.author.ID
	})
	touched[movieID] = struct{}{}
	s.rebuildLocked(touched)
	return nil
}

// LeaveMovie discards the movie context opened by LoadMovie: other reviewers'
// reviews of the movie are dropped and its stats are rebuilt from the author's
// remaining reviews, or discarded when there are none.
func (s *Service) LeaveMovie(movieID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := make([]*domain.Review, 0, len(s.reviews))
	var ratings []int
	for _, r := range s.reviews {
		if r.MovieID != movieID {
			kept = append(kept, r)
			continue
		}
		if r.UserID == s.author.ID {
			kept = append(kept, r)
			ratings = append(ratings, r.Rating)
		}
	}
	dropped := len(s.reviews) - len(kept)
	s.reviews = kept

	if len(ratings) == 0 {
		s.stats.Discard(movieID)
	} else {
		s.stats.Rebuild(movieID, ratings)
	}

	s.logger.WithFields(map[string]any{
		"movie_id": movieID,
		"dropped":  dropped,
	}).Debug("Left movie context")
}

// mergeLocked replaces the reviews not kept by keep with fetched, deduplicated by ID.
// Unconfirmed local edits win over the fetched copy and unconfirmed deletes stay deleted.
// It returns the movies whose review set may have changed.
func (s *Service) mergeLocked(fetched []*domain.Review, keep func(*domain.Review) bool) map[string]struct{} {
	touched := make(map[string]struct{})
	seen := make(map[string]struct{}, len(fetched))

	edited := make(map[string]*domain.Review, len(s.pending))
	for _, r := range s.reviews {
		if _, ok := s.pending[r.ID]; ok {
			edited[r.ID] = r
		}
	}

	merged := make([]*domain.Review, 0, len(s.reviews)+len(fetched))
	for _, r := range fetched {
		if r == nil || r.ID == "" || r.MovieID == "" {
			continue
		}
		if _, gone := s.tombstones[r.ID]; gone {
			continue
		}
		if _, dup := seen[r.ID]; dup {
			continue
		}
		seen[r.ID] = struct{}{}
		if local, ok := edited[r.ID]; ok {
			merged = append(merged, local)
			touched[local.MovieID] = struct{}{}
			continue
		}
		c := r.Clone()
		if c.UpdatedAt.IsZero() {
			c.UpdatedAt = c.CreatedAt
		}
		merged = append(merged, c)
		touched[c.MovieID] = struct{}{}
	}

	for _, r := range s.reviews {
		if _, dup := seen[r.ID]; dup {
			continue
		}
		if _, ok := edited[r.ID]; ok || keep(r) {
			merged = append(merged, r)
			continue
		}
		touched[r.MovieID] = struct{}{}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].CreatedAt.After(merged[j].CreatedAt)
	})
	s.reviews = merged
	return touched
}

// rebuildLocked rescans the stored reviews of each movie
func (s *Service) rebuildLocked(movies map[string]struct{}) {
	ratings := make(map[string][]int, len(movies))
	for id := range movies {
		ratings[id] = nil
	}
	for _, r := range s.reviews {
		if _, ok := ratings[r.MovieID]; ok {
			ratings[r.MovieID] = append(ratings[r.MovieID], r.Rating)
		}
	}
	for id, rs := range ratings {
		s.stats.Rebuild(id, rs)
	}
}
