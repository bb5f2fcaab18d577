package review

import (
	"sort"
	"strings"
	"time"

	"github.com/Pesokrava/movie_reviews/internal/domain"
	"github.com/Pesokrava/movie_reviews/internal/stats"
)

// Reviewer profile limits
const (
	maxTopGenres      = 4
	maxRecentReviews  = 3
	maxActivityMonths = 6
	monthLayout       = "Jan 2006"
)

// List returns the reviews matching filter in the requested order.
// It never mutates the store.
func (s *Service) List(filter domain.ReviewFilter, order domain.SortOrder) []*domain.Review {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := strings.ToLower(strings.TrimSpace(filter.Query))
	recentSince := s.now().Add(-domain.RecentWindow)

	out := make([]*domain.Review, 0, len(s.reviews))
	for _, r := range s.reviews {
		if filter.MovieID != "" && r.MovieID != filter.MovieID {
			continue
		}
		if filter.ExcludeUserID != "" && r.UserID == filter.ExcludeUserID {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(r.MovieTitle), query) &&
			!strings.Contains(strings.ToLower(r.Comment), query) {
			continue
		}
		if !inBucket(r, filter.Bucket, recentSince) {
			continue
		}
		out = append(out, r.Clone())
	}

	sortReviews(out, order)
	return out
}

func inBucket(r *domain.Review, bucket domain.Bucket, recentSince time.Time) bool {
	switch bucket {
	case domain.BucketHighRated:
		return r.Rating >= 4
	case domain.BucketLowRated:
		return r.Rating <= 2
	case domain.BucketRecent:
		return r.CreatedAt.After(recentSince)
	default:
		return true
	}
}

// sortReviews orders reviews in place; ties keep their store order
func sortReviews(reviews []*domain.Review, order domain.SortOrder) {
	var less func(a, b *domain.Review) bool
	switch order {
	case domain.SortOldest:
		less = func(a, b *domain.Review) bool { return a.CreatedAt.Before(b.CreatedAt) }
	case domain.SortHighest:
		less = func(a, b *domain.Review) bool { return a.Rating > b.Rating }
	case domain.SortLowest:
		less = func(a, b *domain.Review) bool { return a.Rating < b.Rating }
	default:
		less = func(a, b *domain.Review) bool { return a.CreatedAt.After(b.CreatedAt) }
	}
	sort.SliceStable(reviews, func(i, j int) bool { return less(reviews[i], reviews[j]) })
}

// Get returns a review by ID
func (s *Service) Get(id string) (*domain.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if idx := s.indexLocked(id); idx >= 0 {
		return s.reviews[idx].Clone(), nil
	}
	return nil, domain.ErrNotFound
}

// Own returns the author's review of a movie, if any
func (s *Service) Own(movieID string) (*domain.Review, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r := s.ownLocked(movieID); r != nil {
		return r.Clone(), true
	}
	return nil, false
}

// Unrated filters movies down to the ones the author has not reviewed yet
func (s *Service) Unrated(movies []*domain.Movie) []*domain.Movie {
	s.mu.Lock()
	rated := make(map[string]struct{}, len(s.reviews))
	for _, r := range s.reviews {
		if r.UserID == s.author.ID {
			rated[r.MovieID] = struct{}{}
		}
	}
	s.mu.Unlock()

	out := make([]*domain.Movie, 0, len(movies))
	for _, m := range movies {
		if _, ok := rated[m.ID]; !ok {
			out = append(out, m)
		}
	}
	return out
}

// Profile summarises the author's own reviews
func (s *Service) Profile() domain.ReviewerProfile {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		ratings []int
		recent  []*domain.Review
		genres  = make(map[string]int)
		months  []domain.MonthlyActivity
	)
	// s.reviews is newest first, so months come out newest first too
	for _, r := range s.reviews {
		if r.UserID != s.author.ID {
			continue
		}
		ratings = append(ratings, r.Rating)
		if len(recent) < maxRecentReviews {
			recent = append(recent, r.Clone())
		}
		for _, g := range strings.Split(r.MovieGenre, ",") {
			if g = strings.TrimSpace(g); g != "" && !strings.EqualFold(g, "unknown") {
				genres[g]++
			}
		}
		month := r.CreatedAt.UTC().Format(monthLayout)
		if n := len(months); n > 0 && months[n-1].Month == month {
			months[n-1].Reviews++
		} else {
			months = append(months, domain.MonthlyActivity{Month: month, Reviews: 1})
		}
	}

	summary := stats.Recompute("", ratings)
	profile := domain.ReviewerProfile{
		ReviewCount:        summary.ReviewCount,
		AverageRating:      summary.AverageRating,
		RatingDistribution: summary.RatingDistribution,
		TopGenres:          make([]domain.GenreCount, 0, len(genres)),
		RecentReviews:      recent,
		MonthlyActivity:    months,
	}
	if profile.RecentReviews == nil {
		profile.RecentReviews = []*domain.Review{}
	}
	if len(profile.MonthlyActivity) > maxActivityMonths {
		profile.MonthlyActivity = profile.MonthlyActivity[:maxActivityMonths]
	} else if profile.MonthlyActivity == nil {
		profile.MonthlyActivity = []domain.MonthlyActivity{}
	}

	for g, n := range genres {
		profile.TopGenres = append(profile.TopGenres, domain.GenreCount{Genre: g, Count: n})
	}
	sort.Slice(profile.TopGenres, func(i, j int) bool {
		a, b := profile.TopGenres[i], profile.TopGenres[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Genre < b.Genre
	})
	if len(profile.TopGenres) > maxTopGenres {
		profile.TopGenres = profile.TopGenres[:maxTopGenres]
	}
	return profile
}
