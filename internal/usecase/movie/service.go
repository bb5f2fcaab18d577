package movie

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Pesokrava/movie_reviews/internal/domain"
	"github.com/Pesokrava/movie_reviews/internal/pkg/logger"
	validatorpkg "github.com/Pesokrava/movie_reviews/internal/pkg/validator"
	"github.com/Pesokrava/movie_reviews/internal/stats"
)

// Cache stores catalog lookups
type Cache interface {
	GetSearch(ctx context.Context, q domain.SearchQuery) (*domain.SearchResult, error)
	SetSearch(ctx context.Context, q domain.SearchQuery, result *domain.SearchResult) error
	GetPopular(ctx context.Context) ([]*domain.Movie, error)
	SetPopular(ctx context.Context, movies []*domain.Movie) error
	GetMovie(ctx context.Context, movieID string) (*domain.Movie, error)
	SetMovie(ctx context.Context, movie *domain.Movie) error
}

// StatsReader reads the cross-session stats kept by the stats worker
type StatsReader interface {
	GetMovieStats(ctx context.Context, movieID string) (*domain.StatsSnapshot, error)
}

// Service handles movie catalog lookups
type Service struct {
	catalog  domain.Catalog
	cache    Cache
	stats    StatsReader
	notifier domain.Notifier
	validate *validator.Validate
	logger   *logger.Logger
}

// NewService creates a new movie service; cache and stats may be nil
func NewService(catalog domain.Catalog, cache Cache, stats StatsReader, notifier domain.Notifier, log *logger.Logger) *Service {
	return &Service{
		catalog:  catalog,
		cache:    cache,
		stats:    stats,
		notifier: notifier,
		validate: validatorpkg.Get(),
		logger:   log.Component("movie"),
	}
}

// Search returns one page of catalog movies matching q
func (s *Service) Search(ctx context.Context, q domain.SearchQuery) (*domain.SearchResult, error) {
	q = normalizeQuery(q)
	if q.Query == "" {
		s.notify(ctx, "Please enter a search term", domain.SeverityWarning)
		return nil, fmt.Errorf("%w: empty search query", domain.ErrInvalidInput)
	}
	if err := s.validate.Struct(q); err != nil {
		msg := validatorpkg.Message(err)
		s.notify(ctx, msg, domain.SeverityWarning)
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidInput, msg)
	}

	if s.cache != nil {
		result, err := s.cache.GetSearch(ctx, q)
		if err == nil {
			s.logger.Debugf("Cache hit for movie search %q page %d", q.Query, q.Page)
			return result, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Warnf("Failed to read search cache for %q: %v", q.Query, err)
		}
	}

	result, err := s.catalog.Search(ctx, q)
	if err != nil {
		s.logger.Error("Failed to search movies", err)
		s.notify(ctx, "Movie search is unavailable. Please try again later.", domain.SeverityWarning)
		return nil, fmt.Errorf("%w: %v", domain.ErrRemoteUnavailable, err)
	}
	if result.Movies == nil {
		result.Movies = []*domain.Movie{}
	}
	result.Page = q.Page
	if result.TotalResults < len(result.Movies) {
		result.TotalResults = len(result.Movies)
	}

	if len(result.Movies) == 0 {
		s.notify(ctx, "No movies found. Try different search terms.", domain.SeverityInfo)
	}

	if s.cache != nil {
		if err := s.cache.SetSearch(ctx, q, result); err != nil {
			s.logger.Warnf("Failed to cache search results for %q: %v", q.Query, err)
		}
	}

	return result, nil
}

// normalizeQuery trims the query, defaults the page and maps the "all" type to no filter
func normalizeQuery(q domain.SearchQuery) domain.SearchQuery {
	q.Query = strings.TrimSpace(q.Query)
	q.Type = strings.ToLower(strings.TrimSpace(q.Type))
	q.Year = strings.TrimSpace(q.Year)
	if q.Type == "all" {
		q.Type = ""
	}
	if q.Page < 1 {
		q.Page = 1
	}
	return q
}

// Popular returns the catalog's featured movies
func (s *Service) Popular(ctx context.Context) ([]*domain.Movie, error) {
	if s.cache != nil {
		if movies, err := s.cache.GetPopular(ctx); err == nil {
			return movies, nil
		}
	}

	movies, err := s.catalog.Popular(ctx)
	if err != nil {
		s.logger.Error("Failed to load popular movies", err)
		s.notify(ctx, "Popular movies are unavailable. Please try again later.", domain.SeverityWarning)
		return nil, fmt.Errorf("%w: %v", domain.ErrRemoteUnavailable, err)
	}
	if movies == nil {
		movies = []*domain.Movie{}
	}

	if s.cache != nil && len(movies) > 0 {
		if err := s.cache.SetPopular(ctx, movies); err != nil {
			s.logger.Warnf("Failed to cache popular movies: %v", err)
		}
	}

	return movies, nil
}

// Get retrieves a movie by ID
func (s *Service) Get(ctx context.Context, id string) (*domain.Movie, error) {
	if s.cache != nil {
		if movie, err := s.cache.GetMovie(ctx, id); err == nil {
			return movie, nil
		}
	}

	movie, err := s.catalog.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Debugf("Movie not found: %s", id)
			s.notify(ctx, "Movie not found", domain.SeverityDanger)
			return nil, domain.ErrNotFound
		}
		s.logger.Error("Failed to get movie", err)
		s.notify(ctx, "Error loading movie details", domain.SeverityDanger)
		return nil, fmt.Errorf("%w: %v", domain.ErrRemoteUnavailable, err)
	}

	if s.cache != nil {
		if err := s.cache.SetMovie(ctx, movie); err != nil {
			s.logger.Warnf("Failed to cache movie %s: %v", id, err)
		}
	}

	return movie, nil
}

// GlobalStats returns the cross-session snapshot of a movie; unknown movies yield an empty snapshot
func (s *Service) GlobalStats(ctx context.Context, movieID string) (domain.StatsSnapshot, error) {
	empty := stats.Recompute(movieID, nil)
	if s.stats == nil {
		return empty, nil
	}

	snap, err := s.stats.GetMovieStats(ctx, movieID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return empty, nil
		}
		s.logger.Error("Failed to read global movie stats", err)
		return domain.StatsSnapshot{}, err
	}
	return *snap, nil
}

func (s *Service) notify(ctx context.Context, msg string, severity domain.Severity) {
	if s.notifier != nil {
		s.notifier.Notify(ctx, msg, severity)
	}
}
