package movie

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Pesokrava/movie_reviews/internal/domain"
	"github.com/Pesokrava/movie_reviews/internal/pkg/logger"
)

// MockCatalog is a mock implementation of domain.Catalog
type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) Search(ctx context.Context, q domain.SearchQuery) (*domain.SearchResult, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SearchResult), args.Error(1)
}

func (m *MockCatalog) Popular(ctx context.Context) ([]*domain.Movie, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Movie), args.Error(1)
}

func (m *MockCatalog) Get(ctx context.Context, id string) (*domain.Movie, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Movie), args.Error(1)
}

// MockCache is a mock implementation of Cache and StatsReader
type MockCache struct {
	mock.Mock
}

func (m *MockCache) GetSearch(ctx context.Context, q domain.SearchQuery) (*domain.SearchResult, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SearchResult), args.Error(1)
}

func (m *MockCache) SetSearch(ctx context.Context, q domain.SearchQuery, result *domain.SearchResult) error {
	args := m.Called(ctx, q, result)
	return args.Error(0)
}

func (m *MockCache) GetPopular(ctx context.Context) ([]*domain.Movie, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Movie), args.Error(1)
}

func (m *MockCache) SetPopular(ctx context.Context, movies []*domain.Movie) error {
	args := m.Called(ctx, movies)
	return args.Error(0)
}

func (m *MockCache) GetMovie(ctx context.Context, movieID string) (*domain.Movie, error) {
	args := m.Called(ctx, movieID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Movie), args.Error(1)
}

func (m *MockCache) SetMovie(ctx context.Context, movie *domain.Movie) error {
	args := m.Called(ctx, movie)
	return args.Error(0)
}

func (m *MockCache) GetMovieStats(ctx context.Context, movieID string) (*domain.StatsSnapshot, error) {
	args := m.Called(ctx, movieID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.StatsSnapshot), args.Error(1)
}

type recordingNotifier struct {
	mu    sync.Mutex
	items []domain.Notification
}

func (n *recordingNotifier) Notify(_ context.Context, msg string, severity domain.Severity) {
	n.mu.Lock()
	n.items = append(n.items, domain.Notification{Message: msg, Severity: severity})
	n.mu.Unlock()
}

var matrix = &domain.Movie{ID: "tt0133093", Title: "The Matrix", Year: "1999"}

func firstPage(query string) domain.SearchQuery {
	return domain.SearchQuery{Query: query, Page: 1}
}

func TestService_Search_CacheMiss(t *testing.T) {
	catalog := new(MockCatalog)
	cache := new(MockCache)
	service := NewService(catalog, cache, cache, nil, logger.Nop())

	want := &domain.SearchResult{Movies: []*domain.Movie{matrix}, TotalResults: 12, Page: 1}
	cache.On("GetSearch", mock.Anything, firstPage("matrix")).Return(nil, domain.ErrNotFound)
	catalog.On("Search", mock.Anything, firstPage("matrix")).Return(&domain.SearchResult{Movies: []*domain.Movie{matrix}, TotalResults: 12}, nil)
	cache.On("SetSearch", mock.Anything, firstPage("matrix"), want).Return(nil)

	result, err := service.Search(context.Background(), domain.SearchQuery{Query: "  matrix "})

	require.NoError(t, err)
	assert.Equal(t, want, result)
	catalog.AssertExpectations(t)
	cache.AssertExpectations(t)
}

func TestService_Search_CacheHit(t *testing.T) {
	catalog := new(MockCatalog)
	cache := new(MockCache)
	service := NewService(catalog, cache, cache, nil, logger.Nop())

	cache.On("GetSearch", mock.Anything, firstPage("matrix")).Return(&domain.SearchResult{Movies: []*domain.Movie{matrix}, TotalResults: 1, Page: 1}, nil)

	result, err := service.Search(context.Background(), firstPage("matrix"))

	require.NoError(t, err)
	assert.Len(t, result.Movies, 1)
	catalog.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
}

func TestService_Search_Filters(t *testing.T) {
	catalog := new(MockCatalog)
	service := NewService(catalog, nil, nil, nil, logger.Nop())

	want := domain.SearchQuery{Query: "star wars", Page: 2, Type: domain.SearchTypeMovie, Year: "1977"}
	catalog.On("Search", mock.Anything, want).Return(&domain.SearchResult{Movies: []*domain.Movie{{ID: "tt0076759"}}, TotalResults: 31}, nil)

	result, err := service.Search(context.Background(), domain.SearchQuery{Query: "star wars", Page: 2, Type: " Movie ", Year: "1977"})

	require.NoError(t, err)
	assert.Equal(t, 2, result.Page)
	assert.Equal(t, 31, result.TotalResults)

	// "all" means no type filter
	catalog.On("Search", mock.Anything, firstPage("alien")).Return(&domain.SearchResult{}, nil)
	result, err = service.Search(context.Background(), domain.SearchQuery{Query: "alien", Type: "all"})
	require.NoError(t, err)
	assert.Empty(t, result.Movies)
	assert.NotNil(t, result.Movies)
	catalog.AssertExpectations(t)
}

func TestService_Search_InvalidFilters(t *testing.T) {
	tests := []struct {
		name string
		q    domain.SearchQuery
		msg  string
	}{
		{"unknown type", domain.SearchQuery{Query: "matrix", Type: "game"}, "The type field is invalid"},
		{"short year", domain.SearchQuery{Query: "matrix", Year: "99"}, "The year field is invalid"},
		{"page too far", domain.SearchQuery{Query: "matrix", Page: 101}, "The page field is too large"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			catalog := new(MockCatalog)
			notifier := &recordingNotifier{}
			service := NewService(catalog, nil, nil, notifier, logger.Nop())

			_, err := service.Search(context.Background(), tt.q)

			assert.ErrorIs(t, err, domain.ErrInvalidInput)
			require.Len(t, notifier.items, 1)
			assert.Equal(t, domain.Notification{Message: tt.msg, Severity: domain.SeverityWarning}, notifier.items[0])
			catalog.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
		})
	}
}

func TestService_Search_EmptyQuery(t *testing.T) {
	notifier := &recordingNotifier{}
	service := NewService(new(MockCatalog), nil, nil, notifier, logger.Nop())

	_, err := service.Search(context.Background(), domain.SearchQuery{Query: "   "})

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	require.Len(t, notifier.items, 1)
	assert.Equal(t, domain.Notification{Message: "Please enter a search term", Severity: domain.SeverityWarning}, notifier.items[0])
}

func TestService_Search_RemoteDown(t *testing.T) {
	catalog := new(MockCatalog)
	notifier := &recordingNotifier{}
	service := NewService(catalog, nil, nil, notifier, logger.Nop())

	catalog.On("Search", mock.Anything, firstPage("matrix")).Return(nil, errors.New("connection refused"))

	_, err := service.Search(context.Background(), firstPage("matrix"))

	assert.ErrorIs(t, err, domain.ErrRemoteUnavailable)
	require.Len(t, notifier.items, 1)
	assert.Equal(t, domain.SeverityWarning, notifier.items[0].Severity)
}

func TestService_Search_NoResults(t *testing.T) {
	catalog := new(MockCatalog)
	notifier := &recordingNotifier{}
	service := NewService(catalog, nil, nil, notifier, logger.Nop())

	catalog.On("Search", mock.Anything, firstPage("zzzz")).Return(&domain.SearchResult{Movies: []*domain.Movie{}}, nil)

	result, err := service.Search(context.Background(), firstPage("zzzz"))

	require.NoError(t, err)
	assert.Empty(t, result.Movies)
	assert.Zero(t, result.TotalResults)
	require.Len(t, notifier.items, 1)
	assert.Equal(t, "No movies found. Try different search terms.", notifier.items[0].Message)
}

func TestService_Popular(t *testing.T) {
	catalog := new(MockCatalog)
	cache := new(MockCache)
	service := NewService(catalog, cache, cache, nil, logger.Nop())

	popular := []*domain.Movie{matrix, {ID: "tt1375666", Title: "Inception"}}
	cache.On("GetPopular", mock.Anything).Return(nil, domain.ErrNotFound).Once()
	catalog.On("Popular", mock.Anything).Return(popular, nil).Once()
	cache.On("SetPopular", mock.Anything, popular).Return(nil).Once()

	movies, err := service.Popular(context.Background())
	require.NoError(t, err)
	assert.Equal(t, popular, movies)

	cache.On("GetPopular", mock.Anything).Return(popular, nil).Once()
	movies, err = service.Popular(context.Background())
	require.NoError(t, err)
	assert.Len(t, movies, 2)

	catalog.AssertNumberOfCalls(t, "Popular", 1)
	cache.AssertExpectations(t)
}

func TestService_Popular_RemoteDown(t *testing.T) {
	catalog := new(MockCatalog)
	notifier := &recordingNotifier{}
	service := NewService(catalog, nil, nil, notifier, logger.Nop())

	catalog.On("Popular", mock.Anything).Return(nil, errors.New("connection refused"))

	_, err := service.Popular(context.Background())

	assert.ErrorIs(t, err, domain.ErrRemoteUnavailable)
	require.Len(t, notifier.items, 1)
	assert.Equal(t, "Popular movies are unavailable. Please try again later.", notifier.items[0].Message)
}

func TestService_Get(t *testing.T) {
	catalog := new(MockCatalog)
	cache := new(MockCache)
	service := NewService(catalog, cache, cache, nil, logger.Nop())

	cache.On("GetMovie", mock.Anything, matrix.ID).Return(nil, domain.ErrNotFound)
	catalog.On("Get", mock.Anything, matrix.ID).Return(matrix, nil)
	cache.On("SetMovie", mock.Anything, matrix).Return(nil)

	movie, err := service.Get(context.Background(), matrix.ID)

	require.NoError(t, err)
	assert.Equal(t, matrix, movie)
	cache.AssertExpectations(t)
}

func TestService_Get_NotFound(t *testing.T) {
	catalog := new(MockCatalog)
	notifier := &recordingNotifier{}
	service := NewService(catalog, nil, nil, notifier, logger.Nop())

	catalog.On("Get", mock.Anything, "tt404").Return(nil, domain.ErrNotFound)

	_, err := service.Get(context.Background(), "tt404")

	assert.ErrorIs(t, err, domain.ErrNotFound)
	require.Len(t, notifier.items, 1)
	assert.Equal(t, domain.Notification{Message: "Movie not found", Severity: domain.SeverityDanger}, notifier.items[0])
}

func TestService_GlobalStats(t *testing.T) {
	cache := new(MockCache)
	service := NewService(new(MockCatalog), nil, cache, nil, logger.Nop())

	stored := &domain.StatsSnapshot{MovieID: "tt1", AverageRating: 4.5, ReviewCount: 2, RatingDistribution: map[int]int{4: 1, 5: 1}}
	cache.On("GetMovieStats", mock.Anything, "tt1").Return(stored, nil)
	cache.On("GetMovieStats", mock.Anything, "tt2").Return(nil, domain.ErrNotFound)

	snap, err := service.GlobalStats(context.Background(), "tt1")
	require.NoError(t, err)
	assert.Equal(t, *stored, snap)

	snap, err = service.GlobalStats(context.Background(), "tt2")
	require.NoError(t, err)
	assert.Equal(t, "tt2", snap.MovieID)
	assert.Zero(t, snap.ReviewCount)
	assert.Zero(t, snap.AverageRating)
}
