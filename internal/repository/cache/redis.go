package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Pesokrava/movie_reviews/internal/domain"
)

// TTLs groups the expirations used by RedisCache
type TTLs struct {
	Search   time.Duration
	Identity time.Duration
	Stats    time.Duration
}

// RedisCache stores catalog lookups, identity tokens and global movie stats
type RedisCache struct {
	client *redis.Client
	ttl    TTLs
}

// NewRedisCache creates a new Redis cache instance
func NewRedisCache(client *redis.Client, ttl TTLs) *RedisCache {
	return &RedisCache{
		client: client,
		ttl:    ttl,
	}
}

// Catalog cache keys and methods

const popularKey = "movies:popular"

func (c *RedisCache) searchKey(q domain.SearchQuery) string {
	return fmt.Sprintf("movies:search:%s:p%d:t%s:y%s",
		strings.ToLower(strings.TrimSpace(q.Query)), q.Page, q.Type, q.Year)
}

func (c *RedisCache) movieKey(movieID string) string {
	return fmt.Sprintf("movie:%s", movieID)
}

// GetSearch retrieves a cached search page
func (c *RedisCache) GetSearch(ctx context.Context, q domain.SearchQuery) (*domain.SearchResult, error) {
	var result domain.SearchResult
	if err := c.getJSON(ctx, c.searchKey(q), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SetSearch caches a search page
func (c *RedisCache) SetSearch(ctx context.Context, q domain.SearchQuery, result *domain.SearchResult) error {
	return c.setJSON(ctx, c.searchKey(q), result, c.ttl.Search)
}

// GetPopular retrieves the cached popular movies
func (c *RedisCache) GetPopular(ctx context.Context) ([]*domain.Movie, error) {
	var movies []*domain.Movie
	if err := c.getJSON(ctx, popularKey, &movies); err != nil {
		return nil, err
	}
	return movies, nil
}

// SetPopular caches the popular movies
func (c *RedisCache) SetPopular(ctx context.Context, movies []*domain.Movie) error {
	return c.setJSON(ctx, popularKey, movies, c.ttl.Search)
}

// GetMovie retrieves a cached movie
func (c *RedisCache) GetMovie(ctx context.Context, movieID string) (*domain.Movie, error) {
	var movie domain.Movie
	if err := c.getJSON(ctx, c.movieKey(movieID), &movie); err != nil {
		return nil, err
	}
	return &movie, nil
}

// SetMovie caches a movie
func (c *RedisCache) SetMovie(ctx context.Context, movie *domain.Movie) error {
	return c.setJSON(ctx, c.movieKey(movie.ID), movie, c.ttl.Search)
}

// Identity token keys and methods

func (c *RedisCache) identityKey(token string) string {
	return fmt.Sprintf("identity:%s", token)
}

// SaveIdentity binds a bearer token to a user
func (c *RedisCache) SaveIdentity(ctx context.Context, token string, user *domain.User) error {
	return c.setJSON(ctx, c.identityKey(token), user, c.ttl.Identity)
}

// GetIdentity returns the user bound to token, or domain.ErrNotFound
func (c *RedisCache) GetIdentity(ctx context.Context, token string) (*domain.User, error) {
	var user domain.User
	if err := c.getJSON(ctx, c.identityKey(token), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// DeleteIdentity forgets a token
func (c *RedisCache) DeleteIdentity(ctx context.Context, token string) error {
	return c.client.Del(ctx, c.identityKey(token)).Err()
}

// Global movie stats keys and methods

func (c *RedisCache) statsKey(movieID string) string {
	return fmt.Sprintf("movie:%s:stats", movieID)
}

// GetMovieStats retrieves the last snapshot written by the stats worker
func (c *RedisCache) GetMovieStats(ctx context.Context, movieID string) (*domain.StatsSnapshot, error) {
	var snap domain.StatsSnapshot
	if err := c.getJSON(ctx, c.statsKey(movieID), &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// SetMovieStats stores a stats snapshot
func (c *RedisCache) SetMovieStats(ctx context.Context, snap domain.StatsSnapshot) error {
	return c.setJSON(ctx, c.statsKey(snap.MovieID), snap, c.ttl.Stats)
}

func (c *RedisCache) getJSON(ctx context.Context, key string, out any) error {
	val, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.ErrNotFound
		}
		return err
	}
	return json.Unmarshal(val, out)
}

func (c *RedisCache) setJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, ttl).Err()
}
