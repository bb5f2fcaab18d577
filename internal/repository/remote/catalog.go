package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Pesokrava/movie_reviews/internal/domain"
)

// CatalogClient implements domain.Catalog over the remote movie API
type CatalogClient struct {
	client *Client
}

// NewCatalogClient creates a catalog API client
func NewCatalogClient(client *Client) *CatalogClient {
	return &CatalogClient{client: client}
}

// catalogMovie accepts both the plain shape and the OMDb-style imdbID key.
// Title, Year, Poster and Genre match either casing.
type catalogMovie struct {
	ID     string `json:"id"`
	IMDbID string `json:"imdbID"`
	Title  string `json:"title"`
	Year   string `json:"year"`
	Poster string `json:"poster"`
	Genre  string `json:"genre"`
}

func (m catalogMovie) toDomain() *domain.Movie {
	id := m.ID
	if id == "" {
		id = m.IMDbID
	}
	return &domain.Movie{
		ID:     id,
		Title:  m.Title,
		Year:   m.Year,
		Poster: m.Poster,
		Genre:  m.Genre,
	}
}

// searchPage is the search response. totalResults arrives as a number or,
// from OMDb-style backends, as a string.
type searchPage struct {
	Movies       []catalogMovie `json:"movies"`
	TotalResults json.Number    `json:"totalResults"`
}

// Search returns one page of movies for a query
func (c *CatalogClient) Search(ctx context.Context, q domain.SearchQuery) (*domain.SearchResult, error) {
	params := url.Values{}
	params.Set("query", q.Query)
	if q.Page > 0 {
		params.Set("page", strconv.Itoa(q.Page))
	}
	if q.Type != "" {
		params.Set("type", q.Type)
	}
	if q.Year != "" {
		params.Set("y", q.Year)
	}

	var page searchPage
	if err := c.client.Do(ctx, http.MethodGet, "/movies/search?"+params.Encode(), nil, &page); err != nil {
		return nil, err
	}

	result := &domain.SearchResult{Movies: toMovies(page.Movies), Page: q.Page}
	if n, err := page.TotalResults.Int64(); err == nil {
		result.TotalResults = int(n)
	}
	return result, nil
}

// Popular returns the featured movies of the catalog
func (c *CatalogClient) Popular(ctx context.Context) ([]*domain.Movie, error) {
	var found []catalogMovie
	if err := c.client.Do(ctx, http.MethodGet, "/movies/popular", nil, &found); err != nil {
		return nil, err
	}
	return toMovies(found), nil
}

func toMovies(found []catalogMovie) []*domain.Movie {
	movies := make([]*domain.Movie, 0, len(found))
	for _, m := range found {
		if mv := m.toDomain(); mv.ID != "" {
			movies = append(movies, mv)
		}
	}
	return movies
}

// Get returns one movie
func (c *CatalogClient) Get(ctx context.Context, id string) (*domain.Movie, error) {
	var m catalogMovie
	if err := c.client.Do(ctx, http.MethodGet, "/movies/"+url.PathEscape(id), nil, &m); err != nil {
		return nil, err
	}
	mv := m.toDomain()
	if mv.ID == "" {
		mv.ID = id
	}
	return mv, nil
}
