package domain

import "context"

// Movie is a catalog entry as returned by the movie search API
type Movie struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Year   string `json:"year,omitempty"`
	Poster string `json:"poster,omitempty"`
	Genre  string `json:"genre,omitempty"`
}

// Catalog search types accepted by the movie API
const (
	SearchTypeMovie   = "movie"
	SearchTypeSeries  = "series"
	SearchTypeEpisode = "episode"
)

// SearchQuery is one page of a catalog search
type SearchQuery struct {
	Query string `json:"query" validate:"required,max=200"`
	Page  int    `json:"page" validate:"min=1,max=100"`
	Type  string `json:"type,omitempty" validate:"omitempty,oneof=movie series episode"`
	Year  string `json:"year,omitempty" validate:"omitempty,numeric,len=4"`
}

// SearchResult is a page of matches and the catalog's total match count
type SearchResult struct {
	Movies       []*Movie `json:"movies"`
	TotalResults int      `json:"totalResults"`
	Page         int      `json:"page"`
}

// Catalog is the remote movie search API
type Catalog interface {
	// Search returns one page of movies matching a free-text query
	Search(ctx context.Context, q SearchQuery) (*SearchResult, error)

	// Popular returns the catalog's featured movies
	Popular(ctx context.Context) ([]*Movie, error)

	// Get returns a single movie by ID
	Get(ctx context.Context, id string) (*Movie, error)
}
