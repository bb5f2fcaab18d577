package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/Pesokrava/movie_reviews/internal/delivery/http/middleware"
	"github.com/Pesokrava/movie_reviews/internal/domain"
	"github.com/Pesokrava/movie_reviews/internal/notify"
	"github.com/Pesokrava/movie_reviews/internal/pkg/logger"
	"github.com/Pesokrava/movie_reviews/internal/usecase/identity"
	"github.com/Pesokrava/movie_reviews/internal/usecase/movie"
	"github.com/Pesokrava/movie_reviews/internal/usecase/session"
)

// fakeReviewAPI is an in-memory review API that can be switched off
type fakeReviewAPI struct {
	mu      sync.Mutex
	down    bool
	seq     int
	reviews map[string]*domain.Review
}

func newFakeReviewAPI() *fakeReviewAPI {
	return &fakeReviewAPI{reviews: make(map[string]*domain.Review)}
}

func (f *fakeReviewAPI) setDown(down bool) {
	f.mu.Lock()
	f.down = down
	f.mu.Unlock()
}

func (f *fakeReviewAPI) Create(_ context.Context, r *domain.Review) (*domain.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return nil, domain.ErrRemoteUnavailable
	}
	f.seq++
	c := r.Clone()
	c.ID = fmt.Sprintf("srv%d", f.seq)
	f.reviews[c.ID] = c
	return c.Clone(), nil
}

func (f *fakeReviewAPI) Update(_ context.Context, id string, p domain.ReviewPatch) (*domain.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return nil, domain.ErrRemoteUnavailable
	}
	r, ok := f.reviews[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if p.Rating != nil {
		r.Rating = *p.Rating
	}
	if p.Comment != nil {
		r.Comment = *p.Comment
	}
	return r.Clone(), nil
}

func (f *fakeReviewAPI) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return domain.ErrRemoteUnavailable
	}
	delete(f.reviews, id)
	return nil
}

func (f *fakeReviewAPI) list(keep func(*domain.Review) bool) ([]*domain.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return nil, domain.ErrRemoteUnavailable
	}
	var out []*domain.Review
	for _, r := range f.reviews {
		if keep(r) {
			out = append(out, r.Clone())
		}
	}
	return out, nil
}

func (f *fakeReviewAPI) ListByUser(_ context.Context, userID string) ([]*domain.Review, error) {
	return f.list(func(r *domain.Review) bool { return r.UserID == userID })
}

func (f *fakeReviewAPI) ListByMovie(_ context.Context, movieID string) ([]*domain.Review, error) {
	return f.list(func(r *domain.Review) bool { return r.MovieID == movieID })
}

// fakeCatalog serves a fixed set of movies
type fakeCatalog struct {
	movies []*domain.Movie
}

func (c fakeCatalog) Search(_ context.Context, q domain.SearchQuery) (*domain.SearchResult, error) {
	result := &domain.SearchResult{Movies: []*domain.Movie{}, Page: q.Page}
	for _, m := range c.movies {
		if strings.Contains(strings.ToLower(m.Title), strings.ToLower(q.Query)) && (q.Year == "" || m.Year == q.Year) {
			result.Movies = append(result.Movies, m)
		}
	}
	result.TotalResults = len(result.Movies)
	return result, nil
}

func (c fakeCatalog) Popular(_ context.Context) ([]*domain.Movie, error) {
	return c.movies, nil
}

func (c fakeCatalog) Get(_ context.Context, id string) (*domain.Movie, error) {
	for _, m := range c.movies {
		if m.ID == id {
			return m, nil
		}
	}
	return nil, domain.ErrNotFound
}

// memoryTokens is an in-memory identity.TokenStore
type memoryTokens struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func (m *memoryTokens) SaveIdentity(_ context.Context, token string, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[token] = u
	return nil
}

func (m *memoryTokens) GetIdentity(_ context.Context, token string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[token]; ok {
		return u, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memoryTokens) DeleteIdentity(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, token)
	return nil
}

var matrix = &domain.Movie{ID: "tt0133093", Title: "The Matrix", Year: "1999", Genre: "Action, Sci-Fi"}
var inception = &domain.Movie{ID: "tt1375666", Title: "Inception", Year: "2010", Genre: "Action, Thriller"}

type envelope struct {
	Success       bool                  `json:"success"`
	Data          json.RawMessage       `json:"data"`
	Persistence   domain.Persistence    `json:"persistence"`
	Notifications []domain.Notification `json:"notifications"`
	Error         string                `json:"error"`
}

type testServer struct {
	api      *fakeReviewAPI
	tokens   *memoryTokens
	sessions *session.Manager
	router   http.Handler
}

// newTestServer wires the handlers behind the same middleware the gateway uses
func newTestServer(t *testing.T) *testServer {
	t.Helper()

	log := logger.Nop()
	dispatcher := notify.NewDispatcher(log, nil)
	api := newFakeReviewAPI()
	tokens := &memoryTokens{users: make(map[string]*domain.User)}

	sessions := session.NewManager(session.Config{
		API:      api,
		Notifier: func(userID string) domain.Notifier { return dispatcher.ForUser(userID) },
	}, log)
	ids := identity.NewService(tokens, dispatcher, rand.New(rand.NewSource(1)), log)
	movies := movie.NewService(fakeCatalog{movies: []*domain.Movie{matrix, inception}}, nil, nil, dispatcher, log)

	reviews := NewReviewHandler(log)
	movieH := NewMovieHandler(movies, log)
	auth := NewAuthHandler(ids, sessions, log)

	r := chi.NewRouter()
	r.Use(middleware.Notifications())
	r.Post("/auth/login", auth.Login)
	r.Post("/auth/demo", auth.Demo)
	r.Get("/movies/search", movieH.Search)
	r.Get("/movies/popular", movieH.Popular)
	r.Get("/movies/{id}/stats/global", movieH.GlobalStats)
	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(ids, sessions, log))
		r.Get("/auth/me", auth.Me)
		r.Put("/auth/me", auth.UpdateMe)
		r.Post("/auth/logout", auth.Logout)
		r.Get("/movies/unrated", movieH.Unrated)
		r.Get("/movies/{id}", movieH.Get)
		r.Get("/movies/{id}/reviews", movieH.Reviews)
		r.Get("/movies/{id}/stats", movieH.Stats)
		r.Post("/movies/{id}/leave", movieH.Leave)
		r.Get("/reviews", reviews.List)
		r.Post("/reviews", reviews.Create)
		r.Post("/reviews/reload", reviews.Reload)
		r.Get("/reviews/{id}", reviews.Get)
		r.Put("/reviews/{id}", reviews.Update)
		r.Delete("/reviews/{id}", reviews.Delete)
	})

	return &testServer{api: api, tokens: tokens, sessions: sessions, router: r}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func (s *testServer) login(t *testing.T, email string) string {
	t.Helper()
	code, env := s.do(t, http.MethodPost, "/auth/login", "", LoginRequest{Email: email})
	require.Equal(t, http.StatusOK, code)

	var sess identity.Session
	require.NoError(t, json.Unmarshal(env.Data, &sess))
	return sess.Token
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func hasMessage(ns []domain.Notification, msg string) bool {
	for _, n := range ns {
		if n.Message == msg {
			return true
		}
	}
	return false
}
