package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pesokrava/movie_reviews/internal/domain"
)

func createMatrixReview(t *testing.T, s *testServer, token string, rating int) ReviewView {
	t.Helper()
	code, env := s.do(t, http.MethodPost, "/reviews", token, CreateReviewRequest{
		MovieID:    matrix.ID,
		MovieTitle: matrix.Title,
		MovieGenre: matrix.Genre,
		Rating:     rating,
		Comment:    "Mind-bending",
	})
	require.Equal(t, http.StatusCreated, code)
	return decode[ReviewView](t, env.Data)
}

func TestReviewHandler_Create_Persisted(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, "jane@example.com")

	code, env := s.do(t, http.MethodPost, "/reviews", token, CreateReviewRequest{
		MovieID:    matrix.ID,
		MovieTitle: matrix.Title,
		Rating:     5,
	})

	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, domain.Persisted, env.Persistence)
	assert.True(t, hasMessage(env.Notifications, "Successfully rated The Matrix!"))

	rev := decode[domain.Review](t, env.Data)
	assert.Equal(t, "srv1", rev.ID)
}

func TestReviewHandler_Create_LocalFallback(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, "jane@example.com")
	s.api.setDown(true)

	code, env := s.do(t, http.MethodPost, "/reviews", token, CreateReviewRequest{MovieID: matrix.ID, Rating: 4})

	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, domain.LocalOnly, env.Persistence)
	assert.True(t, hasMessage(env.Notifications, "Review submitted successfully! (Saved locally)"))

	code, env = s.do(t, http.MethodGet, "/reviews", token, nil)
	require.Equal(t, http.StatusOK, code)
	list := decode[ReviewList](t, env.Data)
	require.Equal(t, 1, list.Total)
	assert.True(t, list.Reviews[0].Local)
}

func TestReviewHandler_Create_Invalid(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, "jane@example.com")

	code, env := s.do(t, http.MethodPost, "/reviews", token, CreateReviewRequest{MovieID: matrix.ID, Rating: 0})

	assert.Equal(t, http.StatusBadRequest, code)
	assert.True(t, hasMessage(env.Notifications, "Please select a rating between 1 and 5 stars"))
}

func TestReviewHandler_Create_Duplicate(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, "jane@example.com")
	createMatrixReview(t, s, token, 5)

	code, _ := s.do(t, http.MethodPost, "/reviews", token, CreateReviewRequest{MovieID: matrix.ID, Rating: 3})
	assert.Equal(t, http.StatusConflict, code)

	code, _ = s.do(t, http.MethodPost, "/reviews", token, CreateReviewRequest{MovieID: matrix.ID, Rating: 3, Source: "bulk"})
	assert.Equal(t, http.StatusCreated, code)
}

func TestReviewHandler_Create_InvalidJSON(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, "jane@example.com")

	code, env := s.do(t, http.MethodPost, "/reviews", token, "not an object")

	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid request body", env.Error)
}

func TestReviewHandler_Update(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, "jane@example.com")
	rev := createMatrixReview(t, s, token, 5)

	rating := 3
	code, env := s.do(t, http.MethodPut, "/reviews/"+rev.ID, token, UpdateReviewRequest{Rating: &rating})

	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, domain.Persisted, env.Persistence)
	assert.Equal(t, 3, decode[domain.Review](t, env.Data).Rating)

	code, env = s.do(t, http.MethodGet, "/movies/"+matrix.ID+"/stats", token, nil)
	require.Equal(t, http.StatusOK, code)
	snap := decode[domain.StatsSnapshot](t, env.Data)
	assert.Equal(t, 1, snap.ReviewCount)
	assert.Equal(t, 3.0, snap.AverageRating)
}

func TestReviewHandler_Update_NotFound(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, "jane@example.com")

	rating := 3
	code, _ := s.do(t, http.MethodPut, "/reviews/missing", token, UpdateReviewRequest{Rating: &rating})

	assert.Equal(t, http.StatusNotFound, code)
}

func TestReviewHandler_Delete_LocalOnly(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, "jane@example.com")
	rev := createMatrixReview(t, s, token, 4)
	s.api.setDown(true)

	code, env := s.do(t, http.MethodDelete, "/reviews/"+rev.ID, token, nil)

	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, domain.LocalOnly, env.Persistence)
	assert.True(t, hasMessage(env.Notifications, "Review deleted successfully! (Removed locally)"))

	code, _ = s.do(t, http.MethodGet, "/reviews/"+rev.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestReviewHandler_Get(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, "jane@example.com")
	rev := createMatrixReview(t, s, token, 4)

	code, env := s.do(t, http.MethodGet, "/reviews/"+rev.ID, token, nil)

	require.Equal(t, http.StatusOK, code)
	got := decode[ReviewView](t, env.Data)
	assert.Equal(t, rev.ID, got.ID)
	assert.False(t, got.Edited)
	assert.False(t, got.Local)
}

func TestReviewHandler_List_Filters(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, "jane@example.com")
	createMatrixReview(t, s, token, 5)
	code, _ := s.do(t, http.MethodPost, "/reviews", token, CreateReviewRequest{
		MovieID:    inception.ID,
		MovieTitle: inception.Title,
		Rating:     2,
	})
	require.Equal(t, http.StatusCreated, code)

	tests := []struct {
		name   string
		query  string
		titles []string
	}{
		{"all newest first", "", []string{"Inception", "The Matrix"}},
		{"highest first", "?sort=highest", []string{"The Matrix", "Inception"}},
		{"high rated", "?bucket=high-rated", []string{"The Matrix"}},
		{"low rated", "?bucket=low-rated", []string{"Inception"}},
		{"query on comment", "?query=MIND", []string{"The Matrix"}},
		{"by movie", "?movieId=" + inception.ID, []string{"Inception"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env := s.do(t, http.MethodGet, "/reviews"+tt.query, token, nil)
			require.Equal(t, http.StatusOK, code)

			list := decode[ReviewList](t, env.Data)
			titles := make([]string, len(list.Reviews))
			for i, r := range list.Reviews {
				titles[i] = r.MovieTitle
			}
			assert.Equal(t, tt.titles, titles)
		})
	}
}

func TestReviewHandler_Reload_KeepsLocalReviews(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, "jane@example.com")
	createMatrixReview(t, s, token, 5)

	s.api.setDown(true)
	code, _ := s.do(t, http.MethodPost, "/reviews", token, CreateReviewRequest{MovieID: inception.ID, Rating: 4})
	require.Equal(t, http.StatusCreated, code)
	s.api.setDown(false)

	code, env := s.do(t, http.MethodPost, "/reviews/reload", token, nil)

	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 2, decode[ReviewList](t, env.Data).Total)
}

func TestReviewHandler_Reload_Failure(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, "jane@example.com")
	createMatrixReview(t, s, token, 5)
	s.api.setDown(true)

	code, env := s.do(t, http.MethodPost, "/reviews/reload", token, nil)

	require.Equal(t, http.StatusOK, code)
	assert.True(t, hasMessage(env.Notifications, "Could not load your reviews from the server. Showing local data."))
	assert.Equal(t, 1, decode[ReviewList](t, env.Data).Total)
}
