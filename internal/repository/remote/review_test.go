package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pesokrava/movie_reviews/internal/domain"
)

func TestReviewClient_Create(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/reviews", r.URL.Path)

		var body createReviewRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "tt001", body.MovieID)
		assert.Equal(t, 5, body.Rating)
		assert.Equal(t, "user_1", body.UserID)

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"srv-42","movieId":"tt001","rating":5,"comment":"Great","userId":"user_1"}`))
	})
	rc := NewReviewClient(client)

	created, err := rc.Create(context.Background(), &domain.Review{
		MovieID: "tt001", Rating: 5, Comment: "Great", UserID: "user_1", UserName: "Critic",
	})

	require.NoError(t, err)
	assert.Equal(t, "srv-42", created.ID)
}

func TestReviewClient_Update_EmptyBody(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/reviews/srv-42", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, float64(3), body["rating"])
		assert.NotContains(t, body, "comment")
		w.WriteHeader(http.StatusOK)
	})
	rc := NewReviewClient(client)

	rating := 3
	updated, err := rc.Update(context.Background(), "srv-42", domain.ReviewPatch{Rating: &rating})

	require.NoError(t, err)
	assert.Nil(t, updated)
}

func TestReviewClient_Delete_NotFoundIsSuccess(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNotFound)
	})
	rc := NewReviewClient(client)

	assert.NoError(t, rc.Delete(context.Background(), "gone"))
}

func TestReviewClient_Delete_ServerError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	rc := NewReviewClient(client)

	assert.Error(t, rc.Delete(context.Background(), "srv-42"))
}

func TestReviewClient_ListByUser(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/demo_user_1/reviews", r.URL.Path)
		w.Write([]byte(`[{"id":"r1","movieId":"tt001","rating":4},{"id":"r2","movieId":"tt002","rating":2}]`))
	})
	rc := NewReviewClient(client)

	reviews, err := rc.ListByUser(context.Background(), "demo_user_1")

	require.NoError(t, err)
	require.Len(t, reviews, 2)
	assert.Equal(t, "r2", reviews[1].ID)
}

func TestReviewClient_ListByMovie(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/reviews/movie/tt001", r.URL.Path)
		w.Write([]byte(`{"reviews":[{"id":"r1","movieId":"tt001","rating":4}]}`))
	})
	rc := NewReviewClient(client)

	reviews, err := rc.ListByMovie(context.Background(), "tt001")

	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, 4, reviews[0].Rating)
}
