package identity

import (
	"context"
	"errors"
	"math/rand"
	"regexp"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Pesokrava/movie_reviews/internal/domain"
	"github.com/Pesokrava/movie_reviews/internal/pkg/logger"
)

// memoryTokens is an in-memory TokenStore
type memoryTokens struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newMemoryTokens() *memoryTokens {
	return &memoryTokens{users: make(map[string]*domain.User)}
}

func (m *memoryTokens) SaveIdentity(_ context.Context, token string, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[token] = user
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

// MockTokenStore is a mock implementation of TokenStore
type MockTokenStore struct {
	mock.Mock
}

func (m *MockTokenStore) SaveIdentity(ctx context.Context, token string, user *domain.User) error {
	args := m.Called(ctx, token, user)
	return args.Error(0)
}

func (m *MockTokenStore) GetIdentity(ctx context.Context, token string) (*domain.User, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockTokenStore) DeleteIdentity(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

var userIDPattern = regexp.MustCompile(`^user_[0-9a-z]{9}$`)

func TestService_Login(t *testing.T) {
	tokens := newMemoryTokens()
	service := NewService(tokens, nil, rand.New(rand.NewSource(1)), logger.Nop())

	sess, err := service.Login(context.Background(), " jane.doe@example.com ")

	require.NoError(t, err)
	assert.Regexp(t, userIDPattern, sess.User.ID)
	assert.Equal(t, "jane.doe", sess.User.Name)
	assert.Equal(t, "jane.doe@example.com", sess.User.Email)
	assert.Contains(t, sess.User.Avatar, "ui-avatars.com")
	assert.Contains(t, sess.User.Avatar, "background=007bff")
	assert.NotEmpty(t, sess.Token)

	resolved, err := service.Resolve(context.Background(), sess.Token)
	require.NoError(t, err)
	assert.Equal(t, sess.User, resolved)
}

func TestService_Login_SameSeedSameID(t *testing.T) {
	a := NewService(newMemoryTokens(), nil, rand.New(rand.NewSource(42)), logger.Nop())
	b := NewService(newMemoryTokens(), nil, rand.New(rand.NewSource(42)), logger.Nop())

	sa, err := a.Login(context.Background(), "sam@example.com")
	require.NoError(t, err)
	sb, err := b.Login(context.Background(), "sam@example.com")
	require.NoError(t, err)

	assert.Equal(t, sa.User.ID, sb.User.ID)
	assert.NotEqual(t, sa.Token, sb.Token)
}

func TestService_Login_InvalidEmail(t *testing.T) {
	service := NewService(newMemoryTokens(), nil, rand.New(rand.NewSource(1)), logger.Nop())

	for _, email := range []string{"", "not-an-email"} {
		_, err := service.Login(context.Background(), email)
		assert.ErrorIs(t, err, domain.ErrInvalidInput, email)
	}
}

func TestService_Login_StoreFailure(t *testing.T) {
	tokens := new(MockTokenStore)
	tokens.On("SaveIdentity", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("redis down"))
	service := NewService(tokens, nil, rand.New(rand.NewSource(1)), logger.Nop())

	_, err := service.Login(context.Background(), "ann@example.org")

	assert.Error(t, err)
	tokens.AssertExpectations(t)
}

func TestService_DemoLogin_Deterministic(t *testing.T) {
	names := map[string]bool{"Movie Critic": true, "Film Buff": true, "Cinema Lover": true}

	first := NewService(newMemoryTokens(), nil, rand.New(rand.NewSource(7)), logger.Nop())
	second := NewService(newMemoryTokens(), nil, rand.New(rand.NewSource(7)), logger.Nop())

	for i := 0; i < 5; i++ {
		a, err := first.DemoLogin(context.Background())
		require.NoError(t, err)
		b, err := second.DemoLogin(context.Background())
		require.NoError(t, err)

		assert.True(t, names[a.User.Name], a.User.Name)
		assert.Equal(t, a.User.ID, b.User.ID)
		assert.Regexp(t, `^demo_user_[123]$`, a.User.ID)
	}
}

func TestService_Resolve_Unknown(t *testing.T) {
	service := NewService(newMemoryTokens(), nil, nil, logger.Nop())

	_, err := service.Resolve(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = service.Resolve(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestService_Logout(t *testing.T) {
	service := NewService(newMemoryTokens(), nil, nil, logger.Nop())
	sess, err := service.DemoLogin(context.Background())
	require.NoError(t, err)

	require.NoError(t, service.Logout(context.Background(), sess.Token))

	_, err = service.Resolve(context.Background(), sess.Token)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
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

func TestService_UpdateProfile(t *testing.T) {
	notifier := &recordingNotifier{}
	service := NewService(newMemoryTokens(), notifier, rand.New(rand.NewSource(1)), logger.Nop())
	sess, err := service.Login(context.Background(), "jane@example.com")
	require.NoError(t, err)

	updated, err := service.UpdateProfile(context.Background(), sess.Token, ProfileInput{
		Name:           "  Jane Doe ",
		Bio:            "Movie enthusiast who loves sharing thoughts on films.",
		FavoriteGenres: []string{"Drama", " Sci-Fi ", "drama", ""},
	})

	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, updated.ID)
	assert.Equal(t, "Jane Doe", updated.Name)
	assert.Equal(t, "jane@example.com", updated.Email)
	assert.Equal(t, []string{"Drama", "Sci-Fi"}, updated.FavoriteGenres)

	resolved, err := service.Resolve(context.Background(), sess.Token)
	require.NoError(t, err)
	assert.Equal(t, updated, resolved)
	assert.Equal(t, domain.Notification{Message: "Profile updated successfully!", Severity: domain.SeveritySuccess}, notifier.items[len(notifier.items)-1])
}

func TestService_UpdateProfile_Invalid(t *testing.T) {
	tests := []struct {
		name string
		in   ProfileInput
		msg  string
	}{
		{"blank name", ProfileInput{Name: "   "}, "The name field is required"},
		{"bad email", ProfileInput{Name: "Jane", Email: "jane-at-example"}, "Please enter a valid email address"},
		{"too many genres", ProfileInput{Name: "Jane", FavoriteGenres: []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k"}}, "The favoritegenres field is too long"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens := newMemoryTokens()
			notifier := &recordingNotifier{}
			service := NewService(tokens, notifier, rand.New(rand.NewSource(1)), logger.Nop())
			sess, err := service.Login(context.Background(), "jane@example.com")
			require.NoError(t, err)

			_, err = service.UpdateProfile(context.Background(), sess.Token, tt.in)

			assert.ErrorIs(t, err, domain.ErrInvalidInput)
			assert.Equal(t, domain.Notification{Message: tt.msg, Severity: domain.SeverityWarning}, notifier.items[len(notifier.items)-1])
			resolved, err := service.Resolve(context.Background(), sess.Token)
			require.NoError(t, err)
			assert.Equal(t, "jane", resolved.Name)
		})
	}
}

func TestService_UpdateProfile_Unauthorized(t *testing.T) {
	service := NewService(newMemoryTokens(), nil, nil, logger.Nop())

	_, err := service.UpdateProfile(context.Background(), "missing", ProfileInput{Name: "Jane"})

	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestService_UpdateProfile_StoreFailure(t *testing.T) {
	tokens := new(MockTokenStore)
	tokens.On("GetIdentity", mock.Anything, "tok").Return(&domain.User{ID: "user_1", Name: "jane"}, nil)
	tokens.On("SaveIdentity", mock.Anything, "tok", mock.Anything).Return(errors.New("redis down"))
	notifier := &recordingNotifier{}
	service := NewService(tokens, notifier, nil, logger.Nop())

	_, err := service.UpdateProfile(context.Background(), "tok", ProfileInput{Name: "Jane"})

	assert.Error(t, err)
	require.Len(t, notifier.items, 1)
	assert.Equal(t, domain.Notification{Message: "Error updating profile", Severity: domain.SeverityDanger}, notifier.items[0])
}
