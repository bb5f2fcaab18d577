// Package identity is the mocked identity provider: it fabricates users from
// an email address or hands out one of the demo users, and binds them to
// opaque bearer tokens.
package identity

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/Pesokrava/movie_reviews/internal/domain"
	"github.com/Pesokrava/movie_reviews/internal/pkg/logger"
	validatorpkg "github.com/Pesokrava/movie_reviews/internal/pkg/validator"
)

const (
	userIDPrefix = "user_"
	userIDLength = 9
	base36       = "0123456789abcdefghijklmnopqrstuvwxyz"
	defaultName  = "Movie Enthusiast"
)

// TokenStore persists token to user bindings
type TokenStore interface {
	SaveIdentity(ctx context.Context, token string, user *domain.User) error
	GetIdentity(ctx context.Context, token string) (*domain.User, error)
	DeleteIdentity(ctx context.Context, token string) error
}

// Session is an issued login
type Session struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

type demoUser struct {
	id, name, email, background, color string
}

var demoUsers = []demoUser{
	{"demo_user_1", "Movie Critic", "critic@moviereview.com", "28a745", "fff"},
	{"demo_user_2", "Film Buff", "filmbuff@moviereview.com", "dc3545", "fff"},
	{"demo_user_3", "Cinema Lover", "cinema@moviereview.com", "ffc107", "000"},
}

type loginInput struct {
	Email string `validate:"required,email"`
}

// ProfileInput is an edit of the user's own profile
type ProfileInput struct {
	Name           string   `json:"name" validate:"required,max=100"`
	Email          string   `json:"email" validate:"omitempty,email"`
	Bio            string   `json:"bio" validate:"max=500"`
	FavoriteGenres []string `json:"favoriteGenres" validate:"max=10,dive,max=40"`
}

// Service issues and resolves identities
type Service struct {
	tokens   TokenStore
	notifier domain.Notifier
	validate *validator.Validate
	logger   *logger.Logger
	now      func() time.Time

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewService creates an identity service; rnd drives user IDs and demo user selection
func NewService(tokens TokenStore, notifier domain.Notifier, rnd *rand.Rand, log *logger.Logger) *Service {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Service{
		tokens:   tokens,
		notifier: notifier,
		validate: validatorpkg.Get(),
		logger:   log.Component("identity"),
		now:      time.Now,
		rnd:      rnd,
	}
}

// Login fabricates a user for email and issues a token
func (s *Service) Login(ctx context.Context, email string) (*Session, error) {
	email = strings.TrimSpace(email)
	if err := s.validate.Struct(loginInput{Email: email}); err != nil {
		msg := validatorpkg.Message(err)
		s.notify(ctx, msg, domain.SeverityWarning)
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidInput, msg)
	}

	name := defaultName
	if local, _, ok := strings.Cut(email, "@"); ok && local != "" {
		name = local
	}

	user := &domain.User{
		ID:       s.newUserID(),
		Name:     name,
		Email:    email,
		Avatar:   avatarURL(name, "007bff", "fff"),
		JoinDate: s.now().UTC(),
	}

	sess, err := s.issue(ctx, user)
	if err != nil {
		s.notify(ctx, "Login failed. Please try again.", domain.SeverityDanger)
		return nil, err
	}
	s.notify(ctx, fmt.Sprintf("Welcome back, %s!", user.Name), domain.SeveritySuccess)
	return sess, nil
}

// DemoLogin picks one of the demo users and issues a token
func (s *Service) DemoLogin(ctx context.Context) (*Session, error) {
	s.mu.Lock()
	d := demoUsers[s.rnd.Intn(len(demoUsers))]
	s.mu.Unlock()

	user := &domain.User{
		ID:       d.id,
		Name:     d.name,
		Email:    d.email,
		Avatar:   avatarURL(d.name, d.background, d.color),
		JoinDate: s.now().UTC(),
	}

	sess, err := s.issue(ctx, user)
	if err != nil {
		s.notify(ctx, "Login failed. Please try again.", domain.SeverityDanger)
		return nil, err
	}
	s.notify(ctx, fmt.Sprintf("Welcome, %s! Demo login successful.", user.Name), domain.SeveritySuccess)
	return sess, nil
}

// Resolve returns the user bound to token
func (s *Service) Resolve(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, domain.ErrUnauthorized
	}
	user, err := s.tokens.GetIdentity(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUnauthorized
		}
		s.logger.Error("Failed to resolve identity", err)
		return nil, err
	}
	return user, nil
}

// UpdateProfile edits the profile of the user bound to token. An empty email
// keeps the current one.
func (s *Service) UpdateProfile(ctx context.Context, token string, in ProfileInput) (*domain.User, error) {
	current, err := s.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}

	in = normalizeProfile(in)
	if err := s.validate.Struct(in); err != nil {
		msg := validatorpkg.Message(err)
		s.notify(ctx, msg, domain.SeverityWarning)
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidInput, msg)
	}

	updated := *current
	updated.Name = in.Name
	if in.Email != "" {
		updated.Email = in.Email
	}
	updated.Bio = in.Bio
	updated.FavoriteGenres = in.FavoriteGenres

	if err := s.tokens.SaveIdentity(ctx, token, &updated); err != nil {
		s.logger.Error("Failed to store profile", err)
		s.notify(ctx, "Error updating profile", domain.SeverityDanger)
		return nil, err
	}

	s.logger.WithFields(map[string]any{
		"user_id": updated.ID,
		"name":    updated.Name,
	}).Info("Profile updated")
	s.notify(ctx, "Profile updated successfully!", domain.SeveritySuccess)
	return &updated, nil
}

// normalizeProfile trims every field and drops blank or repeated genres
func normalizeProfile(in ProfileInput) ProfileInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Bio = strings.TrimSpace(in.Bio)

	seen := make(map[string]struct{}, len(in.FavoriteGenres))
	genres := make([]string, 0, len(in.FavoriteGenres))
	for _, g := range in.FavoriteGenres {
		g = strings.TrimSpace(g)
		key := strings.ToLower(g)
		if _, dup := seen[key]; g == "" || dup {
			continue
		}
		seen[key] = struct{}{}
		genres = append(genres, g)
	}
	in.FavoriteGenres = genres
	return in
}

// Logout forgets token
func (s *Service) Logout(ctx context.Context, token string) error {
	if err := s.tokens.DeleteIdentity(ctx, token); err != nil {
		s.logger.Error("Failed to delete identity", err)
		return err
	}
	s.notify(ctx, "Logged out successfully", domain.SeverityInfo)
	return nil
}

func (s *Service) issue(ctx context.Context, user *domain.User) (*Session, error) {
	token := uuid.NewString()
	if err := s.tokens.SaveIdentity(ctx, token, user); err != nil {
		s.logger.Error("Failed to store identity", err)
		return nil, err
	}

	s.logger.WithFields(map[string]any{
		"user_id": user.ID,
		"name":    user.Name,
	}).Info("User logged in")

	return &Session{Token: token, User: user}, nil
}

func (s *Service) newUserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var b strings.Builder
	b.WriteString(userIDPrefix)
	for i := 0; i < userIDLength; i++ {
		b.WriteByte(base36[s.rnd.Intn(len(base36))])
	}
	return b.String()
}

func avatarURL(name, background, color string) string {
	q := url.Values{}
	q.Set("name", name)
	q.Set("background", background)
	q.Set("color", color)
	return "https://ui-avatars.com/api/?" + q.Encode()
}

func (s *Service) notify(ctx context.Context, msg string, severity domain.Severity) {
	if s.notifier != nil {
		s.notifier.Notify(ctx, msg, severity)
	}
}
