// Package session owns the per-user review state of the gateway. Each user
// gets exactly one Session, built on first use and shared by every endpoint.
package session

import (
	"context"
	"sort"
	"sync"

	"github.com/Pesokrava/movie_reviews/internal/domain"
	"github.com/Pesokrava/movie_reviews/internal/pkg/logger"
	"github.com/Pesokrava/movie_reviews/internal/pkg/metrics"
	"github.com/Pesokrava/movie_reviews/internal/stats"
	"github.com/Pesokrava/movie_reviews/internal/usecase/review"
)

// Session is the review state of one user. User is the identity the session
// was opened for; Reviews.Author tracks later profile edits.
type Session struct {
	User    domain.User
	Reviews *review.Service
	Stats   *stats.Registry

	loadOnce sync.Once
}

// NotifierFunc returns the notification channel for a user
type NotifierFunc func(userID string) domain.Notifier

// Config holds the collaborators shared by every session
type Config struct {
	API       domain.ReviewAPI
	Publisher review.EventPublisher
	Notifier  NotifierFunc
	Options   []review.Option
}

// Manager hands out sessions keyed by user ID
type Manager struct {
	cfg    Config
	logger *logger.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates an empty session manager
func NewManager(cfg Config, log *logger.Logger) *Manager {
	return &Manager{
		cfg:      cfg,
		logger:   log.Component("session"),
		sessions: make(map[string]*Session),
	}
}

// Acquire returns the user's session, creating it and loading the user's
// reviews on first use. A failed load still yields a usable session.
// An existing session picks up profile changes carried by user.
func (m *Manager) Acquire(ctx context.Context, user domain.User) *Session {
	m.mu.Lock()
	sess, ok := m.sessions[user.ID]
	if !ok {
		sess = m.newSession(user)
		m.sessions[user.ID] = sess
		metrics.ActiveSessions.Set(float64(len(m.sessions)))
	}
	m.mu.Unlock()

	if ok {
		sess.Reviews.SetAuthor(user)
	}

	sess.loadOnce.Do(func() {
		if err := sess.Reviews.Load(ctx); err != nil {
			m.logger.Warnf("Cold start for user %s fell back to local state: %v", user.ID, err)
		}
	})
	return sess
}

// Get returns an existing session without creating one
func (m *Manager) Get(userID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[userID]
	return sess, ok
}

// Release discards the user's session and its stats
func (m *Manager) Release(userID string) {
	m.mu.Lock()
	_, ok := m.sessions[userID]
	delete(m.sessions, userID)
	metrics.ActiveSessions.Set(float64(len(m.sessions)))
	m.mu.Unlock()

	if ok {
		m.logger.Debugf("Released session for user %s", userID)
	}
}

// Users lists the IDs of live sessions in sorted order
func (m *Manager) Users() []string {
	m.mu.Lock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	sort.Strings(ids)
	return ids
}

func (m *Manager) newSession(user domain.User) *Session {
	log := m.logger.With("user_id", user.ID)
	registry := stats.NewRegistry(log)

	var notifier domain.Notifier
	if m.cfg.Notifier != nil {
		notifier = m.cfg.Notifier(user.ID)
	}

	m.logger.WithFields(map[string]any{
		"user_id": user.ID,
		"name":    user.Name,
	}).Info("Created review session")

	return &Session{
		User:    user,
		Reviews: review.NewService(m.cfg.API, user, registry, m.cfg.Publisher, notifier, log, m.cfg.Options...),
		Stats:   registry,
	}
}

type contextKey struct{}

// NewContext returns a context carrying sess
func NewContext(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, sess)
}

// FromContext returns the session stored in ctx, if any
func FromContext(ctx context.Context) (*Session, bool) {
	sess, ok := ctx.Value(contextKey{}).(*Session)
	return sess, ok
}
