// Package notify implements the user-facing notification channel.
//
// A Dispatcher writes every notification to the structured log, appends it to
// the per-request Collector carried in the context (so HTTP handlers can return
// it to the browser), and optionally publishes it on NATS.
package notify

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/Pesokrava/movie_reviews/internal/domain"
	"github.com/Pesokrava/movie_reviews/internal/pkg/logger"
)

// Subject is the NATS subject notifications are published on
const Subject = "reviews.notifications"

// Publisher publishes raw messages; satisfied by events.Publisher
type Publisher interface {
	Publish(ctx context.Context, subject, msgID string, data []byte) error
}

// Collector buffers the notifications raised while serving one request
type Collector struct {
	mu    sync.Mutex
	items []domain.Notification
}

type collectorKey struct{}

// WithCollector returns a context carrying a fresh collector
func WithCollector(ctx context.Context) (context.Context, *Collector) {
	c := &Collector{}
	return context.WithValue(ctx, collectorKey{}, c), c
}

// CollectorFrom returns the collector stored in ctx, if any
func CollectorFrom(ctx context.Context) (*Collector, bool) {
	c, ok := ctx.Value(collectorKey{}).(*Collector)
	return c, ok
}

// Add appends a notification
func (c *Collector) Add(n domain.Notification) {
	c.mu.Lock()
	c.items = append(c.items, n)
	c.mu.Unlock()
}

// Items returns a copy of the buffered notifications
func (c *Collector) Items() []domain.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.Notification, len(c.items))
	copy(out, c.items)
	return out
}

// Dispatcher is the gateway's domain.Notifier
type Dispatcher struct {
	logger    *logger.Logger
	publisher Publisher
	userID    string
}

// NewDispatcher creates a dispatcher; publisher may be nil
func NewDispatcher(log *logger.Logger, publisher Publisher) *Dispatcher {
	return &Dispatcher{
		logger:    log.Component("notify"),
		publisher: publisher,
	}
}

// ForUser returns a dispatcher that tags published notifications with the user
func (d *Dispatcher) ForUser(userID string) *Dispatcher {
	return &Dispatcher{
		logger:    d.logger.With("user_id", userID),
		publisher: d.publisher,
		userID:    userID,
	}
}

type published struct {
	UserID    string          `json:"userId,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Severity  domain.Severity `json:"severity"`
	Message   string          `json:"message"`
}

// Notify surfaces a message at the given severity
func (d *Dispatcher) Notify(ctx context.Context, message string, severity domain.Severity) {
	n := domain.Notification{Message: message, Severity: severity}

	if c, ok := CollectorFrom(ctx); ok {
		c.Add(n)
	}

	entry := d.logger.With("severity", string(severity))
	switch severity {
	case domain.SeverityDanger:
		entry.Error(message, nil)
	case domain.SeverityWarning:
		entry.Warn(message)
	default:
		entry.Info(message)
	}

	if d.publisher == nil {
		return
	}

	data, err := json.Marshal(published{
		UserID:    d.userID,
		Timestamp: time.Now().UTC(),
		Severity:  severity,
		Message:   message,
	})
	if err != nil {
		d.logger.Error("Failed to marshal notification", err)
		return
	}

	go func() {
		if err := d.publisher.Publish(context.Background(), Subject, "", data); err != nil {
			d.logger.Warnf("Failed to publish notification: %v", err)
		}
	}()
}
