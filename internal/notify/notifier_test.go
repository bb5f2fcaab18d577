package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pesokrava/movie_reviews/internal/domain"
	"github.com/Pesokrava/movie_reviews/internal/pkg/logger"
)

type recordingPublisher struct {
	mu       sync.Mutex
	subjects []string
	done     chan struct{}
}

func (p *recordingPublisher) Publish(_ context.Context, subject, _ string, _ []byte) error {
	p.mu.Lock()
	p.subjects = append(p.subjects, subject)
	p.mu.Unlock()
	p.done <- struct{}{}
	return nil
}

func TestDispatcher_CollectsIntoRequestContext(t *testing.T) {
	d := NewDispatcher(logger.Nop(), nil)
	ctx, c := WithCollector(context.Background())

	d.Notify(ctx, "Review submitted successfully! (Saved locally)", domain.SeverityInfo)
	d.Notify(ctx, "Please select a rating", domain.SeverityWarning)

	assert.Equal(t, []domain.Notification{
		{Message: "Review submitted successfully! (Saved locally)", Severity: domain.SeverityInfo},
		{Message: "Please select a rating", Severity: domain.SeverityWarning},
	}, c.Items())
}

func TestDispatcher_WithoutCollector(t *testing.T) {
	d := NewDispatcher(logger.Nop(), nil)

	assert.NotPanics(t, func() {
		d.Notify(context.Background(), "hello", domain.SeveritySuccess)
	})
	_, ok := CollectorFrom(context.Background())
	assert.False(t, ok)
}

func TestDispatcher_PublishesToNATSSubject(t *testing.T) {
	pub := &recordingPublisher{done: make(chan struct{}, 1)}
	d := NewDispatcher(logger.Nop(), pub).ForUser("demo_user_1")

	d.Notify(context.Background(), "Review deleted successfully!", domain.SeveritySuccess)

	select {
	case <-pub.done:
	case <-time.After(time.Second):
		t.Fatal("notification was not published")
	}
	pub.mu.Lock()
	defer pub.mu.Unlock()
	require.Len(t, pub.subjects, 1)
	assert.Equal(t, Subject, pub.subjects[0])
}
