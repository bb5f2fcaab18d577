package events

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/Pesokrava/movie_reviews/internal/config"
	"github.com/Pesokrava/movie_reviews/internal/pkg/logger"
)

// Publisher publishes review events to NATS JetStream and everything else to core NATS
type Publisher struct {
	nc     *nats.Conn
	js     nats.JetStreamContext
	logger *logger.Logger
}

// NewPublisher creates a new NATS JetStream publisher
func NewPublisher(cfg *config.Config, log *logger.Logger) (*Publisher, error) {
	nc, err := nats.Connect(cfg.NATS.URL, nats.Name("movie-reviews-api"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	log.WithFields(map[string]any{
		"url": cfg.NATS.URL,
	}).Info("Connected to NATS JetStream")

	return &Publisher{
		nc:     nc,
		js:     js,
		logger: log.Component("events"),
	}, nil
}

// JetStream exposes the JetStream context for stream setup
func (p *Publisher) JetStream() nats.JetStreamContext {
	return p.js
}

// Publish publishes data on subject. Subjects captured by the review stream go
// through JetStream with msgID as the dedupe key; others are fire-and-forget.
func (p *Publisher) Publish(ctx context.Context, subject, msgID string, data []byte) error {
	if subject != StreamSubjects {
		if err := p.nc.Publish(subject, data); err != nil {
			return fmt.Errorf("failed to publish to %s: %w", subject, err)
		}
		return nil
	}

	opts := []nats.PubOpt{nats.Context(ctx)}
	if msgID != "" {
		opts = append(opts, nats.MsgId(msgID))
	}

	// Publish with acknowledgment - ensures message is stored before returning
	pubAck, err := p.js.Publish(subject, data, opts...)
	if err != nil {
		p.logger.WithFields(map[string]any{
			"subject": subject,
			"msg_id":  msgID,
		}).Error("Failed to publish message to JetStream", err)
		return fmt.Errorf("failed to publish to JetStream: %w", err)
	}

	p.logger.WithFields(map[string]any{
		"subject":   subject,
		"stream":    pubAck.Stream,
		"sequence":  pubAck.Sequence,
		"duplicate": pubAck.Duplicate,
	}).Debug("Published message to JetStream")

	return nil
}

// Close drains and closes the NATS connection
func (p *Publisher) Close() {
	if p.nc != nil {
		if err := p.nc.Drain(); err != nil {
			p.nc.Close()
		}
		p.logger.Info("NATS publisher connection closed")
	}
}
