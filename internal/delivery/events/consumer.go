package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/Pesokrava/movie_reviews/internal/config"
	"github.com/Pesokrava/movie_reviews/internal/domain"
	"github.com/Pesokrava/movie_reviews/internal/pkg/logger"
)

// Handler processes one message payload
type Handler func(data []byte) error

// Consumer handles consuming events from core NATS
type Consumer struct {
	nc     *nats.Conn
	logger *logger.Logger
	subs   []*nats.Subscription
}

// NewConsumer creates a new NATS consumer
func NewConsumer(cfg *config.Config, log *logger.Logger) (*Consumer, error) {
	nc, err := nats.Connect(cfg.NATS.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	log.Infof("Connected to NATS at %s", cfg.NATS.URL)

	return &Consumer{
		nc:     nc,
		logger: log,
	}, nil
}

// Subscribe subscribes to a NATS subject and processes messages
func (c *Consumer) Subscribe(subject string, handler Handler) error {
	sub, err := c.nc.Subscribe(subject, func(msg *nats.Msg) {
		c.logger.Debugf("Received message on subject %s", subject)

		if err := handler(msg.Data); err != nil {
			c.logger.Errorf(err, "Failed to handle message on subject %s", subject)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to subject %s: %w", subject, err)
	}

	c.subs = append(c.subs, sub)
	c.logger.Infof("Subscribed to NATS subject: %s", subject)
	return nil
}

// Close closes the NATS connection
func (c *Consumer) Close() {
	for _, sub := range c.subs {
		if err := sub.Unsubscribe(); err != nil {
			c.logger.Warnf("Failed to unsubscribe from NATS: %v", err)
		}
	}
	if c.nc != nil {
		c.nc.Close()
		c.logger.Info("NATS consumer connection closed")
	}
}

// Fetcher is the part of a JetStream pull subscription RunPull needs
type Fetcher interface {
	Fetch(batch int, opts ...nats.PullOpt) ([]*nats.Msg, error)
}

// RunPull fetches messages in batches until ctx is done. Handled messages are
// acked; failed ones are nacked and redelivered with the consumer backoff
// until MaxDeliveryAttempts is reached.
func RunPull(ctx context.Context, sub Fetcher, batch int, handler Handler, log *logger.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		msgs, err := sub.Fetch(batch, nats.MaxWait(5*time.Second))
		if err != nil {
			if errors.Is(err, nats.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
				// No messages available, continue polling
				continue
			}
			log.Error("Failed to fetch messages from JetStream", err)
			select {
			case <-time.After(5 * time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		for _, msg := range msgs {
			if err := handler(msg.Data); err != nil {
				log.Error("Failed to handle event", err)
				if nackErr := msg.Nak(); nackErr != nil {
					log.Error("Failed to NACK message", nackErr)
				}
				continue
			}

			if ackErr := msg.Ack(); ackErr != nil {
				log.Error("Failed to ACK message", ackErr)
			}
		}
	}
}

// LoggingHandler creates a simple handler that logs all events
func LoggingHandler(log *logger.Logger) Handler {
	return func(data []byte) error {
		var event map[string]any
		if err := json.Unmarshal(data, &event); err != nil {
			log.Error("Failed to unmarshal event", err)
			return err
		}

		prettyJSON, err := json.MarshalIndent(event, "", "  ")
		if err != nil {
			log.Error("Failed to marshal pretty JSON", err)
			return err
		}

		log.Infof("Received event:\n%s", string(prettyJSON))
		return nil
	}
}

// ReviewEventHandler logs one structured line per review event
func ReviewEventHandler(log *logger.Logger) Handler {
	return func(data []byte) error {
		var event domain.ReviewEvent
		if err := json.Unmarshal(data, &event); err != nil {
			log.Error("Failed to unmarshal review event", err)
			return err
		}

		fields := map[string]any{
			"event_id":    event.EventID,
			"event_type":  event.EventType,
			"movie_id":    event.MovieID,
			"persistence": string(event.Persistence),
			"old_rating":  event.Delta.OldRating,
			"new_rating":  event.Delta.NewRating,
		}
		if event.Review != nil {
			fields["review_id"] = event.Review.ID
			fields["user_id"] = event.Review.UserID
		}
		log.WithFields(fields).Info("Review event")
		return nil
	}
}
