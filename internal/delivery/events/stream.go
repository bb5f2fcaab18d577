package events

import (
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/Pesokrava/movie_reviews/internal/pkg/logger"
)

const (
	// StreamName is the JetStream stream for review events
	StreamName = "REVIEWS"

	// StreamSubjects defines the subjects this stream listens to
	StreamSubjects = "reviews.events"

	// ConsumerName is the durable consumer of the stats worker
	ConsumerName = "stats-worker"

	// MaxDeliveryAttempts is the max number of delivery attempts before discarding
	MaxDeliveryAttempts = 3

	// DuplicateWindow is how long JetStream remembers Nats-Msg-Id values
	DuplicateWindow = 2 * time.Minute

	// AckWait is how long to wait for acknowledgment before redelivery
	AckWait = 30 * time.Second

	streamMaxAge = 24 * time.Hour
)

// StreamAdmin is the part of nats.JetStreamContext used to declare the topology
type StreamAdmin interface {
	StreamInfo(stream string, opts ...nats.JSOpt) (*nats.StreamInfo, error)
	AddStream(cfg *nats.StreamConfig, opts ...nats.JSOpt) (*nats.StreamInfo, error)
	UpdateStream(cfg *nats.StreamConfig, opts ...nats.JSOpt) (*nats.StreamInfo, error)
	ConsumerInfo(stream, name string, opts ...nats.JSOpt) (*nats.ConsumerInfo, error)
	AddConsumer(stream string, cfg *nats.ConsumerConfig, opts ...nats.JSOpt) (*nats.ConsumerInfo, error)
}

// Topology declares the review events stream and the stats worker consumer
type Topology struct {
	js     StreamAdmin
	logger *logger.Logger
}

// NewTopology creates a topology helper on top of a JetStream context
func NewTopology(js StreamAdmin, log *logger.Logger) *Topology {
	return &Topology{
		js:     js,
		logger: log.Component("jetstream"),
	}
}

// generateExponentialBackoff creates a backoff schedule for NATS redeliveries
// Pattern: 1s, 2s, 4s, 8s, ... (2^n seconds)
// MaxDeliver N requires N-1 backoff durations (first delivery is immediate)
func generateExponentialBackoff(maxDeliveryAttempts int) []time.Duration {
	if maxDeliveryAttempts <= 1 {
		return nil
	}

	backoff := make([]time.Duration, maxDeliveryAttempts-1)
	for i := range backoff {
		backoff[i] = time.Duration(1<<i) * time.Second
	}
	return backoff
}

// reviewStream is a work queue kept on disk for a day. Gateways publish every
// event with its event ID as Nats-Msg-Id so a retried publish is dropped
// within DuplicateWindow.
func reviewStream() *nats.StreamConfig {
	return &nats.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{StreamSubjects},
		Retention:   nats.WorkQueuePolicy,
		Storage:     nats.FileStorage,
		Replicas:    1,
		MaxAge:      streamMaxAge,
		Discard:     nats.DiscardOld,
		Duplicates:  DuplicateWindow,
		Description: "Review lifecycle events for movie stats aggregation",
	}
}

// statsConsumer acks explicitly and gives up after MaxDeliveryAttempts.
// A discarded delta leaves that movie off until its snapshot is rebuilt.
func statsConsumer() *nats.ConsumerConfig {
	return &nats.ConsumerConfig{
		Durable:       ConsumerName,
		AckPolicy:     nats.AckExplicitPolicy,
		AckWait:       AckWait,
		MaxDeliver:    MaxDeliveryAttempts,
		FilterSubject: StreamSubjects,
		BackOff:       generateExponentialBackoff(MaxDeliveryAttempts),
		Description:   "Stats worker consumer folding review deltas",
	}
}

// Ensure declares the stream and then the consumer
func (t *Topology) Ensure() error {
	if err := t.EnsureStream(); err != nil {
		return err
	}
	return t.EnsureConsumer()
}

// EnsureStream creates the review events stream, or fixes the duplicate window of an existing one
func (t *Topology) EnsureStream() error {
	want := reviewStream()

	info, err := t.js.StreamInfo(StreamName)
	switch {
	case errors.Is(err, nats.ErrStreamNotFound):
		t.logger.WithFields(map[string]any{
			"stream":   StreamName,
			"subjects": StreamSubjects,
		}).Info("Creating JetStream stream")

		if _, err := t.js.AddStream(want); err != nil {
			return fmt.Errorf("failed to create stream: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("failed to get stream info: %w", err)
	}

	if info.Config.Duplicates != want.Duplicates {
		t.logger.WithFields(map[string]any{
			"stream": StreamName,
			"from":   info.Config.Duplicates.String(),
			"to":     want.Duplicates.String(),
		}).Warn("Updating JetStream stream duplicate window")

		cfg := info.Config
		cfg.Duplicates = want.Duplicates
		if _, err := t.js.UpdateStream(&cfg); err != nil {
			return fmt.Errorf("failed to update stream: %w", err)
		}
		return nil
	}

	t.logger.WithFields(map[string]any{
		"stream":   info.Config.Name,
		"messages": info.State.Msgs,
		"bytes":    info.State.Bytes,
	}).Info("JetStream stream already exists")
	return nil
}

// EnsureConsumer creates the durable consumer of the stats worker if it is missing
func (t *Topology) EnsureConsumer() error {
	info, err := t.js.ConsumerInfo(StreamName, ConsumerName)
	switch {
	case errors.Is(err, nats.ErrConsumerNotFound):
		t.logger.WithFields(map[string]any{
			"stream":   StreamName,
			"consumer": ConsumerName,
		}).Info("Creating JetStream consumer")

		if _, err := t.js.AddConsumer(StreamName, statsConsumer()); err != nil {
			return fmt.Errorf("failed to create consumer: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("failed to get consumer info: %w", err)
	}

	t.logger.WithFields(map[string]any{
		"consumer":    info.Name,
		"pending":     info.NumPending,
		"redelivered": info.NumRedelivered,
		"ack_pending": info.NumAckPending,
	}).Info("JetStream consumer already exists")
	return nil
}
