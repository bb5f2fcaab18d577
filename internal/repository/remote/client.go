// Package remote talks JSON over HTTP to the external review and movie catalog APIs.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/Pesokrava/movie_reviews/internal/config"
	"github.com/Pesokrava/movie_reviews/internal/domain"
	"github.com/Pesokrava/movie_reviews/internal/pkg/logger"
	"github.com/Pesokrava/movie_reviews/internal/pkg/metrics"
)

const maxResponseBodySize = 4 << 20 // 4MB

// StatusError is returned for non-2xx responses
type StatusError struct {
	Method string
	Path   string
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.Path, e.Code)
}

// Unwrap maps 404 to domain.ErrNotFound and everything else to domain.ErrRemoteUnavailable
func (e *StatusError) Unwrap() error {
	if e.Code == http.StatusNotFound {
		return domain.ErrNotFound
	}
	return domain.ErrRemoteUnavailable
}

// IsNotFound reports whether err is a 404 from the remote API
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}

// Client is a small JSON client that retries transport failures and 5xx responses.
// The default of two attempts means "retry once, then give up".
type Client struct {
	api         string
	baseURL     string
	http        *http.Client
	maxAttempts int
	backoff     time.Duration
	logger      *logger.Logger
}

// NewClient creates a client for the API rooted at baseURL; api labels logs and metrics
func NewClient(api, baseURL string, cfg config.RemoteConfig, log *logger.Logger) *Client {
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return &Client{
		api:         api,
		baseURL:     baseURL,
		http:        &http.Client{Timeout: cfg.Timeout},
		maxAttempts: attempts,
		backoff:     cfg.RetryBackoff,
		logger:      log.Component("remote").With("api", api),
	}
}

// Do sends body (if non-nil) as JSON and decodes a non-empty response into out (if non-nil)
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("failed to encode %s %s body: %w", method, path, err)
		}
	}

	var lastErr error
	backoff := c.backoff

	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			c.logger.WithFields(map[string]any{
				"method":     method,
				"path":       path,
				"attempt":    attempt + 1,
				"backoff_ms": backoff.Milliseconds(),
			}).Warn("Retrying remote request")

			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return fmt.Errorf("%w: %s %s: %v", domain.ErrRemoteUnavailable, method, path, ctx.Err())
			}
			backoff *= 2
		}

		retry, err := c.roundTrip(ctx, method, path, payload, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retry {
			return err
		}
	}

	c.logger.WithFields(map[string]any{
		"method":   method,
		"path":     path,
		"attempts": c.maxAttempts,
	}).Error("Remote request failed after all attempts", lastErr)

	return lastErr
}

// roundTrip performs one attempt and reports whether a failure is worth retrying
func (c *Client) roundTrip(ctx context.Context, method, path string, payload []byte, out any) (bool, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return false, fmt.Errorf("failed to build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.RemoteRequests.WithLabelValues(c.api, method, "transport_error").Inc()
		return ctx.Err() == nil, fmt.Errorf("%w: %s %s: %v", domain.ErrRemoteUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		metrics.RemoteRequests.WithLabelValues(c.api, method, "transport_error").Inc()
		return true, fmt.Errorf("%w: reading %s %s: %v", domain.ErrRemoteUnavailable, method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.RemoteRequests.WithLabelValues(c.api, method, "status_"+strconv.Itoa(resp.StatusCode/100)+"xx").Inc()
		return resp.StatusCode >= 500, &StatusError{Method: method, Path: path, Code: resp.StatusCode}
	}
	metrics.RemoteRequests.WithLabelValues(c.api, method, "ok").Inc()

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("%w: decoding %s %s: %v", domain.ErrRemoteUnavailable, method, path, err)
	}
	return false, nil
}
