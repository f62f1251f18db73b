// Package remote implements the domain services against the REST backend.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"projectdesk/internal/domain"
	"projectdesk/internal/metrics"
)

// RequestIDHeader carries the per-call correlation id.
const RequestIDHeader = "X-Request-Id"

// Client is a minimal HTTP client for the project backend.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
	Log        *zap.Logger
	Metrics    metrics.Recorder
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// APIError wraps non-2xx responses. Every APIError is a connection failure
// to callers except where a service maps 404 to not-found.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

func (e *APIError) Unwrap() error { return domain.ErrConnection }

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

func (c *Client) do(ctx context.Context, op, method, endpoint string, body any, out any) (err error) {
	if c.Metrics != nil {
		defer metrics.Since(ctx, c.Metrics, op, time.Now(), &err)
	}
	hc := c.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	reqID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, reqID)

	log := c.logger().With(zap.String("op", op), zap.String("method", method),
		zap.String("path", endpoint), zap.String("request_id", reqID))
	started := time.Now()
	resp, err := hc.Do(req)
	if err != nil {
		log.Debug("remote call failed", zap.Error(err))
		return fmt.Errorf("%w: %s %s: %v", domain.ErrConnection, method, endpoint, err)
	}
	defer resp.Body.Close()
	log.Debug("remote call", zap.Int("status", resp.StatusCode), zap.Duration("took", time.Since(started)))
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: decode %s %s: %v", domain.ErrConnection, method, endpoint, err)
		}
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}

func (c *Client) logger() *zap.Logger {
	if c.Log == nil {
		return zap.NewNop()
	}
	return c.Log
}
