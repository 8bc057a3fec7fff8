// Package classifier is the HTTP client for the remote text classification
// service. It speaks the service's JSON contract and returns raw reply bodies;
// shape normalization happens in core.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/JonMunkholm/textclass/internal/core"
	"github.com/JonMunkholm/textclass/internal/metrics"
)

// Operation names used in logs and metrics.
const (
	OpPredict = "predict"
	OpRetrain = "retrain"
	OpHealth  = "health"
)

const (
	DefaultTimeout          = 120 * time.Second
	DefaultMaxResponseBytes = 10 << 20
)

// Client calls the classification service. It is safe for concurrent use.
// No call is retried.
type Client struct {
	baseURL          string
	http             *http.Client
	maxResponseBytes int64
	metrics          *metrics.Metrics
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithMetrics records request counts and latency.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithMaxResponseBytes caps how much of a reply body is read.
func WithMaxResponseBytes(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxResponseBytes = n
		}
	}
}

// New creates a Client for the service at baseURL. A non-positive timeout
// uses DefaultTimeout.
func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		baseURL:          strings.TrimRight(baseURL, "/"),
		http:             &http.Client{Timeout: timeout},
		maxResponseBytes: DefaultMaxResponseBytes,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the service address requests are sent to.
func (c *Client) BaseURL() string { return c.baseURL }

type predictRequest struct {
	Textos []string `json:"textos"`
}

type retrainRequest struct {
	Textos []string `json:"textos"`
	Labels []string `json:"labels"`
}

// Predict sends texts to POST /predict and returns the raw reply.
func (c *Client) Predict(ctx context.Context, texts []string) ([]byte, error) {
	return c.postJSON(ctx, OpPredict, "/predict", predictRequest{Textos: texts})
}

// Retrain sends parallel texts and labels to POST /retrain and returns the raw reply.
func (c *Client) Retrain(ctx context.Context, texts, labels []string) ([]byte, error) {
	return c.postJSON(ctx, OpRetrain, "/retrain", retrainRequest{Textos: texts, Labels: labels})
}

// Health is the service's GET /health reply.
type Health struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
	Detail      string `json:"detail,omitempty"`
}

// Health calls GET /health.
func (c *Client) Health(ctx context.Context) (Health, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return Health{}, fmt.Errorf("classifier %s: build request: %w", OpHealth, err)
	}
	req.Header.Set("Accept", "application/json")

	body, err := c.do(req, OpHealth)
	if err != nil {
		return Health{}, err
	}

	var h Health
	if err := json.Unmarshal(body, &h); err != nil {
		return Health{}, fmt.Errorf("classifier %s: decode reply: %w", OpHealth, err)
	}
	return h, nil
}

func (c *Client) postJSON(ctx context.Context, op, path string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("classifier %s: marshal request: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("classifier %s: build request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	slog.DebugContext(ctx, "classifier request", "operation", op, "url", req.URL.String(), "bytes", len(data))
	return c.do(req, op)
}

// do sends req and returns the body of a 2xx reply. Other statuses become a
// *core.ServiceError carrying the body text, cut at the size cap. A 2xx reply
// over the cap fails with core.ErrResponseTooLarge.
func (c *Client) do(req *http.Request, op string) ([]byte, error) {
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.ObserveClassifierCall(op, 0, time.Since(start))
		return nil, fmt.Errorf("classifier %s: %w", op, err)
	}
	defer resp.Body.Close()

	// One byte past the cap tells an oversized reply from one that fits exactly.
	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxResponseBytes+1))
	c.metrics.ObserveClassifierCall(op, resp.StatusCode, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("classifier %s: read reply: %w", op, err)
	}
	oversized := int64(len(body)) > c.maxResponseBytes
	if oversized {
		body = body[:c.maxResponseBytes]
	}

	slog.DebugContext(req.Context(), "classifier reply",
		"operation", op,
		"status", resp.StatusCode,
		"bytes", len(body),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &core.ServiceError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}
	if oversized {
		return nil, fmt.Errorf("classifier %s: %w: reply exceeds %d bytes", op, core.ErrResponseTooLarge, c.maxResponseBytes)
	}
	return body, nil
}
