// Package fitbit fetches raw health data from the Fitbit Web API.
package fitbit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/jun/fitadvice/internal/metrics"
	"github.com/jun/fitadvice/internal/model"
)

// DefaultBaseURL is the production Fitbit Web API.
const DefaultBaseURL = "https://api.fitbit.com"

const maxBodyBytes = 8 << 20

// ErrUnknownCategory is wrapped by UpstreamError when no path exists for a category.
var ErrUnknownCategory = errors.New("unknown category")

// UpstreamError describes a failed fetch. Either StatusCode/Body are set
// (non-2xx or malformed payload) or Err carries a transport failure.
type UpstreamError struct {
	Category   Category
	StatusCode int
	Body       string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fitbit %s: %v", e.Category, e.Err)
	}
	return fmt.Sprintf("fitbit %s: status %d: %s", e.Category, e.StatusCode, truncate(e.Body, 200))
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Client issues authenticated GETs against the Fitbit Web API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	logger     *slog.Logger
	metrics    metrics.Recorder
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the base HTTP client. Its transport carries the bearer header.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout bounds each Fetch call.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func WithMetrics(m metrics.Recorder) Option {
	return func(c *Client) { c.metrics = m }
}

// NewClient returns a Client for baseURL (DefaultBaseURL when empty).
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: http.DefaultClient,
		timeout:    10 * time.Second,
		logger:     slog.Default(),
		metrics:    metrics.Nop{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch retrieves the raw JSON for one category. There is no retry.
func (c *Client) Fetch(ctx context.Context, category Category, accessToken string, p Params) (json.RawMessage, error) {
	tmpl, ok := paths[category]
	if !ok {
		return nil, &UpstreamError{Category: category, Err: ErrUnknownCategory}
	}
	url := c.baseURL + p.expand(tmpl)

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	body, status, err := c.get(ctx, url, accessToken)
	elapsed := time.Since(start)

	if err != nil {
		err = model.AsTimeout("fetch", err)
		outcome := metrics.OutcomeError
		if model.IsTimeout(err) {
			outcome = metrics.OutcomeTimeout
		}
		c.metrics.ObserveUpstream(string(category), outcome, elapsed)
		c.logger.DebugContext(ctx, "fitbit fetch failed", "category", category, "error", err, "duration_ms", elapsed.Milliseconds())
		return nil, &UpstreamError{Category: category, Err: err}
	}

	c.logger.DebugContext(ctx, "fitbit fetch", "category", category, "status", status, "duration_ms", elapsed.Milliseconds())

	if status < 200 || status >= 300 {
		c.metrics.ObserveUpstream(string(category), metrics.OutcomeError, elapsed)
		return nil, &UpstreamError{Category: category, StatusCode: status, Body: string(body)}
	}
	if !json.Valid(body) {
		c.metrics.ObserveUpstream(string(category), metrics.OutcomeError, elapsed)
		return nil, &UpstreamError{Category: category, StatusCode: status, Body: "invalid JSON: " + truncate(string(body), 200)}
	}

	c.metrics.ObserveUpstream(string(category), metrics.OutcomeSuccess, elapsed)
	return json.RawMessage(body), nil
}

func (c *Client) get(ctx context.Context, url, accessToken string) ([]byte, int, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
	client := oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, c.httpClient), ts)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}
	return body, resp.StatusCode, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
