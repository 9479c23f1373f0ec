// Package client talks to the ERCOT load/weather/forecast analytics API.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/newthinker/gridlens/internal/core"
	"go.uber.org/zap"
)

// DefaultBaseURL is the analytics API address used when none is configured.
const DefaultBaseURL = "http://localhost:8000"

// maxErrorBody caps how much of a failed response body is kept.
const maxErrorBody = 512

// StatusError reports a non-2xx upstream response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request failed with status %d", e.StatusCode)
}

// StatusCode extracts the upstream HTTP status from err, if any.
func StatusCode(err error) (int, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode, true
	}
	return 0, false
}

// Client is a typed HTTP client for the analytics API.
type Client struct {
	client  *http.Client
	baseURL string
	logger  *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets a whole-request timeout. Zero means no timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.client = hc
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a client for baseURL. An empty baseURL uses DefaultBaseURL.
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		client:  &http.Client{},
		baseURL: strings.TrimSuffix(baseURL, "/"),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewWithBaseURL creates a client with default options (for testing).
func NewWithBaseURL(url string) *Client {
	return New(url)
}

// BaseURL returns the configured API address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// get issues GET path?query and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, path string, q *Query, out any) error {
	u := c.baseURL + path
	if enc := q.Encode(); enc != "" {
		u += "?" + enc
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("analytics API request", zap.String("url", u))

	resp, err := c.client.Do(req)
	if err != nil {
		return core.WrapError(core.ErrUpstreamUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return core.WrapError(core.ErrUpstreamStatus, &StatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		})
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return core.WrapError(core.ErrDecode, err)
	}
	return nil
}

// Query is an ordered set of query parameters. Values are escaped but
// colons are kept literal so timestamps read as 2010-06-01T00:00:00.
type Query struct {
	keys   []string
	values []string
}

// Set appends key=value. Empty values are dropped.
func (q *Query) Set(key, value string) *Query {
	if value == "" {
		return q
	}
	q.keys = append(q.keys, key)
	q.values = append(q.values, value)
	return q
}

// Encode renders the query string in insertion order.
func (q *Query) Encode() string {
	if q == nil {
		return ""
	}
	parts := make([]string, len(q.keys))
	for i, k := range q.keys {
		v := strings.ReplaceAll(url.QueryEscape(q.values[i]), "%3A", ":")
		parts[i] = url.QueryEscape(k) + "=" + v
	}
	return strings.Join(parts, "&")
}

// TimestampRange adds start_date/end_date as day-boundary timestamps.
func (q *Query) TimestampRange(r core.DateRange) *Query {
	return q.Set("start_date", r.StartTimestamp()).Set("end_date", r.EndTimestamp())
}

// DateRange adds start_date/end_date as calendar dates.
func (q *Query) DateRange(r core.DateRange) *Query {
	return q.Set("start_date", r.Start).Set("end_date", r.End)
}
