package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/okian/pokepack/pkg/logger"
	"github.com/okian/pokepack/pkg/metrics"
)

// DefaultTimeout bounds a single attempt.
const DefaultTimeout = 30 * time.Second

// maxErrorBody caps how much of a failed response is read for logging.
const maxErrorBody = 512

// Client is a JSON-over-HTTP GET client with retries.
type Client struct {
	service string
	http    *http.Client
	policy  RetryPolicy
	headers http.Header
	log     logger.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-attempt timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithPolicy replaces the retry policy.
func WithPolicy(p RetryPolicy) Option {
	return func(c *Client) {
		c.policy = p
	}
}

// WithHeader adds a header to every request. Empty values are skipped.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		if value != "" {
			c.headers.Set(key, value)
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// NewClient creates a client; service labels its metrics and logs.
func NewClient(service string, opts ...Option) *Client {
	c := &Client{
		service: service,
		http:    &http.Client{Timeout: DefaultTimeout},
		policy:  DefaultPolicy(),
		headers: make(http.Header),
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetJSON fetches rawURL with query and decodes the body into out.
func (c *Client) GetJSON(ctx context.Context, rawURL string, query url.Values, out any) error {
	target := rawURL
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	policy := c.policy
	policy.OnRetry = func(attempt int, err error) {
		metrics.RecordUpstreamRetry(c.service)
		c.log.Warn(ctx, "upstream request failed, retrying",
			logger.String("service", c.service),
			logger.String("url", target),
			logger.Int("attempt", attempt),
			logger.Error(err))
	}

	start := time.Now()
	err := policy.Do(ctx, func(ctx context.Context) error {
		return c.get(ctx, target, out)
	})
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.RecordUpstream(c.service, outcome, float64(time.Since(start).Milliseconds()))
	return err
}

func (c *Client) get(ctx context.Context, target string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range c.headers {
		req.Header[k] = v
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.log.Debug(ctx, "upstream error response",
			logger.String("service", c.service),
			logger.Int("status", resp.StatusCode),
			logger.String("body", string(body)))
		return &StatusError{StatusCode: resp.StatusCode, URL: target}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", target, err)
	}
	return nil
}
