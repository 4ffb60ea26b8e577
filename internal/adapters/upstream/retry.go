// Package upstream talks to the third-party HTTP APIs the service depends on.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"
)

// ErrUpstreamUnavailable marks a failure of a third-party service.
var ErrUpstreamUnavailable = errors.New("upstream unavailable")

// StatusError is a non-2xx response.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: status %d", e.URL, e.StatusCode)
}

// retryableStatus are the response codes worth another attempt.
var retryableStatus = map[int]bool{ //nolint:gochecknoglobals // static lookup table
	http.StatusTooManyRequests:    true,
	http.StatusBadGateway:         true,
	http.StatusServiceUnavailable: true,
	http.StatusGatewayTimeout:     true,
}

// RetryPolicy decides how often and how long to wait between attempts.
type RetryPolicy struct {
	MaxAttempts int
	// Delays[i] is the wait after attempt i; the last value repeats.
	Delays []time.Duration
	// OnRetry, when set, is called before each wait.
	OnRetry func(attempt int, err error)
}

// DefaultPolicy is four attempts with 300, 700, 1200 and 2000 ms waits.
func DefaultPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 4,
		Delays: []time.Duration{
			300 * time.Millisecond,
			700 * time.Millisecond,
			1200 * time.Millisecond,
			2000 * time.Millisecond,
		},
	}
}

// Delay returns the wait after the given zero-based attempt.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if len(p.Delays) == 0 {
		return 0
	}
	return p.Delays[min(attempt, len(p.Delays)-1)]
}

// Retryable reports whether err is a throttling, gateway or network failure.
func Retryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return retryableStatus[se.StatusCode]
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	// A transport error without a response (DNS, refused, reset).
	var ue *url.Error
	return errors.As(err, &ue)
}

// Do runs fn until it succeeds, fails with a non-retryable error or the
// attempts run out. Failures are wrapped with ErrUpstreamUnavailable; a
// cancelled ctx is returned as is.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := max(p.MaxAttempts, 1)
	var last error
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		last = fn(ctx)
		if last == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !Retryable(last) || i == attempts-1 {
			break
		}
		if p.OnRetry != nil {
			p.OnRetry(i+1, last)
		}
		if err := sleep(ctx, p.Delay(i)); err != nil {
			return err
		}
	}
	return fmt.Errorf("%w: %w", ErrUpstreamUnavailable, last)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
