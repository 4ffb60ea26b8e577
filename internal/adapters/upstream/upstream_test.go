package upstream_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/pokepack/internal/adapters/upstream"
)

func noWait() upstream.RetryPolicy {
	return upstream.RetryPolicy{MaxAttempts: 4}
}

func TestRetryable(t *testing.T) {
	Convey("Retryable classifies failures", t, func() {
		for _, code := range []int{429, 502, 503, 504} {
			So(upstream.Retryable(&upstream.StatusError{StatusCode: code}), ShouldBeTrue)
		}
		for _, code := range []int{400, 401, 404, 500} {
			So(upstream.Retryable(&upstream.StatusError{StatusCode: code}), ShouldBeFalse)
		}
		So(upstream.Retryable(&url.Error{Op: "Get", URL: "http://x", Err: errors.New("connection refused")}), ShouldBeTrue)
		So(upstream.Retryable(context.DeadlineExceeded), ShouldBeTrue)
		So(upstream.Retryable(context.Canceled), ShouldBeFalse)
		So(upstream.Retryable(errors.New("decode failed")), ShouldBeFalse)
		So(upstream.Retryable(nil), ShouldBeFalse)
	})
}

func TestRetryPolicy(t *testing.T) {
	Convey("Given the default policy", t, func() {
		p := upstream.DefaultPolicy()

		Convey("Delays follow the backoff table and repeat the last value", func() {
			So(p.MaxAttempts, ShouldEqual, 4)
			So(p.Delay(0), ShouldEqual, 300*time.Millisecond)
			So(p.Delay(1), ShouldEqual, 700*time.Millisecond)
			So(p.Delay(2), ShouldEqual, 1200*time.Millisecond)
			So(p.Delay(3), ShouldEqual, 2000*time.Millisecond)
			So(p.Delay(9), ShouldEqual, 2000*time.Millisecond)
		})
	})

	Convey("Given a policy without waits", t, func() {
		ctx := context.Background()
		p := noWait()
		retries := 0
		p.OnRetry = func(int, error) { retries++ }

		Convey("A retryable failure is attempted four times then wrapped", func() {
			calls := 0
			err := p.Do(ctx, func(context.Context) error {
				calls++
				return &upstream.StatusError{StatusCode: 503}
			})
			So(calls, ShouldEqual, 4)
			So(retries, ShouldEqual, 3)
			So(errors.Is(err, upstream.ErrUpstreamUnavailable), ShouldBeTrue)
			var se *upstream.StatusError
			So(errors.As(err, &se), ShouldBeTrue)
			So(se.StatusCode, ShouldEqual, 503)
		})

		Convey("A non-retryable failure returns after one attempt", func() {
			calls := 0
			err := p.Do(ctx, func(context.Context) error {
				calls++
				return &upstream.StatusError{StatusCode: 404}
			})
			So(calls, ShouldEqual, 1)
			So(errors.Is(err, upstream.ErrUpstreamUnavailable), ShouldBeTrue)
		})

		Convey("Success after a transient failure is returned as success", func() {
			calls := 0
			err := p.Do(ctx, func(context.Context) error {
				calls++
				if calls < 3 {
					return &upstream.StatusError{StatusCode: 429}
				}
				return nil
			})
			So(err, ShouldBeNil)
			So(calls, ShouldEqual, 3)
		})

		Convey("A cancelled context stops the loop", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			err := p.Do(cctx, func(context.Context) error { return nil })
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		})
	})

	Convey("Cancellation during a wait returns the context error", t, func() {
		p := upstream.RetryPolicy{MaxAttempts: 4, Delays: []time.Duration{time.Hour}}
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		err := p.Do(ctx, func(context.Context) error {
			return &upstream.StatusError{StatusCode: 502}
		})
		So(errors.Is(err, context.DeadlineExceeded), ShouldBeTrue)
	})
}

func TestClientGetJSON(t *testing.T) {
	Convey("Given a flaky JSON server", t, func() {
		var hits atomic.Int32
		var gotKey, gotQuery string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotKey = r.Header.Get("X-Api-Key")
			gotQuery = r.URL.Query().Get("q")
			if hits.Add(1) == 1 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"name":"pikachu"}`))
		}))
		defer srv.Close()

		c := upstream.NewClient("test",
			upstream.WithPolicy(noWait()),
			upstream.WithHeader("X-Api-Key", "secret"),
			upstream.WithHeader("X-Empty", ""),
			upstream.WithTimeout(time.Second))

		Convey("GetJSON retries and decodes", func() {
			var out struct {
				Name string `json:"name"`
			}
			err := c.GetJSON(context.Background(), srv.URL+"/pokemon", url.Values{"q": {"set.id:sv1"}}, &out)
			So(err, ShouldBeNil)
			So(out.Name, ShouldEqual, "pikachu")
			So(hits.Load(), ShouldEqual, 2)
			So(gotKey, ShouldEqual, "secret")
			So(gotQuery, ShouldEqual, "set.id:sv1")
		})
	})

	Convey("Given a server that answers 404", t, func() {
		srv := httptest.NewServer(http.NotFoundHandler())
		defer srv.Close()
		c := upstream.NewClient("test", upstream.WithPolicy(noWait()))

		Convey("GetJSON fails with a status error", func() {
			err := c.GetJSON(context.Background(), srv.URL, nil, &struct{}{})
			var se *upstream.StatusError
			So(errors.As(err, &se), ShouldBeTrue)
			So(se.StatusCode, ShouldEqual, http.StatusNotFound)
			So(errors.Is(err, upstream.ErrUpstreamUnavailable), ShouldBeTrue)
		})
	})

	Convey("Given a server that returns malformed JSON", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{`))
		}))
		defer srv.Close()
		c := upstream.NewClient("test", upstream.WithPolicy(noWait()))

		Convey("GetJSON fails without retrying", func() {
			err := c.GetJSON(context.Background(), srv.URL, nil, &struct{}{})
			So(err, ShouldNotBeNil)
			So(errors.Is(err, upstream.ErrUpstreamUnavailable), ShouldBeTrue)
		})
	})
}
