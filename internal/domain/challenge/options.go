package challenge

import (
	"time"
)

// Option applies a configuration option to the MemoryRegistry.
type Option func(*MemoryRegistry)

// WithTTL sets the challenge lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(r *MemoryRegistry) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// WithMaxEntries bounds the registry; the oldest challenge is evicted first.
// Zero or negative means unbounded.
func WithMaxEntries(n int) Option {
	return func(r *MemoryRegistry) {
		r.maxEntries = n
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *MemoryRegistry) {
		if now != nil {
			r.now = now
		}
	}
}

// WithTokenFunc replaces the token generator.
func WithTokenFunc(fn func() string) Option {
	return func(r *MemoryRegistry) {
		if fn != nil {
			r.newToken = fn
		}
	}
}
