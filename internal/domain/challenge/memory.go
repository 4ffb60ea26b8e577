package challenge

import (
	"container/list"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

type entry struct {
	token     string
	challenge Challenge
	expiresAt time.Time
}

// MemoryRegistry is a process-local Registry. Expiry is checked lazily on
// lookup; expired entries at the old end of the list are swept on Create.
type MemoryRegistry struct {
	mu         sync.Mutex
	items      map[string]*list.Element
	order      *list.List // front = oldest
	size       atomic.Int64
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
	newToken   func() string
}

var _ Registry = (*MemoryRegistry)(nil)

// NewMemoryRegistry creates an in-memory registry.
func NewMemoryRegistry(opts ...Option) *MemoryRegistry {
	r := &MemoryRegistry{
		items:      make(map[string]*list.Element),
		order:      list.New(),
		ttl:        DefaultTTL,
		maxEntries: 10_000,
		now:        time.Now,
		newToken:   NewToken,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create stores c under a new token.
func (r *MemoryRegistry) Create(ctx context.Context, c Challenge) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	now := r.now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.sweepLocked(now)
	if r.maxEntries > 0 {
		for len(r.items) >= r.maxEntries {
			r.removeLocked(r.order.Front())
		}
	}

	token := r.newToken()
	if _, exists := r.items[token]; exists {
		return "", errors.New("challenge: token collision")
	}
	r.items[token] = r.order.PushBack(&entry{token: token, challenge: c, expiresAt: now.Add(r.ttl)})
	r.size.Add(1)
	return token, nil
}

// Resolve returns a live challenge.
func (r *MemoryRegistry) Resolve(_ context.Context, token string) (Challenge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.liveLocked(token)
	if !ok {
		return Challenge{}, ErrNotFound
	}
	return e.challenge, nil
}

// Consume returns a live challenge and deletes it under the same lock.
func (r *MemoryRegistry) Consume(_ context.Context, token string) (Challenge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.liveLocked(token)
	if !ok {
		return Challenge{}, ErrNotFound
	}
	r.removeLocked(r.items[token])
	return e.challenge, nil
}

// Invalidate drops token if present.
func (r *MemoryRegistry) Invalidate(_ context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if el, ok := r.items[token]; ok {
		r.removeLocked(el)
	}
	return nil
}

// Size returns the number of stored entries.
func (r *MemoryRegistry) Size(_ context.Context) int64 {
	return r.size.Load()
}

// liveLocked finds token and drops it when expired.
func (r *MemoryRegistry) liveLocked(token string) (*entry, bool) {
	el, ok := r.items[token]
	if !ok {
		return nil, false
	}
	e := el.Value.(*entry)
	if !r.now().Before(e.expiresAt) {
		r.removeLocked(el)
		return nil, false
	}
	return e, true
}

// sweepLocked removes expired entries from the old end. Entries share one
// TTL, so the list is ordered by expiry.
func (r *MemoryRegistry) sweepLocked(now time.Time) {
	for el := r.order.Front(); el != nil; el = r.order.Front() {
		if now.Before(el.Value.(*entry).expiresAt) {
			return
		}
		r.removeLocked(el)
	}
}

func (r *MemoryRegistry) removeLocked(el *list.Element) {
	if el == nil {
		return
	}
	e := r.order.Remove(el).(*entry)
	delete(r.items, e.token)
	r.size.Add(-1)
}
