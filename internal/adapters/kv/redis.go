// Package kv keeps silhouette challenges in Redis so every instance behind a
// load balancer sees the same tokens.
package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/pokepack/internal/domain/challenge"
)

// DefaultKeyPrefix namespaces challenge keys.
const DefaultKeyPrefix = "pokepack:challenge:"

// RedisRegistry is a challenge.Registry over Redis. Expiry is delegated to
// key TTLs and Consume uses GETDEL, so a token is consumed at most once
// across instances.
type RedisRegistry struct {
	client   redis.UniversalClient
	prefix   string
	ttl      time.Duration
	now      func() time.Time
	newToken func() string
}

var _ challenge.Registry = (*RedisRegistry)(nil)

// Option configures a RedisRegistry.
type Option func(*RedisRegistry)

// WithTTL sets the challenge lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(r *RedisRegistry) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// WithKeyPrefix replaces DefaultKeyPrefix.
func WithKeyPrefix(prefix string) Option {
	return func(r *RedisRegistry) {
		if prefix != "" {
			r.prefix = prefix
		}
	}
}

// WithTokenFunc replaces the token generator.
func WithTokenFunc(fn func() string) Option {
	return func(r *RedisRegistry) {
		if fn != nil {
			r.newToken = fn
		}
	}
}

// NewRedisRegistry wraps client.
func NewRedisRegistry(client redis.UniversalClient, opts ...Option) *RedisRegistry {
	r := &RedisRegistry{
		client:   client,
		prefix:   DefaultKeyPrefix,
		ttl:      challenge.DefaultTTL,
		now:      time.Now,
		newToken: challenge.NewToken,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Dial connects to addr and pings it.
func Dial(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return client, nil
}

func (r *RedisRegistry) key(token string) string { return r.prefix + token }

// Create stores c under a new token with the registry TTL.
func (r *RedisRegistry) Create(ctx context.Context, c challenge.Challenge) (string, error) {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = r.now()
	}
	data, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encode challenge: %w", err)
	}
	token := r.newToken()
	ok, err := r.client.SetNX(ctx, r.key(token), data, r.ttl).Result()
	if err != nil {
		return "", fmt.Errorf("store challenge: %w", err)
	}
	if !ok {
		return "", errors.New("challenge: token collision")
	}
	return token, nil
}

// Resolve reads a challenge without consuming it.
func (r *RedisRegistry) Resolve(ctx context.Context, token string) (challenge.Challenge, error) {
	return r.decode(r.client.Get(ctx, r.key(token)).Bytes())
}

// Consume reads and deletes a challenge atomically.
func (r *RedisRegistry) Consume(ctx context.Context, token string) (challenge.Challenge, error) {
	return r.decode(r.client.GetDel(ctx, r.key(token)).Bytes())
}

// Invalidate deletes a challenge.
func (r *RedisRegistry) Invalidate(ctx context.Context, token string) error {
	if err := r.client.Del(ctx, r.key(token)).Err(); err != nil {
		return fmt.Errorf("delete challenge: %w", err)
	}
	return nil
}

// Size counts live challenge keys with SCAN. Errors count as zero.
func (r *RedisRegistry) Size(ctx context.Context) int64 {
	var n int64
	iter := r.client.Scan(ctx, 0, r.prefix+"*", 500).Iterator()
	for iter.Next(ctx) {
		n++
	}
	if iter.Err() != nil {
		return 0
	}
	return n
}

func (r *RedisRegistry) decode(data []byte, err error) (challenge.Challenge, error) {
	if errors.Is(err, redis.Nil) {
		return challenge.Challenge{}, challenge.ErrNotFound
	}
	if err != nil {
		return challenge.Challenge{}, fmt.Errorf("read challenge: %w", err)
	}
	var c challenge.Challenge
	if err := json.Unmarshal(data, &c); err != nil {
		return challenge.Challenge{}, fmt.Errorf("decode challenge: %w", err)
	}
	return c, nil
}
