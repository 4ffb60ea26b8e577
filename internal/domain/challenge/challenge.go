// Package challenge keeps short-lived, single-use silhouette challenges.
package challenge

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// DefaultTTL is how long a challenge can be answered.
const DefaultTTL = 10 * time.Minute

// ErrNotFound is returned for unknown, expired or already consumed tokens.
var ErrNotFound = errors.New("challenge not found or expired")

// Challenge is the hidden answer behind a token.
type Challenge struct {
	Answer    string    `json:"answer"`
	ImageURL  string    `json:"image_url"`
	CreatedAt time.Time `json:"created_at"`
}

// Registry stores challenges by opaque token.
type Registry interface {
	// Create stores c and returns a fresh unguessable token.
	Create(ctx context.Context, c Challenge) (string, error)

	// Resolve returns the challenge without consuming it.
	Resolve(ctx context.Context, token string) (Challenge, error)

	// Consume returns the challenge and removes it in one step. Of any number
	// of concurrent calls for the same token, at most one succeeds.
	Consume(ctx context.Context, token string) (Challenge, error)

	// Invalidate removes the token. Unknown tokens are not an error.
	Invalidate(ctx context.Context, token string) error

	// Size is the number of stored challenges, expired ones included until swept.
	Size(ctx context.Context) int64
}

// NewToken returns a random version 4 UUID string.
func NewToken() string {
	return uuid.NewString()
}
