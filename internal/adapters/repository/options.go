package repository

import (
	"database/sql"

	"github.com/okian/pokepack/pkg/logger"
)

// Option applies a configuration option to a BunStore.
type Option func(*BunStore)

// WithLogger sets the store logger.
func WithLogger(l logger.Logger) Option {
	return func(s *BunStore) {
		if l != nil {
			s.log = l
		}
	}
}

// WithIsolation sets the isolation level of InTx. Read committed by default.
func WithIsolation(level sql.IsolationLevel) Option {
	return func(s *BunStore) {
		s.isolation = level
	}
}

// WithMaxOpenConns caps the connection pool.
func WithMaxOpenConns(n int) Option {
	return func(s *BunStore) {
		if n > 0 {
			s.maxOpenConns = n
		}
	}
}
