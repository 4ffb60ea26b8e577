package repository

import (
	"errors"

	"github.com/okian/pokepack/internal/domain/types"
)

// Sentinel kinds for store errors.
var (
	ErrNotFound      = types.ErrNotFound
	ErrEmptyUsername = errors.New("username must not be empty")
)
