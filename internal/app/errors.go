package service

import (
	"errors"

	"github.com/okian/pokepack/internal/domain/ledger"
	"github.com/okian/pokepack/internal/domain/types"
)

// Sentinel kinds returned by Service operations.
var (
	ErrValidation         = types.ErrValidation
	ErrNotFound           = types.ErrNotFound
	ErrInvalidChallenge   = types.ErrInvalidChallenge
	ErrUnauthorized       = types.ErrUnauthorized
	ErrAdminNotConfigured = types.ErrAdminNotConfigured
	ErrCatalogUnavailable = types.ErrCatalogUnavailable
	ErrSubjectUnavailable = types.ErrSubjectUnavailable
	ErrQueueFull          = types.ErrQueueFull
	ErrNotStarted         = types.ErrNotStarted
	ErrInsufficientFunds  = ledger.ErrInsufficientFunds
	ErrInvalidAmount      = ledger.ErrInvalidAmount
	ErrBalanceOverflow    = ledger.ErrBalanceOverflow

	errNoWarmer = errors.New("no pool warmer configured")
)
