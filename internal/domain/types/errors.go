package types

import "errors"

// Error kinds shared by the service and the HTTP layer.
var (
	ErrValidation         = errors.New("invalid request")
	ErrNotFound           = errors.New("user not found")
	ErrInvalidChallenge   = errors.New("invalid or expired challenge")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrAdminNotConfigured = errors.New("admin token not configured on server")
	ErrCatalogUnavailable = errors.New("card catalog unavailable")
	ErrSubjectUnavailable = errors.New("silhouette source unavailable")
	ErrQueueFull          = errors.New("job queue full")
	ErrNotStarted         = errors.New("service not started")
)
