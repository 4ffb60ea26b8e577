package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/okian/pokepack/internal/adapters/upstream"
	"github.com/okian/pokepack/internal/domain/ledger"
	"github.com/okian/pokepack/internal/domain/types"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest      = errors.New("bad request")
	ErrPayloadTooLarge = errors.New("request body too large")
	ErrRateLimited     = errors.New("too many requests")
	ErrInternal        = errors.New("server error")
)

// KindError tags a cause with the operation that failed and a sentinel kind.
type KindError struct {
	Op   string
	Kind error
	Err  error
}

func (e *KindError) Error() string {
	if e.Err == nil {
		return e.Kind.Error()
	}
	return e.Err.Error()
}

// Unwrap exposes both the kind and the cause to errors.Is.
func (e *KindError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// WrapKind wraps err with op and kind.
func WrapKind(op string, kind, err error) error {
	return &KindError{Op: op, Kind: kind, Err: err}
}

// NewKind returns a bare kind error for op.
func NewKind(op string, kind error) error {
	return &KindError{Op: op, Kind: kind}
}

// Kind returns the sentinel kind of err, or nil when it has none.
func Kind(err error) error {
	var ke *KindError
	if errors.As(err, &ke) {
		return ke.Kind
	}
	return nil
}

// Op returns the failing operation recorded in err.
func Op(err error) string {
	var ke *KindError
	if errors.As(err, &ke) {
		return ke.Op
	}
	return ""
}

type errorMapping struct {
	kind   error
	status int
	code   string
}

// errorTable is checked in order; the first kind err wraps wins.
var errorTable = []errorMapping{ //nolint:gochecknoglobals // static lookup table
	{ErrBadRequest, http.StatusBadRequest, "bad_request"},
	{types.ErrValidation, http.StatusBadRequest, "bad_request"},
	{ledger.ErrInsufficientFunds, http.StatusBadRequest, "insufficient_funds"},
	{ledger.ErrInvalidAmount, http.StatusBadRequest, "invalid_amount"},
	{ledger.ErrBalanceOverflow, http.StatusBadRequest, "balance_overflow"},
	{types.ErrInvalidChallenge, http.StatusBadRequest, "invalid_challenge"},
	{ErrPayloadTooLarge, http.StatusRequestEntityTooLarge, "payload_too_large"},
	{types.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
	{types.ErrNotFound, http.StatusNotFound, "not_found"},
	{ErrRateLimited, http.StatusTooManyRequests, "rate_limited"},
	{types.ErrQueueFull, http.StatusTooManyRequests, "backpressure"},
	{types.ErrAdminNotConfigured, http.StatusInternalServerError, "admin_not_configured"},
	{types.ErrSubjectUnavailable, http.StatusServiceUnavailable, "source_unavailable"},
	{types.ErrNotStarted, http.StatusServiceUnavailable, "unavailable"},
	{types.ErrCatalogUnavailable, http.StatusBadGateway, "upstream_unavailable"},
	{upstream.ErrUpstreamUnavailable, http.StatusBadGateway, "upstream_unavailable"},
}

// classify maps err to a status and a stable error code.
func classify(err error) (int, string) {
	for _, m := range errorTable {
		if errors.Is(err, m.kind) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, "internal"
}

// respondError writes the mapped error. Server errors hide their cause.
func respondError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	if status == http.StatusInternalServerError && code == "internal" {
		writeError(w, status, code, ErrInternal)
		return
	}
	writeError(w, status, code, err)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, types.ErrorResponse{Code: code, Message: msg})
}

func badRequest(op string, format string, args ...any) error {
	return WrapKind(op, ErrBadRequest, fmt.Errorf(format, args...))
}
