// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/okian/pokepack/internal/domain/model"
	"github.com/okian/pokepack/internal/domain/types"
	"github.com/okian/pokepack/pkg/logger"
)

// Dependencies are the player-facing operations behind the handlers. Using
// an interface bundle keeps the handler layer loosely coupled to the service.
type Dependencies interface {
	Register(ctx context.Context, username string) (model.User, error)
	User(ctx context.Context, username string) (model.User, error)
	Collection(ctx context.Context, username string) ([]model.CollectionEntry, error)
	Packs(ctx context.Context, query string) []model.PackSet
	OpenPack(ctx context.Context, username, setID string) (types.OpenPackResponse, error)
	FinishMemory(ctx context.Context, req types.MemoryFinishRequest) (types.MemoryFinishResponse, error)
	Spin(ctx context.Context, username string) (types.SpinResponse, error)
	StartSilhouette(ctx context.Context) (types.SilhouetteStartResponse, error)
	GuessSilhouette(ctx context.Context, req types.SilhouetteGuessRequest) (types.SilhouetteGuessResponse, error)
	FinishTyping(ctx context.Context, req types.TypingFinishRequest) (types.TypingFinishResponse, error)
}

// AdminDependencies are the operations guarded by the admin token.
type AdminDependencies interface {
	CheckAdmin(token string) error
	SetCoins(ctx context.Context, username string, amount float64) (model.User, error)
	WarmSetCache(ctx context.Context, req types.WarmRequest) (types.WarmResponse, error)
	FetchAllCards(ctx context.Context) (string, error)
	TestPacks(ctx context.Context) ([]types.PackProbe, error)
	RehydrateImages(ctx context.Context, username string) (types.RehydrateResponse, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	usersHandler  *UsersHandler
	packsHandler  *PacksHandler
	gamesHandler  *GamesHandler
	adminHandler  *AdminHandler

	corsOrigin   string
	rateRPS      float64
	rateBurst    int
	maxBodyBytes int64
	logger       logger.Logger
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, admin AdminDependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		healthHandler: NewHealthHandler(),
		statsHandler:  NewStatsHandler(statsProvider),
		usersHandler:  NewUsersHandler(deps),
		packsHandler:  NewPacksHandler(deps),
		gamesHandler:  NewGamesHandler(deps),
		adminHandler:  NewAdminHandler(admin),
		corsOrigin:    DefaultCORSOrigin,
		rateRPS:       DefaultRateLimitRPS,
		rateBurst:     DefaultRateLimitBurst,
		maxBodyBytes:  DefaultMaxBodyBytes,
		logger:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.Handle("GET /metrics", s.healthHandler.MetricsHandler())
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("POST /api/users/register", MetricsMiddleware(s.usersHandler.HandleRegister, "users_register"))
	mux.HandleFunc("GET /api/users/{username}", MetricsMiddleware(s.usersHandler.HandleGetUser, "users_get"))
	mux.HandleFunc("GET /api/collections/{username}", MetricsMiddleware(s.usersHandler.HandleGetCollection, "collections_get"))

	mux.HandleFunc("GET /api/packs", MetricsMiddleware(s.packsHandler.HandleList, "packs_list"))
	mux.HandleFunc("POST /api/packs/open", MetricsMiddleware(s.packsHandler.HandleOpen, "packs_open"))

	mux.HandleFunc("POST /api/games/memory/finish", MetricsMiddleware(s.gamesHandler.HandleMemoryFinish, "games_memory_finish"))
	mux.HandleFunc("POST /api/games/spin", MetricsMiddleware(s.gamesHandler.HandleSpin, "games_spin"))
	mux.HandleFunc("POST /api/games/silhouette/start", MetricsMiddleware(s.gamesHandler.HandleSilhouetteStart, "games_silhouette_start"))
	mux.HandleFunc("POST /api/games/silhouette/guess", MetricsMiddleware(s.gamesHandler.HandleSilhouetteGuess, "games_silhouette_guess"))
	mux.HandleFunc("POST /api/games/typing/finish", MetricsMiddleware(s.gamesHandler.HandleTypingFinish, "games_typing_finish"))

	mux.HandleFunc("POST /api/admin/set-coins", MetricsMiddleware(s.adminHandler.HandleSetCoins, "admin_set_coins"))
	mux.HandleFunc("POST /api/admin/warm-set-cache", MetricsMiddleware(s.adminHandler.HandleWarmSetCache, "admin_warm_set_cache"))
	mux.HandleFunc("POST /api/admin/fetch-all-cards", MetricsMiddleware(s.adminHandler.HandleFetchAllCards, "admin_fetch_all_cards"))
	mux.HandleFunc("GET /api/admin/test-packs", MetricsMiddleware(s.adminHandler.HandleTestPacks, "admin_test_packs"))
	mux.HandleFunc("POST /api/admin/rehydrate-images", MetricsMiddleware(s.adminHandler.HandleRehydrateImages, "admin_rehydrate_images"))
}

// Wrap applies the server-wide middleware to h: panic recovery, CORS,
// per-client rate limiting on /api/ and the request body limit.
func (s *Server) Wrap(h http.Handler) http.Handler {
	limiter := newClientLimiter(s.rateRPS, s.rateBurst)
	h = BodyLimitMiddleware(h, s.maxBodyBytes)
	h = rateLimitMiddleware(h, limiter, "/api/")
	h = CORSMiddleware(h, s.corsOrigin)
	return RecoverMiddleware(h, s.logger)
}

// Handler registers every route on a fresh mux and wraps it.
func (s *Server) Handler(ctx context.Context) http.Handler {
	mux := http.NewServeMux()
	s.Register(ctx, mux)
	return s.Wrap(mux)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON reads one JSON value from the body into v. An empty body
// leaves v untouched.
func decodeJSON(op string, r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return WrapKind(op, ErrPayloadTooLarge, err)
	}
	return WrapKind(op, ErrBadRequest, err)
}

// adminToken prefers the X-Admin-Token header over a token in the body.
func adminToken(r *http.Request, bodyToken string) string {
	if t := r.Header.Get(AdminTokenHeader); t != "" {
		return t
	}
	return bodyToken
}
