package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/pokepack/internal/adapters/catalog"
	"github.com/okian/pokepack/internal/adapters/http/api"
	"github.com/okian/pokepack/internal/adapters/http/swagger"
	"github.com/okian/pokepack/internal/adapters/kv"
	"github.com/okian/pokepack/internal/adapters/pokeapi"
	"github.com/okian/pokepack/internal/adapters/repository"
	"github.com/okian/pokepack/internal/adapters/upstream"
	app "github.com/okian/pokepack/internal/app"
	"github.com/okian/pokepack/internal/config"
	"github.com/okian/pokepack/internal/domain/challenge"
	"github.com/okian/pokepack/internal/domain/rewards"
	"github.com/okian/pokepack/pkg/logger"
	"github.com/okian/pokepack/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTP server timeout constants.
const (
	readTimeout            = 10 * time.Second
	writeTimeout           = 60 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	shutdownTimeout        = 30 * time.Second
	systemMetricsInterval  = 10 * time.Second
	serviceMetricsInterval = 5 * time.Second
)

func main() {
	// Our registry carries its own system gauges.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	loggerInstance := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	svc, closers, err := buildService(ctx, cfg, loggerInstance)
	if err != nil {
		loggerInstance.Error(ctx, "failed to build service", logger.Error(err))
		os.Exit(1)
	}
	defer closeAll(ctx, loggerInstance, closers)

	if err := svc.Start(ctx); err != nil {
		loggerInstance.Error(ctx, "failed to start service", logger.Error(err))
		return
	}
	defer svc.Stop()

	go startSystemMetricsUpdater(ctx)
	go startServiceMetricsUpdater(ctx, svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           buildHandler(ctx, cfg, svc, loggerInstance),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		loggerInstance.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			loggerInstance.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	loggerInstance.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	loggerInstance.Info(ctx, "server stopped")
}

// buildService wires storage, upstream clients and the catalog into the
// service. The returned closers release external connections.
func buildService(ctx context.Context, cfg *config.Config, log logger.Logger) (*app.Service, []io.Closer, error) {
	var closers []io.Closer

	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	closers = append(closers, store)

	registry, rc, err := openRegistry(ctx, cfg)
	if err != nil {
		closeAll(ctx, log, closers)
		return nil, nil, err
	}
	if rc != nil {
		closers = append(closers, rc)
	}

	snapshots, err := openSnapshots(ctx, cfg)
	if err != nil {
		closeAll(ctx, log, closers)
		return nil, nil, err
	}

	tcgOpts := []upstream.Option{upstream.WithTimeout(cfg.UpstreamTimeout), upstream.WithLogger(log)}
	if cfg.TCGAPIKey != "" {
		tcgOpts = append(tcgOpts, upstream.WithHeader("X-Api-Key", cfg.TCGAPIKey))
	}
	tcg := catalog.NewTCG(cfg.TCGBaseURL, upstream.NewClient("tcg", tcgOpts...))
	subjects := pokeapi.New(cfg.PokeAPIBaseURL,
		upstream.NewClient("pokeapi", upstream.WithTimeout(cfg.UpstreamTimeout), upstream.WithLogger(log)),
		pokeapi.WithLogger(log),
	)

	provider, err := catalog.NewProvider(snapshots, tcg,
		catalog.WithPoolTTL(cfg.CardPoolTTL),
		catalog.WithPoolCacheSize(cfg.PoolCacheSize),
		catalog.WithProviderLogger(log),
	)
	if err != nil {
		closeAll(ctx, log, closers)
		return nil, nil, err
	}
	packs := catalog.NewPackList(tcg, snapshots,
		catalog.WithLocalFile(cfg.PacksLocalFile),
		catalog.WithPackCost(cfg.PackCost),
		catalog.WithPackLogger(log),
	)
	fetchAll := func(ctx context.Context) (catalog.CatalogSummary, error) {
		return catalog.FetchAll(ctx, tcg, snapshots, log)
	}

	svc := app.New(
		app.WithLogger(log),
		app.WithStore(store),
		app.WithChallengeRegistry(registry),
		app.WithPoolProvider(provider),
		app.WithPackCatalog(packs),
		app.WithSubjectSource(subjects),
		app.WithWarmer(catalog.NewWarmer(provider, cfg.WarmConcurrency, log)),
		app.WithCatalogFetcher(fetchAll),
		app.WithSampleSource(tcg),
		app.WithCardLookup(tcg),
		app.WithCalculator(rewards.NewCalculator(rewards.WithModes(memoryModes(cfg.MemoryModes)))),
		app.WithPackCost(cfg.PackCost),
		app.WithStartingCoins(cfg.StartingCoins),
		app.WithDefaultSetID(cfg.DefaultSetID),
		app.WithAdminToken(cfg.AdminToken),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.QueueSize),
		app.WithWarmOnStart(cfg.WarmOnStart),
	)
	return svc, closers, nil
}

// buildHandler registers the API and the docs on one mux behind the API
// middleware chain.
func buildHandler(ctx context.Context, cfg *config.Config, svc *app.Service, log logger.Logger) http.Handler {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)

	apiServer := api.NewServer(svc, svc, svc,
		api.WithCORSOrigin(cfg.CORSOrigin),
		api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
		api.WithLogger(log),
	)
	apiServer.Register(ctx, mux)
	return apiServer.Wrap(mux)
}

func openStore(ctx context.Context, cfg *config.Config, log logger.Logger) (repository.Store, error) {
	if cfg.DatabaseDSN == "" {
		log.Info(ctx, "using in-memory store")
		return repository.NewMemoryStore(), nil
	}
	store, err := repository.OpenPostgres(ctx, cfg.DatabaseDSN, repository.WithLogger(log))
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	log.Info(ctx, "using postgres store")
	return store, nil
}

func openRegistry(ctx context.Context, cfg *config.Config) (challenge.Registry, io.Closer, error) {
	if cfg.RedisAddr == "" {
		return challenge.NewMemoryRegistry(
			challenge.WithTTL(cfg.ChallengeTTL),
			challenge.WithMaxEntries(cfg.ChallengeMaxEntries),
		), nil, nil
	}
	client, err := kv.Dial(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	return kv.NewRedisRegistry(client, kv.WithTTL(cfg.ChallengeTTL)), client, nil
}

func openSnapshots(ctx context.Context, cfg *config.Config) (catalog.SnapshotStore, error) {
	if cfg.S3Bucket == "" {
		return catalog.NewDirStore(cfg.CacheDir), nil
	}
	store, err := catalog.NewS3Store(ctx, catalog.S3Config{
		Bucket:    cfg.S3Bucket,
		Prefix:    cfg.S3Prefix,
		Region:    cfg.S3Region,
		Endpoint:  cfg.S3Endpoint,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
	})
	if err != nil {
		return nil, fmt.Errorf("open s3 snapshots: %w", err)
	}
	return store, nil
}

func memoryModes(in map[string]config.MemoryMode) map[string]rewards.Mode {
	out := make(map[string]rewards.Mode, len(in))
	for name, m := range in {
		out[name] = rewards.Mode{
			Pairs:               m.Pairs,
			TotalTime:           m.TotalTime,
			BasePerPair:         m.BasePerPair,
			TimeBonusMultiplier: m.TimeBonusMultiplier,
			TimeRule:            rewards.TimeRule(m.TimeRule),
			PerfectBonus:        m.PerfectBonus,
			ComboStep:           m.ComboStep,
			ComboCap:            m.ComboCap,
		}
	}
	return out
}

func closeAll(ctx context.Context, log logger.Logger, closers []io.Closer) {
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil {
			log.Warn(ctx, "close failed", logger.Error(err))
		}
	}
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater starts a background goroutine that updates service metrics.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
}

// updateServiceMetrics copies service gauges into the registry.
func updateServiceMetrics(svc *app.Service) {
	stats := svc.Stats()

	if queued, ok := stats["queued_jobs"].(int); ok {
		metrics.UpdateQueueDepth(queued)
	}
	if pending, ok := stats["challenges"].(int64); ok {
		metrics.UpdatePendingChallenges(int(pending))
	}
}
