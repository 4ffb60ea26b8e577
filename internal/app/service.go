// Package service implements the card-pack economy behind the HTTP API:
// registration, paid pack openings, mini-game rewards and the admin surface.
package service

import (
	"context"
	"sync"
	"sync/atomic"

	poolsource "github.com/okian/pokepack/internal/adapters/catalog"
	jobqueue "github.com/okian/pokepack/internal/adapters/mq/queue"
	workerpool "github.com/okian/pokepack/internal/adapters/mq/worker"
	"github.com/okian/pokepack/internal/adapters/pokeapi"
	"github.com/okian/pokepack/internal/adapters/repository"
	"github.com/okian/pokepack/internal/domain/catalog"
	"github.com/okian/pokepack/internal/domain/challenge"
	"github.com/okian/pokepack/internal/domain/draw"
	"github.com/okian/pokepack/internal/domain/model"
	"github.com/okian/pokepack/internal/domain/rewards"
	"github.com/okian/pokepack/pkg/logger"
)

// Defaults applied by New.
const (
	DefaultPackCost      int64 = 100
	DefaultStartingCoins int64 = 1000
	DefaultSetID               = "swsh1"
	DefaultWorkerCount         = 2
	DefaultQueueSize           = 64
)

// PoolProvider resolves the rarity pools of a set. It never fails; the
// source tells how the pools were obtained.
type PoolProvider interface {
	Pools(ctx context.Context, setID string) (catalog.Pools, poolsource.Source)
}

// PackCatalog is the openable pack list.
type PackCatalog interface {
	Preload(ctx context.Context) poolsource.PackOrigin
	Ready() bool
	Search(q string) []model.PackSet
	IDs() []string
	RandomSetID(src draw.RandomSource) string
}

// SubjectSource picks silhouette subjects.
type SubjectSource interface {
	RandomSubject(ctx context.Context) (pokeapi.Subject, error)
}

// Warmer resolves and caches the pools of many sets.
type Warmer interface {
	Warm(ctx context.Context, setIDs []string, force bool) []poolsource.WarmResult
}

// CatalogFetcher downloads the whole card catalog into the aggregate snapshot.
type CatalogFetcher func(ctx context.Context) (poolsource.CatalogSummary, error)

// SampleSource fetches one card of a set, used to probe pack availability.
type SampleSource interface {
	SampleCard(ctx context.Context, setID string) (model.Card, bool, error)
}

// CardLookup fetches a single catalog card by id.
type CardLookup interface {
	Card(ctx context.Context, id string) (model.Card, error)
}

// Service implements the API dependencies of pokepack.
type Service struct {
	mu sync.Mutex

	// Core components
	store    repository.Store
	pools    PoolProvider
	packs    PackCatalog
	subjects SubjectSource
	registry challenge.Registry
	calc     *rewards.Calculator
	rnd      draw.RandomSource

	// Background catalog work
	warmer   Warmer
	fetchAll CatalogFetcher
	samples  SampleSource
	cards    CardLookup
	queue    jobqueue.Queue
	pool     *workerpool.Pool

	// Configuration
	packCost      int64
	startingCoins int64
	defaultSetID  string
	adminToken    string
	workerCount   int
	queueSize     int
	warmOnStart   bool

	// State
	started bool

	// Counters
	packsOpened  atomic.Int64
	coinsGranted atomic.Int64
	gamesPlayed  atomic.Int64

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the user and collection store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithPoolProvider sets the card pool source.
func WithPoolProvider(p PoolProvider) Option {
	return func(s *Service) {
		s.pools = p
	}
}

// WithPackCatalog sets the pack list.
func WithPackCatalog(p PackCatalog) Option {
	return func(s *Service) {
		s.packs = p
	}
}

// WithSubjectSource sets the silhouette subject source.
func WithSubjectSource(src SubjectSource) Option {
	return func(s *Service) {
		s.subjects = src
	}
}

// WithChallengeRegistry sets where silhouette challenges live.
func WithChallengeRegistry(r challenge.Registry) Option {
	return func(s *Service) {
		if r != nil {
			s.registry = r
		}
	}
}

// WithCalculator sets the memory-match difficulty table.
func WithCalculator(c *rewards.Calculator) Option {
	return func(s *Service) {
		if c != nil {
			s.calc = c
		}
	}
}

// WithRandomSource sets the randomness behind draws and spins.
func WithRandomSource(src draw.RandomSource) Option {
	return func(s *Service) {
		if src != nil {
			s.rnd = src
		}
	}
}

// WithWarmer sets the pool warmer used by the admin warm-up and background jobs.
func WithWarmer(w Warmer) Option {
	return func(s *Service) {
		s.warmer = w
	}
}

// WithCatalogFetcher sets the full-catalog download run by background jobs.
func WithCatalogFetcher(fn CatalogFetcher) Option {
	return func(s *Service) {
		s.fetchAll = fn
	}
}

// WithSampleSource sets the probe used by TestPacks.
func WithSampleSource(src SampleSource) Option {
	return func(s *Service) {
		s.samples = src
	}
}

// WithCardLookup sets the catalog lookup used when a card id does not map
// onto the image CDN.
func WithCardLookup(c CardLookup) Option {
	return func(s *Service) {
		s.cards = c
	}
}

// WithPackCost sets the coin price of one pack.
func WithPackCost(cost int64) Option {
	return func(s *Service) {
		if cost > 0 {
			s.packCost = cost
		}
	}
}

// WithStartingCoins sets the balance of new users.
func WithStartingCoins(coins int64) Option {
	return func(s *Service) {
		if coins >= 0 {
			s.startingCoins = coins
		}
	}
}

// WithDefaultSetID sets the set opened when a request names none.
func WithDefaultSetID(id string) Option {
	return func(s *Service) {
		if id != "" {
			s.defaultSetID = id
		}
	}
}

// WithAdminToken sets the shared admin secret. Empty disables the admin routes.
func WithAdminToken(token string) Option {
	return func(s *Service) {
		s.adminToken = token
	}
}

// WithWorkerCount sets the number of background job workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the background job queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithWarmOnStart queues a warm-up of every listed set once Start has loaded
// the pack list.
func WithWarmOnStart(enabled bool) Option {
	return func(s *Service) {
		s.warmOnStart = enabled
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service. Without a store it keeps users in memory, and
// without a pool provider every set resolves to the synthetic fallback.
func New(opts ...Option) *Service {
	s := &Service{
		calc:          rewards.NewCalculator(),
		rnd:           draw.NewCryptoSource(),
		packCost:      DefaultPackCost,
		startingCoins: DefaultStartingCoins,
		defaultSetID:  DefaultSetID,
		workerCount:   DefaultWorkerCount,
		queueSize:     DefaultQueueSize,
		logger:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
	}
	if s.registry == nil {
		s.registry = challenge.NewMemoryRegistry()
	}
	if s.pools == nil {
		s.pools = fallbackPools{}
	}
	return s
}

// fallbackPools serves synthetic pools for every set.
type fallbackPools struct{}

func (fallbackPools) Pools(_ context.Context, setID string) (catalog.Pools, poolsource.Source) {
	return catalog.Fallback(setID), poolsource.SourceFallback
}

// Start loads the pack list and starts the background job workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.packs != nil {
		origin := s.packs.Preload(ctx)
		s.logger.Info(ctx, "pack list ready", logger.String("origin", string(origin)))
	}

	s.queue = jobqueue.NewInMemoryQueue(jobqueue.WithCapacity(s.queueSize))
	s.pool = workerpool.NewPool(s.workerCount, s.queue, s, workerpool.WithLogger(s.logger))
	s.pool.Start(ctx)
	s.started = true

	s.logger.Info(ctx, "service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queue_size", s.queueSize),
	)

	if s.warmOnStart && s.warmer != nil && s.packs != nil {
		if ids := s.packs.IDs(); len(ids) > 0 {
			job := jobqueue.NewJob(jobqueue.KindWarmSets, ids, false)
			if !s.queue.Enqueue(ctx, job) {
				s.logger.Warn(ctx, "background warm-up not queued")
			}
		}
	}
	return nil
}

// Stop drains the job queue and waits for the workers.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	if err := s.pool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool shutdown", logger.Error(err))
	}
	s.started = false
	s.logger.Info(ctx, "service stopped")
}

// Close stops the service and releases the store.
func (s *Service) Close() error {
	s.Stop()
	return s.store.Close()
}

// Stats reports service state and counters.
func (s *Service) Stats() map[string]interface{} {
	s.mu.Lock()
	started := s.started
	queued := 0
	if s.queue != nil {
		queued = s.queue.Len(context.Background())
	}
	s.mu.Unlock()

	return map[string]interface{}{
		"started":       started,
		"packs_opened":  s.packsOpened.Load(),
		"coins_granted": s.coinsGranted.Load(),
		"games_played":  s.gamesPlayed.Load(),
		"queued_jobs":   queued,
		"challenges":    s.registry.Size(context.Background()),
	}
}

// enqueue hands a job to the workers.
func (s *Service) enqueue(ctx context.Context, job jobqueue.Job) error {
	s.mu.Lock()
	q := s.queue
	s.mu.Unlock()

	if q == nil {
		return ErrNotStarted
	}
	if !q.Enqueue(ctx, job) {
		if q.IsClosed() {
			return ErrNotStarted
		}
		return ErrQueueFull
	}
	return nil
}
