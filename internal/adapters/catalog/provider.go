package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/sync/singleflight"

	domain "github.com/okian/pokepack/internal/domain/catalog"
	"github.com/okian/pokepack/internal/domain/model"
	"github.com/okian/pokepack/pkg/logger"
	"github.com/okian/pokepack/pkg/metrics"
)

// Defaults for the pool cache.
const (
	DefaultPoolTTL       = 12 * time.Hour
	DefaultPoolCacheSize = 256
)

// Source tells where a Pools value came from.
type Source string

const (
	SourceMemory    Source = "memory"
	SourceSnapshot  Source = "snapshot"
	SourceAggregate Source = "aggregate"
	SourceLive      Source = "live"
	SourceStale     Source = "stale"
	SourceFallback  Source = "fallback"
)

// CardFetcher fetches one set's cards from the live API.
type CardFetcher interface {
	SetCards(ctx context.Context, setID string) ([]model.Card, error)
}

type poolEntry struct {
	pools     domain.Pools
	expiresAt time.Time
}

type resolution struct {
	pools  domain.Pools
	source Source
}

// Provider resolves a set's rarity pools. Lookups never fail: when the API
// and every snapshot are unavailable a stale or synthetic pool is served.
type Provider struct {
	cache   *lru.Cache
	flight  singleflight.Group
	store   SnapshotStore
	fetcher CardFetcher
	ttl     time.Duration
	size    int
	now     func() time.Time
	log     logger.Logger
}

// ProviderOption configures a Provider.
type ProviderOption func(*Provider)

// WithPoolTTL sets how long a cached pool is fresh.
func WithPoolTTL(ttl time.Duration) ProviderOption {
	return func(p *Provider) {
		if ttl > 0 {
			p.ttl = ttl
		}
	}
}

// WithPoolCacheSize bounds the number of cached sets.
func WithPoolCacheSize(n int) ProviderOption {
	return func(p *Provider) {
		if n > 0 {
			p.size = n
		}
	}
}

// WithProviderClock replaces time.Now.
func WithProviderClock(now func() time.Time) ProviderOption {
	return func(p *Provider) {
		if now != nil {
			p.now = now
		}
	}
}

// WithProviderLogger sets the logger.
func WithProviderLogger(l logger.Logger) ProviderOption {
	return func(p *Provider) {
		if l != nil {
			p.log = l
		}
	}
}

// NewProvider creates a provider over store and fetcher.
func NewProvider(store SnapshotStore, fetcher CardFetcher, opts ...ProviderOption) (*Provider, error) {
	p := &Provider{
		store:   store,
		fetcher: fetcher,
		ttl:     DefaultPoolTTL,
		size:    DefaultPoolCacheSize,
		now:     time.Now,
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	cache, err := lru.New(p.size)
	if err != nil {
		return nil, fmt.Errorf("create pool cache: %w", err)
	}
	p.cache = cache
	return p, nil
}

// Pools returns the pools of setID and where they came from. Concurrent
// misses for the same set share one resolution.
func (p *Provider) Pools(ctx context.Context, setID string) (domain.Pools, Source) {
	if pools, ok := p.fresh(setID); ok {
		metrics.RecordPoolResolution(string(SourceMemory))
		return pools, SourceMemory
	}
	// The shared resolution must outlive any single caller.
	detached := context.WithoutCancel(ctx)
	v, _, _ := p.flight.Do(setID, func() (any, error) {
		return p.resolve(detached, setID), nil
	})
	r := v.(resolution)
	metrics.RecordPoolResolution(string(r.source))
	return r.pools, r.source
}

// Invalidate drops the cached pool and the per-set snapshot of setID.
func (p *Provider) Invalidate(ctx context.Context, setID string) error {
	p.cache.Remove(setID)
	metrics.UpdateCachedPoolSets(p.cache.Len())
	if err := p.store.Delete(ctx, SetSnapshot(setID)); err != nil && !errors.Is(err, ErrSnapshotNotFound) {
		return err
	}
	return nil
}

// CachedSets is the number of sets held in memory.
func (p *Provider) CachedSets() int {
	return p.cache.Len()
}

func (p *Provider) fresh(setID string) (domain.Pools, bool) {
	v, ok := p.cache.Get(setID)
	if !ok {
		return domain.Pools{}, false
	}
	e := v.(poolEntry)
	if !p.now().Before(e.expiresAt) {
		return domain.Pools{}, false
	}
	return e.pools, true
}

func (p *Provider) remember(setID string, pools domain.Pools) {
	p.cache.Add(setID, poolEntry{pools: pools, expiresAt: p.now().Add(p.ttl)})
	metrics.UpdateCachedPoolSets(p.cache.Len())
}

func (p *Provider) resolve(ctx context.Context, setID string) resolution {
	if pools, ok := p.fresh(setID); ok {
		return resolution{pools: pools, source: SourceMemory}
	}

	if cards, err := loadCards(ctx, p.store, SetSnapshot(setID)); err == nil && len(cards) > 0 {
		pools := domain.Partition(cards)
		p.remember(setID, pools)
		return resolution{pools: pools, source: SourceSnapshot}
	} else if err != nil && !errors.Is(err, ErrSnapshotNotFound) {
		p.log.Warn(ctx, "set snapshot unreadable", logger.String("set_id", setID), logger.Error(err))
	}

	if cards := p.fromAggregate(ctx, setID); len(cards) > 0 {
		if err := saveCards(ctx, p.store, SetSnapshot(setID), cards); err != nil {
			p.log.Warn(ctx, "failed to save set snapshot", logger.String("set_id", setID), logger.Error(err))
		}
		pools := domain.Partition(cards)
		p.remember(setID, pools)
		return resolution{pools: pools, source: SourceAggregate}
	}

	cards, err := p.fetcher.SetCards(ctx, setID)
	if err == nil {
		pools := domain.Partition(cards)
		if len(cards) > 0 {
			p.remember(setID, pools)
			if err := saveCards(ctx, p.store, SetSnapshot(setID), cards); err != nil {
				p.log.Warn(ctx, "failed to save set snapshot", logger.String("set_id", setID), logger.Error(err))
			}
		}
		p.log.Info(ctx, "fetched card pool", logger.String("set_id", setID), logger.Int("cards", len(cards)))
		return resolution{pools: pools, source: SourceLive}
	}

	if v, ok := p.cache.Peek(setID); ok {
		p.log.Warn(ctx, "serving stale card pool", logger.String("set_id", setID), logger.Error(err))
		return resolution{pools: v.(poolEntry).pools, source: SourceStale}
	}
	p.log.Warn(ctx, "serving fallback card pool", logger.String("set_id", setID), logger.Error(err))
	return resolution{pools: domain.Fallback(setID), source: SourceFallback}
}

func (p *Provider) fromAggregate(ctx context.Context, setID string) []model.Card {
	all, err := loadCards(ctx, p.store, AggregateSnapshot)
	if err != nil {
		if !errors.Is(err, ErrSnapshotNotFound) {
			p.log.Warn(ctx, "aggregate snapshot unreadable", logger.Error(err))
		}
		return nil
	}
	var out []model.Card
	for _, c := range all {
		if c.Set.ID == setID {
			out = append(out, c)
		}
	}
	return out
}
