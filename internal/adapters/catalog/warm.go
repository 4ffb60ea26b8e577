package catalog

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	domain "github.com/okian/pokepack/internal/domain/catalog"
	"github.com/okian/pokepack/internal/domain/model"
	"github.com/okian/pokepack/pkg/logger"
)

// DefaultWarmConcurrency bounds parallel set resolutions during warm-up.
const DefaultWarmConcurrency = 4

// WarmResult is the outcome of warming one set.
type WarmResult struct {
	SetID  string        `json:"setId"`
	OK     bool          `json:"ok"`
	Source Source        `json:"source,omitempty"`
	Counts domain.Counts `json:"counts"`
	Error  string        `json:"error,omitempty"`
}

// Warmer fills the pool cache and snapshots ahead of pack openings.
type Warmer struct {
	provider    *Provider
	concurrency int
	log         logger.Logger
}

// NewWarmer creates a warmer over provider. concurrency <= 0 uses the default.
func NewWarmer(provider *Provider, concurrency int, log logger.Logger) *Warmer {
	if concurrency <= 0 {
		concurrency = DefaultWarmConcurrency
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Warmer{provider: provider, concurrency: concurrency, log: log}
}

// Warm resolves every set in setIDs, returning results in input order. With
// force the cached pool and per-set snapshot are dropped first. A set that
// could only be served from the synthetic fallback is reported as not ok.
func (w *Warmer) Warm(ctx context.Context, setIDs []string, force bool) []WarmResult {
	results := make([]WarmResult, len(setIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)

	for i, setID := range setIDs {
		g.Go(func() error {
			results[i] = w.warmOne(gctx, setID, force)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (w *Warmer) warmOne(ctx context.Context, setID string, force bool) WarmResult {
	res := WarmResult{SetID: setID}
	if err := ctx.Err(); err != nil {
		res.Error = err.Error()
		return res
	}
	if force {
		if err := w.provider.Invalidate(ctx, setID); err != nil {
			w.log.Warn(ctx, "failed to invalidate set", logger.String("set_id", setID), logger.Error(err))
		}
	}
	pools, source := w.provider.Pools(ctx, setID)
	res.Source = source
	res.Counts = pools.Counts()
	res.OK = source != SourceFallback
	if !res.OK {
		res.Error = "card pool unavailable"
	}
	return res
}

// AllCardsFetcher pages through the whole live catalog.
type AllCardsFetcher interface {
	AllCards(ctx context.Context, onPage func(page int, cards []model.Card)) ([]model.Card, error)
}

// CatalogSummary describes a completed full-catalog fetch.
type CatalogSummary struct {
	Cards int `json:"cards"`
	Sets  int `json:"sets"`
}

// FetchAll downloads every card, stores the aggregate snapshot and one
// snapshot per set.
func FetchAll(ctx context.Context, src AllCardsFetcher, store SnapshotStore, log logger.Logger) (CatalogSummary, error) {
	if log == nil {
		log = logger.Nop()
	}
	cards, err := src.AllCards(ctx, func(page int, batch []model.Card) {
		log.Debug(ctx, "fetched catalog page", logger.Int("page", page), logger.Int("cards", len(batch)))
	})
	if err != nil {
		return CatalogSummary{}, err
	}
	if err := saveCards(ctx, store, AggregateSnapshot, cards); err != nil {
		return CatalogSummary{}, err
	}

	bySet := make(map[string][]model.Card)
	for _, c := range cards {
		if c.Set.ID == "" {
			continue
		}
		bySet[c.Set.ID] = append(bySet[c.Set.ID], c)
	}
	ids := make([]string, 0, len(bySet))
	for id := range bySet {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if err := saveCards(ctx, store, SetSnapshot(id), bySet[id]); err != nil {
			log.Warn(ctx, "failed to save set snapshot", logger.String("set_id", id), logger.Error(err))
		}
	}

	summary := CatalogSummary{Cards: len(cards), Sets: len(bySet)}
	log.Info(ctx, "full catalog stored", logger.Int("cards", summary.Cards), logger.Int("sets", summary.Sets))
	return summary, nil
}
