package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/sahilm/fuzzy"

	"github.com/okian/pokepack/internal/domain/draw"
	"github.com/okian/pokepack/internal/domain/model"
	"github.com/okian/pokepack/pkg/logger"
)

// Pack list defaults.
const (
	DefaultLatestSets = 16
	DefaultPackSetID  = "sv1"
)

// PackOrigin tells where the pack list was loaded from.
type PackOrigin string

const (
	OriginLocal   PackOrigin = "local"
	OriginCache   PackOrigin = "cache"
	OriginLive    PackOrigin = "live"
	OriginBuiltin PackOrigin = "builtin"
)

// BuiltinSets is served when no other source is available.
func BuiltinSets() []model.PackSet {
	return []model.PackSet{
		{ID: "sv1", Name: "Scarlet & Violet"},
		{ID: "sv2", Name: "Paldea Evolved"},
		{ID: "swsh12pt5", Name: "Crown Zenith"},
		{ID: "swsh12", Name: "Silver Tempest"},
	}
}

// SetLister lists recent sets from the live API.
type SetLister interface {
	LatestSets(ctx context.Context, n int) ([]model.PackSet, error)
}

// PackList is the openable pack list, loaded once at startup.
type PackList struct {
	mu     sync.RWMutex
	sets   []model.PackSet
	ready  bool
	origin PackOrigin

	lister    SetLister
	store     SnapshotStore
	localFile string
	cost      int64
	latest    int
	log       logger.Logger
}

// PackOption configures a PackList.
type PackOption func(*PackList)

// WithLocalFile sets the operator override file. Empty disables it.
func WithLocalFile(path string) PackOption {
	return func(l *PackList) {
		l.localFile = path
	}
}

// WithPackCost sets the cost stamped on every pack.
func WithPackCost(cost int64) PackOption {
	return func(l *PackList) {
		l.cost = cost
	}
}

// WithLatestSets sets how many recent sets are fetched live.
func WithLatestSets(n int) PackOption {
	return func(l *PackList) {
		if n > 0 {
			l.latest = n
		}
	}
}

// WithPackLogger sets the logger.
func WithPackLogger(lg logger.Logger) PackOption {
	return func(l *PackList) {
		if lg != nil {
			l.log = lg
		}
	}
}

// NewPackList creates an empty, not yet ready list. The live result is
// cached in store under PacksSnapshot.
func NewPackList(lister SetLister, store SnapshotStore, opts ...PackOption) *PackList {
	l := &PackList{
		lister: lister,
		store:  store,
		cost:   100,
		latest: DefaultLatestSets,
		log:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Preload fills the list from the local override, the cached snapshot, the
// live API or the built-in sets, in that order. It always ends ready.
func (l *PackList) Preload(ctx context.Context) PackOrigin {
	sets, origin := l.load(ctx)
	for i := range sets {
		sets[i].Cost = l.cost
	}

	l.mu.Lock()
	l.sets = sets
	l.ready = true
	l.origin = origin
	l.mu.Unlock()

	l.log.Info(ctx, "pack list loaded", logger.String("origin", string(origin)), logger.Int("packs", len(sets)))
	return origin
}

func (l *PackList) load(ctx context.Context) ([]model.PackSet, PackOrigin) {
	if l.localFile != "" {
		sets, err := l.readLocal()
		if err == nil {
			return sets, OriginLocal
		}
		if !errors.Is(err, os.ErrNotExist) {
			l.log.Warn(ctx, "local pack file unreadable", logger.String("path", l.localFile), logger.Error(err))
		}
	}

	if l.store != nil {
		if data, err := l.store.Load(ctx, PacksSnapshot); err == nil {
			if sets, err := decodeSets(data); err == nil && len(sets) > 0 {
				return sets, OriginCache
			}
		}
	}

	if l.lister != nil {
		sets, err := l.lister.LatestSets(ctx, l.latest)
		if err == nil && len(sets) > 0 {
			l.saveCache(ctx, sets)
			return sets, OriginLive
		}
		l.log.Warn(ctx, "could not fetch latest sets, using built-in packs", logger.Error(err))
	}

	return BuiltinSets(), OriginBuiltin
}

func (l *PackList) readLocal() ([]model.PackSet, error) {
	data, err := os.ReadFile(l.localFile)
	if err != nil {
		return nil, err
	}
	return decodeSets(data)
}

func (l *PackList) saveCache(ctx context.Context, sets []model.PackSet) {
	if l.store == nil {
		return
	}
	withCost := make([]model.PackSet, len(sets))
	for i, s := range sets {
		s.Cost = l.cost
		withCost[i] = s
	}
	data, err := json.MarshalIndent(withCost, "", "  ")
	if err == nil {
		err = l.store.Save(ctx, PacksSnapshot, data)
	}
	if err != nil {
		l.log.Warn(ctx, "failed to cache pack list", logger.Error(err))
	}
}

func decodeSets(data []byte) ([]model.PackSet, error) {
	var sets []model.PackSet
	if err := json.Unmarshal(data, &sets); err != nil {
		return nil, fmt.Errorf("decode pack list: %w", err)
	}
	return sets, nil
}

// Ready reports whether Preload has finished.
func (l *PackList) Ready() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.ready
}

// Origin is where the current list came from; empty before Preload.
func (l *PackList) Origin() PackOrigin {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.origin
}

// List returns a copy of the packs; empty until ready.
func (l *PackList) List() []model.PackSet {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]model.PackSet, len(l.sets))
	copy(out, l.sets)
	return out
}

// IDs returns the set ids of the list.
func (l *PackList) IDs() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ids := make([]string, len(l.sets))
	for i, s := range l.sets {
		ids[i] = s.ID
	}
	return ids
}

// packSource adapts a pack slice to fuzzy.Source.
type packSource []model.PackSet

func (p packSource) String(i int) string { return p[i].Name + " " + p[i].ID }
func (p packSource) Len() int            { return len(p) }

// Search ranks packs by fuzzy match of q against name and id. An empty query
// returns the whole list.
func (l *PackList) Search(q string) []model.PackSet {
	sets := l.List()
	if q == "" {
		return sets
	}
	matches := fuzzy.FindFrom(q, packSource(sets))
	out := make([]model.PackSet, 0, len(matches))
	for _, m := range matches {
		out = append(out, sets[m.Index])
	}
	return out
}

// RandomSetID picks a listed set uniformly, or DefaultPackSetID when empty.
func (l *PackList) RandomSetID(src draw.RandomSource) string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.sets) == 0 {
		return DefaultPackSetID
	}
	return l.sets[draw.Intn(src, len(l.sets))].ID
}
