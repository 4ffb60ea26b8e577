package service

import (
	"context"
	"strings"

	"github.com/okian/pokepack/internal/adapters/repository"
	"github.com/okian/pokepack/internal/domain/draw"
	"github.com/okian/pokepack/internal/domain/ledger"
	"github.com/okian/pokepack/internal/domain/model"
	"github.com/okian/pokepack/internal/domain/types"
	"github.com/okian/pokepack/pkg/logger"
	"github.com/okian/pokepack/pkg/metrics"
)

// Pack origins recorded in metrics.
const (
	packPaid = "paid"
	packSpin = "spin"
)

// OpenPack charges the pack cost and adds one drawn pack to the user's
// collection. Funds are checked before the catalog is touched and again
// under the row lock, so concurrent openings cannot overspend.
func (s *Service) OpenPack(ctx context.Context, username, setID string) (types.OpenPackResponse, error) {
	name, err := requireUsername(username)
	if err != nil {
		return types.OpenPackResponse{}, err
	}
	setID = strings.TrimSpace(setID)
	if setID == "" {
		setID = s.defaultSetID
	}

	u, err := ledger.CanAfford(ctx, s.store, name, s.packCost)
	if err != nil {
		return types.OpenPackResponse{}, err
	}

	pack, err := s.drawPack(ctx, setID)
	if err != nil {
		return types.OpenPackResponse{}, err
	}

	var updated model.User
	err = s.store.InTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		updated, err = ledger.Charge(ctx, tx, u.ID, s.packCost)
		if err != nil {
			return err
		}
		return tx.AppendCollection(ctx, collectionEntries(u.ID, pack))
	})
	if err != nil {
		metrics.RecordLedgerTx("open_pack", "rollback")
		return types.OpenPackResponse{}, err
	}
	metrics.RecordLedgerTx("open_pack", "commit")
	metrics.RecordCoins("pack", -s.packCost)
	s.packOpened(ctx, packPaid, name, pack)

	return types.OpenPackResponse{User: updated, Cards: pack.Cards, Set: pack.Set}, nil
}

// drawPack draws one standard pack from setID. Zero cards means the catalog
// gave nothing to draw from.
func (s *Service) drawPack(ctx context.Context, setID string) (types.PackResult, error) {
	pools, source := s.pools.Pools(ctx, setID)
	drawn := draw.Draw(pools, draw.StandardPack, s.rnd)
	if len(drawn) == 0 {
		s.logger.Warn(ctx, "no cards to draw", logger.String("set_id", setID), logger.String("source", string(source)))
		return types.PackResult{}, ErrCatalogUnavailable
	}

	counts := make(map[string]int, 3)
	for _, c := range drawn {
		counts[c.Bucket.String()]++
	}
	for bucket, n := range counts {
		metrics.RecordCardsDrawn(bucket, n)
	}

	cards := draw.Cards(drawn)
	return types.PackResult{Set: setRef(setID, cards), Cards: cards}, nil
}

// setRef names the set after its first card, falling back to the id.
func setRef(setID string, cards []model.Card) types.SetRef {
	name := setID
	if len(cards) > 0 && cards[0].Set.Name != "" {
		name = cards[0].Set.Name
	}
	return types.SetRef{ID: setID, Name: name}
}

func collectionEntries(userID int64, pack types.PackResult) []model.CollectionEntry {
	entries := make([]model.CollectionEntry, len(pack.Cards))
	for i, c := range pack.Cards {
		entries[i] = c.Entry(userID, pack.Set.ID, pack.Set.Name)
	}
	return entries
}

func (s *Service) packOpened(ctx context.Context, origin, username string, pack types.PackResult) {
	s.packsOpened.Add(1)
	metrics.RecordPackOpened(origin)
	s.logger.Debug(ctx, "pack opened",
		logger.String("origin", origin),
		logger.String("username", username),
		logger.String("set_id", pack.Set.ID),
		logger.Int("cards", len(pack.Cards)),
	)
}
