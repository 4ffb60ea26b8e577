package service

import (
	"context"
	"crypto/subtle"
	"fmt"
	"math"
	"strings"

	poolsource "github.com/okian/pokepack/internal/adapters/catalog"
	jobqueue "github.com/okian/pokepack/internal/adapters/mq/queue"
	"github.com/okian/pokepack/internal/adapters/repository"
	"github.com/okian/pokepack/internal/domain/ledger"
	"github.com/okian/pokepack/internal/domain/model"
	"github.com/okian/pokepack/internal/domain/types"
	"github.com/okian/pokepack/pkg/logger"
)

// allSets asks a warm-up to cover every listed pack.
const allSets = "all"

// CheckAdmin validates the shared admin secret.
func (s *Service) CheckAdmin(token string) error {
	if s.adminToken == "" {
		return ErrAdminNotConfigured
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(s.adminToken)) != 1 {
		return ErrUnauthorized
	}
	return nil
}

// SetCoins overwrites a user's balance. The amount must be finite and not
// negative; fractions are floored.
func (s *Service) SetCoins(ctx context.Context, username string, amount float64) (model.User, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount < 0 {
		return model.User{}, fmt.Errorf("%w: %v", ErrInvalidAmount, amount)
	}
	u, err := s.User(ctx, username)
	if err != nil {
		return model.User{}, err
	}

	coins := int64(math.Floor(amount))
	var updated model.User
	err = s.store.InTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		updated, err = ledger.SetBalance(ctx, tx, u.ID, coins)
		return err
	})
	if err != nil {
		return model.User{}, fmt.Errorf("set balance of %q: %w", u.Username, err)
	}
	s.logger.Info(ctx, "balance overwritten",
		logger.String("username", u.Username),
		logger.Int64("from", u.PokeCoins),
		logger.Int64("to", coins),
	)
	return updated, nil
}

// warmTargets expands a warm-up request. Every listed pack is targeted when
// All is true, when the set id is "all", or when neither a set id nor
// all=false was given.
func (s *Service) warmTargets(req types.WarmRequest) ([]string, error) {
	setID := strings.TrimSpace(req.SetID)
	everything := (req.All != nil && *req.All) ||
		strings.EqualFold(setID, allSets) ||
		(setID == "" && (req.All == nil || *req.All))
	if everything {
		if s.packs == nil {
			return nil, nil
		}
		return s.packs.IDs(), nil
	}
	if setID == "" {
		return nil, fmt.Errorf("%w: setId is required", ErrValidation)
	}
	return []string{setID}, nil
}

// WarmSetCache resolves the pools of the requested sets now and reports the
// tier counts of each.
func (s *Service) WarmSetCache(ctx context.Context, req types.WarmRequest) (types.WarmResponse, error) {
	targets, err := s.warmTargets(req)
	if err != nil {
		return types.WarmResponse{}, err
	}
	if s.warmer == nil {
		return types.WarmResponse{}, errNoWarmer
	}
	warmed := s.warmer.Warm(ctx, targets, req.Force)
	results := make([]types.WarmResult, len(warmed))
	for i, r := range warmed {
		results[i] = warmResult(r)
	}
	s.logger.Info(ctx, "set cache warmed", logger.Int("sets", len(results)), logger.Bool("force", req.Force))
	return types.WarmResponse{Warmed: len(results), Results: results}, nil
}

func warmResult(r poolsource.WarmResult) types.WarmResult {
	return types.WarmResult{
		SetID:  r.SetID,
		OK:     r.OK,
		Source: string(r.Source),
		Counts: types.Counts{Common: r.Counts.Common, Uncommon: r.Counts.Uncommon, Rare: r.Counts.Rare},
		Error:  r.Error,
	}
}

// FetchAllCards queues a download of the whole catalog and returns the job id.
func (s *Service) FetchAllCards(ctx context.Context) (string, error) {
	if s.fetchAll == nil {
		return "", fmt.Errorf("%w: no catalog fetcher configured", ErrCatalogUnavailable)
	}
	job := jobqueue.NewJob(jobqueue.KindFullCatalog, nil, false)
	if err := s.enqueue(ctx, job); err != nil {
		return "", err
	}
	s.logger.Info(ctx, "full catalog fetch queued", logger.String("job_id", job.ID))
	return job.ID, nil
}

// TestPacks probes one card of every listed pack.
func (s *Service) TestPacks(ctx context.Context) ([]types.PackProbe, error) {
	if s.samples == nil {
		return nil, fmt.Errorf("%w: no sample source configured", ErrCatalogUnavailable)
	}
	var ids []string
	if s.packs != nil {
		ids = s.packs.IDs()
	}
	probes := make([]types.PackProbe, 0, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		probe := types.PackProbe{SetID: id}
		card, found, err := s.samples.SampleCard(ctx, id)
		switch {
		case err != nil:
			probe.Error = err.Error()
		case found:
			probe.SampleCardID = card.ID
			probe.Image = card.ImageURL()
			probe.OK = probe.Image != ""
		}
		probes = append(probes, probe)
	}
	return probes, nil
}

// RehydrateImages gives a real image to the user's collection entries stored
// without one. The URL comes from the card id when it maps onto the CDN and
// from a catalog lookup otherwise. Cards that resolve to nothing are skipped.
func (s *Service) RehydrateImages(ctx context.Context, username string) (types.RehydrateResponse, error) {
	u, err := s.User(ctx, username)
	if err != nil {
		return types.RehydrateResponse{}, err
	}
	entries, err := s.store.ListCollection(ctx, u.ID)
	if err != nil {
		return types.RehydrateResponse{}, fmt.Errorf("list collection of %q: %w", u.Username, err)
	}

	var ids []string
	seen := make(map[string]struct{})
	for _, e := range entries {
		if e.CardID == "" || !e.NeedsImage() {
			continue
		}
		if _, ok := seen[e.CardID]; ok {
			continue
		}
		seen[e.CardID] = struct{}{}
		ids = append(ids, e.CardID)
	}
	if len(ids) == 0 {
		return types.RehydrateResponse{}, nil
	}

	images := make(map[string]string, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return types.RehydrateResponse{}, err
		}
		if url, ok := model.CardImageURL(id); ok {
			images[id] = url
			continue
		}
		if url := s.lookupImage(ctx, id); url != "" {
			images[id] = url
		}
	}

	var updated int64
	err = s.store.InTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		for _, id := range ids {
			url, ok := images[id]
			if !ok {
				continue
			}
			n, err := tx.SetCollectionImage(ctx, u.ID, id, url)
			if err != nil {
				return err
			}
			updated += n
		}
		return nil
	})
	if err != nil {
		return types.RehydrateResponse{}, fmt.Errorf("rehydrate images of %q: %w", u.Username, err)
	}
	s.logger.Info(ctx, "collection images rehydrated",
		logger.String("username", u.Username),
		logger.Int("cards", len(ids)),
		logger.Int64("updated", updated),
	)
	return types.RehydrateResponse{Updated: updated}, nil
}

func (s *Service) lookupImage(ctx context.Context, cardID string) string {
	if s.cards == nil {
		return ""
	}
	card, err := s.cards.Card(ctx, cardID)
	if err != nil {
		s.logger.Warn(ctx, "card lookup failed", logger.String("card_id", cardID), logger.Error(err))
		return ""
	}
	return card.ImageURL()
}
