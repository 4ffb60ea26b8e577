package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/okian/pokepack/internal/adapters/repository"
	"github.com/okian/pokepack/internal/domain/challenge"
	"github.com/okian/pokepack/internal/domain/ledger"
	"github.com/okian/pokepack/internal/domain/model"
	"github.com/okian/pokepack/internal/domain/rewards"
	"github.com/okian/pokepack/internal/domain/types"
	"github.com/okian/pokepack/pkg/logger"
	"github.com/okian/pokepack/pkg/metrics"
)

// Game names used in metrics and logs.
const (
	gameMemory     = "memory"
	gameSpin       = "spin"
	gameSilhouette = "silhouette"
	gameTyping     = "typing"
)

// credit applies amount to the user inside its own transaction.
func (s *Service) credit(ctx context.Context, game string, userID, amount int64, p ledger.Policy) (model.User, error) {
	var entry ledger.Entry
	err := s.store.InTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		entry, err = ledger.Apply(ctx, tx, userID, amount, p)
		return err
	})
	if err != nil {
		metrics.RecordLedgerTx(game, "rollback")
		return model.User{}, fmt.Errorf("credit %s reward: %w", game, err)
	}
	metrics.RecordLedgerTx(game, "commit")
	metrics.RecordCoins(game, entry.Delta)
	if entry.Delta > 0 {
		s.coinsGranted.Add(entry.Delta)
	}
	return entry.User, nil
}

func (s *Service) finished(game string, won bool) {
	s.gamesPlayed.Add(1)
	result := "lost"
	if won {
		result = "won"
	}
	metrics.RecordGameFinished(game, result)
}

// FinishMemory scores a memory-match run and credits the reward. The pair
// count comes from the difficulty table; the client's total is ignored.
func (s *Service) FinishMemory(ctx context.Context, req types.MemoryFinishRequest) (types.MemoryFinishResponse, error) {
	u, err := s.User(ctx, req.Username)
	if err != nil {
		return types.MemoryFinishResponse{}, err
	}

	res := s.calc.Memory(req.Difficulty, rewards.MemoryTelemetry{
		PairsMatched: req.PairsMatched,
		Mismatches:   req.Mismatches,
		TimeLeft:     req.TimeLeft,
		StreakMax:    req.StreakMax,
	})

	if res.Coins > 0 {
		if u, err = s.credit(ctx, gameMemory, u.ID, res.Coins, ledger.Unbounded()); err != nil {
			return types.MemoryFinishResponse{}, err
		}
	}
	s.finished(gameMemory, res.Won)

	return types.MemoryFinishResponse{Won: res.Won, Coins: res.Coins, Breakdown: res.Breakdown, User: u}, nil
}

// Spin spins the wheel once. Coin outcomes never leave the balance below
// zero; a free pack comes from a random listed set at no cost.
func (s *Service) Spin(ctx context.Context, username string) (types.SpinResponse, error) {
	u, err := s.User(ctx, username)
	if err != nil {
		return types.SpinResponse{}, err
	}

	outcome := rewards.Spin(s.rnd)
	resp := types.SpinResponse{Outcome: outcome}

	if !outcome.FreePack() {
		if u, err = s.credit(ctx, gameSpin, u.ID, outcome.Delta, ledger.Floor(rewards.SpinFloor)); err != nil {
			return types.SpinResponse{}, err
		}
		s.finished(gameSpin, outcome.Delta > 0)
		resp.User = u
		return resp, nil
	}

	pack, err := s.drawPack(ctx, s.randomSetID())
	if err != nil {
		return types.SpinResponse{}, err
	}
	err = s.store.InTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		if u, err = tx.LockUser(ctx, u.ID); err != nil {
			return err
		}
		return tx.AppendCollection(ctx, collectionEntries(u.ID, pack))
	})
	if err != nil {
		metrics.RecordLedgerTx(gameSpin, "rollback")
		return types.SpinResponse{}, fmt.Errorf("grant free pack: %w", err)
	}
	metrics.RecordLedgerTx(gameSpin, "commit")
	s.packOpened(ctx, packSpin, u.Username, pack)
	s.finished(gameSpin, true)

	resp.User = u
	resp.Pack = &pack
	return resp, nil
}

func (s *Service) randomSetID() string {
	if s.packs == nil {
		return s.defaultSetID
	}
	return s.packs.RandomSetID(s.rnd)
}

// StartSilhouette picks a Pokémon and stores it behind a fresh token. Only
// the image leaves the server.
func (s *Service) StartSilhouette(ctx context.Context) (types.SilhouetteStartResponse, error) {
	if s.subjects == nil {
		return types.SilhouetteStartResponse{}, ErrSubjectUnavailable
	}
	subj, err := s.subjects.RandomSubject(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return types.SilhouetteStartResponse{}, ctxErr
		}
		return types.SilhouetteStartResponse{}, fmt.Errorf("%w: %w", ErrSubjectUnavailable, err)
	}

	token, err := s.registry.Create(ctx, challenge.Challenge{
		Answer:    subj.Name,
		ImageURL:  subj.Image,
		CreatedAt: time.Now(),
	})
	if err != nil {
		return types.SilhouetteStartResponse{}, fmt.Errorf("store challenge: %w", err)
	}
	metrics.RecordChallenge("started")

	return types.SilhouetteStartResponse{Token: token, Image: subj.Image}, nil
}

// GuessSilhouette answers a challenge. The token is consumed whatever the
// guess, so each challenge pays out at most once.
func (s *Service) GuessSilhouette(ctx context.Context, req types.SilhouetteGuessRequest) (types.SilhouetteGuessResponse, error) {
	token := strings.TrimSpace(req.Token)
	if token == "" {
		return types.SilhouetteGuessResponse{}, fmt.Errorf("%w: token is required", ErrValidation)
	}
	u, err := s.User(ctx, req.Username)
	if err != nil {
		return types.SilhouetteGuessResponse{}, err
	}

	c, err := s.registry.Consume(ctx, token)
	if err != nil {
		if errors.Is(err, challenge.ErrNotFound) {
			metrics.RecordChallenge("invalid")
			return types.SilhouetteGuessResponse{}, ErrInvalidChallenge
		}
		return types.SilhouetteGuessResponse{}, fmt.Errorf("consume challenge: %w", err)
	}

	correct, reward := rewards.Silhouette(req.Guess, c.Answer)
	if correct {
		metrics.RecordChallenge("correct")
		if u, err = s.credit(ctx, gameSilhouette, u.ID, reward, ledger.Unbounded()); err != nil {
			return types.SilhouetteGuessResponse{}, err
		}
	} else {
		metrics.RecordChallenge("incorrect")
	}
	s.finished(gameSilhouette, correct)
	s.logger.Debug(ctx, "silhouette answered", logger.String("username", u.Username), logger.Bool("correct", correct))

	resp := types.SilhouetteGuessResponse{
		Correct:     correct,
		User:        u,
		PokemonName: rewards.DisplayName(c.Answer),
		Image:       c.ImageURL,
	}
	if !correct {
		resp.Answer = c.Answer
	}
	return resp, nil
}

// FinishTyping credits a typing run.
func (s *Service) FinishTyping(ctx context.Context, req types.TypingFinishRequest) (types.TypingFinishResponse, error) {
	u, err := s.User(ctx, req.Username)
	if err != nil {
		return types.TypingFinishResponse{}, err
	}
	coins := rewards.Typing(req.CorrectWords, req.MaxStreak)
	if coins > 0 {
		if u, err = s.credit(ctx, gameTyping, u.ID, coins, ledger.Unbounded()); err != nil {
			return types.TypingFinishResponse{}, err
		}
	}
	s.finished(gameTyping, coins > 0)
	return types.TypingFinishResponse{Coins: coins, User: u}, nil
}
