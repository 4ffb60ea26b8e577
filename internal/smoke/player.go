package smoke

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/okian/pokepack/internal/domain/types"
	"github.com/okian/pokepack/pkg/logger"
)

// player runs one scripted journey and checks every balance change.
type player struct {
	client   *Client
	config   *Config
	stats    *Stats
	cost     int64
	username string
	log      logger.Logger
}

func (p *player) play(ctx context.Context) error {
	u, err := p.client.Register(ctx, p.username)
	if err != nil {
		return fmt.Errorf("register: %w", err)
	}
	atomic.AddInt64(&p.stats.UsersRegistered, 1)
	balance := u.PokeCoins
	p.step(ctx, "registered", balance)

	again, err := p.client.Register(ctx, p.username)
	if err != nil {
		return fmt.Errorf("register again: %w", err)
	}
	if again.ID != u.ID || again.PokeCoins != balance {
		return fmt.Errorf("second registration changed the user: %+v vs %+v", again, u)
	}

	cards := 0
	for i := range p.config.PacksPerUser {
		if balance < p.cost {
			break
		}
		res, err := p.client.OpenPack(ctx, p.username, p.config.SetID)
		if err != nil {
			return fmt.Errorf("open pack %d: %w", i, err)
		}
		if want := balance - p.cost; res.User.PokeCoins != want {
			return fmt.Errorf("pack %d: balance %d, want %d", i, res.User.PokeCoins, want)
		}
		if len(res.Cards) == 0 {
			return fmt.Errorf("pack %d: no cards", i)
		}
		balance = res.User.PokeCoins
		cards += len(res.Cards)
		atomic.AddInt64(&p.stats.PacksOpened, 1)
		atomic.AddInt64(&p.stats.CardsReceived, int64(len(res.Cards)))
		p.step(ctx, "opened "+res.Set.ID, balance)
	}

	entries, err := p.client.Collection(ctx, p.username)
	if err != nil {
		return fmt.Errorf("collection: %w", err)
	}
	if len(entries) != cards {
		return fmt.Errorf("collection has %d entries, want %d", len(entries), cards)
	}

	typing, err := p.client.FinishTyping(ctx, types.TypingFinishRequest{
		Username:     p.username,
		CorrectWords: typingWords,
		MaxStreak:    typingStreak,
	})
	if err != nil {
		return fmt.Errorf("typing: %w", err)
	}
	if typing.Coins != expectedTypingCoins || typing.User.PokeCoins != balance+expectedTypingCoins {
		return fmt.Errorf("typing paid %d to balance %d, want %d to %d",
			typing.Coins, typing.User.PokeCoins, expectedTypingCoins, balance+expectedTypingCoins)
	}
	balance = typing.User.PokeCoins
	atomic.AddInt64(&p.stats.CoinsEarned, typing.Coins)
	p.step(ctx, "typing", balance)

	memory, err := p.client.FinishMemory(ctx, types.MemoryFinishRequest{
		Username:     p.username,
		Difficulty:   "easy",
		PairsMatched: memoryPairs,
		TimeLeft:     memoryTimeLeft,
		StreakMax:    memoryStreak,
	})
	if err != nil {
		return fmt.Errorf("memory: %w", err)
	}
	if !memory.Won || memory.Coins != expectedMemoryCoins || memory.User.PokeCoins != balance+expectedMemoryCoins {
		return fmt.Errorf("memory paid %d to balance %d, want %d to %d",
			memory.Coins, memory.User.PokeCoins, expectedMemoryCoins, balance+expectedMemoryCoins)
	}
	balance = memory.User.PokeCoins
	atomic.AddInt64(&p.stats.CoinsEarned, memory.Coins)
	p.step(ctx, "memory", balance)

	spin, err := p.client.Spin(ctx, p.username)
	if err != nil {
		return fmt.Errorf("spin: %w", err)
	}
	atomic.AddInt64(&p.stats.Spins, 1)
	if spin.User.PokeCoins < 0 {
		return fmt.Errorf("spin left a negative balance %d", spin.User.PokeCoins)
	}
	if spin.Outcome.FreePack() {
		if spin.Pack == nil || len(spin.Pack.Cards) == 0 {
			return fmt.Errorf("free pack outcome without cards")
		}
		if spin.User.PokeCoins != balance {
			return fmt.Errorf("free pack changed the balance from %d to %d", balance, spin.User.PokeCoins)
		}
		atomic.AddInt64(&p.stats.CardsReceived, int64(len(spin.Pack.Cards)))
	} else if want := max(balance+spin.Outcome.Delta, 0); spin.User.PokeCoins != want {
		return fmt.Errorf("spin %q left balance %d, want %d", spin.Outcome.Label, spin.User.PokeCoins, want)
	}
	p.step(ctx, "spin "+spin.Outcome.Label, spin.User.PokeCoins)
	return nil
}

func (p *player) step(ctx context.Context, what string, balance int64) {
	if !p.config.Verbose {
		return
	}
	p.log.Info(ctx, "player step",
		logger.String("username", p.username),
		logger.String("step", what),
		logger.Int64("balance", balance),
	)
}
