package smoke

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/pokepack/pkg/logger"
)

// ErrChecksFailed is returned when at least one player journey failed.
var ErrChecksFailed = errors.New("smoke checks failed")

// Run executes the complete smoke run.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get().Named("smoke")

	log.Info(ctx, "starting pokepack smoke run",
		logger.String("baseURL", config.BaseURL),
		logger.Int("users", config.Users),
		logger.Int("packsPerUser", config.PacksPerUser),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()),
	)

	client := NewClient(config.BaseURL, config.Timeout)

	// Step 1: Check service health
	if err := client.Health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Read the pack price
	cost := int64(defaultPackCost)
	packs, err := client.Packs(ctx)
	if err != nil {
		return stats, fmt.Errorf("pack list failed: %w", err)
	}
	if len(packs) > 0 && packs[0].Cost > 0 {
		cost = packs[0].Cost
	}
	log.Info(ctx, "pack list read", logger.Int("packs", len(packs)), logger.Int64("cost", cost))

	// Step 3: Play every journey concurrently
	runID := strings.Split(uuid.NewString(), "-")[0]
	players := make(chan int, config.Workers*2)
	var wg sync.WaitGroup
	for range max(config.Workers, 1) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range players {
				p := &player{
					client:   client,
					config:   config,
					stats:    stats,
					cost:     cost,
					username: fmt.Sprintf("smoke-%s-%d", runID, i),
					log:      log,
				}
				if err := p.play(ctx); err != nil {
					atomic.AddInt64(&stats.Failures, 1)
					log.Error(ctx, "player journey failed", logger.String("username", p.username), logger.Error(err))
				}
			}
		}()
	}

	go func() {
		defer close(players)
		for i := range config.Users {
			select {
			case <-ctx.Done():
				return
			case players <- i:
			}
		}
	}()

	wg.Wait()

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, log, stats)

	if err := ctx.Err(); err != nil {
		return stats, err
	}
	if stats.Failures > 0 {
		return stats, fmt.Errorf("%w: %d of %d players", ErrChecksFailed, stats.Failures, config.Users)
	}
	log.Info(ctx, "smoke run completed successfully")
	return stats, nil
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	log.Info(ctx, "final statistics",
		logger.Int64("usersRegistered", stats.UsersRegistered),
		logger.Int64("packsOpened", stats.PacksOpened),
		logger.Int64("cardsReceived", stats.CardsReceived),
		logger.Int64("coinsEarned", stats.CoinsEarned),
		logger.Int64("spins", stats.Spins),
		logger.Int64("failures", stats.Failures),
		logger.String("duration", stats.Duration.String()),
	)
}
