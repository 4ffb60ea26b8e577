package service

import (
	"context"
	"fmt"

	jobqueue "github.com/okian/pokepack/internal/adapters/mq/queue"
	"github.com/okian/pokepack/pkg/logger"
)

// Handle runs one background catalog job. It is the worker pool's handler.
func (s *Service) Handle(ctx context.Context, job jobqueue.Job) error {
	switch job.Kind {
	case jobqueue.KindWarmSets:
		if s.warmer == nil {
			return errNoWarmer
		}
		results := s.warmer.Warm(ctx, job.SetIDs, job.Force)
		failed := 0
		for _, r := range results {
			if !r.OK {
				failed++
			}
		}
		s.logger.Info(ctx, "background warm-up done",
			logger.String("job_id", job.ID),
			logger.Int("sets", len(results)),
			logger.Int("failed", failed),
		)
		return nil

	case jobqueue.KindFullCatalog:
		if s.fetchAll == nil {
			return fmt.Errorf("%w: no catalog fetcher configured", ErrCatalogUnavailable)
		}
		summary, err := s.fetchAll(ctx)
		if err != nil {
			return fmt.Errorf("fetch all cards: %w", err)
		}
		s.logger.Info(ctx, "full catalog stored",
			logger.String("job_id", job.ID),
			logger.Int("cards", summary.Cards),
			logger.Int("sets", summary.Sets),
		)
		return nil

	default:
		return fmt.Errorf("unknown job kind %q", job.Kind)
	}
}
