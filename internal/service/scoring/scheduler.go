package scoring

import (
	"context"
	"log/slog"
	"time"
)

const defaultBatchInterval = 5 * time.Minute

// Scheduler periodically triggers a full batch scoring pass.
type Scheduler struct {
	service  *Service
	interval time.Duration
	logger   *slog.Logger
}

// NewScheduler creates a scheduler; interval <= 0 falls back to five minutes.
func NewScheduler(service *Service, interval time.Duration, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = defaultBatchInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		service:  service,
		interval: interval,
		logger:   logger,
	}
}

// Run blocks until ctx is cancelled, running one batch pass per tick. The
// first pass runs after one full interval so startup training can finish.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.InfoContext(ctx, "batch scoring scheduler started",
		"interval", s.interval,
	)
	for {
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "batch scoring scheduler stopped")
			return
		case <-ticker.C:
			if _, err := s.service.ScoreAll(ctx); err != nil && ctx.Err() == nil {
				s.logger.ErrorContext(ctx, "batch scoring pass failed", "error", err)
			}
		}
	}
}
