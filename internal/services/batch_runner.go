package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"spendbot/internal/core"
	"spendbot/internal/log"
	"spendbot/internal/storage"
)

// UserLister enumerates users with activity in a period.
type UserLister interface {
	ActiveUsers(ctx context.Context, year, month int) ([]storage.User, error)
}

// BatchRunner builds reports for every active user of a period. One user's
// failure never stops the batch.
type BatchRunner struct {
	repo        UserLister
	reports     *ReportService
	concurrency int
	logger      *slog.Logger
	now         func() time.Time
}

// NewBatchRunner creates a runner delivering through reports with at most
// concurrency users in flight.
func NewBatchRunner(repo UserLister, reports *ReportService, concurrency int, logger *slog.Logger) *BatchRunner {
	if concurrency < 1 {
		concurrency = 1
	}
	return &BatchRunner{
		repo:        repo,
		reports:     reports,
		concurrency: concurrency,
		logger:      logger,
		now:         time.Now,
	}
}

// RunPreviousMonth reports on the month that just closed.
func (r *BatchRunner) RunPreviousMonth(ctx context.Context) error {
	now := r.now()
	year, month := core.PreviousPeriod(now.Year(), int(now.Month()))
	return r.Run(ctx, year, month)
}

// Run builds and delivers reports for all users active in the given period.
// It returns an error only when the user list cannot be loaded or ctx is
// canceled; per-user failures are logged and counted.
func (r *BatchRunner) Run(ctx context.Context, year, month int) error {
	users, err := r.repo.ActiveUsers(ctx, year, month)
	if err != nil {
		return fmt.Errorf("load active users: %w", err)
	}

	r.logger.Info("batch started",
		log.FieldYear, year,
		log.FieldMonth, month,
		"users", len(users))

	var failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for _, user := range users {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := r.reports.BuildAndDeliver(gctx, user.ChatID, year, month); err != nil {
				failed.Add(1)
				r.logger.Error("batch report failed",
					log.FieldUserID, user.ChatID,
					log.FieldError, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	r.logger.Info("batch finished",
		log.FieldYear, year,
		log.FieldMonth, month,
		"users", len(users),
		"failed", failed.Load())
	return nil
}
