// Package scheduler triggers the monthly report batch on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"spendbot/internal/log"
)

// Job is the work the scheduler fires.
type Job interface {
	RunPreviousMonth(ctx context.Context) error
}

// Scheduler wraps a cron runner around one job.
type Scheduler struct {
	cron   *cron.Cron
	job    Job
	spec   string
	logger *slog.Logger
}

// New creates a scheduler firing job on the given cron spec in the given
// location.
func New(spec string, location *time.Location, job Job, logger *slog.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:   cron.New(cron.WithLocation(location)),
		job:    job,
		spec:   spec,
		logger: logger,
	}

	if _, err := s.cron.AddFunc(spec, s.run); err != nil {
		return nil, fmt.Errorf("invalid cron spec %q: %w", spec, err)
	}
	return s, nil
}

// Start begins firing jobs in the background.
func (s *Scheduler) Start() {
	s.logger.Info("scheduler started", "spec", s.spec)
	s.cron.Start()
}

// Stop stops scheduling and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) run() {
	start := time.Now()
	if err := s.job.RunPreviousMonth(context.Background()); err != nil {
		s.logger.Error("scheduled batch failed", log.FieldError, err)
		return
	}
	s.logger.Info("scheduled batch completed",
		log.FieldDuration, time.Since(start).Milliseconds())
}
