// Package scheduler runs the ledger's periodic jobs on a cron schedule.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// MaturityMarker flags contracts whose maturity date has arrived.
type MaturityMarker interface {
	MarkMaturedContracts(ctx context.Context) (int, error)
}

// Scheduler manages the cron jobs.
type Scheduler struct {
	cron     *cron.Cron
	marker   MaturityMarker
	logger   *slog.Logger
	schedule string
	timeout  time.Duration
}

// NewScheduler creates a scheduler evaluating schedule in loc. An empty
// schedule leaves the maturity sweep unscheduled.
func NewScheduler(marker MaturityMarker, logger *slog.Logger, schedule string, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))
	c := cron.New(cron.WithLocation(loc), cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)))

	return &Scheduler{
		cron:     c,
		marker:   marker,
		logger:   logger,
		schedule: schedule,
		timeout:  5 * time.Minute,
	}
}

// Start registers the jobs and starts the cron scheduler.
func (s *Scheduler) Start() error {
	if s.schedule == "" {
		s.logger.Info("maturity sweep disabled")
		return nil
	}
	if _, err := s.cron.AddFunc(s.schedule, s.SweepMaturedContracts); err != nil {
		s.logger.Error("failed to schedule maturity sweep", "schedule", s.schedule, "error", err)
		return err
	}
	s.logger.Info("scheduled maturity sweep", "schedule", s.schedule)

	s.cron.Start()
	return nil
}

// Stop gracefully stops the cron scheduler.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// SweepMaturedContracts runs one maturity sweep.
func (s *Scheduler) SweepMaturedContracts() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	started := time.Now()
	marked, err := s.marker.MarkMaturedContracts(ctx)
	if err != nil {
		s.logger.Error("maturity sweep finished with errors", "marked", marked, "error", err)
		return
	}
	s.logger.Info("maturity sweep finished", "marked", marked, "elapsed", time.Since(started))
}
