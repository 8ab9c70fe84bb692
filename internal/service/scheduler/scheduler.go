package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/oshokin/help-alert/internal/config"
	"github.com/oshokin/help-alert/internal/logger"
)

// SweepSchedule is how often open alerts are checked against the maximum age.
const SweepSchedule = "@every 1m"

// Resetter is the part of the alert service the scheduler drives.
type Resetter interface {
	Reset(ctx context.Context)
	ResetIfOpenLongerThan(ctx context.Context, maxOpen time.Duration) bool
}

// Scheduler runs the periodic reset jobs.
type Scheduler struct {
	// engine runs the jobs.
	engine *cron.Cron
	// resetter is the alert service.
	resetter Resetter
	// resetSchedule is a cron expression; empty disables the scheduled reset.
	resetSchedule string
	// maxOpen is the age after which an open alert is reset; zero disables the sweep.
	maxOpen time.Duration
}

// New creates a Scheduler in the local time zone.
func New(resetter Resetter, settings config.Alert) *Scheduler {
	return &Scheduler{
		engine:        cron.New(cron.WithLocation(time.Local)),
		resetter:      resetter,
		resetSchedule: settings.ResetSchedule,
		maxOpen:       settings.MaxOpen,
	}
}

// Run registers the jobs and blocks until ctx is cancelled, then waits for
// running jobs to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	ctx = logger.WithName(ctx, "scheduler")

	jobs, err := s.register(ctx)
	if err != nil {
		return err
	}

	if jobs == 0 {
		logger.Debug(ctx, "No scheduled jobs configured")
		<-ctx.Done()

		return nil
	}

	s.engine.Start()
	logger.InfoKV(ctx, "Scheduler started", "reset_schedule", s.resetSchedule, "max_open", s.maxOpen)

	<-ctx.Done()

	<-s.engine.Stop().Done()
	logger.Info(ctx, "Scheduler stopped")

	return nil
}

// ScheduledReset is the cron job body for the reset schedule.
func (s *Scheduler) ScheduledReset(ctx context.Context) {
	logger.Info(ctx, "Scheduled reset triggered")
	s.resetter.Reset(ctx)
}

// Sweep resets the alert if it stayed open longer than the configured maximum.
func (s *Scheduler) Sweep(ctx context.Context) bool {
	if s.maxOpen <= 0 {
		return false
	}

	return s.resetter.ResetIfOpenLongerThan(ctx, s.maxOpen)
}

// register adds the configured jobs and returns how many were added.
func (s *Scheduler) register(ctx context.Context) (int, error) {
	jobs := 0

	if s.resetSchedule != "" {
		if _, err := s.engine.AddFunc(s.resetSchedule, func() { s.ScheduledReset(ctx) }); err != nil {
			return 0, fmt.Errorf("add reset job %q: %w", s.resetSchedule, err)
		}

		jobs++
	}

	if s.maxOpen > 0 {
		if _, err := s.engine.AddFunc(SweepSchedule, func() { s.Sweep(ctx) }); err != nil {
			return 0, fmt.Errorf("add sweep job: %w", err)
		}

		jobs++
	}

	return jobs, nil
}
