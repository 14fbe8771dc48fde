package pollers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// DefaultSchedule polls every minute.
const DefaultSchedule = "* * * * *"

// Scheduler drives the orchestrator on a cron cadence. SkipIfStillRunning
// keeps a slow cycle from piling up behind itself; the per-trigger guard
// inside each poller covers ad-hoc invocations racing the schedule.
type Scheduler struct {
	logger       *slog.Logger
	orchestrator *Orchestrator
	cron         *cron.Cron
}

func NewScheduler(logger *slog.Logger, orchestrator *Orchestrator) *Scheduler {
	return &Scheduler{
		logger:       logger.With("module", "poller_scheduler"),
		orchestrator: orchestrator,
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cron.DefaultLogger),
			cron.Recover(cron.DefaultLogger),
		)),
	}
}

// Start schedules PollAll with the given cron expression and runs until the
// context is cancelled.
func (s *Scheduler) Start(ctx context.Context, schedule string) error {
	_, err := s.cron.AddFunc(schedule, func() {
		s.orchestrator.PollAll(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule poll cycle: %w", err)
	}

	s.logger.InfoContext(ctx, "Starting poll schedule",
		"schedule", schedule, "pollers", s.orchestrator.Names())

	s.cron.Start()

	<-ctx.Done()

	stopCtx := s.cron.Stop()
	<-stopCtx.Done()

	s.logger.InfoContext(ctx, "Poll schedule stopped")

	return ctx.Err()
}
