// Package main provides the Zapline poller service: scheduled source
// polling plus an admin HTTP surface for health and ad-hoc invocation.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v3"
	cli "github.com/urfave/cli/v3"

	"github.com/zapline/zapline/pkg/cmd"
	"github.com/zapline/zapline/pkg/fingerprint"
	"github.com/zapline/zapline/pkg/persistence"
	"github.com/zapline/zapline/pkg/pollers"
	"github.com/zapline/zapline/pkg/pollers/cursor"
	"github.com/zapline/zapline/pkg/pollers/membership"
	"github.com/zapline/zapline/pkg/pollers/rowdiff"
	"github.com/zapline/zapline/pkg/pollers/search"
	"github.com/zapline/zapline/pkg/pollers/timewindow"
	"github.com/zapline/zapline/pkg/sources/httpsource"
	"github.com/zapline/zapline/pkg/sources/oauth"
	"github.com/zapline/zapline/pkg/web"
)

type PollerService struct {
	logger       *slog.Logger
	store        persistence.Persistence
	fingerprints fingerprint.Store
	orchestrator *pollers.Orchestrator
	scheduler    *pollers.Scheduler
	app          *fiber.App
}

func NewPollerService(ctx context.Context, logger *slog.Logger, command *cli.Command) (*PollerService, error) {
	store := cmd.NewPersistence(ctx, logger, command.String("database-url"))
	fingerprints := cmd.NewFingerprintStore(ctx, command.String("fingerprint-url"))

	client := httpsource.NewClient()
	refresher := oauth.NewRefresher(command.String("token-url"))

	orchestrator, err := pollers.NewOrchestrator(logger,
		rowdiff.NewPoller(logger, store, fingerprints, refresher, httpsource.NewSheetSource(client)),
		timewindow.NewPoller(logger, store, fingerprints, refresher, httpsource.NewWindowSource(client)),
		cursor.NewPoller(logger, store, fingerprints, refresher, httpsource.NewDeltaSource(client)),
		membership.NewPoller(logger, store, fingerprints, refresher, httpsource.NewMemberSource(client)),
		search.NewPoller(logger, store, fingerprints, refresher, httpsource.NewSearchSource(client)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build poller orchestrator: %w", err)
	}

	return &PollerService{
		logger:       logger,
		store:        store,
		fingerprints: fingerprints,
		orchestrator: orchestrator,
		scheduler:    pollers.NewScheduler(logger, orchestrator),
		app:          web.NewApp(store, orchestrator),
	}, nil
}

// Run serves the admin API and the poll schedule until ctx is cancelled.
func (s *PollerService) Run(ctx context.Context, schedule string, port int) error {
	errs := make(chan error, 2)

	go func() {
		errs <- s.app.Listen(":" + strconv.Itoa(port))
	}()

	go func() {
		errs <- s.scheduler.Start(ctx, schedule)
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
		err := s.app.Shutdown()
		if err != nil {
			s.logger.ErrorContext(ctx, "Failed to shut down admin server", "error", err)
		}

		return nil
	}
}

func (s *PollerService) Close(ctx context.Context) {
	err := s.fingerprints.Close()
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to close fingerprint store", "error", err)
	}

	err = s.store.Close(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
	}
}
