package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	cli "github.com/urfave/cli/v3"

	"github.com/zapline/zapline/pkg/log"
	"github.com/zapline/zapline/pkg/pollers"
)

const defaultPort = 8081

func main() {
	logger := log.WithModule("zapline-poller")

	command := &cli.Command{
		Name:                  "zapline-poller",
		Usage:                 "Poll external sources and create workflow runs",
		EnableShellCompletion: true,
		Commands: []*cli.Command{
			NewValidateCommand(),
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:     "fingerprint-url",
				Usage:    "Fingerprint store URL (redis:// or memory://)",
				Required: true,
				Sources:  cli.EnvVars("FINGERPRINT_URL"),
			},
			&cli.StringFlag{
				Name:    "token-url",
				Usage:   "OAuth token endpoint used to refresh trigger credentials",
				Sources: cli.EnvVars("TOKEN_URL"),
			},
			&cli.StringFlag{
				Name:    "schedule",
				Usage:   "Cron expression for the poll cycle",
				Value:   pollers.DefaultSchedule,
				Sources: cli.EnvVars("POLL_SCHEDULE"),
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port for the admin HTTP server",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			logger.InfoContext(ctx, "Initializing Zapline Poller")

			service, err := NewPollerService(ctx, logger, command)
			if err != nil {
				return err
			}
			defer service.Close(ctx)

			return service.Run(ctx, command.String("schedule"), command.Int("port"))
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
