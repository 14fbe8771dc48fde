package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/go-playground/validator/v10"
	cli "github.com/urfave/cli/v3"

	"github.com/zapline/zapline/pkg/cmd"
	"github.com/zapline/zapline/pkg/pollers/cursor"
	"github.com/zapline/zapline/pkg/pollers/membership"
	"github.com/zapline/zapline/pkg/pollers/rowdiff"
	"github.com/zapline/zapline/pkg/pollers/search"
	"github.com/zapline/zapline/pkg/pollers/timewindow"
)

var validate *validator.Validate

var ErrInvalidTriggers = errors.New("invalid triggers found")

var pollerTypes = []string{
	rowdiff.Name,
	timewindow.Name,
	cursor.Name,
	membership.Name,
	search.Name,
}

func NewValidateCommand() *cli.Command {
	return &cli.Command{
		Name:    "validate",
		Aliases: []string{"v"},
		Usage:   "Validate active trigger configurations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			validate = validator.New(validator.WithRequiredStructEnabled())

			logger := slog.With(
				"module", "zapline-poller",
				"action", "validate",
			)

			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))

			defer func() {
				if err := persistence.Close(ctx); err != nil {
					return
				}
			}()

			_, _ = fmt.Fprintln(os.Stdout, "Trigger Validation Results:")
			_, _ = fmt.Fprintln(os.Stdout, "===========================")

			validTriggers := 0
			invalidTriggers := 0

			for _, pollerType := range pollerTypes {
				triggers, err := persistence.ActiveTriggersByType(ctx, pollerType)
				if err != nil {
					return fmt.Errorf("failed to fetch %s triggers: %w", pollerType, err)
				}

				_, _ = fmt.Fprintf(os.Stdout, "\nPoller: %s (%d active triggers)\n", pollerType, len(triggers))

				for _, trigger := range triggers {
					_, _ = fmt.Fprintf(os.Stdout, "  Trigger: %s (workflow %s)\n", trigger.ID, trigger.WorkflowID)

					err = validate.Struct(trigger)
					if err != nil {
						var validationErrors validator.ValidationErrors
						if errors.As(err, &validationErrors) {
							_, _ = fmt.Fprintf(os.Stdout, "    ❌ INVALID: %v\n", validationErrors)
						} else {
							_, _ = fmt.Fprintf(os.Stdout, "    ❌ INVALID: %v\n", err)
						}
						invalidTriggers++

						continue
					}

					if trigger.ConfigString("url", "") == "" {
						_, _ = fmt.Fprintf(os.Stdout, "    ❌ INVALID: configuration is missing the source url\n")
						invalidTriggers++

						continue
					}

					_, _ = fmt.Fprintf(os.Stdout, "    ✅ VALID\n")
					validTriggers++
				}
			}

			_, _ = fmt.Fprintf(os.Stdout, "\nValidation Summary:\n")
			_, _ = fmt.Fprintf(os.Stdout, "  Total triggers: %d\n", validTriggers+invalidTriggers)
			_, _ = fmt.Fprintf(os.Stdout, "  Valid triggers: %d\n", validTriggers)
			_, _ = fmt.Fprintf(os.Stdout, "  Invalid triggers: %d\n", invalidTriggers)

			if invalidTriggers > 0 {
				return ErrInvalidTriggers
			}

			return nil
		},
	}
}
