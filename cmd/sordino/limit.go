//nolint:wrapcheck
package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/farcloser/sordino/internal/output"
)

const defaultIdentifier = "default"

var errMissingService = errors.New("expected a service name")

func limitCommand() *cli.Command {
	return &cli.Command{
		Name:      "limit",
		Usage:     "Check and record one call against a service rate limit",
		ArgsUsage: "<service> [identifier]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "reset", Usage: "Clear the window instead of checking it"},
			formatFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() < 1 || cmd.NArg() > 2 {
				return errMissingService
			}

			appl, err := newApp(cmd)
			if err != nil {
				return err
			}

			st, err := appl.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			service := cmd.Args().First()
			limiter := appl.limiter(st)

			identifier := cmd.Args().Get(1)
			if identifier == "" {
				identifier = defaultIdentifier
			}

			if cmd.Bool("reset") {
				if err := limiter.Reset(ctx, service, identifier); err != nil {
					return err
				}

				return outputResult(service, map[string]any{"reset": true}, cmd.String("format"))
			}

			decision, err := limiter.Check(ctx, service, identifier)
			if err != nil {
				slog.Warn("rate limit store unavailable, allowing", "service", service, "error", err)
			}

			return outputResult(service, output.RateDecisionToMap(decision), cmd.String("format"))
		},
	}
}
