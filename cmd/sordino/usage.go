//nolint:wrapcheck
package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/farcloser/sordino/internal/output"
	"github.com/farcloser/sordino/internal/ratelimit"
)

func usageCommand() *cli.Command {
	return &cli.Command{
		Name:      "usage",
		Usage:     "Show, or add to, the monthly character usage of a service",
		ArgsUsage: "<service>",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "add", Usage: "Characters to record before reporting"},
			formatFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() != 1 {
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

			var usage ratelimit.Usage
			if cmd.IsSet("add") {
				usage, err = limiter.TrackCharacters(ctx, service, int64(cmd.Int("add")))
			} else {
				usage, err = limiter.CharacterUsage(ctx, service)
			}

			if err != nil {
				return err
			}

			return outputResult(service, output.UsageToMap(usage), cmd.String("format"))
		},
	}
}
