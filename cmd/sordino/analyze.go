//nolint:wrapcheck
package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/farcloser/sordino/internal/output"
	"github.com/farcloser/sordino/internal/profile"
)

var (
	errInvalidArgCount = errors.New("expected exactly one argument: file path")
	errUnknownProfile  = errors.New("unknown profile")
)

func profileFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "profile",
		Aliases: []string{"p"},
		Usage:   "Loudness profile: message, jingle, emergency, announcement, background, podcast",
	}
}

// checkProfile rejects a --profile value the catalog would silently map to message.
func checkProfile(name string) error {
	if name == "" {
		return nil
	}

	if _, ok := profile.ParseKey(name); !ok {
		return fmt.Errorf("%w: %q", errUnknownProfile, name)
	}

	return nil
}

func analyzeCommand() *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Usage:     "Measure loudness and check it against a profile",
		ArgsUsage: "<file>",
		Flags:     []cli.Flag{profileFlag(), formatFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() != 1 {
				return fmt.Errorf("%w: got %d", errInvalidArgCount, cmd.NArg())
			}

			if err := checkProfile(cmd.String("profile")); err != nil {
				return err
			}

			appl, err := newApp(cmd)
			if err != nil {
				return err
			}

			path := cmd.Args().First()
			target := appl.catalog.Lookup(cmd.String("profile"))

			measurement, err := appl.analyzer().Measure(ctx, path, target)
			if err != nil {
				return err
			}

			meta := output.MeasurementToMap(measurement)
			meta["validation"] = output.ValidationToMap(appl.catalog.Validate(measurement, target.Key))
			meta["recommendations"] = output.AdjustmentsToList(appl.catalog.Recommend(measurement, target.Key))

			return outputResult(path, meta, cmd.String("format"))
		},
	}
}
