//nolint:wrapcheck
package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/farcloser/sordino/internal/loudness"
	"github.com/farcloser/sordino/internal/output"
	"github.com/farcloser/sordino/internal/profile"
)

var errNormalizeArgs = errors.New("expected an input file, and optionally an output file")

func normalizeCommand() *cli.Command {
	return &cli.Command{
		Name:      "normalize",
		Usage:     "Normalize a file to a loudness profile",
		ArgsUsage: "<input> [output]",
		Flags: []cli.Flag{
			profileFlag(),
			&cli.StringFlag{
				Name:  "category",
				Usage: "Content category, mapped to a profile when --profile is not set",
			},
			&cli.StringFlag{
				Name:  "voice",
				Usage: "Voice identifier, for per-voice gain trims",
			},
			&cli.BoolFlag{
				Name:  "music",
				Usage: "Content carries music",
			},
			&cli.BoolFlag{
				Name:  "urgent",
				Usage: "Content is urgent",
			},
			&cli.BoolFlag{
				Name:  "single-pass",
				Usage: "Skip the measuring pass. Faster, less accurate",
			},
			formatFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() < 1 || cmd.NArg() > 2 {
				return fmt.Errorf("%w: got %d", errNormalizeArgs, cmd.NArg())
			}

			if err := checkProfile(cmd.String("profile")); err != nil {
				return err
			}

			appl, err := newApp(cmd)
			if err != nil {
				return err
			}

			input := cmd.Args().Get(0)

			outputPath := cmd.Args().Get(1)
			if outputPath == "" {
				outputPath = normalizedPath(input)
			}

			hints := profile.Context{
				Profile:  cmd.String("profile"),
				Category: cmd.String("category"),
				HasMusic: cmd.Bool("music"),
				Urgent:   cmd.Bool("urgent"),
			}

			if info, probeErr := appl.engine.Probe(ctx, input); probeErr == nil {
				hints.DurationSeconds = info.DurationSec
			}

			req := loudness.Request{
				Input:   input,
				Output:  outputPath,
				Profile: appl.catalog.AutoDetect(hints).Key,
				Voice:   cmd.String("voice"),
			}

			normalize := appl.normalizer().Normalize
			if cmd.Bool("single-pass") {
				normalize = appl.normalizer().NormalizeSinglePass
			}

			result, err := normalize(ctx, req)
			if err != nil {
				return err
			}

			return outputResult(input, output.NormalizationToMap(result), cmd.String("format"))
		},
	}
}

func normalizedPath(input string) string {
	ext := filepath.Ext(input)

	return strings.TrimSuffix(input, ext) + "-normalized" + ext
}
