//nolint:wrapcheck
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/farcloser/sordino/internal/jingle"
	"github.com/farcloser/sordino/internal/loudness"
	"github.com/farcloser/sordino/internal/output"
	"github.com/farcloser/sordino/internal/profile"
)

var errJingleArgs = errors.New("expected three arguments: voice, music and output files")

func jingleCommand() *cli.Command {
	return &cli.Command{
		Name:      "jingle",
		Usage:     "Lay a voice track over a music bed, then normalize to the jingle profile",
		ArgsUsage: "<voice> <music> <output>",
		Flags: append([]cli.Flag{
			&cli.BoolFlag{Name: "no-normalize", Usage: "Keep the raw mix"},
			&cli.StringFlag{Name: "voice", Usage: "Voice identifier, for per-voice gain trims"},
			formatFlag(),
		}, jingleFlags()...),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() != 3 {
				return fmt.Errorf("%w: got %d", errJingleArgs, cmd.NArg())
			}

			appl, err := newApp(cmd)
			if err != nil {
				return err
			}

			voicePath, musicPath, outputPath := cmd.Args().Get(0), cmd.Args().Get(1), cmd.Args().Get(2)
			cfg := jingleConfig(appl.cfg.Jingle, cmd)

			if cmd.Bool("no-normalize") {
				timeline, err := jingle.Mix(ctx, appl.engine, voicePath, musicPath, outputPath, cfg)
				if err != nil {
					return err
				}

				return outputResult(outputPath, output.TimelineToMap(timeline), cmd.String("format"))
			}

			mixPath := filepath.Join(filepath.Dir(outputPath), "."+filepath.Base(outputPath)+".mix"+filepath.Ext(outputPath))
			defer func() {
				if err := os.Remove(mixPath); err != nil && !errors.Is(err, os.ErrNotExist) {
					slog.Warn("failed to remove intermediate mix", "path", mixPath, "error", err)
				}
			}()

			timeline, err := jingle.Mix(ctx, appl.engine, voicePath, musicPath, mixPath, cfg)
			if err != nil {
				return err
			}

			result, err := appl.normalizer().Normalize(ctx, loudness.Request{
				Input:   mixPath,
				Output:  outputPath,
				Profile: profile.Jingle,
				Voice:   cmd.String("voice"),
			})
			if err != nil {
				return err
			}

			meta := output.NormalizationToMap(result)
			meta["timeline"] = output.TimelineToMap(timeline)

			return outputResult(outputPath, meta, cmd.String("format"))
		},
	}
}
