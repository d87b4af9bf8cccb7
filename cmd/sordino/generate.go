//nolint:wrapcheck
package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/farcloser/sordino"
	"github.com/farcloser/sordino/internal/output"
	"github.com/farcloser/sordino/internal/provider"
)

var errGenerateArgs = errors.New("expected three arguments: service, text and output file")

func generateCommand() *cli.Command {
	return &cli.Command{
		Name:      "generate",
		Usage:     "Synthesize text through a guarded service and normalize the result",
		ArgsUsage: "<service> <text> <output>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "voice", Usage: "Voice identifier passed to the service"},
			&cli.StringFlag{
				Name:    "identifier",
				Aliases: []string{"i"},
				Usage:   "Caller the call is made for",
				Value:   defaultIdentifier,
			},
			profileFlag(),
			&cli.StringFlag{Name: "category", Usage: "Content category"},
			&cli.BoolFlag{Name: "music", Usage: "Content carries music"},
			&cli.BoolFlag{Name: "urgent", Usage: "Content is urgent"},
			formatFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() != 3 {
				return fmt.Errorf("%w: got %d", errGenerateArgs, cmd.NArg())
			}

			appl, err := newApp(cmd)
			if err != nil {
				return err
			}

			service := cmd.Args().Get(0)

			synth, err := provider.NewCommand(service, appl.cfg.Service(service).Command, appl.engine.Timeout())
			if err != nil {
				return err
			}

			st, err := appl.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			orchestrator, err := sordino.NewOrchestrator(sordino.Components{
				Provider:   synth,
				Engine:     appl.engine,
				Catalog:    appl.catalog,
				Normalizer: appl.normalizer(),
				Breaker:    appl.breaker(st),
				Limiter:    appl.limiter(st),
			})
			if err != nil {
				return err
			}

			result, err := orchestrator.Generate(ctx, sordino.Request{
				Service:    service,
				Identifier: cmd.String("identifier"),
				Text:       cmd.Args().Get(1),
				Voice:      cmd.String("voice"),
				Output:     cmd.Args().Get(2),
				Profile:    cmd.String("profile"),
				Category:   cmd.String("category"),
				HasMusic:   cmd.Bool("music"),
				Urgent:     cmd.Bool("urgent"),
			})
			if err != nil {
				return err
			}

			return outputResult(service, output.GenerationToMap(result), cmd.String("format"))
		},
	}
}
