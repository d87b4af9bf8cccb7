//nolint:wrapcheck
package main

import (
	"context"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/farcloser/sordino/internal/breaker"
	"github.com/farcloser/sordino/internal/output"
)

type breakerAction func(ctx context.Context, circuit *breaker.Breaker, service string, cmd *cli.Command) (breaker.Decision, error)

func breakerCommand() *cli.Command {
	return &cli.Command{
		Name:  "breaker",
		Usage: "Inspect or drive the circuit of a service",
		Commands: []*cli.Command{
			breakerSubcommand("status", "Show the circuit state, without reserving a probe", nil,
				func(ctx context.Context, circuit *breaker.Breaker, service string, _ *cli.Command) (breaker.Decision, error) {
					return circuit.Check(ctx, service)
				}),
			breakerSubcommand("fail", "Record a failed call",
				[]cli.Flag{&cli.StringFlag{Name: "reason", Usage: "Failure description", Value: "manual"}},
				func(ctx context.Context, circuit *breaker.Breaker, service string, cmd *cli.Command) (breaker.Decision, error) {
					return circuit.RecordFailure(ctx, service, cmd.String("reason"))
				}),
			breakerSubcommand("succeed", "Record a successful call, closing the circuit", nil,
				func(ctx context.Context, circuit *breaker.Breaker, service string, _ *cli.Command) (breaker.Decision, error) {
					return circuit.RecordSuccess(ctx, service)
				}),
			breakerSubcommand("reset", "Forget the circuit state", nil,
				func(ctx context.Context, circuit *breaker.Breaker, service string, _ *cli.Command) (breaker.Decision, error) {
					if err := circuit.Reset(ctx, service); err != nil {
						return breaker.Decision{Service: service}, err
					}

					return circuit.Check(ctx, service)
				}),
		},
	}
}

func breakerSubcommand(name, usage string, flags []cli.Flag, action breakerAction) *cli.Command {
	return &cli.Command{
		Name:      name,
		Usage:     usage,
		ArgsUsage: "<service>",
		Flags:     append(flags, formatFlag()),
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

			decision, err := action(ctx, appl.breaker(st), service, cmd)
			if err != nil {
				slog.Warn("circuit store unavailable", "service", service, "error", err)
			}

			return outputResult(service, output.CircuitDecisionToMap(decision), cmd.String("format"))
		},
	}
}
