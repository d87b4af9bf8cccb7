// Package provider runs external synthesis commands.
package provider

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/farcloser/primordium/fault"

	"github.com/farcloser/sordino/internal/integration/binary"
)

const defaultTimeout = 2 * time.Minute

// Placeholders substituted in command arguments.
const (
	PlaceholderText   = "{text}"
	PlaceholderVoice  = "{voice}"
	PlaceholderOutput = "{output}"
)

var (
	errEmptyCommand  = errors.New("provider command is empty")
	errMissingOutput = errors.New("provider command did not produce audio")
)

// Command synthesizes audio by running an argv template.
type Command struct {
	service string
	argv    []string
	timeout time.Duration
}

// NewCommand returns a provider for service running argv.
// The program is resolved on first use, not here.
func NewCommand(service string, argv []string, timeout time.Duration) (*Command, error) {
	if len(argv) == 0 || argv[0] == "" {
		return nil, fmt.Errorf("%w: %s", errEmptyCommand, service)
	}

	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Command{service: service, argv: append([]string(nil), argv...), timeout: timeout}, nil
}

// Synthesize runs the command and checks it wrote a non-empty file at output.
func (c *Command) Synthesize(ctx context.Context, text, voice, output string) error {
	slog.Debug("provider.Synthesize", "service", c.service, "voice", voice, "stage", "start")

	program, err := binary.Require(c.argv[0])
	if err != nil {
		return err //nolint:wrapcheck // already wrapped
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	//nolint:gosec // the command line comes from the operator configuration
	cmd := exec.CommandContext(ctx, program, expand(c.argv[1:], text, voice, output)...)

	var stderr bytes.Buffer

	cmd.Stderr = &stderr

	if err = cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: %s after %v", fault.ErrTimeout, c.service, c.timeout)
		}

		return fmt.Errorf("%w: %s: %s: %w", fault.ErrCommandFailure, c.service, strings.TrimSpace(stderr.String()), err)
	}

	info, err := os.Stat(output)
	if err != nil || info.Size() == 0 {
		return fmt.Errorf("%w: %s: %s", errMissingOutput, c.service, output)
	}

	slog.Debug("provider.Synthesize", "service", c.service, "output", output, "stage", "done")

	return nil
}

// expand substitutes placeholders in a single pass, so text containing a placeholder is left alone.
func expand(args []string, text, voice, output string) []string {
	replacer := strings.NewReplacer(
		PlaceholderText, text,
		PlaceholderVoice, voice,
		PlaceholderOutput, output,
	)

	expanded := make([]string, len(args))
	for i, arg := range args {
		expanded[i] = replacer.Replace(arg)
	}

	return expanded
}
