package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/farcloser/primordium/fault"

	"github.com/farcloser/sordino/internal/engine"
	"github.com/farcloser/sordino/internal/integration/binary"
)

var errNoInput = errors.New("render job has no input")

// Render executes a render job.
// Once started, a render is not cancellable by the caller: it runs to completion or until the engine timeout.
func (e *Engine) Render(ctx context.Context, job engine.RenderJob) error {
	slog.Debug("ffmpeg.Render", "output", job.Output, "stage", "start")

	if len(job.Inputs) == 0 {
		return errNoInput
	}

	if err := job.Graph.Validate(); err != nil {
		return err //nolint:wrapcheck // sentinel from our own package
	}

	ffmpegPath, err := binary.Require(name)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.timeout)
	defer cancel()

	//nolint:gosec // inputs and outputs are intentionally user-provided
	cmd := exec.CommandContext(ctx, ffmpegPath, renderArgs(job)...)

	var stderr bytes.Buffer

	cmd.Stderr = &stderr

	if err = cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			slog.Debug("ffmpeg.Render", "output", job.Output, "stage", "timeout")

			return fmt.Errorf("%w: after %v", fault.ErrTimeout, e.timeout)
		}

		slog.Debug("ffmpeg.Render", "output", job.Output, "stage", "error")

		return fmt.Errorf("%w: %s: %w", fault.ErrCommandFailure, lastLines(stderr.String()), err)
	}

	slog.Debug("ffmpeg.Render", "output", job.Output, "stage", "done")

	return nil
}

// renderArgs is the single place where a graph is turned into engine arguments.
func renderArgs(job engine.RenderJob) []string {
	args := []string{"-hide_banner", "-nostats", "-nostdin", "-y"}

	for _, input := range job.Inputs {
		args = append(args, "-i", input)
	}

	if job.Graph.IsSimple() {
		args = append(args, "-af", job.Graph.String())
	} else {
		args = append(args, "-filter_complex", job.Graph.String())
		if out := job.Graph.Output(); out != "" {
			args = append(args, "-map", "["+out+"]")
		}
	}

	args = append(args, "-c:a", codecFor(job.Output))

	return append(args, job.Output)
}

// lastLines keeps the tail of a noisy ffmpeg stderr for error messages.
func lastLines(stderr string) string {
	const keep = 5

	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	if len(lines) > keep {
		lines = lines[len(lines)-keep:]
	}

	return strings.Join(lines, " | ")
}
