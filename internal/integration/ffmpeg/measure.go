package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"

	"github.com/farcloser/primordium/fault"

	"github.com/farcloser/sordino/internal/engine"
	"github.com/farcloser/sordino/internal/integration/binary"
)

// MeasureLoudness runs a loudnorm measurement pass and returns the raw report written on stderr.
// Nothing is rendered: the filtered audio goes to the null muxer.
func (e *Engine) MeasureLoudness(ctx context.Context, path string, target engine.Target) (string, error) {
	slog.Debug("ffmpeg.MeasureLoudness", "path", path, "stage", "start")

	ffmpegPath, err := binary.Require(name)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	//nolint:gosec // path is intentionally user-provided input
	cmd := exec.CommandContext(ctx, ffmpegPath, measureArgs(path, target)...)

	var stderr bytes.Buffer

	cmd.Stderr = &stderr

	if err = cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			slog.Debug("ffmpeg.MeasureLoudness", "path", path, "stage", "timeout")

			return "", fmt.Errorf("%w: after %v", fault.ErrTimeout, e.timeout)
		}

		slog.Debug("ffmpeg.MeasureLoudness", "path", path, "stage", "error")

		return "", fmt.Errorf("%w: %s: %w", fault.ErrCommandFailure, lastLines(stderr.String()), err)
	}

	slog.Debug("ffmpeg.MeasureLoudness", "path", path, "stage", "done")

	return stderr.String(), nil
}

func measureArgs(path string, target engine.Target) []string {
	measure := engine.NewFilter("loudnorm",
		engine.Float("I", target.IntegratedLUFS),
		engine.Float("TP", target.TruePeakDB),
		engine.Float("LRA", target.LoudnessRangeLU),
		engine.Opt("print_format", "json"),
	)

	return []string{
		"-hide_banner",
		"-nostats",
		"-nostdin",
		"-i", path,
		"-af", measure.String(),
		"-f", "null",
		"-",
	}
}
