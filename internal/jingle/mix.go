package jingle

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/farcloser/sordino/internal/engine"
)

// Mix probes the voice track, lays out the timeline and renders the mix.
// The configuration is checked before the render is issued.
func Mix(ctx context.Context, eng engine.Engine, voicePath, musicPath, output string, cfg Config) (*Timeline, error) {
	info, err := eng.Probe(ctx, voicePath)
	if err != nil {
		return nil, fmt.Errorf("probing voice track %s: %w", voicePath, err)
	}

	timeline, err := Build(info.DurationSec, cfg)
	if err != nil {
		return nil, err
	}

	slog.Debug("jingle.Mix", "voice", voicePath, "music", musicPath,
		"total", timeline.TotalDurationSec, "ducking", timeline.DuckingEnabled)

	err = engine.RenderAtomic(ctx, eng, engine.RenderJob{
		Inputs: []string{voicePath, musicPath},
		Graph:  Graph(*timeline),
		Output: output,
	})
	if err != nil {
		return nil, fmt.Errorf("rendering jingle %s: %w", output, err)
	}

	return timeline, nil
}
