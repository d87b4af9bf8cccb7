// Package engine describes the contract with the external audio toolkit.
// Nothing in here spawns processes: implementations live under internal/integration.
package engine

import (
	"context"

	"github.com/farcloser/sordino/internal/types"
)

// Target is the loudness target handed to the engine loudness meter.
// The engine-suggested offset it reports back is relative to this target.
type Target struct {
	IntegratedLUFS  float64
	TruePeakDB      float64
	LoudnessRangeLU float64
}

// RenderJob describes a single render invocation.
// Inputs are referenced positionally by the graph (first input is "0:a").
type RenderJob struct {
	Inputs []string
	Graph  Graph
	Output string
}

// Engine is the audio toolkit collaborator.
type Engine interface {
	// MeasureLoudness returns the raw textual report of a loudness measurement pass.
	MeasureLoudness(ctx context.Context, path string, target Target) (string, error)
	// Render executes the filter graph and writes the output file.
	Render(ctx context.Context, job RenderJob) error
	// Probe returns container and stream properties of a file.
	Probe(ctx context.Context, path string) (*types.AudioInfo, error)
}
