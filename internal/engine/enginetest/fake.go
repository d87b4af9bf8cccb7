// Package enginetest provides an in-memory audio engine for tests.
package enginetest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/farcloser/primordium/fault"

	"github.com/farcloser/sordino/internal/engine"
	"github.com/farcloser/sordino/internal/types"
)

var errUnknownFile = errors.New("no canned data for file")

// Report formats a loudness report block the way the engine prints it.
func Report(measurement types.Measurement) string {
	return fmt.Sprintf(`[Parsed_loudnorm_0 @ 0x5581] 
{
	"input_i" : "%.2f",
	"input_tp" : "%.2f",
	"input_lra" : "%.2f",
	"input_thresh" : "%.2f",
	"output_i" : "-16.00",
	"output_tp" : "-1.50",
	"output_lra" : "7.00",
	"output_thresh" : "-26.00",
	"normalization_type" : "dynamic",
	"target_offset" : "%.2f"
}
`, measurement.IntegratedLUFS, measurement.TruePeakDB, measurement.LoudnessRangeLU,
		measurement.ThresholdLUFS, measurement.OffsetLU)
}

// Engine is a scripted engine. Reports are keyed by path; renders write a small placeholder file.
type Engine struct {
	mu sync.Mutex

	Reports     map[string]string
	Infos       map[string]*types.AudioInfo
	RenderErr   error
	MeasureErr  error
	Renders     []engine.RenderJob
	Measures    []string
	Targets     []engine.Target
	AfterRender func(job engine.RenderJob)
}

// New returns an empty fake engine.
func New() *Engine {
	return &Engine{
		Reports: map[string]string{},
		Infos:   map[string]*types.AudioInfo{},
	}
}

// SetMeasurement scripts the report returned for a path.
func (e *Engine) SetMeasurement(path string, measurement types.Measurement) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.Reports[path] = Report(measurement)
}

// MeasureLoudness implements engine.Engine.
func (e *Engine) MeasureLoudness(_ context.Context, path string, target engine.Target) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.Measures = append(e.Measures, path)
	e.Targets = append(e.Targets, target)

	if e.MeasureErr != nil {
		return "", e.MeasureErr
	}

	report, ok := e.Reports[path]
	if !ok {
		return "", fmt.Errorf("%w: %w: %s", fault.ErrCommandFailure, errUnknownFile, path)
	}

	return report, nil
}

// Render implements engine.Engine.
func (e *Engine) Render(_ context.Context, job engine.RenderJob) error {
	e.mu.Lock()
	e.Renders = append(e.Renders, job)
	renderErr := e.RenderErr
	after := e.AfterRender
	e.mu.Unlock()

	if renderErr != nil {
		// Simulate a process dying halfway through its output.
		_ = os.WriteFile(job.Output, []byte("partial"), 0o600)

		return renderErr
	}

	if err := os.WriteFile(job.Output, []byte("rendered"), 0o600); err != nil {
		return fmt.Errorf("%w: %w", fault.ErrCommandFailure, err)
	}

	if after != nil {
		after(job)
	}

	return nil
}

// Probe implements engine.Engine.
func (e *Engine) Probe(_ context.Context, path string) (*types.AudioInfo, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	info, ok := e.Infos[path]
	if !ok {
		return nil, fmt.Errorf("%w: %w: %s", fault.ErrCommandFailure, errUnknownFile, path)
	}

	return info, nil
}
