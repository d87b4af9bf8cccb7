package loudness

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/farcloser/sordino/internal/engine"
	"github.com/farcloser/sordino/internal/profile"
	"github.com/farcloser/sordino/internal/types"
)

// Analyzer measures files through the engine loudness meter.
type Analyzer struct {
	engine  engine.Engine
	catalog *profile.Catalog
}

// NewAnalyzer returns an analyzer.
func NewAnalyzer(eng engine.Engine, catalog *profile.Catalog) *Analyzer {
	return &Analyzer{engine: eng, catalog: catalog}
}

// Analyze measures a file against the message profile target.
func (a *Analyzer) Analyze(ctx context.Context, path string) (types.Measurement, error) {
	return a.Measure(ctx, path, a.catalog.Get(profile.Message))
}

// Measure measures a file. The suggested offset in the result is relative to the profile target.
func (a *Analyzer) Measure(ctx context.Context, path string, target profile.Profile) (types.Measurement, error) {
	slog.Debug("loudness.Measure", "path", path, "profile", target.Key)

	output, err := a.engine.MeasureLoudness(ctx, path, target.Target())
	if err != nil {
		return types.Measurement{}, fmt.Errorf("%w: %s: %w", ErrAnalysisFailed, path, err)
	}

	measurement, err := parseReport(output)
	if err != nil {
		return types.Measurement{}, fmt.Errorf("%s: %w", path, err)
	}

	slog.Debug("loudness.Measure", "path", path,
		"integrated", measurement.IntegratedLUFS,
		"true peak", measurement.TruePeakDB,
		"range", measurement.LoudnessRangeLU,
	)

	return measurement, nil
}
