package loudness

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/farcloser/sordino/internal/engine"
	"github.com/farcloser/sordino/internal/profile"
	"github.com/farcloser/sordino/internal/types"
)

const (
	defaultToleranceLU = 2.0
	// Single pass cannot see the material, so it uses conservative fixed peak and range targets.
	singlePassTruePeakDB = -2.0
	singlePassRangeLU    = 11.0
)

// Mode tells apart the accuracy guarantees of a result.
type Mode int

const (
	// ModeTwoPass is measured, linear normalization, accurate to about 1 LU.
	ModeTwoPass Mode = iota
	// ModeSinglePass is blind normalization. It can miss the target by several LU on loud material.
	ModeSinglePass
)

func (m Mode) String() string {
	switch m {
	case ModeTwoPass:
		return "two-pass"
	case ModeSinglePass:
		return "single-pass"
	}

	return "unknown"
}

// Options configures a Normalizer.
type Options struct {
	// VoiceAdjustments are fixed per-voice trims in dB, added to the engine-suggested offset.
	VoiceAdjustments map[string]float64
	// VoiceAdjustmentScale scales every voice trim. Nil means 1; zero turns trims off.
	VoiceAdjustmentScale *float64
	// ToleranceLU is the accepted deviation of the output from the target. Zero means 2 LU.
	ToleranceLU float64
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// Request describes one normalization.
type Request struct {
	Input   string
	Output  string
	Profile profile.Key
	Voice   string
}

// Result of a normalization. Before is nil for single pass results.
type Result struct {
	Mode              Mode
	Profile           profile.Profile
	Before            *types.Measurement
	After             types.Measurement
	VoiceAdjustmentDB float64
	AppliedOffsetLU   float64
	DeviationLU       float64
	WithinTolerance   bool
	ProcessingTime    time.Duration
	OutputPath        string
	Recommendations   []profile.Adjustment
}

// Normalizer brings files to a profile target.
type Normalizer struct {
	engine     engine.Engine
	analyzer   *Analyzer
	catalog    *profile.Catalog
	opts       Options
	voiceScale float64
}

// NewNormalizer returns a normalizer.
func NewNormalizer(eng engine.Engine, analyzer *Analyzer, catalog *profile.Catalog, opts Options) *Normalizer {
	voiceScale := 1.0
	if opts.VoiceAdjustmentScale != nil {
		voiceScale = *opts.VoiceAdjustmentScale
	}

	if opts.ToleranceLU <= 0 {
		opts.ToleranceLU = defaultToleranceLU
	}

	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	return &Normalizer{engine: eng, analyzer: analyzer, catalog: catalog, opts: opts, voiceScale: voiceScale}
}

// VoiceAdjustment returns the scaled trim for a voice, 0 when unknown.
func (n *Normalizer) VoiceAdjustment(voice string) float64 {
	return n.opts.VoiceAdjustments[voice] * n.voiceScale
}

// Normalize runs measure, render, verify.
// A failed first pass aborts before any render: rendering without measured correction data is not a fallback.
func (n *Normalizer) Normalize(ctx context.Context, req Request) (*Result, error) {
	started := n.opts.Clock()
	target := n.catalog.Get(req.Profile)

	before, err := n.analyzer.Measure(ctx, req.Input, target)
	if err != nil {
		return nil, err
	}

	if before.Silent() {
		return nil, fmt.Errorf("%w: %s: cannot normalize silent audio (%.1f LUFS)",
			ErrAnalysisFailed, req.Input, before.IntegratedLUFS)
	}

	trim := n.VoiceAdjustment(req.Voice)
	offset := before.OffsetLU + trim

	slog.Debug("loudness.Normalize", "input", req.Input, "profile", target.Key,
		"measured", before.IntegratedLUFS, "target", target.TargetIntegratedLUFS, "offset", offset)

	if err = n.render(ctx, req, twoPassFilter(target, before, offset)); err != nil {
		return nil, err
	}

	result, err := n.verify(ctx, req, target)
	if err != nil {
		return nil, err
	}

	result.Mode = ModeTwoPass
	result.Before = &before
	result.VoiceAdjustmentDB = trim
	result.AppliedOffsetLU = offset
	result.ProcessingTime = n.opts.Clock().Sub(started)

	return result, nil
}

// NormalizeSinglePass skips the first measurement and feeds the profile integrated target directly to the engine.
func (n *Normalizer) NormalizeSinglePass(ctx context.Context, req Request) (*Result, error) {
	started := n.opts.Clock()
	target := n.catalog.Get(req.Profile)
	trim := n.VoiceAdjustment(req.Voice)

	if err := n.render(ctx, req, singlePassFilter(target, trim)); err != nil {
		return nil, err
	}

	result, err := n.verify(ctx, req, target)
	if err != nil {
		return nil, err
	}

	result.Mode = ModeSinglePass
	result.VoiceAdjustmentDB = trim
	result.AppliedOffsetLU = trim
	result.ProcessingTime = n.opts.Clock().Sub(started)

	return result, nil
}

func (n *Normalizer) render(ctx context.Context, req Request, filter engine.Filter) error {
	err := engine.RenderAtomic(ctx, n.engine, engine.RenderJob{
		Inputs: []string{req.Input},
		Graph:  engine.Simple(filter),
		Output: req.Output,
	})
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrNormalizationFailed, req.Input, err)
	}

	return nil
}

// verify re-measures the rendered output. A file we cannot verify is not handed out.
func (n *Normalizer) verify(ctx context.Context, req Request, target profile.Profile) (*Result, error) {
	after, err := n.analyzer.Measure(ctx, req.Output, target)
	if err != nil {
		if rmErr := os.Remove(req.Output); rmErr != nil {
			slog.Warn("failed to remove unverified output", "path", req.Output, "error", rmErr)
		}

		return nil, err
	}

	deviation := after.IntegratedLUFS - target.TargetIntegratedLUFS
	within := math.Abs(deviation) <= n.opts.ToleranceLU

	if !within {
		slog.Warn("normalized output outside tolerance",
			"output", req.Output,
			"profile", target.Key,
			"measured", after.IntegratedLUFS,
			"target", target.TargetIntegratedLUFS,
			"deviation", deviation,
		)
	}

	return &Result{
		Profile:         target,
		After:           after,
		DeviationLU:     deviation,
		WithinTolerance: within,
		OutputPath:      req.Output,
		Recommendations: n.catalog.Recommend(after, target.Key),
	}, nil
}

// twoPassFilter feeds the measured values back in linear mode.
// True peak ceiling and range pass through from the profile unchanged; only the offset carries the voice trim.
func twoPassFilter(target profile.Profile, measured types.Measurement, offset float64) engine.Filter {
	return engine.NewFilter("loudnorm",
		engine.Float("I", target.TargetIntegratedLUFS),
		engine.Float("TP", target.TargetTruePeakDB),
		engine.Float("LRA", target.TargetLoudnessRangeLU),
		engine.Float("measured_I", round2(measured.IntegratedLUFS)),
		engine.Float("measured_TP", round2(measured.TruePeakDB)),
		engine.Float("measured_LRA", round2(measured.LoudnessRangeLU)),
		engine.Float("measured_thresh", round2(measured.ThresholdLUFS)),
		engine.Float("offset", round2(offset)),
		engine.Bool("linear", true),
		engine.Opt("print_format", "summary"),
	)
}

func singlePassFilter(target profile.Profile, offset float64) engine.Filter {
	return engine.NewFilter("loudnorm",
		engine.Float("I", target.TargetIntegratedLUFS),
		engine.Float("TP", singlePassTruePeakDB),
		engine.Float("LRA", singlePassRangeLU),
		engine.Float("offset", round2(offset)),
		engine.Opt("print_format", "summary"),
	)
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}
