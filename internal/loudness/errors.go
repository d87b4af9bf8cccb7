// Package loudness measures and normalizes integrated loudness through the audio engine.
package loudness

import "errors"

var (
	// ErrAnalysisFailed is returned when the engine could not produce a usable measurement.
	ErrAnalysisFailed = errors.New("loudness analysis failed")
	// ErrNormalizationFailed is returned when the render step failed. No output file is left behind.
	ErrNormalizationFailed = errors.New("loudness normalization failed")
)
