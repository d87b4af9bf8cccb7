package profile

import (
	"fmt"
	"math"

	"github.com/farcloser/sordino/internal/types"
)

const (
	integratedErrorLU   = 2.0
	integratedWarningLU = 1.0
	rangeWarningLU      = 5.0
	gainAdjustmentLU    = 0.5
	compressionMarginLU = 3.0
)

// Recommended actions.
const (
	ActionReduceGain    = "reduce_gain"
	ActionIncreaseGain  = "increase_gain"
	ActionApplyLimiter  = "apply_limiter"
	ActionApplyCompress = "apply_compression"
)

// Validation is the outcome of checking a measurement against a profile.
type Validation struct {
	Profile  Key
	Valid    bool
	Errors   []string
	Warnings []string
}

// Validate checks a measurement against a profile.
// A true peak over the ceiling is always an error, independently of loudness match.
// Loudness range drift is only ever a warning.
func (c *Catalog) Validate(measurement types.Measurement, key Key) Validation {
	profile := c.Get(key)
	result := Validation{Profile: profile.Key}

	deltaI := math.Abs(measurement.IntegratedLUFS - profile.TargetIntegratedLUFS)

	switch {
	case deltaI > integratedErrorLU:
		result.Errors = append(result.Errors, fmt.Sprintf(
			"integrated loudness %.1f LUFS deviates %.1f LU from target %.1f LUFS",
			measurement.IntegratedLUFS, deltaI, profile.TargetIntegratedLUFS,
		))
	case deltaI > integratedWarningLU:
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"integrated loudness %.1f LUFS is %.1f LU off target %.1f LUFS",
			measurement.IntegratedLUFS, deltaI, profile.TargetIntegratedLUFS,
		))
	}

	if measurement.TruePeakDB > profile.TargetTruePeakDB {
		result.Errors = append(result.Errors, fmt.Sprintf(
			"true peak %.1f dBTP exceeds ceiling %.1f dBTP",
			measurement.TruePeakDB, profile.TargetTruePeakDB,
		))
	}

	if deltaLRA := math.Abs(measurement.LoudnessRangeLU - profile.TargetLoudnessRangeLU); deltaLRA > rangeWarningLU {
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"loudness range %.1f LU deviates %.1f LU from target %.1f LU",
			measurement.LoudnessRangeLU, deltaLRA, profile.TargetLoudnessRangeLU,
		))
	}

	result.Valid = len(result.Errors) == 0

	return result
}

// Adjustment is an advisory correction.
type Adjustment struct {
	Action    string
	AmountDB  float64 // gain and compression actions
	CeilingDB float64 // limiter action
	Reason    string
}

// Recommend lists the corrections that would bring a measurement onto a profile. Nothing is executed.
func (c *Catalog) Recommend(measurement types.Measurement, key Key) []Adjustment {
	profile := c.Get(key)

	var adjustments []Adjustment

	delta := profile.TargetIntegratedLUFS - measurement.IntegratedLUFS
	if math.Abs(delta) > gainAdjustmentLU {
		action := ActionIncreaseGain
		if delta < 0 {
			action = ActionReduceGain
		}

		adjustments = append(adjustments, Adjustment{
			Action:   action,
			AmountDB: math.Abs(delta),
			Reason: fmt.Sprintf("integrated loudness %.1f LUFS, target %.1f LUFS",
				measurement.IntegratedLUFS, profile.TargetIntegratedLUFS),
		})
	}

	if measurement.TruePeakDB > profile.TargetTruePeakDB {
		adjustments = append(adjustments, Adjustment{
			Action:    ActionApplyLimiter,
			CeilingDB: profile.TargetTruePeakDB,
			Reason: fmt.Sprintf("true peak %.1f dBTP over ceiling %.1f dBTP",
				measurement.TruePeakDB, profile.TargetTruePeakDB),
		})
	}

	if measurement.LoudnessRangeLU > profile.TargetLoudnessRangeLU+compressionMarginLU {
		adjustments = append(adjustments, Adjustment{
			Action:   ActionApplyCompress,
			AmountDB: measurement.LoudnessRangeLU - profile.TargetLoudnessRangeLU,
			Reason: fmt.Sprintf("loudness range %.1f LU, target %.1f LU",
				measurement.LoudnessRangeLU, profile.TargetLoudnessRangeLU),
		})
	}

	return adjustments
}
