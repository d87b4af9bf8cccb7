// Package output provides shared result serialization for sordino JSON and JSONL output.
package output

import (
	"math"

	"github.com/farcloser/sordino"
	"github.com/farcloser/sordino/internal/breaker"
	"github.com/farcloser/sordino/internal/jingle"
	"github.com/farcloser/sordino/internal/loudness"
	"github.com/farcloser/sordino/internal/profile"
	"github.com/farcloser/sordino/internal/ratelimit"
	"github.com/farcloser/sordino/internal/types"
)

// ProfileToMap converts a profile into its canonical map structure.
func ProfileToMap(p profile.Profile) map[string]any {
	return map[string]any{
		"key":                   p.Key.String(),
		"name":                  p.Name,
		"color":                 p.Color,
		"target_integrated":     p.TargetIntegratedLUFS,
		"target_true_peak":      p.TargetTruePeakDB,
		"target_loudness_range": p.TargetLoudnessRangeLU,
		"priority":              p.Priority.String(),
	}
}

// MeasurementToMap converts a loudness measurement. Non finite values (silence) are reported as null.
func MeasurementToMap(m types.Measurement) map[string]any {
	return map[string]any{
		"integrated_lufs": finite(m.IntegratedLUFS),
		"true_peak_db":    finite(m.TruePeakDB),
		"loudness_range":  finite(m.LoudnessRangeLU),
		"threshold_lufs":  finite(m.ThresholdLUFS),
		"offset_lu":       finite(m.OffsetLU),
	}
}

// ValidationToMap converts a validation outcome.
func ValidationToMap(v profile.Validation) map[string]any {
	return map[string]any{
		"profile":  v.Profile.String(),
		"valid":    v.Valid,
		"errors":   nonNil(v.Errors),
		"warnings": nonNil(v.Warnings),
	}
}

// AdjustmentsToList converts recommended adjustments.
func AdjustmentsToList(adjustments []profile.Adjustment) []any {
	list := make([]any, 0, len(adjustments))

	for _, adjustment := range adjustments {
		entry := map[string]any{
			"action": adjustment.Action,
			"reason": adjustment.Reason,
		}

		if adjustment.Action == profile.ActionApplyLimiter {
			entry["ceiling_db"] = adjustment.CeilingDB
		} else {
			entry["amount_db"] = adjustment.AmountDB
		}

		list = append(list, entry)
	}

	return list
}

// NormalizationToMap converts a normalization result.
func NormalizationToMap(result *loudness.Result) map[string]any {
	meta := map[string]any{
		"mode":                result.Mode.String(),
		"profile":             result.Profile.Key.String(),
		"after":               MeasurementToMap(result.After),
		"voice_adjustment_db": result.VoiceAdjustmentDB,
		"applied_offset_lu":   result.AppliedOffsetLU,
		"deviation_lu":        result.DeviationLU,
		"within_tolerance":    result.WithinTolerance,
		"processing_ms":       float64(result.ProcessingTime.Microseconds()) / 1000.0,
		"output":              result.OutputPath,
		"recommendations":     AdjustmentsToList(result.Recommendations),
	}

	if result.Before != nil {
		meta["before"] = MeasurementToMap(*result.Before)
	}

	return meta
}

// TimelineToMap converts a jingle timeline.
func TimelineToMap(timeline *jingle.Timeline) map[string]any {
	meta := map[string]any{
		"intro_silence_sec":  timeline.IntroSilenceSec,
		"voice_duration_sec": timeline.VoiceDurationSec,
		"outro_silence_sec":  timeline.OutroSilenceSec,
		"total_duration_sec": timeline.TotalDurationSec,
		"fade_in_sec":        timeline.FadeInSec,
		"fade_out_sec":       timeline.FadeOutSec,
		"fade_out_start_sec": timeline.FadeOutStartSec,
		"music_volume":       timeline.MusicVolume,
		"voice_volume":       timeline.VoiceVolume,
		"voice_delay_ms":     timeline.VoiceDelayMs,
		"ducking_enabled":    timeline.DuckingEnabled,
	}

	if timeline.DuckingEnabled {
		meta["ducking"] = map[string]any{
			"window_start_sec": timeline.DuckWindowStartSec,
			"window_end_sec":   timeline.DuckWindowEndSec,
			"level":            timeline.DuckLevel,
			"ratio":            timeline.DuckRatio,
			"attack_ms":        timeline.DuckAttackMs,
			"release_ms":       timeline.DuckReleaseMs,
		}
	}

	return meta
}

// RateDecisionToMap converts a rate limit decision.
func RateDecisionToMap(decision ratelimit.Decision) map[string]any {
	meta := map[string]any{
		"service":   decision.Service,
		"allowed":   decision.Allowed,
		"limit":     decision.Limit,
		"remaining": decision.Remaining,
	}

	if !decision.Allowed {
		meta["retry_after_sec"] = decision.RetryAfter.Seconds()
	}

	if !decision.ResetAt.IsZero() {
		meta["reset_at"] = decision.ResetAt.Unix()
	}

	return meta
}

// CircuitDecisionToMap converts a circuit breaker decision.
func CircuitDecisionToMap(decision breaker.Decision) map[string]any {
	meta := map[string]any{
		"service":              decision.Service,
		"status":               string(decision.Status),
		"can_proceed":          decision.CanProceed,
		"consecutive_failures": decision.ConsecutiveFailures,
	}

	if decision.RetryAfter > 0 {
		meta["retry_after_sec"] = decision.RetryAfter.Seconds()
	}

	if decision.Reason != "" {
		meta["reason"] = decision.Reason
	}

	return meta
}

// UsageToMap converts a monthly character usage.
func UsageToMap(usage ratelimit.Usage) map[string]any {
	return map[string]any{
		"service":    usage.Service,
		"month":      usage.Month,
		"used":       usage.Used,
		"limit":      usage.Limit,
		"remaining":  usage.Remaining,
		"percentage": usage.Percentage,
		"severity":   string(usage.Severity()),
		"daily":      usage.Daily,
	}
}

// GenerationToMap converts an orchestrated generation.
func GenerationToMap(result *sordino.Result) map[string]any {
	meta := map[string]any{
		"request_id":  result.RequestID,
		"status":      result.Status.String(),
		"circuit":     CircuitDecisionToMap(result.Circuit),
		"duration_ms": float64(result.Duration.Microseconds()) / 1000.0,
	}

	if result.Status != sordino.StatusCircuitOpen {
		meta["rate_limit"] = RateDecisionToMap(result.RateLimit)
	}

	if result.Usage != nil {
		meta["usage"] = UsageToMap(*result.Usage)
	}

	if result.Normalization != nil {
		meta["normalization"] = NormalizationToMap(result.Normalization)
	}

	return meta
}

func finite(value float64) any {
	if math.IsInf(value, 0) || math.IsNaN(value) {
		return nil
	}

	return value
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}

	return values
}
