//nolint:tagliatelle
package loudness

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/farcloser/primordium/fault"

	"github.com/farcloser/sordino/internal/types"
)

// report is the structured block printed by the engine loudness meter. Every value is a quoted number.
type report struct {
	InputI       *string `json:"input_i"`
	InputTP      *string `json:"input_tp"`
	InputLRA     *string `json:"input_lra"`
	InputThresh  *string `json:"input_thresh"`
	TargetOffset *string `json:"target_offset"`
}

// parseReport extracts the last well-formed block from the engine output.
// A missing block or field is an error: a zeroed measurement would drive a large spurious gain correction.
func parseReport(output string) (types.Measurement, error) {
	block, ok := lastBlock(output)
	if !ok {
		return types.Measurement{}, fmt.Errorf("%w: no measurement block in engine output (%d bytes)",
			ErrAnalysisFailed, len(output))
	}

	var raw report
	if err := json.Unmarshal([]byte(block), &raw); err != nil {
		return types.Measurement{}, fmt.Errorf("%w: %w: %w", ErrAnalysisFailed, fault.ErrInvalidJSON, err)
	}

	var (
		measurement types.Measurement
		err         error
	)

	fields := []struct {
		name  string
		value *string
		dest  *float64
	}{
		{"input_i", raw.InputI, &measurement.IntegratedLUFS},
		{"input_tp", raw.InputTP, &measurement.TruePeakDB},
		{"input_lra", raw.InputLRA, &measurement.LoudnessRangeLU},
		{"input_thresh", raw.InputThresh, &measurement.ThresholdLUFS},
		{"target_offset", raw.TargetOffset, &measurement.OffsetLU},
	}

	for _, field := range fields {
		if field.value == nil {
			return types.Measurement{}, fmt.Errorf("%w: missing %s", ErrAnalysisFailed, field.name)
		}

		*field.dest, err = strconv.ParseFloat(strings.TrimSpace(*field.value), 64)
		if err != nil {
			return types.Measurement{}, fmt.Errorf("%w: %s %q is not a number", ErrAnalysisFailed, field.name, *field.value)
		}
	}

	return measurement, nil
}

// lastBlock returns the last brace-delimited block of the output.
func lastBlock(output string) (string, bool) {
	end := strings.LastIndex(output, "}")
	if end == -1 {
		return "", false
	}

	start := strings.LastIndex(output[:end], "{")
	if start == -1 {
		return "", false
	}

	return output[start : end+1], true
}
