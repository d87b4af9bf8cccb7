//nolint:staticcheck // too dumb on Db vs. DB
package types

import "math"

// Measurement contains the numbers reported by the engine loudness meter for a single file.
// ThresholdLUFS and OffsetLU are only meaningful to a second, linear normalization pass.
type Measurement struct {
	IntegratedLUFS  float64 // I
	TruePeakDB      float64 // dBTP
	LoudnessRangeLU float64 // LRA
	ThresholdLUFS   float64 // gating threshold
	OffsetLU        float64 // engine-suggested gain correction, relative to the target it was measured against
}

// Silent reports whether the integrated loudness is too low to carry any usable correction data.
func (m Measurement) Silent() bool {
	return math.IsInf(m.IntegratedLUFS, -1) || math.IsNaN(m.IntegratedLUFS) || m.IntegratedLUFS < SilenceFloorLUFS
}

// SilenceFloorLUFS is the integrated loudness under which a file is considered silent.
const SilenceFloorLUFS = -70.0

// AudioInfo is the subset of probe information the layer cares about.
type AudioInfo struct {
	DurationSec float64
	SampleRate  int
	Bitrate     int64
	Channels    int
	Format      string
}
