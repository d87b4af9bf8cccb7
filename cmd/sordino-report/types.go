//nolint:tagliatelle
package main

// Record is a single line in the JSONL report file.
type Record struct {
	File        string         `json:"file,omitempty"`
	Profile     string         `json:"profile,omitempty"`
	Probe       map[string]any `json:"probe,omitempty"`
	Measurement map[string]any `json:"measurement,omitempty"`
	Validation  map[string]any `json:"validation,omitempty"`
	DeviationLU *float64       `json:"deviation_lu,omitempty"`
	Error       string         `json:"error,omitempty"`
	Timing      *RecordTiming  `json:"timing,omitempty"`
}

// RecordTiming captures per-file processing durations in milliseconds.
type RecordTiming struct {
	ProbeMs   float64 `json:"probe_ms"`
	AnalyzeMs float64 `json:"analyze_ms"`
	TotalMs   float64 `json:"total_ms"`
}

// digestRecord holds the typed fields needed by the digest command.
type digestRecord struct {
	File        string            `json:"file,omitempty"`
	Profile     string            `json:"profile,omitempty"`
	Validation  *digestValidation `json:"validation,omitempty"`
	DeviationLU *float64          `json:"deviation_lu,omitempty"`
	Error       string            `json:"error,omitempty"`
}

type digestValidation struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// profileBreakdown tracks per-profile verdicts and deviations for the digest.
type profileBreakdown struct {
	Profile    string
	Pass       int
	Warn       int
	Fail       int
	Deviations []float64
	MeanLU     float64
	StdDevLU   float64
}
