// Package sordino brings synthesized and recorded audio to broadcast loudness targets,
// and guards the metered services producing it with rate limits and circuit breakers.
package sordino

import (
	"context"
	"errors"
	"time"

	"github.com/farcloser/sordino/internal/breaker"
	"github.com/farcloser/sordino/internal/jingle"
	"github.com/farcloser/sordino/internal/loudness"
	"github.com/farcloser/sordino/internal/ratelimit"
)

// Errors callers are expected to branch on.
// Rate limiting and open circuits are not errors: they are reported through Result.Status.
var (
	// ErrAnalysisFailed means the audio engine could not measure a file.
	ErrAnalysisFailed = loudness.ErrAnalysisFailed
	// ErrNormalizationFailed means the render step failed. No output file is left behind.
	ErrNormalizationFailed = loudness.ErrNormalizationFailed
	// ErrConfiguration means a jingle layout cannot be rendered.
	ErrConfiguration = jingle.ErrConfiguration
	// ErrProviderFailed means the external service call failed. It is recorded against the service circuit.
	ErrProviderFailed = errors.New("provider call failed")
)

// Status is the outcome of a generation request.
type Status int

const (
	StatusCompleted Status = iota
	StatusRateLimited
	StatusCircuitOpen
)

func (s Status) String() string {
	switch s {
	case StatusCompleted:
		return "completed"
	case StatusRateLimited:
		return "rate-limited"
	case StatusCircuitOpen:
		return "circuit-open"
	}

	return "unknown"
}

// Provider is an external, metered synthesis service. It must write audio to output.
type Provider interface {
	Synthesize(ctx context.Context, text, voice, output string) error
}

// Request describes one generation.
type Request struct {
	// Service names the provider, for limits and circuit tracking.
	Service string
	// Identifier is the caller on whose behalf the call is made (user, station).
	Identifier string
	Text       string
	Voice      string
	// Output is where the normalized audio is written.
	Output string

	// Profile selection hints, in auto-detection order.
	Profile  string
	Category string
	HasMusic bool
	Urgent   bool
}

// Result of a generation. Only completed results carry a normalization.
type Result struct {
	RequestID     string
	Status        Status
	Circuit       breaker.Decision
	RateLimit     ratelimit.Decision
	Usage         *ratelimit.Usage
	Normalization *loudness.Result
	Duration      time.Duration
}

// RetryAfter is how long a denied caller should wait before trying again. Zero for completed results.
func (r *Result) RetryAfter() time.Duration {
	switch r.Status {
	case StatusRateLimited:
		return r.RateLimit.RetryAfter
	case StatusCircuitOpen:
		return r.Circuit.RetryAfter
	case StatusCompleted:
	}

	return 0
}
