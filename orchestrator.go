package sordino

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/farcloser/sordino/internal/breaker"
	"github.com/farcloser/sordino/internal/engine"
	"github.com/farcloser/sordino/internal/loudness"
	"github.com/farcloser/sordino/internal/profile"
	"github.com/farcloser/sordino/internal/ratelimit"
)

/*
Usage:

orchestrator, err := sordino.NewOrchestrator(sordino.Components{...})

result, err := orchestrator.Generate(ctx, sordino.Request{
    Service:    "tts",
    Identifier: "station-12",
    Text:       "Atención, la tienda cierra en diez minutos",
    Voice:      "lucia",
    Category:   "avisos",
    Output:     "aviso.mp3",
})

switch {
case err != nil:
    // provider, analysis or render failure
case result.Status != sordino.StatusCompleted:
    // back off for result.RetryAfter()
default:
    fmt.Println(result.Normalization.After.IntegratedLUFS)
}
*/

var errMissingComponent = errors.New("orchestrator component missing")

// Components wires an Orchestrator.
type Components struct {
	Provider   Provider
	Engine     engine.Engine
	Catalog    *profile.Catalog
	Normalizer *loudness.Normalizer
	Breaker    *breaker.Breaker
	Limiter    *ratelimit.Limiter
	Clock      func() time.Time
}

// Orchestrator sequences one generation: circuit, rate limit, provider call, verdict, usage, normalization.
type Orchestrator struct {
	components Components
}

// NewOrchestrator returns an orchestrator.
func NewOrchestrator(components Components) (*Orchestrator, error) {
	switch {
	case components.Provider == nil:
		return nil, fmt.Errorf("%w: provider", errMissingComponent)
	case components.Engine == nil:
		return nil, fmt.Errorf("%w: engine", errMissingComponent)
	case components.Catalog == nil, components.Normalizer == nil:
		return nil, fmt.Errorf("%w: catalog and normalizer", errMissingComponent)
	case components.Breaker == nil, components.Limiter == nil:
		return nil, fmt.Errorf("%w: breaker and limiter", errMissingComponent)
	}

	if components.Clock == nil {
		components.Clock = time.Now
	}

	return &Orchestrator{components: components}, nil
}

// Generate runs one generation request.
// Denials come back as a Result with a non completed Status and a nil error.
// Counter store failures are logged and never block the request.
func (o *Orchestrator) Generate(ctx context.Context, req Request) (*Result, error) {
	started := o.components.Clock()
	result := &Result{RequestID: uuid.NewString()}
	logger := slog.With("request", result.RequestID, "service", req.Service)

	circuit, err := o.components.Breaker.Allow(ctx, req.Service)
	if err != nil {
		logger.Warn("circuit check failed, proceeding", "error", err)
	}

	result.Circuit = circuit

	if !circuit.CanProceed {
		logger.Debug("sordino.Generate", "stage", "circuit-open", "retry after", circuit.RetryAfter)

		result.Status = StatusCircuitOpen
		result.Duration = o.components.Clock().Sub(started)

		return result, nil
	}

	limit, err := o.components.Limiter.Check(ctx, req.Service, req.Identifier)
	if err != nil {
		logger.Warn("rate limit check failed, proceeding", "error", err)
	}

	result.RateLimit = limit

	if !limit.Allowed {
		logger.Debug("sordino.Generate", "stage", "rate-limited", "retry after", limit.RetryAfter)

		if _, err = o.components.Breaker.Release(ctx, req.Service); err != nil {
			logger.Warn("could not release circuit probe", "error", err)
		}

		result.Status = StatusRateLimited
		result.Duration = o.components.Clock().Sub(started)

		return result, nil
	}

	raw := rawPath(req.Output)
	defer removeQuietly(raw)

	logger.Debug("sordino.Generate", "stage", "synthesize")

	if err = o.components.Provider.Synthesize(ctx, req.Text, req.Voice, raw); err != nil {
		if _, recErr := o.components.Breaker.RecordFailure(ctx, req.Service, err.Error()); recErr != nil {
			logger.Warn("could not record provider failure", "error", recErr)
		}

		return nil, fmt.Errorf("%w: %s: %w", ErrProviderFailed, req.Service, err)
	}

	if _, err = o.components.Breaker.RecordSuccess(ctx, req.Service); err != nil {
		logger.Warn("could not record provider success", "error", err)
	}

	usage, err := o.components.Limiter.TrackCharacters(ctx, req.Service, int64(utf8.RuneCountInString(req.Text)))
	if err != nil {
		logger.Warn("could not track character usage", "error", err)
	} else {
		result.Usage = &usage
	}

	target := o.components.Catalog.AutoDetect(profile.Context{
		Profile:         req.Profile,
		Category:        req.Category,
		HasMusic:        req.HasMusic,
		Urgent:          req.Urgent,
		DurationSeconds: o.duration(ctx, raw),
	})

	logger.Debug("sordino.Generate", "stage", "normalize", "profile", target.Key)

	normalized, err := o.components.Normalizer.Normalize(ctx, loudness.Request{
		Input:   raw,
		Output:  req.Output,
		Profile: target.Key,
		Voice:   req.Voice,
	})
	if err != nil {
		return nil, err //nolint:wrapcheck // sentinels from loudness are part of our contract
	}

	result.Status = StatusCompleted
	result.Normalization = normalized
	result.Duration = o.components.Clock().Sub(started)

	return result, nil
}

// duration probes the synthesized audio for the long form heuristic. Zero when unknown.
func (o *Orchestrator) duration(ctx context.Context, path string) float64 {
	info, err := o.components.Engine.Probe(ctx, path)
	if err != nil {
		slog.Debug("sordino.Generate", "stage", "probe", "error", err)

		return 0
	}

	return info.DurationSec
}

// rawPath is the hidden sibling the provider writes to before normalization.
func rawPath(output string) string {
	dir, base := filepath.Split(output)
	ext := filepath.Ext(base)

	return filepath.Join(dir, "."+strings.TrimSuffix(base, ext)+".raw"+ext)
}

func removeQuietly(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to remove provider output", "path", path, "error", err)
	}
}
