// Package breaker implements a per-service circuit breaker persisted in a store.
package breaker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/farcloser/primordium/fault"

	"github.com/farcloser/sordino/internal/store"
)

const (
	defaultThreshold = 5
	defaultCooldown  = 60 * time.Second
	defaultProbes    = 3
)

// Status is the state of a circuit.
type Status string

// Circuit states.
const (
	StatusClosed   Status = "closed"
	StatusOpen     Status = "open"
	StatusHalfOpen Status = "half-open"
)

// Config tunes the breaker. Zero values get defaults.
type Config struct {
	FailureThreshold int
	Cooldown         time.Duration
	HalfOpenProbes   int
	Clock            func() time.Time
}

// Decision is the answer to "may I call this service now".
// A denial is an expected outcome, not an error.
type Decision struct {
	Service             string
	Status              Status
	CanProceed          bool
	RetryAfter          time.Duration
	Reason              string
	ConsecutiveFailures int
}

//nolint:tagliatelle
type state struct {
	State                Status  `json:"state"`
	ConsecutiveFailures  int     `json:"consecutive_failures"`
	LastFailureTimestamp float64 `json:"last_failure_timestamp,omitempty"`
	RetryAfterTimestamp  float64 `json:"retry_after_timestamp,omitempty"`
	HalfOpenProbesIssued int     `json:"half_open_probes_issued"`
	LastFailureReason    string  `json:"last_failure_reason,omitempty"`
}

// Breaker tracks failures of external services.
type Breaker struct {
	store store.Store
	cfg   Config
}

// New returns a breaker persisting its circuits in st.
func New(st store.Store, cfg Config) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = defaultThreshold
	}

	if cfg.Cooldown <= 0 {
		cfg.Cooldown = defaultCooldown
	}

	if cfg.HalfOpenProbes <= 0 {
		cfg.HalfOpenProbes = defaultProbes
	}

	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	return &Breaker{store: st, cfg: cfg}
}

// Check reports the circuit state without changing it.
// An open circuit whose cooldown has elapsed is reported half-open.
// On store errors the call is allowed and the error returned alongside.
func (b *Breaker) Check(ctx context.Context, service string) (Decision, error) {
	current, err := b.load(ctx, service)
	if err != nil {
		return b.failOpen(service, err)
	}

	current.advance(b.now())

	decision := b.decide(service, current)
	if current.State == StatusHalfOpen && current.HalfOpenProbesIssued >= b.cfg.HalfOpenProbes {
		decision.CanProceed = false
		decision.Reason = fmt.Sprintf("all %d half-open probes are in flight", b.cfg.HalfOpenProbes)
	}

	return decision, nil
}

// Allow is Check followed by the reservation of a half-open probe.
// Once every probe has been handed out without a verdict, the circuit reopens for a fresh cooldown.
func (b *Breaker) Allow(ctx context.Context, service string) (Decision, error) {
	var decision Decision

	err := b.update(ctx, service, func(current *state) bool {
		now := b.now()
		changed := current.advance(now)

		if current.State == StatusHalfOpen {
			if current.HalfOpenProbesIssued >= b.cfg.HalfOpenProbes {
				current.reopen(now, b.cfg.Cooldown)
				slog.Info("circuit reopened", "service", service, "reason", "half-open probes exhausted")
			} else {
				current.HalfOpenProbesIssued++
			}

			changed = true
		}

		decision = b.decide(service, *current)

		return changed
	})
	if err != nil {
		return b.failOpen(service, err)
	}

	return decision, nil
}

// Release hands back a half-open probe reserved by Allow for a call that was never made.
// It is a no-op unless the circuit is half-open with probes issued.
func (b *Breaker) Release(ctx context.Context, service string) (Decision, error) {
	var decision Decision

	err := b.update(ctx, service, func(current *state) bool {
		changed := current.advance(b.now())

		if current.State == StatusHalfOpen && current.HalfOpenProbesIssued > 0 {
			current.HalfOpenProbesIssued--
			changed = true
		}

		decision = b.decide(service, *current)

		return changed
	})
	if err != nil {
		return b.failOpen(service, err)
	}

	return decision, nil
}

// RecordFailure counts a failed call. The circuit opens on reaching the threshold,
// and any failure while half-open reopens it.
func (b *Breaker) RecordFailure(ctx context.Context, service, reason string) (Decision, error) {
	var decision Decision

	err := b.update(ctx, service, func(current *state) bool {
		now := b.now()
		current.advance(now)

		current.ConsecutiveFailures++
		current.LastFailureTimestamp = unixSeconds(now)
		current.LastFailureReason = reason

		switch {
		case current.State == StatusHalfOpen:
			current.reopen(now, b.cfg.Cooldown)
			slog.Info("circuit reopened", "service", service, "reason", reason)
		case current.State == StatusClosed && current.ConsecutiveFailures >= b.cfg.FailureThreshold:
			current.reopen(now, b.cfg.Cooldown)
			slog.Info("circuit opened", "service", service,
				"failures", current.ConsecutiveFailures, "reason", reason)
		}

		decision = b.decide(service, *current)

		return true
	})
	if err != nil {
		return b.failOpen(service, err)
	}

	return decision, nil
}

// RecordSuccess closes the circuit and resets the failure count.
func (b *Breaker) RecordSuccess(ctx context.Context, service string) (Decision, error) {
	var decision Decision

	err := b.update(ctx, service, func(current *state) bool {
		changed := current.State != StatusClosed || current.ConsecutiveFailures != 0

		if current.State != StatusClosed {
			slog.Info("circuit closed", "service", service)
		}

		*current = state{State: StatusClosed}
		decision = b.decide(service, *current)

		return changed
	})
	if err != nil {
		return b.failOpen(service, err)
	}

	return decision, nil
}

// Reset forgets everything about a service circuit.
func (b *Breaker) Reset(ctx context.Context, service string) error {
	if err := b.store.Delete(ctx, key(service)); err != nil {
		return fmt.Errorf("resetting circuit %s: %w", service, err)
	}

	slog.Info("circuit reset", "service", service)

	return nil
}

func (b *Breaker) decide(service string, current state) Decision {
	decision := Decision{
		Service:             service,
		Status:              current.State,
		CanProceed:          current.State != StatusOpen,
		ConsecutiveFailures: current.ConsecutiveFailures,
	}

	if current.State == StatusOpen {
		decision.RetryAfter = retryAfter(current.RetryAfterTimestamp, b.now())
		decision.Reason = fmt.Sprintf("circuit open after %d consecutive failures", current.ConsecutiveFailures)

		if current.LastFailureReason != "" {
			decision.Reason += ": " + current.LastFailureReason
		}
	}

	return decision
}

func (b *Breaker) failOpen(service string, err error) (Decision, error) {
	slog.Warn("circuit store unavailable, allowing call", "service", service, "error", err)

	return Decision{Service: service, Status: StatusClosed, CanProceed: true}, err
}

func (b *Breaker) load(ctx context.Context, service string) (state, error) {
	raw, err := b.store.Get(ctx, key(service))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return state{State: StatusClosed}, nil
		}

		return state{}, err //nolint:wrapcheck // store errors carry their class
	}

	return decode(raw)
}

// update runs fn on the current state under the store lock and persists the state when fn reports a change.
func (b *Breaker) update(ctx context.Context, service string, fn func(current *state) bool) error {
	return b.store.Update(ctx, key(service), func(raw []byte) ([]byte, error) { //nolint:wrapcheck // store errors carry their class
		current := state{State: StatusClosed}

		if raw != nil {
			var err error
			if current, err = decode(raw); err != nil {
				return nil, err
			}
		}

		if !fn(&current) {
			return nil, nil
		}

		return json.Marshal(current)
	})
}

func (b *Breaker) now() time.Time {
	return b.cfg.Clock()
}

// advance moves an open circuit to half-open once its cooldown has elapsed.
func (s *state) advance(now time.Time) bool {
	if s.State != StatusOpen || unixSeconds(now) < s.RetryAfterTimestamp {
		return false
	}

	s.State = StatusHalfOpen
	s.HalfOpenProbesIssued = 0

	return true
}

func (s *state) reopen(now time.Time, cooldown time.Duration) {
	s.State = StatusOpen
	s.RetryAfterTimestamp = unixSeconds(now.Add(cooldown))
	s.HalfOpenProbesIssued = 0
}

func decode(raw []byte) (state, error) {
	var current state
	if err := json.Unmarshal(raw, &current); err != nil {
		return state{}, fmt.Errorf("%w: circuit record: %w", fault.ErrInvalidJSON, err)
	}

	switch current.State {
	case StatusClosed, StatusOpen, StatusHalfOpen:
	case "":
		current.State = StatusClosed
	default:
		return state{}, fmt.Errorf("%w: unknown circuit state %q", fault.ErrInvalidJSON, current.State)
	}

	return current, nil
}

func key(service string) string {
	return "circuit:" + service
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

func retryAfter(deadline float64, now time.Time) time.Duration {
	remaining := deadline - unixSeconds(now)
	if remaining <= 0 {
		return 0
	}

	return max(time.Duration(remaining*float64(time.Second)).Round(time.Millisecond), time.Millisecond)
}
