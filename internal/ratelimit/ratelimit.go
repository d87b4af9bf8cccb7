// Package ratelimit implements a sliding window request limiter and a monthly character meter,
// both persisted in a store and keyed per service.
package ratelimit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/farcloser/primordium/fault"

	"github.com/farcloser/sordino/internal/store"
)

const (
	defaultWindow = time.Minute
	defaultLimit  = 60
	hashPrefixLen = 16
)

// Config tunes the limiter. Zero values get defaults.
type Config struct {
	Window time.Duration
	// DefaultLimit applies to services without an entry in Limits.
	DefaultLimit int
	// Limits are requests per window, per service.
	Limits map[string]int
	// MonthlyCharacters are character quotas per service. Services without one are unmetered.
	MonthlyCharacters map[string]int64
	Clock             func() time.Time
}

// Decision is the outcome of a rate limit check. A denial is an expected outcome, not an error.
type Decision struct {
	Service    string
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
	ResetAt    time.Time
}

type window struct {
	Timestamps []float64 `json:"timestamps"`
}

// Limiter guards outbound calls to metered services.
type Limiter struct {
	store store.Store
	cfg   Config
}

// New returns a limiter persisting its counters in st.
func New(st store.Store, cfg Config) *Limiter {
	if cfg.Window <= 0 {
		cfg.Window = defaultWindow
	}

	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = defaultLimit
	}

	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	return &Limiter{store: st, cfg: cfg}
}

// Limit returns the per-window ceiling of a service.
func (l *Limiter) Limit(service string) int {
	if limit, ok := l.cfg.Limits[service]; ok && limit > 0 {
		return limit
	}

	return l.cfg.DefaultLimit
}

// Check admits or denies one call from identifier to service, over a sliding window.
// Timestamps that left the window are purged on every check.
// On store errors the call is allowed and the error returned alongside.
func (l *Limiter) Check(ctx context.Context, service, identifier string) (Decision, error) {
	limit := l.Limit(service)
	decision := Decision{Service: service, Limit: limit}

	err := l.store.Update(ctx, windowKey(service, identifier), func(raw []byte) ([]byte, error) {
		now := l.cfg.Clock()
		nowSec := unixSeconds(now)
		windowSec := l.cfg.Window.Seconds()

		var current window
		if raw != nil {
			if err := json.Unmarshal(raw, &current); err != nil {
				return nil, fmt.Errorf("%w: rate window record: %w", fault.ErrInvalidJSON, err)
			}
		}

		recent := make([]float64, 0, len(current.Timestamps)+1)

		for _, stamp := range current.Timestamps {
			if stamp > nowSec-windowSec {
				recent = append(recent, stamp)
			}
		}

		slices.Sort(recent)

		if len(recent) >= limit {
			oldest := recent[0]
			decision.Allowed = false
			decision.Remaining = 0
			decision.RetryAfter = seconds(oldest + windowSec - nowSec)
			decision.ResetAt = fromUnixSeconds(oldest + windowSec)

			if len(recent) == len(current.Timestamps) {
				return nil, nil
			}

			return json.Marshal(window{Timestamps: recent})
		}

		decision.Allowed = true
		decision.Remaining = limit - len(recent) - 1
		recent = append(recent, nowSec)
		decision.ResetAt = fromUnixSeconds(recent[0] + windowSec)

		return json.Marshal(window{Timestamps: recent})
	})
	if err != nil {
		slog.Warn("rate limit store unavailable, allowing call", "service", service, "error", err)

		return Decision{Service: service, Allowed: true, Limit: limit, Remaining: limit - 1}, err
	}

	if !decision.Allowed {
		slog.Debug("ratelimit.Check", "service", service, "stage", "denied", "retry after", decision.RetryAfter)
	}

	return decision, nil
}

// Reset drops the window of one identifier.
func (l *Limiter) Reset(ctx context.Context, service, identifier string) error {
	if err := l.store.Delete(ctx, windowKey(service, identifier)); err != nil {
		return fmt.Errorf("resetting rate window of %s: %w", service, err)
	}

	return nil
}

// windowKey hashes the identifier so that user data never ends up in store keys.
func windowKey(service, identifier string) string {
	sum := sha256.Sum256([]byte(service + "|" + identifier))

	return "ratelimit:" + service + ":" + hex.EncodeToString(sum[:])[:hashPrefixLen]
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

func fromUnixSeconds(stamp float64) time.Time {
	return time.Unix(0, int64(stamp*float64(time.Second)))
}

// seconds converts a positive remainder, rounding to the millisecond without ever reaching zero.
func seconds(value float64) time.Duration {
	return max(time.Duration(value*float64(time.Second)).Round(time.Millisecond), time.Millisecond)
}
