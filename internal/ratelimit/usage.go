package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"

	"github.com/farcloser/primordium/fault"

	"github.com/farcloser/sordino/internal/store"
)

const (
	warningPercent  = 75.0
	criticalPercent = 90.0
	monthLayout     = "2006-01"
	dayLayout       = "2006-01-02"
)

var errNegativeCount = errors.New("character count must not be negative")

// Severity of a character usage level.
type Severity string

// Usage severities.
const (
	SeverityOK       Severity = "ok"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Usage is the character consumption of a service for the current calendar month.
// Limit is zero for unmetered services.
type Usage struct {
	Service    string
	Month      string
	Used       int64
	Limit      int64
	Remaining  int64
	Percentage float64
	Daily      map[string]int64
}

// Severity classifies the usage against the monthly quota.
func (u Usage) Severity() Severity {
	switch {
	case u.Limit <= 0:
		return SeverityOK
	case u.Percentage >= criticalPercent:
		return SeverityCritical
	case u.Percentage >= warningPercent:
		return SeverityWarning
	default:
		return SeverityOK
	}
}

type usageRecord struct {
	Month string           `json:"month"`
	Used  int64            `json:"used"`
	Daily map[string]int64 `json:"daily"`
}

// TrackCharacters adds characters to the monthly meter of a service.
// It never blocks a call: crossing 75% and 90% of the quota is only logged.
// A record from a previous month is replaced wholesale.
func (l *Limiter) TrackCharacters(ctx context.Context, service string, characters int64) (Usage, error) {
	if characters < 0 {
		return Usage{}, fmt.Errorf("%w: %d", errNegativeCount, characters)
	}

	var record usageRecord

	err := l.store.Update(ctx, usageKey(service), func(raw []byte) ([]byte, error) {
		now := l.cfg.Clock()

		current, err := l.decodeUsage(raw)
		if err != nil {
			return nil, err
		}

		if current.Month != now.Format(monthLayout) {
			current = usageRecord{Month: now.Format(monthLayout), Daily: map[string]int64{}}
		}

		current.Used += characters
		current.Daily[now.Format(dayLayout)] += characters
		record = current

		return json.Marshal(current)
	})
	if err != nil {
		slog.Warn("character usage store unavailable", "service", service, "error", err)

		return Usage{Service: service, Limit: l.cfg.MonthlyCharacters[service]}, err
	}

	usage := l.usage(service, record)

	switch usage.Severity() {
	case SeverityCritical:
		slog.Error("character usage critical", "service", service,
			"used", usage.Used, "limit", usage.Limit, "percentage", usage.Percentage)
	case SeverityWarning:
		slog.Warn("character usage high", "service", service,
			"used", usage.Used, "limit", usage.Limit, "percentage", usage.Percentage)
	case SeverityOK:
	}

	return usage, nil
}

// CharacterUsage reads the monthly meter of a service without changing it.
func (l *Limiter) CharacterUsage(ctx context.Context, service string) (Usage, error) {
	month := l.cfg.Clock().Format(monthLayout)
	record := usageRecord{Month: month, Daily: map[string]int64{}}

	raw, err := l.store.Get(ctx, usageKey(service))

	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		return Usage{Service: service, Month: month, Limit: l.cfg.MonthlyCharacters[service]},
			fmt.Errorf("reading character usage of %s: %w", service, err)
	default:
		current, decodeErr := l.decodeUsage(raw)
		if decodeErr != nil {
			return Usage{Service: service, Month: month}, decodeErr
		}

		if current.Month == month {
			record = current
		}
	}

	return l.usage(service, record), nil
}

func (l *Limiter) decodeUsage(raw []byte) (usageRecord, error) {
	var record usageRecord
	if raw == nil {
		return record, nil
	}

	if err := json.Unmarshal(raw, &record); err != nil {
		return usageRecord{}, fmt.Errorf("%w: character usage record: %w", fault.ErrInvalidJSON, err)
	}

	if record.Daily == nil {
		record.Daily = map[string]int64{}
	}

	return record, nil
}

func (l *Limiter) usage(service string, record usageRecord) Usage {
	limit := l.cfg.MonthlyCharacters[service]
	usage := Usage{
		Service: service,
		Month:   record.Month,
		Used:    record.Used,
		Limit:   limit,
		Daily:   maps.Clone(record.Daily),
	}

	if limit > 0 {
		usage.Remaining = max(limit-record.Used, 0)
		usage.Percentage = float64(record.Used) / float64(limit) * 100 //nolint:mnd // percent
	}

	return usage
}

func usageKey(service string) string {
	return "usage:" + service
}
