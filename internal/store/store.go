// Package store persists small keyed records with an atomic read-modify-write per key.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/farcloser/sordino/internal/config"
)

var (
	// ErrNotFound is returned by Get for absent keys.
	ErrNotFound = errors.New("record not found")

	errUnknownDriver = errors.New("unknown store driver")
)

// UpdateFunc receives the current record, nil when absent, and returns the record to write.
// Returning nil leaves the record untouched. An error aborts the update and is returned as is.
type UpdateFunc func(current []byte) ([]byte, error)

// Store is a keyed record store.
// Updates to the same key are serialized; updates to different keys never wait on each other.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Update(ctx context.Context, key string, fn UpdateFunc) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Open returns the store selected by the configuration.
func Open(cfg config.StoreConfig) (Store, error) {
	slog.Debug("store.Open", "driver", cfg.Driver)

	switch cfg.Driver {
	case config.DriverMemory:
		return NewMemory(), nil
	case config.DriverFile:
		return NewFile(cfg.Path)
	case config.DriverRedis:
		return NewRedisFromURL(cfg.RedisURL, cfg.Prefix)
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownDriver, cfg.Driver)
	}
}
