package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/farcloser/primordium/fault"
	"github.com/redis/go-redis/v9"
)

const maxTxRetries = 16

var errContention = errors.New("record kept changing during update")

// Redis keeps records as plain string values, shared by every process pointing at the same server.
// Update is optimistic: the key is watched, and the transaction is retried when another writer got in first.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis wraps an existing client.
func NewRedis(client *redis.Client, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix}
}

// NewRedisFromURL connects to the server described by a redis:// URL.
func NewRedisFromURL(redisURL, prefix string) (*Redis, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	return NewRedis(redis.NewClient(opts), prefix), nil
}

// Get implements Store.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	record, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("%w: %w", fault.ErrReadFailure, err)
	}

	return record, nil
}

// Update implements Store.
func (r *Redis) Update(ctx context.Context, key string, fn UpdateFunc) error {
	full := r.prefix + key

	// Errors from fn are kept apart so they are not reported as storage failures.
	var fnErr error

	txf := func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, full).Bytes()
		if errors.Is(err, redis.Nil) {
			current = nil
		} else if err != nil {
			return err
		}

		next, err := fn(current)
		if err != nil {
			fnErr = err

			return err
		}

		if next == nil {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, full, next, 0)

			return nil
		})

		return err
	}

	for attempt := range maxTxRetries {
		fnErr = nil

		err := r.client.Watch(ctx, txf, full)
		if err == nil {
			return nil
		}

		if fnErr != nil {
			return fnErr
		}

		if errors.Is(err, redis.TxFailedErr) {
			slog.Debug("store.Redis.Update", "key", full, "attempt", attempt, "stage", "retry")

			continue
		}

		return fmt.Errorf("%w: %w", fault.ErrReadFailure, err)
	}

	return fmt.Errorf("%w: %w: %s", fault.ErrReadFailure, errContention, full)
}

// Delete implements Store.
func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.prefix+key).Err(); err != nil {
		return fmt.Errorf("%w: %w", fault.ErrReadFailure, err)
	}

	return nil
}

// Close implements Store.
func (r *Redis) Close() error {
	return r.client.Close() //nolint:wrapcheck // nothing to add
}
