package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"

	"github.com/farcloser/primordium/fault"
)

const (
	dirPerms  = 0o700
	filePerms = 0o600
	extension = ".json"
)

// File keeps one file per key in a directory.
// Writes go to a temporary file renamed over the record, so readers never see a torn record.
// Updates hold an in-process lock and an advisory file lock, so concurrent CLI runs serialize as well.
type File struct {
	dir   string
	locks *keyLocks
}

// NewFile returns a file store rooted at dir, creating it if needed.
func NewFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, dirPerms); err != nil {
		return nil, fmt.Errorf("%w: %w", fault.ErrReadFailure, err)
	}

	return &File{dir: dir, locks: newKeyLocks()}, nil
}

// Get implements Store.
func (f *File) Get(_ context.Context, key string) ([]byte, error) {
	record, err := os.ReadFile(f.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("%w: %w", fault.ErrReadFailure, err)
	}

	return record, nil
}

// Update implements Store.
func (f *File) Update(_ context.Context, key string, fn UpdateFunc) error {
	unlock := f.locks.lock(key)
	defer unlock()

	release, err := lockFile(f.path(key) + ".lock")
	if err != nil {
		return fmt.Errorf("%w: %w", fault.ErrReadFailure, err)
	}
	defer release()

	current, err := os.ReadFile(f.path(key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %w", fault.ErrReadFailure, err)
	}

	next, err := fn(current)
	if err != nil || next == nil {
		return err
	}

	return f.write(key, next)
}

// Delete implements Store.
func (f *File) Delete(_ context.Context, key string) error {
	unlock := f.locks.lock(key)
	defer unlock()

	if err := os.Remove(f.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %w", fault.ErrReadFailure, err)
	}

	return nil
}

// Close implements Store.
func (*File) Close() error {
	return nil
}

func (f *File) write(key string, record []byte) error {
	tmp, err := os.CreateTemp(f.dir, ".record-*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %w", fault.ErrReadFailure, err)
	}

	cleanup := func() {
		if rmErr := os.Remove(tmp.Name()); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			slog.Warn("failed to remove temporary record", "path", tmp.Name(), "error", rmErr)
		}
	}

	if _, err = tmp.Write(record); err == nil {
		err = tmp.Sync()
	}

	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}

	if err == nil {
		err = os.Chmod(tmp.Name(), filePerms)
	}

	if err == nil {
		err = os.Rename(tmp.Name(), f.path(key))
	}

	if err != nil {
		cleanup()

		return fmt.Errorf("%w: %w", fault.ErrReadFailure, err)
	}

	return nil
}

// path escapes the key so separators such as ":" and "/" stay inside a single file name.
func (f *File) path(key string) string {
	return filepath.Join(f.dir, url.QueryEscape(key)+extension)
}
