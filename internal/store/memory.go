package store

import (
	"bytes"
	"context"
	"sync"
)

// Memory keeps records in process memory. It is the store used by tests and one-shot runs.
type Memory struct {
	mu      sync.RWMutex
	records map[string][]byte
	locks   *keyLocks
}

// NewMemory returns an empty memory store.
func NewMemory() *Memory {
	return &Memory{records: map[string][]byte{}, locks: newKeyLocks()}
}

// Get implements Store.
func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	record, ok := m.records[key]
	if !ok {
		return nil, ErrNotFound
	}

	return bytes.Clone(record), nil
}

// Update implements Store.
func (m *Memory) Update(_ context.Context, key string, fn UpdateFunc) error {
	unlock := m.locks.lock(key)
	defer unlock()

	m.mu.RLock()
	current := bytes.Clone(m.records[key])
	m.mu.RUnlock()

	next, err := fn(current)
	if err != nil || next == nil {
		return err
	}

	m.mu.Lock()
	m.records[key] = bytes.Clone(next)
	m.mu.Unlock()

	return nil
}

// Delete implements Store.
func (m *Memory) Delete(_ context.Context, key string) error {
	unlock := m.locks.lock(key)
	defer unlock()

	m.mu.Lock()
	delete(m.records, key)
	m.mu.Unlock()

	return nil
}

// Close implements Store.
func (*Memory) Close() error {
	return nil
}
