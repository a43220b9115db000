package kvstore

import (
	"context"
	"sync"
)

// Memory is an in-process Store. Values vanish when the process exits.
type Memory struct {
	mu     sync.RWMutex
	values map[string]string
	limits Limits
	closed bool
}

// NewMemory returns an empty in-memory store.
func NewMemory(limits Limits) *Memory {
	return &Memory{values: make(map[string]string), limits: limits}
}

func (m *Memory) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ensureContext(ctx).Err(); err != nil {
		return "", false, storageError("get", key, err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return "", false, ErrClosed
	}
	value, ok := m.values[key]
	return value, ok, nil
}

func (m *Memory) Set(ctx context.Context, key, value string) error {
	if err := ensureContext(ctx).Err(); err != nil {
		return storageError("set", key, err)
	}
	if err := m.limits.check(key, value); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.values[key] = value
	return nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}
