package kvstore

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrStorage marks a failure of the underlying store.
	ErrStorage = errors.New("storage failure")
	// ErrQuotaExceeded marks a write rejected by the configured capacity limit.
	ErrQuotaExceeded = fmt.Errorf("%w: quota exceeded", ErrStorage)
	// ErrClosed is returned by operations on a closed store.
	ErrClosed = fmt.Errorf("%w: store closed", ErrStorage)
)

// Store is a durable string key-value store.
type Store interface {
	// Get returns the value stored under key. ok is false when the key has
	// never been written.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error
	// Close releases resources held by the store.
	Close() error
}

// Limits bounds what a store will accept.
type Limits struct {
	// MaxValueBytes rejects values larger than this many bytes. Zero disables
	// the check.
	MaxValueBytes int
}

func (l Limits) check(key, value string) error {
	if l.MaxValueBytes > 0 && len(value) > l.MaxValueBytes {
		return fmt.Errorf("set %q: %d bytes exceeds limit of %d: %w", key, len(value), l.MaxValueBytes, ErrQuotaExceeded)
	}
	return nil
}

func storageError(op, key string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStorage) {
		return err
	}
	return fmt.Errorf("%s %q: %w: %w", op, key, ErrStorage, err)
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}
