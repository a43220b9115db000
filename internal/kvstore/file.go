package kvstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"storybuilder/internal/fileutil"
)

const fileLockTimeout = 2 * time.Second

// File keeps all keys in one JSON object on disk. Writes rewrite the whole
// file atomically while holding an advisory lock on a sibling ".lock" file,
// so concurrent processes never interleave partial writes.
type File struct {
	path   string
	lock   *flock.Flock
	limits Limits

	mu     sync.Mutex
	closed bool
}

// OpenFile returns a store backed by the JSON file at path. The file is
// created on first write.
func OpenFile(path string, limits Limits) (*File, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: file store path is empty", ErrStorage)
	}
	return &File{path: path, lock: flock.New(path + ".lock"), limits: limits}, nil
}

// Path returns the document file location.
func (f *File) Path() string { return f.path }

func (f *File) Get(ctx context.Context, key string) (string, bool, error) {
	ctx = ensureContext(ctx)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return "", false, ErrClosed
	}
	if err := f.acquire(ctx, false); err != nil {
		return "", false, storageError("get", key, err)
	}
	defer func() { _ = f.lock.Unlock() }()

	values, err := f.readAll()
	if err != nil {
		return "", false, storageError("get", key, err)
	}
	value, ok := values[key]
	return value, ok, nil
}

func (f *File) Set(ctx context.Context, key, value string) error {
	if err := f.limits.check(key, value); err != nil {
		return err
	}
	ctx = ensureContext(ctx)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}
	if err := f.acquire(ctx, true); err != nil {
		return storageError("set", key, err)
	}
	defer func() { _ = f.lock.Unlock() }()

	values, err := f.readAll()
	if err != nil {
		return storageError("set", key, err)
	}
	values[key] = value
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return storageError("set", key, err)
	}
	if err := fileutil.WriteFileAtomic(f.path, data, 0o600); err != nil {
		return storageError("set", key, err)
	}
	return nil
}

func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return f.lock.Close()
}

func (f *File) acquire(ctx context.Context, exclusive bool) error {
	lockCtx, cancel := context.WithTimeout(ctx, fileLockTimeout)
	defer cancel()
	var (
		locked bool
		err    error
	)
	if exclusive {
		locked, err = f.lock.TryLockContext(lockCtx, 20*time.Millisecond)
	} else {
		locked, err = f.lock.TryRLockContext(lockCtx, 20*time.Millisecond)
	}
	if err != nil {
		return fmt.Errorf("lock %s: %w", f.lock.Path(), err)
	}
	if !locked {
		return fmt.Errorf("lock %s: timed out", f.lock.Path())
	}
	return nil
}

func (f *File) readAll() (map[string]string, error) {
	data, ok, err := fileutil.ReadFileIfExists(f.path)
	if err != nil {
		return nil, err
	}
	values := make(map[string]string)
	if !ok || len(data) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("decode %s: %w", f.path, err)
	}
	return values, nil
}
