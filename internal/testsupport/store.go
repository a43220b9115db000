package testsupport

import (
	"context"
	"errors"
	"sync"
	"testing"

	"storybuilder/internal/config"
	"storybuilder/internal/kvstore"
)

// MustOpenStore opens the configured kvstore for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) kvstore.Store {
	t.Helper()

	store, err := kvstore.Open(cfg)
	if err != nil {
		t.Fatalf("kvstore.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// ErrInjected is the failure FlakyStore returns when told to fail.
var ErrInjected = errors.New("injected storage failure")

// FlakyStore wraps a store and fails reads or writes on demand.
type FlakyStore struct {
	kvstore.Store

	mu        sync.Mutex
	failGet   bool
	failSet   bool
	sets      int
	lastKey   string
	lastValue string
}

// NewFlakyStore wraps an in-memory store.
func NewFlakyStore() *FlakyStore {
	return &FlakyStore{Store: kvstore.NewMemory(kvstore.Limits{})}
}

// FailGets toggles read failures.
func (f *FlakyStore) FailGets(fail bool) {
	f.mu.Lock()
	f.failGet = fail
	f.mu.Unlock()
}

// FailSets toggles write failures.
func (f *FlakyStore) FailSets(fail bool) {
	f.mu.Lock()
	f.failSet = fail
	f.mu.Unlock()
}

// Sets reports how many writes reached the underlying store.
func (f *FlakyStore) Sets() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sets
}

// LastSet returns the most recent successful write.
func (f *FlakyStore) LastSet() (key, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastKey, f.lastValue
}

func (f *FlakyStore) Get(ctx context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	fail := f.failGet
	f.mu.Unlock()
	if fail {
		return "", false, errors.Join(kvstore.ErrStorage, ErrInjected)
	}
	return f.Store.Get(ctx, key)
}

func (f *FlakyStore) Set(ctx context.Context, key, value string) error {
	f.mu.Lock()
	fail := f.failSet
	f.mu.Unlock()
	if fail {
		return errors.Join(kvstore.ErrStorage, ErrInjected)
	}
	if err := f.Store.Set(ctx, key, value); err != nil {
		return err
	}
	f.mu.Lock()
	f.sets++
	f.lastKey, f.lastValue = key, value
	f.mu.Unlock()
	return nil
}
