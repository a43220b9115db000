package kvstore

import (
	"fmt"

	"storybuilder/internal/config"
)

// Open returns the backend selected by cfg.Storage.Backend.
func Open(cfg *config.Config) (Store, error) {
	limits := Limits{MaxValueBytes: cfg.Storage.MaxValueBytes}
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		return NewMemory(limits), nil
	case config.BackendFile:
		return OpenFile(cfg.DocumentFilePath(), limits)
	case config.BackendSQLite, "":
		return OpenSQLite(cfg.DatabasePath(), limits)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
