package testsupport

import (
	"path/filepath"
	"testing"

	"storybuilder/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults to the memory backend with console notifications off and
// applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.ExportDir = filepath.Join(base, "exports")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Storage.Backend = config.BackendMemory
	cfgVal.Notifications.Console = false

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithBackend selects the storage backend.
func WithBackend(backend string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Storage.Backend = backend
	}
}

// WithAutosaveDelay overrides the debounce delay in milliseconds.
func WithAutosaveDelay(ms int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Autosave.DelayMS = ms
	}
}

// WithAutosaveDisabled turns autosave off.
func WithAutosaveDisabled() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Autosave.Enabled = false
	}
}

// WithMaxValueBytes caps stored values.
func WithMaxValueBytes(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Storage.MaxValueBytes = n
	}
}

// WithPlaceholder sets the hint shown for nodes with no text.
func WithPlaceholder(text string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Editor.Placeholder = text
	}
}

// WithAPIToken requires bearer auth on the HTTP API.
func WithAPIToken(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.APIToken = token
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
