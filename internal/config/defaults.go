package config

const (
	defaultConfigPath           = "~/.config/storybuilder/config.toml"
	defaultDataDir              = "~/.local/share/storybuilder"
	defaultLogDir               = "~/.local/share/storybuilder/logs"
	defaultAPIBind              = "127.0.0.1:7488"
	defaultStorageBackend       = BackendSQLite
	defaultStoryKey             = "story"
	defaultThemeKey             = "theme"
	defaultAutosaveDelayMS      = 3000
	defaultPlaceholder          = "Start typing your story..."
	defaultTheme                = "light"
	defaultNotifyRequestTimeout = 10
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultLogRetentionDays     = 14
)

// Storage backends understood by the workspace.
const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
	BackendMemory = "memory"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Storage: Storage{
			Backend:  defaultStorageBackend,
			StoryKey: defaultStoryKey,
			ThemeKey: defaultThemeKey,
		},
		Autosave: Autosave{
			Enabled: true,
			DelayMS: defaultAutosaveDelayMS,
		},
		Editor: Editor{
			Placeholder:  defaultPlaceholder,
			DefaultTheme: defaultTheme,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Console:        true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
