package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateAutosave(); err != nil {
		return err
	}
	if err := c.validateEditor(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateStorage() error {
	switch c.Storage.Backend {
	case BackendSQLite, BackendFile, BackendMemory:
	default:
		return fmt.Errorf("storage.backend must be one of %s, %s, %s (got %q)", BackendSQLite, BackendFile, BackendMemory, c.Storage.Backend)
	}
	if c.Storage.StoryKey == c.Storage.ThemeKey {
		return errors.New("storage.story_key and storage.theme_key must differ")
	}
	if c.Storage.MaxValueBytes < 0 {
		return errors.New("storage.max_value_bytes must be >= 0")
	}
	return nil
}

func (c *Config) validateAutosave() error {
	if c.Autosave.DelayMS <= 0 {
		return errors.New("autosave.delay_ms must be positive")
	}
	return nil
}

func (c *Config) validateEditor() error {
	switch c.Editor.DefaultTheme {
	case "light", "dark":
		return nil
	default:
		return fmt.Errorf("editor.default_theme must be light or dark (got %q)", c.Editor.DefaultTheme)
	}
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json (got %q)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error (got %q)", c.Logging.Level)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must be >= 0")
	}
	return nil
}
