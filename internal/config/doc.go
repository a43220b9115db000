// Package config loads, normalizes, and validates storybuilder configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// STORYBUILDER_API_TOKEN. The Config type centralizes every knob the daemon,
// the line editor, and the one-shot CLI commands need, so the data directory,
// storage backend, and autosave timing are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
