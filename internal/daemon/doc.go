// Package daemon runs the long-lived storybuilder process that serves the
// editor over HTTP.
//
// It opens a workspace (taking the single-instance lock), runs preflight
// checks, and exposes the session through a JSON API guarded by an optional
// bearer token. Status changes and notifications stream to clients through
// long-polling and a websocket. Shutting down closes the workspace, which
// saves any unsaved edits first.
//
// Keep editing semantics in the session package: handlers here only decode
// requests, call the session and render the result.
package daemon
