// Package main hosts the storybuilder CLI entrypoint and command graph.
//
// The Cobra command tree covers the HTTP daemon (serve), an interactive line
// editor (edit), one-shot node edits, preview, export, theme handling,
// status reporting and configuration scaffolding. One-shot commands open the
// workspace directly, apply their change, save explicitly and close, so they
// refuse to run while a daemon holds the workspace lock.
//
// Keep this package lean: behavior belongs in the internal packages and is
// surfaced here through commands and flags.
package main
