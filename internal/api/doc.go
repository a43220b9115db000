// Package api defines the JSON payloads exchanged with the storybuilder
// daemon and a small client for them.
//
// The daemon renders session state through these types and the CLI decodes
// them, so both sides agree on field names without sharing session
// internals.
package api
