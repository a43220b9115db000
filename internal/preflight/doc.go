// Package preflight provides readiness checks for the paths and services
// storybuilder depends on.
//
// These checks run in two contexts:
//   - The daemon calls RunAll at startup and logs any failure before serving.
//   - The CLI "storybuilder status" command prints every result as a table.
//
// Checks for optional features (ntfy) are skipped when the feature is not
// configured.
package preflight
