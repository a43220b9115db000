// Package story holds the ordered node model of a story and the codecs that
// move it in and out of persistence.
//
// A Story is an ordered list of Nodes whose content is an HTML fragment.
// Display order is slice order. The persisted StoryDocument carries only the
// content strings and a modification timestamp; node IDs live for a single
// session.
//
// Text helpers turn node HTML into the plain text used by exports and the
// sanitized markup used by previews.
package story
