package story

import "errors"

var (
	// ErrNodeNotFound is returned when a command names an unknown node ID.
	ErrNodeNotFound = errors.New("node not found")
	// ErrIndexOutOfRange is returned when an insert or move targets an index
	// outside the story.
	ErrIndexOutOfRange = errors.New("index out of range")
	// ErrSerialization wraps failures encoding a StoryDocument.
	ErrSerialization = errors.New("story serialization failed")
	// ErrMalformed wraps persisted values that do not decode as a story.
	ErrMalformed = errors.New("malformed story document")
)
