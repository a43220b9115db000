package session

import (
	"errors"
	"fmt"

	"storybuilder/internal/kvstore"
	"storybuilder/internal/story"
)

var (
	// ErrNodeNotFound is returned when a command names an unknown node.
	ErrNodeNotFound = story.ErrNodeNotFound
	// ErrIndexOutOfRange is returned for inserts and moves outside the story.
	ErrIndexOutOfRange = story.ErrIndexOutOfRange
	// ErrDeleteNotConfirmed is returned when a removal was not confirmed.
	ErrDeleteNotConfirmed = errors.New("delete not confirmed")
	// ErrClosed is returned by operations on a closed session.
	ErrClosed = errors.New("session closed")
)

// Kind classifies session errors for transports.
type Kind string

const (
	KindNotFound   Kind = "not_found"
	KindConflict   Kind = "conflict"
	KindValidation Kind = "validation"
	KindStorage    Kind = "storage"
	KindInternal   Kind = "internal"
)

// Error annotates a failed session operation with its kind.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ErrorKind reports the classification as a string.
func (e *Error) ErrorKind() string { return string(e.Kind) }

// KindOf classifies err, defaulting to KindInternal.
func KindOf(err error) Kind {
	var sessionErr *Error
	if errors.As(err, &sessionErr) {
		return sessionErr.Kind
	}
	return classify(err)
}

func classify(err error) Kind {
	switch {
	case errors.Is(err, ErrNodeNotFound):
		return KindNotFound
	case errors.Is(err, ErrDeleteNotConfirmed), errors.Is(err, ErrClosed):
		return KindConflict
	case errors.Is(err, ErrIndexOutOfRange):
		return KindValidation
	case errors.Is(err, kvstore.ErrStorage), errors.Is(err, story.ErrSerialization):
		return KindStorage
	default:
		return KindInternal
	}
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: classify(err), Op: op, Err: err}
}
