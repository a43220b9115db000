package session

import (
	"context"
	"time"

	"storybuilder/internal/logging"
	"storybuilder/internal/notifications"
	"storybuilder/internal/story"
)

// LoadResult describes the outcome of reading the persisted story.
type LoadResult struct {
	// Found is true when a stored story was decoded.
	Found bool
	// Nodes is the number of nodes loaded.
	Nodes int
	// LastModified is the stored timestamp, zero when absent or unparsable.
	LastModified time.Time
	// Err is the read or decode failure. The session is empty when set.
	Err error
}

// SaveResult describes the outcome of one save attempt.
type SaveResult struct {
	Explicit bool
	// Saved is true when the document reached the store.
	Saved        bool
	Nodes        int
	LastModified time.Time
	// Err is the serialization or storage failure, if any.
	Err error
}

// LastLoad returns the result of the most recent Load.
func (s *Session) LastLoad() LoadResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastLoad
}

// Load replaces the current story with the persisted one. An absent value
// yields an empty story silently; a read failure or malformed value yields an
// empty story and one error notification. The session is clean afterwards.
func (s *Session) Load(ctx context.Context) LoadResult {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return LoadResult{Err: wrap("load", ErrClosed)}
	}
	result, pending := s.loadLocked(ctx)
	s.lastLoad = result
	s.mu.Unlock()

	s.deliver(ctx, pending)
	return result
}

func (s *Session) loadLocked(ctx context.Context) (LoadResult, []notifications.Notification) {
	s.scheduler.Cancel()
	s.focus = ""
	s.dirty = false

	var result LoadResult
	value, ok, err := s.store.Get(ctx, s.storyKey)
	switch {
	case err != nil:
		result.Err = wrap("load", err)
	case !ok || value == "":
		s.story.Reset(nil)
	default:
		doc, decodeErr := story.Decode(value)
		if decodeErr != nil {
			result.Err = wrap("load", decodeErr)
			break
		}
		s.story.Reset(doc.Nodes)
		result.Found = true
		result.Nodes = len(doc.Nodes)
		result.LastModified = doc.LastModified
		s.lastSaved = doc.LastModified
	}

	s.setStatusLocked(StateClean, StatusSaved)

	if result.Err != nil {
		s.story.Reset(nil)
		logging.WarnWithContext(s.logger, "could not load saved story", "story_load_failed",
			logging.String("key", s.storyKey),
			logging.Error(result.Err),
			logging.String(logging.FieldErrorHint, "the stored story is unreadable; saving will overwrite it"),
			logging.String(logging.FieldImpact, "session started with an empty story"),
		)
		return result, []notifications.Notification{notifications.Failure(MessageLoadFailed)}
	}
	s.logger.Debug("story loaded",
		logging.Bool("found", result.Found),
		logging.Int("nodes", result.Nodes),
	)
	return result, nil
}

// Save writes the current story under the story key. Explicit saves always
// notify once with the outcome; autosaves only notify on failure. Failures
// leave the dirty flag untouched so a retry needs no further edit.
func (s *Session) Save(ctx context.Context, explicit bool) SaveResult {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return SaveResult{Explicit: explicit, Err: wrap("save", ErrClosed)}
	}
	result, pending := s.saveLocked(ctx, explicit)
	s.mu.Unlock()

	s.deliver(ctx, pending)
	return result
}

func (s *Session) runAutosave() {
	result := s.Save(context.Background(), false)
	if result.Err != nil {
		return
	}
	s.logger.Debug("autosave complete", logging.Int("nodes", result.Nodes))
}

func (s *Session) saveLocked(ctx context.Context, explicit bool) (SaveResult, []notifications.Notification) {
	result := SaveResult{Explicit: explicit}
	wasDirty := s.dirty
	s.setStatusLocked(StateSaving, StatusSaving)

	doc := story.NewDocument(s.story, s.clock.Now())
	result.Nodes = len(doc.Nodes)
	value, err := story.Encode(doc)
	if err == nil {
		err = s.store.Set(ctx, s.storyKey, value)
	}
	if err != nil {
		result.Err = wrap("save", err)
		next := StateClean
		if wasDirty {
			next = StateDirty
		}
		s.setStatusLocked(next, StatusFailed)
		logging.WarnWithContext(s.logger, "story save failed", "story_save_failed",
			logging.Bool("explicit", explicit),
			logging.Int("nodes", result.Nodes),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check free space and storage.max_value_bytes"),
			logging.String(logging.FieldImpact, "edits remain unsaved; the next save will retry"),
		)
		return result, []notifications.Notification{notifications.Failure(MessageSaveFailed)}
	}

	s.dirty = false
	s.lastSaved = doc.LastModified
	s.scheduler.Cancel()
	s.setStatusLocked(StateClean, StatusSaved)
	result.Saved = true
	result.LastModified = doc.LastModified
	s.logger.Info("story saved",
		logging.Bool("explicit", explicit),
		logging.Int("nodes", result.Nodes),
		logging.String(logging.FieldEventType, "story_saved"),
	)

	if explicit {
		return result, []notifications.Notification{notifications.Success(MessageSaved)}
	}
	return result, nil
}
