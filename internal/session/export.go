package session

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"storybuilder/internal/fileutil"
	"storybuilder/internal/logging"
	"storybuilder/internal/notifications"
	"storybuilder/internal/story"
)

// Export is a rendered plain-text copy of the story.
type Export struct {
	Filename string
	Content  string
	Nodes    int
	Created  time.Time
}

// Export renders the story as plain text and reports success.
func (s *Session) Export(ctx context.Context) (Export, error) {
	out, err := s.render()
	if err != nil {
		return out, err
	}
	s.deliver(ctx, []notifications.Notification{notifications.Success(MessageExported)})
	return out, nil
}

func (s *Session) render() (Export, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Export{}, wrap("export", ErrClosed)
	}
	contents := s.story.Contents()
	now := s.clock.Now()
	s.mu.Unlock()

	out := Export{
		Filename: story.ExportFilename(now),
		Content:  story.JoinPlainText(contents),
		Nodes:    len(contents),
		Created:  now,
	}
	return out, nil
}

// ExportTo writes the export into dir and returns the file path.
func (s *Session) ExportTo(ctx context.Context, dir string) (string, Export, error) {
	out, err := s.render()
	if err != nil {
		return "", out, err
	}
	path := filepath.Join(dir, out.Filename)
	if err := fileutil.WriteFileAtomic(path, []byte(out.Content), 0o644); err != nil {
		logging.WarnWithContext(s.logger, "export write failed", "export_failed",
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check paths.export_dir permissions"),
		)
		s.deliver(ctx, []notifications.Notification{notifications.Failure(MessageExportError)})
		return "", out, &Error{Kind: KindStorage, Op: "export", Err: fmt.Errorf("write %s: %w", path, err)}
	}
	s.logger.Info("story exported", logging.String("path", path), logging.Int("nodes", out.Nodes))
	s.deliver(ctx, []notifications.Notification{notifications.Success(MessageExported)})
	return path, out, nil
}
