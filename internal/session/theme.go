package session

import (
	"context"

	"storybuilder/internal/logging"
	"storybuilder/internal/theme"
)

// Theme reads the stored theme preference. An absent or unrecognized value
// reads as the default theme; a read failure is returned alongside it.
func (s *Session) Theme(ctx context.Context) (theme.Name, error) {
	if s.isClosed() {
		return s.defaultTheme, wrap("read theme", ErrClosed)
	}
	value, ok, err := s.store.Get(ctx, s.themeKey)
	if err != nil {
		return s.defaultTheme, wrap("read theme", err)
	}
	if !ok {
		return s.defaultTheme, nil
	}
	return theme.OrDefault(value, s.defaultTheme), nil
}

// SetTheme stores the theme preference.
func (s *Session) SetTheme(ctx context.Context, name theme.Name) error {
	if s.isClosed() {
		return wrap("set theme", ErrClosed)
	}
	if _, err := theme.Parse(string(name)); err != nil {
		return &Error{Kind: KindValidation, Op: "set theme", Err: err}
	}
	if err := s.store.Set(ctx, s.themeKey, string(name)); err != nil {
		return wrap("set theme", err)
	}
	s.logger.Debug("theme changed", logging.String("theme", string(name)))
	return nil
}

// ToggleTheme flips between light and dark and stores the result.
func (s *Session) ToggleTheme(ctx context.Context) (theme.Name, error) {
	if s.isClosed() {
		return s.defaultTheme, wrap("toggle theme", ErrClosed)
	}
	current, err := s.Theme(ctx)
	if err != nil {
		return current, err
	}
	next := current.Toggle()
	if err := s.SetTheme(ctx, next); err != nil {
		return current, err
	}
	return next, nil
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
