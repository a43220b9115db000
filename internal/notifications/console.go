package notifications

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/mattn/go-isatty"

	"storybuilder/internal/theme"
)

// Console prints one line per notification, styled with the active theme
// when the writer is a terminal.
type Console struct {
	mu       sync.Mutex
	out      io.Writer
	colorize bool
	theme    func() theme.Name
}

// NewConsole writes to out. current reports the theme to render with; nil
// means light.
func NewConsole(out io.Writer, current func() theme.Name) *Console {
	if current == nil {
		current = func() theme.Name { return theme.Light }
	}
	return &Console{out: out, colorize: shouldColorize(out), theme: current}
}

func (c *Console) Notify(_ context.Context, n Notification) error {
	prefix := "[" + string(n.Level) + "]"
	message := n.Message
	if c.colorize {
		palette := theme.For(c.theme())
		style := palette.Level(string(n.Level))
		prefix = style.Render(prefix)
		message = palette.Text.Render(message)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := fmt.Fprintf(c.out, "%s %s\n", prefix, message); err != nil {
		return fmt.Errorf("write console notification: %w", err)
	}
	return nil
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
