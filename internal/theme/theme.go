// Package theme names the editor's color schemes and renders terminal output
// in them.
package theme

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Name identifies a color scheme.
type Name string

const (
	Light Name = "light"
	Dark  Name = "dark"
)

// Parse accepts "light" or "dark" in any case.
func Parse(value string) (Name, error) {
	switch Name(strings.ToLower(strings.TrimSpace(value))) {
	case Light:
		return Light, nil
	case Dark:
		return Dark, nil
	default:
		return "", fmt.Errorf("unknown theme %q (want light or dark)", value)
	}
}

// OrDefault parses value and falls back to fallback when it is not a theme.
func OrDefault(value string, fallback Name) Name {
	if name, err := Parse(value); err == nil {
		return name
	}
	return fallback
}

// Toggle returns the other theme.
func (n Name) Toggle() Name {
	if n == Dark {
		return Light
	}
	return Dark
}

func (n Name) String() string { return string(n) }

// Palette holds the styles used to render the editor in a terminal.
type Palette struct {
	Name    Name
	Title   lipgloss.Style
	Text    lipgloss.Style
	Muted   lipgloss.Style
	Status  lipgloss.Style
	Success lipgloss.Style
	Error   lipgloss.Style
	Info    lipgloss.Style
	Border  lipgloss.Style
}

type colors struct {
	fg, muted, accent, success, danger, info, border string
}

var schemes = map[Name]colors{
	Light: {fg: "#1f2933", muted: "#7b8794", accent: "#3e4c59", success: "#2f855a", danger: "#c53030", info: "#2b6cb0", border: "#cbd2d9"},
	Dark:  {fg: "#e4e7eb", muted: "#9aa5b1", accent: "#f5f7fa", success: "#68d391", danger: "#fc8181", info: "#63b3ed", border: "#52606d"},
}

// For returns the palette for a theme. Unknown names get the light palette.
func For(name Name) Palette {
	c, ok := schemes[name]
	if !ok {
		name = Light
		c = schemes[Light]
	}
	return Palette{
		Name:    name,
		Title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(c.accent)),
		Text:    lipgloss.NewStyle().Foreground(lipgloss.Color(c.fg)),
		Muted:   lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color(c.muted)),
		Status:  lipgloss.NewStyle().Foreground(lipgloss.Color(c.muted)),
		Success: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(c.success)),
		Error:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(c.danger)),
		Info:    lipgloss.NewStyle().Foreground(lipgloss.Color(c.info)),
		Border: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(c.border)).
			Padding(0, 1),
	}
}

// Level returns the style for a notification level name.
func (p Palette) Level(level string) lipgloss.Style {
	switch level {
	case "success":
		return p.Success
	case "error":
		return p.Error
	default:
		return p.Info
	}
}
