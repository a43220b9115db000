// Package keymap maps keyboard shortcuts onto session commands.
package keymap

import (
	"context"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"storybuilder/internal/session"
	"storybuilder/internal/story"
)

// Key is a single key press with its modifiers.
type Key struct {
	Ctrl  bool
	Meta  bool
	Shift bool
	Alt   bool
	Rune  rune
}

// Parse reads chords such as "ctrl+s", "Cmd+N" or "meta+shift+x".
func Parse(chord string) (Key, error) {
	parts := strings.Split(strings.TrimSpace(chord), "+")
	if len(parts) == 0 || parts[len(parts)-1] == "" {
		return Key{}, fmt.Errorf("empty key in chord %q", chord)
	}
	var key Key
	for _, mod := range parts[:len(parts)-1] {
		switch strings.ToLower(strings.TrimSpace(mod)) {
		case "ctrl", "control":
			key.Ctrl = true
		case "cmd", "command", "meta", "super":
			key.Meta = true
		case "shift":
			key.Shift = true
		case "alt", "option":
			key.Alt = true
		default:
			return Key{}, fmt.Errorf("unknown modifier %q in chord %q", mod, chord)
		}
	}
	last := strings.TrimSpace(parts[len(parts)-1])
	r, size := utf8.DecodeRuneInString(last)
	if size != len(last) {
		return Key{}, fmt.Errorf("key %q in chord %q is not a single character", last, chord)
	}
	key.Rune = unicode.ToLower(r)
	return key, nil
}

func (k Key) String() string {
	var parts []string
	if k.Ctrl {
		parts = append(parts, "ctrl")
	}
	if k.Meta {
		parts = append(parts, "meta")
	}
	if k.Alt {
		parts = append(parts, "alt")
	}
	if k.Shift {
		parts = append(parts, "shift")
	}
	parts = append(parts, string(unicode.ToLower(k.Rune)))
	return strings.Join(parts, "+")
}

// Editor is the subset of session behaviour shortcuts drive.
type Editor interface {
	Save(ctx context.Context, explicit bool) session.SaveResult
	NewNode() (story.Node, error)
}

// Result reports what a dispatched key did.
type Result struct {
	// Handled means the shortcut was consumed and default handling of the
	// key should be suppressed.
	Handled bool                `json:"handled"`
	Action  string              `json:"action,omitempty"`
	Save    *session.SaveResult `json:"-"`
	Node    *story.Node         `json:"node,omitempty"`
	Err     error               `json:"-"`
}

const (
	ActionSave    = "save"
	ActionNewNode = "new_node"
)

// Dispatcher routes shortcuts to an Editor.
type Dispatcher struct {
	editor Editor
}

// NewDispatcher returns a dispatcher for editor.
func NewDispatcher(editor Editor) *Dispatcher {
	return &Dispatcher{editor: editor}
}

// Handle runs the command bound to key. Ctrl or Cmd with S saves
// explicitly; with N it adds a focused empty node. Anything else is left
// unhandled.
func (d *Dispatcher) Handle(ctx context.Context, key Key) Result {
	if !key.Ctrl && !key.Meta {
		return Result{}
	}
	switch unicode.ToLower(key.Rune) {
	case 's':
		res := d.editor.Save(ctx, true)
		return Result{Handled: true, Action: ActionSave, Save: &res, Err: res.Err}
	case 'n':
		node, err := d.editor.NewNode()
		if err != nil {
			return Result{Handled: true, Action: ActionNewNode, Err: err}
		}
		return Result{Handled: true, Action: ActionNewNode, Node: &node}
	default:
		return Result{}
	}
}
