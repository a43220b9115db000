package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"storybuilder/internal/keymap"
	"storybuilder/internal/session"
	"storybuilder/internal/story"
	"storybuilder/internal/theme"
)

const editHelp = `Commands (positions start at 1):
  list                    show nodes
  add <html>              append a node
  new                     append an empty node and focus it (ctrl+n)
  insert <pos> <html>     insert a node at a position
  edit <pos> <html>       replace a node's content
  write <html>            replace the focused node's content
  dup <pos>               duplicate a node
  rm <pos>                delete a node (asks first)
  move <pos> <new-pos>    move a node
  focus <pos>             focus a node
  preview                 show the rendered preview
  text                    show the plain-text story
  export [dir]            write story_<date>.txt
  save                    save now (ctrl+s)
  key <chord>             press a shortcut, e.g. "key ctrl+s"
  theme [light|dark|toggle]
  status                  show the save status
  help                    show this help
  quit                    leave (asks when changes are unsaved)`

func newEditCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "edit",
		Short: "Edit the story interactively",
		Long: `Edit the story interactively.

Edits autosave after the configured delay. Type "help" for the command list.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			ws, err := ctx.openWorkspace(cmd, false)
			if err != nil {
				return err
			}
			defer func() {
				if closeErr := ws.Close(context.Background()); closeErr != nil && err == nil {
					err = closeErr
				}
			}()

			ed := newLineEditor(ws.Session(), cmd.InOrStdin(), cmd.OutOrStdout(), cfg.Paths.ExportDir)
			return ed.run(cmd.Context())
		},
	}
}

// lineEditor is a line-oriented front end over a session.
type lineEditor struct {
	sess       *session.Session
	dispatcher *keymap.Dispatcher
	scanner    *bufio.Scanner
	out        io.Writer
	exportDir  string
	palette    theme.Palette
}

func newLineEditor(sess *session.Session, in io.Reader, out io.Writer, exportDir string) *lineEditor {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	return &lineEditor{
		sess:       sess,
		dispatcher: keymap.NewDispatcher(sess),
		scanner:    scanner,
		out:        out,
		exportDir:  exportDir,
	}
}

// Confirm reads the answer from the next input line.
func (e *lineEditor) Confirm(prompt string) bool {
	fmt.Fprintf(e.out, "%s [y/N] ", prompt)
	if !e.scanner.Scan() {
		fmt.Fprintln(e.out)
		return false
	}
	return isYes(e.scanner.Text())
}

func (e *lineEditor) run(ctx context.Context) error {
	e.refreshPalette(ctx)
	fmt.Fprintln(e.out, e.palette.Title.Render("storybuilder")+" "+e.palette.Muted.Render(`type "help" for commands`))
	e.printNodes()
	for {
		fmt.Fprint(e.out, e.palette.Status.Render("["+e.sess.Status()+"]")+" > ")
		if !e.scanner.Scan() {
			fmt.Fprintln(e.out)
			if e.sess.Dirty() {
				fmt.Fprintln(e.out, e.palette.Error.Render("Input ended with unsaved changes; they were not saved."))
			}
			return e.scanner.Err()
		}
		line := strings.TrimSpace(e.scanner.Text())
		if line == "" {
			continue
		}
		quit, err := e.execute(ctx, line)
		if err != nil {
			fmt.Fprintln(e.out, e.palette.Error.Render("error: "+err.Error()))
		}
		if quit {
			return nil
		}
	}
}

func (e *lineEditor) execute(ctx context.Context, line string) (bool, error) {
	verb, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch strings.ToLower(verb) {
	case "help", "?":
		fmt.Fprintln(e.out, editHelp)
	case "list", "ls":
		e.printNodes()
	case "add":
		node, err := e.sess.AddNode(rest)
		if err != nil {
			return false, err
		}
		e.printNodeChange("Added", node)
	case "new":
		return false, e.pressKey(ctx, "ctrl+n")
	case "insert":
		posArg, content, _ := strings.Cut(rest, " ")
		index, err := parsePosition(posArg)
		if err != nil {
			return false, err
		}
		node, err := e.sess.InsertNode(index, strings.TrimSpace(content))
		if err != nil {
			return false, err
		}
		e.printNodeChange("Inserted", node)
	case "edit":
		ref, content, _ := strings.Cut(rest, " ")
		node, _, err := resolveNode(e.sess, ref)
		if err != nil {
			return false, err
		}
		if err := e.sess.UpdateNode(node.ID, strings.TrimSpace(content)); err != nil {
			return false, err
		}
		node.Content = strings.TrimSpace(content)
		e.printNodeChange("Updated", node)
	case "write":
		id := e.sess.Focused()
		if id == "" {
			return false, errors.New("no node is focused; use focus <pos> or new")
		}
		if err := e.sess.UpdateNode(id, rest); err != nil {
			return false, err
		}
		node, _ := e.sess.Node(id)
		e.printNodeChange("Updated", node)
	case "dup", "duplicate":
		node, _, err := resolveNode(e.sess, rest)
		if err != nil {
			return false, err
		}
		dup, err := e.sess.DuplicateNode(node.ID)
		if err != nil {
			return false, err
		}
		e.printNodeChange("Duplicated", dup)
	case "rm", "remove", "delete":
		node, index, err := resolveNode(e.sess, rest)
		if err != nil {
			return false, err
		}
		if err := e.sess.RemoveNode(node.ID, e); err != nil {
			if errors.Is(err, session.ErrDeleteNotConfirmed) {
				fmt.Fprintln(e.out, e.palette.Muted.Render("Kept node "+strconv.Itoa(index+1)))
				return false, nil
			}
			return false, err
		}
		fmt.Fprintf(e.out, "Removed node %d\n", index+1)
	case "move":
		ref, target, _ := strings.Cut(rest, " ")
		node, _, err := resolveNode(e.sess, ref)
		if err != nil {
			return false, err
		}
		index, err := parsePosition(target)
		if err != nil {
			return false, err
		}
		if err := e.sess.MoveNode(node.ID, index); err != nil {
			return false, err
		}
		e.printNodeChange("Moved", node)
	case "focus":
		node, index, err := resolveNode(e.sess, rest)
		if err != nil {
			return false, err
		}
		if err := e.sess.Focus(node.ID); err != nil {
			return false, err
		}
		fmt.Fprintf(e.out, "Focused node %d\n", index+1)
	case "preview":
		fmt.Fprintln(e.out, e.palette.Border.Render(e.sess.Preview()))
	case "text":
		text := e.sess.PlainText()
		if text == "" {
			text = e.palette.Muted.Render(story.EmptyPreviewMessage)
		}
		fmt.Fprintln(e.out, text)
	case "export":
		dir := rest
		if dir == "" {
			dir = e.exportDir
		}
		if dir == "" {
			dir = "."
		}
		path, out, err := e.sess.ExportTo(ctx, dir)
		if err != nil {
			return false, err
		}
		fmt.Fprintf(e.out, "Exported %d nodes to %s\n", out.Nodes, path)
	case "save":
		return false, e.pressKey(ctx, "ctrl+s")
	case "key":
		return false, e.pressKey(ctx, rest)
	case "theme":
		return false, e.changeTheme(ctx, rest)
	case "status":
		snap := e.sess.Snapshot()
		fmt.Fprintf(e.out, "%s: %d nodes, state %s, autosave pending %s\n",
			snap.Status, len(snap.Nodes), snap.State, yesNo(snap.Pending))
	case "quit", "exit", "q":
		if e.sess.ConfirmDiscard(e) {
			return true, nil
		}
	default:
		return false, fmt.Errorf("unknown command %q (try help)", verb)
	}
	return false, nil
}

func (e *lineEditor) pressKey(ctx context.Context, chord string) error {
	key, err := keymap.Parse(chord)
	if err != nil {
		return err
	}
	res := e.dispatcher.Handle(ctx, key)
	if !res.Handled {
		return fmt.Errorf("%s is not bound", key)
	}
	if res.Err != nil {
		return res.Err
	}
	switch res.Action {
	case keymap.ActionNewNode:
		if res.Node != nil {
			e.printNodeChange("Added", *res.Node)
		}
	case keymap.ActionSave:
		fmt.Fprintln(e.out, e.palette.Success.Render(e.sess.Status()))
	}
	return nil
}

func (e *lineEditor) changeTheme(ctx context.Context, arg string) error {
	var (
		name theme.Name
		err  error
	)
	switch strings.ToLower(arg) {
	case "":
		name, err = e.sess.Theme(ctx)
	case "toggle":
		name, err = e.sess.ToggleTheme(ctx)
	default:
		name, err = theme.Parse(arg)
		if err == nil {
			err = e.sess.SetTheme(ctx, name)
		}
	}
	if err != nil {
		return err
	}
	e.refreshPalette(ctx)
	fmt.Fprintf(e.out, "Theme: %s\n", e.palette.Title.Render(string(name)))
	return nil
}

func (e *lineEditor) refreshPalette(ctx context.Context) {
	name, _ := e.sess.Theme(ctx)
	e.palette = theme.For(name)
}

func (e *lineEditor) printNodes() {
	nodes := e.sess.Nodes()
	if len(nodes) == 0 {
		fmt.Fprintln(e.out, e.palette.Muted.Render(story.EmptyPreviewMessage))
		return
	}
	focus := e.sess.Focused()
	for i, n := range nodes {
		marker := " "
		if n.ID == focus {
			marker = "*"
		}
		text := story.PlainText(n.Content)
		if text == "" {
			text = e.palette.Muted.Render(e.sess.Placeholder())
		}
		fmt.Fprintf(e.out, "%s%3d  %s\n", marker, i+1, truncateText(text, listTextWidth))
	}
}

func (e *lineEditor) printNodeChange(verb string, node story.Node) {
	_, index, err := resolveNode(e.sess, node.ID)
	if err != nil {
		fmt.Fprintf(e.out, "%s node\n", verb)
		return
	}
	fmt.Fprintf(e.out, "%s node %d\n", verb, index+1)
}
