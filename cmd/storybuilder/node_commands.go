package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"storybuilder/internal/api"
	"storybuilder/internal/session"
	"storybuilder/internal/story"
)

const listTextWidth = 60

func newNodeCommand(ctx *commandContext) *cobra.Command {
	nodeCmd := &cobra.Command{
		Use:   "node",
		Short: "Inspect and edit story nodes",
		Long: `Inspect and edit story nodes.

Nodes are addressed by their 1-based position as shown by "node list".
Node IDs are only stable while one process keeps the story open.`,
	}

	nodeCmd.AddCommand(newNodeListCommand(ctx))
	nodeCmd.AddCommand(newNodeAddCommand(ctx))
	nodeCmd.AddCommand(newNodeEditCommand(ctx))
	nodeCmd.AddCommand(newNodeDuplicateCommand(ctx))
	nodeCmd.AddCommand(newNodeRemoveCommand(ctx))
	nodeCmd.AddCommand(newNodeMoveCommand(ctx))
	return nodeCmd
}

func newNodeListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List nodes in story order",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, false, func(sess *session.Session) error {
				nodes := sess.Nodes()
				if ctx.jsonOutput() {
					return writeJSON(cmd, api.FromNodes(nodes))
				}
				out := cmd.OutOrStdout()
				if len(nodes) == 0 {
					fmt.Fprintln(out, "Story is empty")
					return nil
				}
				fmt.Fprintln(out, renderTable([]string{"#", "Text", "Chars"}, nodeRows(nodes), []columnAlignment{alignRight, alignLeft, alignRight}))
				return nil
			})
		},
	}
}

func nodeRows(nodes []story.Node) [][]string {
	rows := make([][]string, len(nodes))
	for i, n := range nodes {
		text := story.PlainText(n.Content)
		rows[i] = []string{
			strconv.Itoa(i + 1),
			truncateText(text, listTextWidth),
			strconv.Itoa(len([]rune(text))),
		}
	}
	return rows
}

func newNodeAddCommand(ctx *commandContext) *cobra.Command {
	var at int
	cmd := &cobra.Command{
		Use:   "add [content...]",
		Short: "Append a node (content from args or stdin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := contentArg(cmd, args)
			if err != nil {
				return err
			}
			return ctx.withSession(cmd, true, func(sess *session.Session) error {
				var node story.Node
				if at > 0 {
					node, err = sess.InsertNode(at-1, content)
				} else {
					node, err = sess.AddNode(content)
				}
				if err != nil {
					return err
				}
				_, index, err := resolveNode(sess, node.ID)
				if err != nil {
					return err
				}
				return reportNode(cmd, ctx, "Added", node, index)
			})
		},
	}
	cmd.Flags().IntVar(&at, "at", 0, "Insert at this 1-based position instead of appending")
	return cmd
}

func newNodeEditCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "edit <position> [content...]",
		Short: "Replace a node's content (content from args or stdin)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := contentArg(cmd, args[1:])
			if err != nil {
				return err
			}
			return ctx.withSession(cmd, true, func(sess *session.Session) error {
				node, index, err := resolveNode(sess, args[0])
				if err != nil {
					return err
				}
				if err := sess.UpdateNode(node.ID, content); err != nil {
					return err
				}
				node.Content = content
				return reportNode(cmd, ctx, "Updated", node, index)
			})
		},
	}
}

func newNodeDuplicateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "dup <position>",
		Aliases: []string{"duplicate"},
		Short:   "Duplicate a node directly after itself",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, true, func(sess *session.Session) error {
				source, index, err := resolveNode(sess, args[0])
				if err != nil {
					return err
				}
				node, err := sess.DuplicateNode(source.ID)
				if err != nil {
					return err
				}
				return reportNode(cmd, ctx, "Duplicated", node, index+1)
			})
		},
	}
}

func newNodeRemoveCommand(ctx *commandContext) *cobra.Command {
	var assumeYes bool
	cmd := &cobra.Command{
		Use:     "rm <position>",
		Aliases: []string{"remove", "delete"},
		Short:   "Delete a node after confirmation",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var confirm session.Confirmer = newPromptConfirmer(cmd)
			if assumeYes {
				confirm = session.Always
			}
			return ctx.withSession(cmd, true, func(sess *session.Session) error {
				node, index, err := resolveNode(sess, args[0])
				if err != nil {
					return err
				}
				if err := sess.RemoveNode(node.ID, confirm); err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, map[string]any{"removed": api.FromNode(node, index)})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed node %d\n", index+1)
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func newNodeMoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "move <position> <new-position>",
		Short: "Move a node to a new position",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := parsePosition(args[1])
			if err != nil {
				return err
			}
			return ctx.withSession(cmd, true, func(sess *session.Session) error {
				node, _, err := resolveNode(sess, args[0])
				if err != nil {
					return err
				}
				if err := sess.MoveNode(node.ID, target); err != nil {
					return err
				}
				return reportNode(cmd, ctx, "Moved", node, target)
			})
		},
	}
}

func reportNode(cmd *cobra.Command, ctx *commandContext, verb string, node story.Node, index int) error {
	if ctx.jsonOutput() {
		return writeJSON(cmd, api.FromNode(node, index))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s node %d: %s\n", verb, index+1, truncateText(story.PlainText(node.Content), listTextWidth))
	return nil
}
