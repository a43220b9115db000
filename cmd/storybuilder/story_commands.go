package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"storybuilder/internal/api"
	"storybuilder/internal/session"
)

func newPreviewCommand(ctx *commandContext) *cobra.Command {
	var plain bool
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Print the rendered story preview",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, false, func(sess *session.Session) error {
				if ctx.jsonOutput() {
					return writeJSON(cmd, api.Preview{HTML: sess.Preview()})
				}
				out := sess.Preview()
				if plain {
					out = sess.PlainText()
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), out)
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&plain, "text", false, "Print plain text instead of HTML")
	return cmd
}

type exportResult struct {
	Path     string `json:"path,omitempty"`
	Filename string `json:"filename"`
	Nodes    int    `json:"nodes"`
}

func newExportCommand(ctx *commandContext) *cobra.Command {
	var dir string
	var toStdout bool
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the story as plain text",
		Long: `Export the story as plain text.

The file is named story_<YYYY-MM-DD>.txt and written to --dir, the configured
paths.export_dir, or the current directory, in that order.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return ctx.withSession(cmd, false, func(sess *session.Session) error {
				if toStdout {
					out, err := sess.Export(cmd.Context())
					if err != nil {
						return err
					}
					_, err = io.WriteString(cmd.OutOrStdout(), out.Content+"\n")
					return err
				}
				target := strings.TrimSpace(dir)
				if target == "" {
					target = cfg.Paths.ExportDir
				}
				if target == "" {
					target = "."
				}
				path, out, err := sess.ExportTo(cmd.Context(), target)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, exportResult{Path: path, Filename: out.Filename, Nodes: out.Nodes})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d nodes to %s\n", out.Nodes, path)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", "", "Directory to write the export into")
	cmd.Flags().BoolVar(&toStdout, "stdout", false, "Write the export to stdout instead of a file")
	return cmd
}

func newSaveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "save",
		Short: "Save the story now",
		Long: `Save the story now.

When a daemon is running the save is requested through its API; otherwise
the stored story is rewritten with a fresh timestamp.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if client, err := ctx.apiClient(); err == nil && client != nil {
				res, err := client.Save(cmd.Context())
				if err == nil {
					return reportSave(cmd, ctx, res)
				}
				if !api.IsUnavailable(err) {
					return err
				}
			}
			return ctx.withSession(cmd, false, func(sess *session.Session) error {
				res := sess.Save(cmd.Context(), true)
				if err := reportSave(cmd, ctx, api.FromSaveResult(res, sess.Status())); err != nil {
					return err
				}
				if res.Err != nil {
					return fmt.Errorf("save story: %w", res.Err)
				}
				return nil
			})
		},
	}
}

func reportSave(cmd *cobra.Command, ctx *commandContext, res api.SaveResponse) error {
	if ctx.jsonOutput() {
		return writeJSON(cmd, res)
	}
	if res.Saved {
		fmt.Fprintf(cmd.OutOrStdout(), "%s (%d nodes)\n", res.Status, res.Nodes)
	}
	return nil
}
