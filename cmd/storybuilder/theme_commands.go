package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"storybuilder/internal/api"
	"storybuilder/internal/session"
	"storybuilder/internal/theme"
)

func newThemeCommand(ctx *commandContext) *cobra.Command {
	themeCmd := &cobra.Command{
		Use:   "theme",
		Short: "Show or change the color theme",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runThemeGet(cmd, ctx)
		},
	}

	themeCmd.AddCommand(&cobra.Command{
		Use:   "get",
		Short: "Print the current theme",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runThemeGet(cmd, ctx)
		},
	})
	themeCmd.AddCommand(&cobra.Command{
		Use:       "set <light|dark>",
		Short:     "Set the theme",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(theme.Light), string(theme.Dark)},
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := theme.Parse(args[0])
			if err != nil {
				return err
			}
			return ctx.withSession(cmd, false, func(sess *session.Session) error {
				if err := sess.SetTheme(cmd.Context(), name); err != nil {
					return err
				}
				return reportTheme(cmd, ctx, name)
			})
		},
	})
	themeCmd.AddCommand(&cobra.Command{
		Use:   "toggle",
		Short: "Switch between light and dark",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, false, func(sess *session.Session) error {
				name, err := sess.ToggleTheme(cmd.Context())
				if err != nil {
					return err
				}
				return reportTheme(cmd, ctx, name)
			})
		},
	})
	return themeCmd
}

func runThemeGet(cmd *cobra.Command, ctx *commandContext) error {
	return ctx.withSession(cmd, false, func(sess *session.Session) error {
		name, err := sess.Theme(cmd.Context())
		if err != nil {
			return err
		}
		return reportTheme(cmd, ctx, name)
	})
}

func reportTheme(cmd *cobra.Command, ctx *commandContext, name theme.Name) error {
	if ctx.jsonOutput() {
		return writeJSON(cmd, api.Theme{Theme: string(name)})
	}
	_, err := fmt.Fprintln(cmd.OutOrStdout(), theme.For(name).Title.Render(string(name)))
	return err
}
