package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"storybuilder/internal/api"
	"storybuilder/internal/events"
)

func newEventsCommand(ctx *commandContext) *cobra.Command {
	var since uint64
	var follow bool
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Print status changes and notifications from a running daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			if client == nil {
				return api.ErrUnavailable
			}
			out := cmd.OutOrStdout()
			cursor := since
			for {
				page, err := client.Events(cmd.Context(), cursor, follow)
				if err != nil {
					if api.IsUnavailable(err) {
						return errors.New("storybuilder daemon is not running; start it with `storybuilder serve`")
					}
					return err
				}
				for _, evt := range page.Events {
					if ctx.jsonOutput() {
						if err := writeJSON(cmd, evt); err != nil {
							return err
						}
						continue
					}
					printEvent(out, evt)
				}
				cursor = page.Next
				if !follow {
					return nil
				}
			}
		},
	}
	cmd.Flags().Uint64Var(&since, "since", 0, "Only show events after this sequence number")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep waiting for new events")
	return cmd
}

func printEvent(out io.Writer, evt events.Event) {
	stamp := evt.Time.Local().Format("15:04:05")
	switch evt.Type {
	case events.TypeNotification:
		fmt.Fprintf(out, "%s #%d [%s] %s\n", stamp, evt.Sequence, evt.Level, evt.Message)
	default:
		fmt.Fprintf(out, "%s #%d %s (%s)\n", stamp, evt.Sequence, evt.Status, evt.State)
	}
}
