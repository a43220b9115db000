package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"storybuilder/internal/api"
	"storybuilder/internal/preflight"
)

const statusProbeTimeout = 2 * time.Second

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show story, daemon and preflight status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := fetchStatus(cmd, ctx)
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, status)
			}
			renderStatus(cmd.OutOrStdout(), status)
			return nil
		},
	}
}

// fetchStatus asks a running daemon first and falls back to opening the
// workspace in-process.
func fetchStatus(cmd *cobra.Command, ctx *commandContext) (api.DaemonStatus, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return api.DaemonStatus{}, err
	}
	if client, err := ctx.apiClient(); err == nil && client != nil {
		probeCtx, cancel := context.WithTimeout(cmd.Context(), statusProbeTimeout)
		status, err := client.Status(probeCtx)
		cancel()
		if err == nil {
			return status, nil
		}
		if !api.IsUnavailable(err) {
			return api.DaemonStatus{}, err
		}
	}

	status := api.DaemonStatus{
		PID:          os.Getpid(),
		Backend:      cfg.Storage.Backend,
		LockFilePath: cfg.LockPath(),
	}
	ws, err := ctx.openWorkspace(cmd, false)
	if err != nil {
		return api.DaemonStatus{}, err
	}
	defer ws.Close(cmd.Context())
	sess := ws.Session()
	name, _ := sess.Theme(cmd.Context())
	status.Story = api.FromSnapshot(sess.Snapshot(), string(name))
	status.Checks = api.FromChecks(preflight.RunAll(cmd.Context(), cfg, ws.Store()))
	return status, nil
}

func renderStatus(out io.Writer, status api.DaemonStatus) {
	daemonLine := "not running"
	if status.Running {
		daemonLine = fmt.Sprintf("running (pid %d, since %s)", status.PID, status.Started)
	}
	rows := [][]string{
		{"Daemon", daemonLine},
		{"Backend", status.Backend},
		{"Lock", status.LockFilePath},
		{"Nodes", fmt.Sprintf("%d", len(status.Story.Nodes))},
		{"State", status.Story.State},
		{"Status", status.Story.Status},
		{"Theme", status.Story.Theme},
	}
	if status.Story.LastSaved != "" {
		rows = append(rows, []string{"Last saved", status.Story.LastSaved})
	}
	fmt.Fprintln(out, renderTable([]string{"Field", "Value"}, rows, nil))

	if len(status.Checks) == 0 {
		return
	}
	checkRows := make([][]string, 0, len(status.Checks))
	for _, check := range status.Checks {
		checkRows = append(checkRows, []string{check.Name, yesNo(check.Passed), check.Detail})
	}
	fmt.Fprintln(out, renderTable([]string{"Check", "Passed", "Detail"}, checkRows, nil))
}
