package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"storybuilder/internal/daemon"
	"storybuilder/internal/logging"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var ephemeral bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the editor daemon and HTTP API",
		Long: `Run the editor daemon and HTTP API.

The daemon holds the workspace lock until it exits. On SIGINT or SIGTERM it
saves unsaved edits before shutting down.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			runID := uuid.NewString()[:8]
			logger, err := logging.NewFromConfig(cfg, runID)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			logging.PruneSessionLogs(logger, cfg.Paths.LogDir, cfg.Logging.RetentionDays, logging.FilePath(cfg, runID))

			d, err := daemon.New(runCtx, cfg, logger, daemon.Options{
				Console:   cmd.ErrOrStderr(),
				Ephemeral: ephemeral,
			})
			if err != nil {
				return err
			}
			if err := d.Start(runCtx); err != nil {
				_ = d.Close(context.Background())
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "storybuilder serving on http://%s\n", d.Addr())

			<-runCtx.Done()
			logger.Info("storybuilder shutting down")
			return d.Close(context.Background())
		},
	}
	cmd.Flags().BoolVar(&ephemeral, "ephemeral", false, "Keep the story in memory only")
	return cmd
}
