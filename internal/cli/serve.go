package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"backupmgr/internal/app"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the backup service in foreground",
		Long: `Run the backup service in foreground mode.

This runs the scheduler loop, checking for due backups and pruning on
the configured interval. Use Ctrl+C to stop.`,
		RunE: runServe,
	}

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, runner, logger, err := setup()
	if err != nil {
		return err
	}
	logger.Info("starting backupmgr in foreground mode")

	scheduler := app.NewScheduler(runner, cfg.Interval,
		app.WithSchedulerLogger(logger),
	)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)
		cancel()
	}()

	if err := scheduler.Run(ctx); err != nil && err != context.Canceled {
		return fmt.Errorf("scheduler error: %w", err)
	}

	logger.Info("backupmgr stopped")
	return nil
}
