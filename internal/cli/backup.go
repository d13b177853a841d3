package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewBackupCmd creates the backup command.
func NewBackupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Run every due backup and exit",
		Long: `Run a single backup pass: each configured backup whose schedule has
come due since its last successful run is archived to all of its
backends, and the run state is updated.`,
		RunE: runBackup,
	}

	return cmd
}

func runBackup(cmd *cobra.Command, args []string) error {
	_, runner, logger, err := setup()
	if err != nil {
		return err
	}

	result, err := runner.RunBackups(cmd.Context())
	if err != nil {
		return fmt.Errorf("backup run failed: %w", err)
	}

	if !result.Success() {
		return fmt.Errorf("backup run completed with failures: %v", result.Failed)
	}

	logger.Info("backup run completed successfully", "duration", result.Duration)
	return nil
}
