package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// NewRestoreCmd creates the restore command.
func NewRestoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restore <backup> <backend> <archive> <destination>",
		Short: "Restore an archive into a directory",
		Long: `Restore one archive of a backup from the named backend into the
destination directory.

The archive is selected by a specifier, which is tried as:
  - an ordinal into the backend's listing, as printed by list
    ("0" is the oldest archive)
  - an exact Unix timestamp ("1416279400.0")
  - a date or datetime ("2014-11-18", "2014-11-18 03:00")

A date specifier must match exactly one archive; an ambiguous or
unmatched specifier lists the candidates instead.`,
		Args: cobra.ExactArgs(4),
		RunE: runRestore,
	}

	return cmd
}

func runRestore(cmd *cobra.Command, args []string) error {
	_, runner, logger, err := setup()
	if err != nil {
		return err
	}

	backupName, backendName, spec, destination := args[0], args[1], args[2], args[3]

	archive, err := runner.Restore(cmd.Context(), backupName, backendName, spec, destination)
	if err != nil {
		return err
	}

	logger.Info("restore complete", "archive", archive.Fullname, "destination", destination)
	fmt.Printf("restored %s (%s) to %s\n", archive.Fullname, archive.HumanTime(time.Local), destination)
	return nil
}
