package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var pruneDryRun bool

// NewPruneCmd creates the prune command.
func NewPruneCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Destroy archives that fail retention",
		Long: `Apply the configured daily/weekly/monthly retention quotas to every
backup on every backend and destroy the archives that fail them.

Backups without a prune entry in the configuration are never touched.
With --dry-run the prunable archives are listed but nothing is
destroyed.`,
		RunE: runPrune,
	}

	cmd.Flags().BoolVarP(&pruneDryRun, "dry-run", "n", false, "report prunable archives without destroying them")

	return cmd
}

func runPrune(cmd *cobra.Command, args []string) error {
	_, runner, _, err := setup()
	if err != nil {
		return err
	}

	result, err := runner.Prune(cmd.Context(), pruneDryRun)
	if err != nil {
		return err
	}

	if pruneDryRun {
		if len(result.Pruned) == 0 {
			fmt.Println("nothing to prune")
			return nil
		}
		for _, archive := range result.Pruned {
			fmt.Printf("would prune  %s  %-12s  %s\n",
				archive.HumanTime(time.Local), archive.BackendName, archive.Fullname)
		}
		return nil
	}

	fmt.Printf("examined %d archives, pruned %d\n", result.Examined, len(result.Pruned))
	if !result.Success() {
		return fmt.Errorf("%d archives could not be destroyed", len(result.Failures))
	}
	return nil
}
