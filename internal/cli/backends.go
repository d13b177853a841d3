package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewBackendsCmd creates the backends command.
func NewBackendsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backends",
		Short: "Show the configured backends",
		RunE:  runBackends,
	}

	return cmd
}

func runBackends(cmd *cobra.Command, args []string) error {
	cfg, _, _, err := setup()
	if err != nil {
		return err
	}

	for _, name := range cfg.BackendOrder {
		fmt.Printf("%-12s  %s\n", name, cfg.BackendTypes[name])
	}
	return nil
}
