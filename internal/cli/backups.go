package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// NewBackupsCmd creates the backups command.
func NewBackupsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backups",
		Short: "Show the configured backups",
		RunE:  runBackups,
	}

	return cmd
}

func runBackups(cmd *cobra.Command, args []string) error {
	cfg, _, _, err := setup()
	if err != nil {
		return err
	}

	hostname, _ := os.Hostname()
	now := time.Now()

	for _, b := range cfg.Backups {
		fmt.Printf("%s\n", b.Name)
		if b.InstanceTemplate != "" {
			fmt.Printf("  instance: %s\n", b.InstanceName(hostname, now))
		}
		fmt.Printf("  schedule: %s\n", b.TimeSpec)
		fmt.Printf("  backends: %s\n", strings.Join(b.BackendNames(), ", "))
		for path, name := range b.Paths {
			fmt.Printf("  path:     %s -> %s\n", path, name)
		}
	}
	return nil
}
