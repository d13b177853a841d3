package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"backupmgr/internal/config"
)

// NewValidateCmd creates the validate command.
func NewValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration and test connectivity",
		Long: `Validate the configuration file and test connectivity to the enabled
notification and metrics endpoints.

This checks:
- Config file syntax, backends, backups, schedules and prune policies
- Sendmail binary availability (if enabled)
- Apprise server connectivity (if enabled)
- Pushgateway connectivity (if enabled)`,
		RunE: runValidate,
	}

	return cmd
}

func runValidate(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	fmt.Println("Configuration:")
	cfg, err := loadConfig()
	if err != nil {
		fmt.Printf("  ✗ Config file: %v\n", err)
		return err
	}
	fmt.Printf("  ✓ Config file syntax valid\n")

	configPath := config.DefaultConfigPath
	if cfgFile != "" {
		configPath = cfgFile
	}
	fmt.Printf("  Config file: %s\n", configPath)
	fmt.Printf("  State file: %s\n", cfg.Statefile)
	fmt.Printf("  Backends: %d\n", len(cfg.Backends))
	fmt.Printf("  Backups: %d\n", len(cfg.Backups))
	fmt.Printf("  Serve interval: %s\n", cfg.Interval)
	if cfg.Notify.Sendmail.Enabled {
		fmt.Printf("  Sendmail digests: enabled, to %s\n", cfg.NotificationAddress)
	} else {
		fmt.Printf("  Sendmail digests: disabled\n")
	}
	if cfg.Notify.Apprise.Enabled {
		fmt.Printf("  Apprise: enabled, %s\n", cfg.Notify.Apprise.URL)
	} else {
		fmt.Printf("  Apprise: disabled\n")
	}
	if cfg.Metrics.Enabled {
		fmt.Printf("  Metrics: enabled, %s\n", cfg.Metrics.PushgatewayURL)
	} else {
		fmt.Printf("  Metrics: disabled\n")
	}
	fmt.Println()

	logger, err := setupLogging(cfg)
	if err != nil {
		return err
	}

	fmt.Println("Checks:")
	runner := buildRunner(cfg, logger)
	if err := runner.Validate(ctx); err != nil {
		fmt.Printf("  ✗ %v\n", err)
		return fmt.Errorf("validation failed")
	}
	fmt.Printf("  ✓ Backends and enabled endpoints available\n")

	fmt.Println()
	fmt.Println("Validation complete.")
	return nil
}
