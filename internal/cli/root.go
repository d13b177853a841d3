// Package cli provides the command-line interface.
package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"backupmgr/internal/app"
	"backupmgr/internal/backend"
	"backupmgr/internal/config"
	"backupmgr/internal/domain"
	"backupmgr/internal/http"
	"backupmgr/internal/metrics"
	"backupmgr/internal/notify"
	"backupmgr/internal/state"
	"backupmgr/pkg/version"
)

var (
	cfgFile  string
	logLevel string
	quiet    bool
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "backupmgr",
		Short: "Scheduled multi-backend backup manager",
		Long: `backupmgr archives configured sets of paths to one or more storage
backends on a calendar schedule, retains archives under configurable
daily/weekly/monthly quotas, and restores archives by ordinal,
timestamp or date.`,
		Version: version.Get().String(),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "log warnings and errors only")

	rootCmd.AddCommand(NewBackupCmd())
	rootCmd.AddCommand(NewListCmd())
	rootCmd.AddCommand(NewRestoreCmd())
	rootCmd.AddCommand(NewPruneCmd())
	rootCmd.AddCommand(NewBackupsCmd())
	rootCmd.AddCommand(NewBackendsCmd())
	rootCmd.AddCommand(NewValidateCmd())
	rootCmd.AddCommand(NewServeCmd())
	rootCmd.AddCommand(NewVersionCmd())

	return rootCmd
}

// Execute runs the root command. Expected errors print their message
// alone; anything else is reported as an error.
func Execute() {
	cmd := NewRootCmd()
	if err := cmd.Execute(); err != nil {
		if domain.IsExpected(err) {
			fmt.Fprintln(os.Stderr, err)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// initConfig sets up stderr logging before the config file is read.
// Full logging setup happens in setupLogging once the config is loaded.
func initConfig() error {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: flagLevel(slog.LevelInfo),
	})
	slog.SetDefault(slog.New(handler))
	return nil
}

func flagLevel(fallback slog.Level) slog.Level {
	if quiet {
		fallback = slog.LevelWarn
	}
	switch strings.ToLower(logLevel) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return fallback
}

// setupLogging configures logging based on the loaded config. The
// command-line flags win over the config file.
func setupLogging(cfg *config.Config) (*slog.Logger, error) {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	level = flagLevel(level)

	var output io.Writer = os.Stderr
	if cfg.Log.Output != "" {
		dir := filepath.Dir(cfg.Log.Output)
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, err
		}

		output = &lumberjack.Logger{
			Filename:   cfg.Log.Output,
			MaxSize:    cfg.Log.MaxSizeMB,
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}
	}

	handler := slog.NewTextHandler(output, &slog.HandlerOptions{
		Level: level,
	})
	logger := slog.New(handler)
	slog.SetDefault(logger)

	return logger, nil
}

// loadConfig loads the application configuration.
func loadConfig() (*config.Config, error) {
	loader := config.NewLoader(backend.DefaultRegistry())

	if cfgFile != "" {
		loader = loader.WithConfigPath(cfgFile)
	}
	if logLevel != "" {
		loader.Set("log.level", logLevel)
	}

	return loader.Load()
}

// buildRunner assembles the runner with the notifiers and metrics
// pusher the configuration enables.
func buildRunner(cfg *config.Config, logger *slog.Logger) *app.Runner {
	httpClient := http.NewClient(http.WithLogger(logger))

	var notifiers []domain.Notifier
	if cfg.Notify.Sendmail.Enabled {
		notifiers = append(notifiers, notify.NewSendmailNotifier(
			cfg.Notify.Sendmail.Path,
			cfg.Notify.Sendmail.From,
			cfg.NotificationAddress,
			notify.WithSendmailLogger(logger),
		))
	}
	if cfg.Notify.Apprise.Enabled {
		notifiers = append(notifiers, notify.NewAppriseClient(
			cfg.Notify.Apprise.URL,
			cfg.Notify.Apprise.Key,
			notify.WithHTTPClient(httpClient),
			notify.WithLogger(logger),
		))
	}

	opts := []app.RunnerOption{
		app.WithLogger(logger),
		app.WithStore(state.NewStore(cfg.Statefile, state.WithLogger(logger))),
	}
	if len(notifiers) > 0 {
		opts = append(opts, app.WithNotifier(notify.NewMultiNotifier(notifiers...)))
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, app.WithMetricsPusher(metrics.NewPushgatewayClient(
			cfg.Metrics.PushgatewayURL,
			metrics.WithHTTPClient(httpClient),
			metrics.WithLogger(logger),
		)))
	}

	return app.NewRunner(cfg, opts...)
}

// setup is the shared preamble of every verb that needs a runner.
func setup() (*config.Config, *app.Runner, *slog.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		if errors.Is(err, domain.ErrNoConfig) || domain.IsExpected(err) {
			return nil, nil, nil, err
		}
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := setupLogging(cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to setup logging: %w", err)
	}

	return cfg, buildRunner(cfg, logger), logger, nil
}

// timeFlagLayouts are the formats accepted by --before and --after.
var timeFlagLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	time.RFC3339,
}

// parseTimeFlag parses a --before/--after value in the local timezone.
// An empty value means the flag was not given.
func parseTimeFlag(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	for _, layout := range timeFlagLayouts {
		if t, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, domain.Errorf("could not parse time %q", value)
}
