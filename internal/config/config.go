package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"backupmgr/internal/backend"
	"backupmgr/internal/domain"
	"backupmgr/internal/prune"
	"backupmgr/internal/schedule"
)

// NotifyLevel controls when run digests are sent.
type NotifyLevel string

const (
	// NotifyError sends digests only for failed runs.
	NotifyError NotifyLevel = "error"
	// NotifyAlways sends a digest after every run.
	NotifyAlways NotifyLevel = "always"
	// NotifyNever disables digests.
	NotifyNever NotifyLevel = "never"
)

// IsValid returns true if the notify level is a known value.
func (n NotifyLevel) IsValid() bool {
	switch n {
	case NotifyError, NotifyAlways, NotifyNever:
		return true
	}
	return false
}

// SendmailConfig configures the sendmail digest notifier.
type SendmailConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
	From    string `mapstructure:"from"`
}

// AppriseConfig configures the Apprise notifier.
type AppriseConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
	Key     string `mapstructure:"key"`
}

// NotifyConfig groups notification settings.
type NotifyConfig struct {
	Level    NotifyLevel    `mapstructure:"level"`
	Sendmail SendmailConfig `mapstructure:"sendmail"`
	Apprise  AppriseConfig  `mapstructure:"apprise"`
}

// MetricsConfig configures the Pushgateway metrics pusher.
type MetricsConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	PushgatewayURL string `mapstructure:"pushgateway_url"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level     string `mapstructure:"level"`
	Output    string `mapstructure:"output"`
	MaxSizeMB int    `mapstructure:"max_size_mb"`
}

// Config is the fully validated application configuration. Backends and
// backups are owned by it for the process lifetime.
type Config struct {
	Statefile           string
	NotificationAddress string
	Interval            time.Duration
	Notify              NotifyConfig
	Metrics             MetricsConfig
	Log                 LogConfig

	// Backends maps backend names to constructed instances.
	Backends map[string]backend.Backend

	// BackendTypes maps backend names to their configured type tags.
	BackendTypes map[string]string

	// BackendOrder preserves configuration declaration order.
	BackendOrder []string

	// Backups are in configuration declaration order.
	Backups []*Backup

	// Prune is the retention policy map.
	Prune prune.Config

	// ModTime is the configuration file's modification time.
	ModTime time.Time
}

// Backup returns the named backup, or nil.
func (c *Config) Backup(name string) *Backup {
	for _, b := range c.Backups {
		if b.Name == name {
			return b
		}
	}
	return nil
}

// rawConfig mirrors the JSON configuration file before validation.
type rawConfig struct {
	Statefile           string                  `mapstructure:"statefile"`
	NotificationAddress string                  `mapstructure:"notification_address"`
	Interval            time.Duration           `mapstructure:"interval"`
	Backends            []map[string]any        `mapstructure:"backends"`
	Backups             []rawBackup             `mapstructure:"backups"`
	Prune               map[string]rawRetention `mapstructure:"prune"`
	Notify              NotifyConfig            `mapstructure:"notify"`
	Metrics             MetricsConfig           `mapstructure:"metrics"`
	Log                 LogConfig               `mapstructure:"log"`
}

type rawBackup struct {
	Name       string            `mapstructure:"name"`
	Paths      map[string]string `mapstructure:"paths"`
	BackupName string            `mapstructure:"backup_name"`
	Timespec   any               `mapstructure:"timespec"`
	Backends   []string          `mapstructure:"backends"`
}

// rawRetention is one prune-map entry. The monthly quota is read from
// the key "montly", matching the configuration surface of the reference
// revision this system replaces.
type rawRetention struct {
	Daily  *int `mapstructure:"daily"`
	Weekly *int `mapstructure:"weekly"`
	Montly *int `mapstructure:"montly"`
}

// Loader handles configuration loading. The backend registry is
// injected so that backend construction does not depend on global
// state.
type Loader struct {
	v          *viper.Viper
	configPath string
	registry   *backend.Registry
	logger     *slog.Logger
}

// NewLoader creates a configuration loader backed by the given backend
// registry.
func NewLoader(registry *backend.Registry) *Loader {
	return &Loader{
		v:        viper.New(),
		registry: registry,
		logger:   slog.Default(),
	}
}

// WithConfigPath sets a specific config file path.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithLogger sets the logger handed to constructed backends.
func (l *Loader) WithLogger(logger *slog.Logger) *Loader {
	l.logger = logger
	return l
}

// Set sets a configuration value (for CLI flag overrides).
func (l *Loader) Set(key string, value any) {
	l.v.Set(key, value)
}

// Load reads, validates and materializes the configuration. Every
// validation failure is an expected configuration error; nothing
// touches a backend before validation completes.
func (l *Loader) Load() (*Config, error) {
	l.setDefaults()
	l.setupEnvBindings()

	if err := l.readConfigFile(); err != nil {
		return nil, err
	}

	var raw rawConfig
	if err := l.v.Unmarshal(&raw); err != nil {
		return nil, domain.NewConfigError("%v", err)
	}

	return l.build(&raw)
}

func (l *Loader) setDefaults() {
	l.v.SetDefault("statefile", DefaultStatefile())
	l.v.SetDefault("notification_address", DefaultNotificationAddress)
	l.v.SetDefault("interval", DefaultInterval)

	l.v.SetDefault("notify.level", string(NotifyError))
	l.v.SetDefault("notify.sendmail.enabled", false)
	l.v.SetDefault("notify.sendmail.path", DefaultSendmailPath)
	l.v.SetDefault("notify.sendmail.from", DefaultNotificationAddress)
	l.v.SetDefault("notify.apprise.enabled", false)

	l.v.SetDefault("metrics.enabled", false)

	l.v.SetDefault("log.level", DefaultLogLevel)
	l.v.SetDefault("log.output", "")
	l.v.SetDefault("log.max_size_mb", DefaultLogMaxSizeMB)
}

func (l *Loader) setupEnvBindings() {
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()
}

func (l *Loader) readConfigFile() error {
	path := l.configPath
	if path == "" {
		path = DefaultConfigPath
	}

	l.v.SetConfigFile(path)
	l.v.SetConfigType("json")

	if err := l.v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			return domain.ErrNoConfig
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return domain.ErrNoConfig
		}
		return domain.NewConfigError("%v", err)
	}
	return nil
}

func (l *Loader) build(raw *rawConfig) (*Config, error) {
	cfg := &Config{
		Statefile:           raw.Statefile,
		NotificationAddress: raw.NotificationAddress,
		Interval:            raw.Interval,
		Notify:              raw.Notify,
		Metrics:             raw.Metrics,
		Log:                 raw.Log,
		Backends:            make(map[string]backend.Backend),
		BackendTypes:        make(map[string]string),
		Prune:               make(prune.Config),
	}

	if !cfg.Notify.Level.IsValid() {
		return nil, domain.NewConfigError("notify.level must be one of: error, always, never")
	}
	if cfg.Interval < time.Minute {
		return nil, domain.NewConfigError("interval must be at least one minute, got %s", cfg.Interval)
	}
	if cfg.Metrics.Enabled && cfg.Metrics.PushgatewayURL == "" {
		return nil, domain.NewConfigError("metrics.pushgateway_url is required when metrics is enabled")
	}

	if len(raw.Backends) == 0 {
		return nil, domain.NewConfigError("expected a list of backends")
	}
	for _, settings := range raw.Backends {
		be, typeName, err := l.buildBackend(settings)
		if err != nil {
			return nil, err
		}
		if _, exists := cfg.Backends[be.Name()]; exists {
			return nil, domain.NewConfigError("duplicate backend %q", be.Name())
		}
		cfg.Backends[be.Name()] = be
		cfg.BackendTypes[be.Name()] = typeName
		cfg.BackendOrder = append(cfg.BackendOrder, be.Name())
	}

	if len(raw.Backups) == 0 {
		return nil, domain.NewConfigError("expected a list of backups")
	}
	seen := make(map[string]bool)
	for _, rb := range raw.Backups {
		b, err := buildBackup(rb, cfg.Backends)
		if err != nil {
			return nil, err
		}
		if seen[b.Name] {
			return nil, domain.NewConfigError("duplicate backup %q", b.Name)
		}
		seen[b.Name] = true
		cfg.Backups = append(cfg.Backups, b)
	}

	for name, quota := range raw.Prune {
		policy, err := buildPolicy(name, quota)
		if err != nil {
			return nil, err
		}
		cfg.Prune[name] = policy
	}

	if info, err := os.Stat(l.v.ConfigFileUsed()); err == nil {
		cfg.ModTime = info.ModTime()
	}

	return cfg, nil
}

func (l *Loader) buildBackend(settings map[string]any) (backend.Backend, string, error) {
	typeName, _ := pop(settings, "type").(string)
	name, _ := pop(settings, "name").(string)
	if name == "" {
		return nil, "", domain.NewConfigError("missing name for backend")
	}
	be, err := l.registry.New(typeName, name, settings, l.logger)
	return be, typeName, err
}

func buildBackup(raw rawBackup, backends map[string]backend.Backend) (*Backup, error) {
	if raw.Name == "" {
		return nil, domain.NewConfigError("backups must have names")
	}
	if err := validatePaths(raw.Paths); err != nil {
		return nil, err
	}

	items, err := timespecItems(raw.Timespec)
	if err != nil {
		return nil, domain.NewConfigError("backup %q: invalid timespec %v", raw.Name, raw.Timespec)
	}
	spec, err := schedule.Parse(items)
	if err != nil {
		return nil, err
	}

	if len(raw.Backends) == 0 {
		return nil, domain.NewConfigError("backup %q: expected a list of backend names", raw.Name)
	}
	resolved := make([]backend.Backend, 0, len(raw.Backends))
	for _, name := range raw.Backends {
		be, ok := backends[name]
		if !ok {
			return nil, domain.NewConfigError("could not find backend %q", name)
		}
		resolved = append(resolved, be)
	}

	return &Backup{
		Name:             raw.Name,
		Paths:            raw.Paths,
		InstanceTemplate: raw.BackupName,
		TimeSpec:         spec,
		Backends:         resolved,
	}, nil
}

// timespecItems normalizes the timespec field, which may be a single
// string or a list of strings.
func timespecItems(value any) ([]string, error) {
	switch v := value.(type) {
	case string:
		return []string{v}, nil
	case []string:
		return v, nil
	case []any:
		items := make([]string, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("timespec entries must be strings")
			}
			items[i] = s
		}
		return items, nil
	}
	return nil, fmt.Errorf("timespec must be a string or list of strings")
}

func buildPolicy(backupName string, raw rawRetention) (prune.Policy, error) {
	policy := prune.DefaultPolicy()

	apply := func(field string, value *int, dst *int) error {
		if value == nil {
			return nil
		}
		if *value < 0 {
			return domain.NewConfigError("prune %q: %s must be non-negative", backupName, field)
		}
		*dst = *value
		return nil
	}

	if err := apply("daily", raw.Daily, &policy.Daily); err != nil {
		return policy, err
	}
	if err := apply("weekly", raw.Weekly, &policy.Weekly); err != nil {
		return policy, err
	}
	if err := apply("montly", raw.Montly, &policy.Monthly); err != nil {
		return policy, err
	}
	return policy, nil
}

// pop removes and returns a key from the raw settings map, leaving only
// type-specific fields for the backend factory.
func pop(m map[string]any, key string) any {
	value := m[key]
	delete(m, key)
	return value
}
