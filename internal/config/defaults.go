// Package config handles application configuration loading and validation.
package config

import (
	"runtime"
	"time"
)

// Default configuration values.
const (
	// DefaultConfigPath is where the configuration file lives unless
	// overridden on the command line.
	DefaultConfigPath = "/etc/backupmgr.conf"

	// DefaultNotificationAddress receives run digests.
	DefaultNotificationAddress = "root"

	// DefaultSendmailPath is the sendmail binary used for digests.
	DefaultSendmailPath = "/usr/sbin/sendmail"

	// DefaultInterval is the serve-mode check interval.
	DefaultInterval = time.Hour

	// DefaultLogLevel is the logging verbosity.
	DefaultLogLevel = "info"

	// DefaultLogMaxSizeMB is the rotation threshold for file logs.
	DefaultLogMaxSizeMB = 10

	// EnvPrefix is the prefix for environment variable overrides.
	EnvPrefix = "BACKUPMGR"
)

// DefaultStatefile returns the platform's conventional state file
// location.
func DefaultStatefile() string {
	if runtime.GOOS == "darwin" {
		return "/var/db/backupmgr.state"
	}
	return "/var/lib/backupmgr/state"
}
