package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backupmgr/internal/backend"
	"backupmgr/internal/domain"
	"backupmgr/internal/prune"
	"backupmgr/internal/schedule"
)

func testRegistry(t *testing.T) *backend.Registry {
	t.Helper()
	r := backend.NewRegistry()
	err := r.Register("mock", func(name string, settings map[string]any, logger *slog.Logger) (backend.Backend, error) {
		return &backend.Mock{BackendName: name}, nil
	})
	require.NoError(t, err)
	return r
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "backupmgr.conf")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

const validConfig = `{
	"statefile": "/var/lib/backupmgr/state",
	"notification_address": "ops@example.com",
	"backends": [
		{"type": "mock", "name": "offsite"},
		{"type": "mock", "name": "local"}
	],
	"backups": [
		{
			"name": "etc",
			"paths": {"/etc": "etc"},
			"timespec": "daily",
			"backends": ["offsite", "local"]
		},
		{
			"name": "home",
			"paths": {"/home": "home"},
			"timespec": ["monday", "thursday"],
			"backends": ["offsite"]
		}
	],
	"prune": {
		"etc": {"daily": 7, "weekly": 4, "montly": 6}
	}
}`

func TestLoadValidConfig(t *testing.T) {
	path := writeConfig(t, validConfig)

	cfg, err := NewLoader(testRegistry(t)).WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/backupmgr/state", cfg.Statefile)
	assert.Equal(t, "ops@example.com", cfg.NotificationAddress)
	assert.Equal(t, []string{"offsite", "local"}, cfg.BackendOrder)
	assert.Equal(t, map[string]string{"offsite": "mock", "local": "mock"}, cfg.BackendTypes)
	require.Len(t, cfg.Backups, 2)

	etc := cfg.Backups[0]
	assert.Equal(t, "etc", etc.Name)
	assert.Len(t, etc.TimeSpec, 7)
	assert.Equal(t, []string{"offsite", "local"}, etc.BackendNames())

	home := cfg.Backups[1]
	assert.Equal(t, schedule.TimeSpec{schedule.Monday, schedule.Thursday}, home.TimeSpec)

	assert.False(t, cfg.ModTime.IsZero())
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `{
		"backends": [{"type": "mock", "name": "offsite"}],
		"backups": [{
			"name": "etc",
			"paths": {"/etc": "etc"},
			"timespec": "weekly",
			"backends": ["offsite"]
		}]
	}`)

	cfg, err := NewLoader(testRegistry(t)).WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultStatefile(), cfg.Statefile)
	assert.Equal(t, DefaultNotificationAddress, cfg.NotificationAddress)
	assert.Equal(t, DefaultInterval, cfg.Interval)
	assert.Equal(t, NotifyError, cfg.Notify.Level)
	assert.Equal(t, DefaultSendmailPath, cfg.Notify.Sendmail.Path)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, DefaultLogLevel, cfg.Log.Level)
}

func TestLoadIntervalTooShort(t *testing.T) {
	for _, interval := range []string{"0s", "30s"} {
		path := writeConfig(t, `{
			"interval": "`+interval+`",
			"backends": [{"type": "mock", "name": "offsite"}],
			"backups": [{
				"name": "etc",
				"paths": {"/etc": "etc"},
				"timespec": "daily",
				"backends": ["offsite"]
			}]
		}`)

		_, err := NewLoader(testRegistry(t)).WithConfigPath(path).Load()
		require.Error(t, err, interval)
		assert.True(t, domain.IsExpected(err))
		assert.Contains(t, err.Error(), "interval")
	}
}

func TestLoadMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope.conf")

	_, err := NewLoader(testRegistry(t)).WithConfigPath(path).Load()
	assert.ErrorIs(t, err, domain.ErrNoConfig)
}

func TestLoadMalformedJSON(t *testing.T) {
	path := writeConfig(t, `{"backends": [`)

	_, err := NewLoader(testRegistry(t)).WithConfigPath(path).Load()
	require.Error(t, err)
	assert.True(t, domain.IsExpected(err))
}

func TestLoadPrunePolicies(t *testing.T) {
	path := writeConfig(t, `{
		"backends": [{"type": "mock", "name": "offsite"}],
		"backups": [{
			"name": "etc",
			"paths": {"/etc": "etc"},
			"timespec": "daily",
			"backends": ["offsite"]
		}],
		"prune": {
			"etc": {"daily": 3},
			"other": {"daily": 0, "weekly": 0, "montly": 0},
			"home": {"daily": 3, "monthly": 2}
		}
	}`)

	cfg, err := NewLoader(testRegistry(t)).WithConfigPath(path).Load()
	require.NoError(t, err)

	etc := cfg.Prune.PolicyFor("etc")
	assert.Equal(t, 3, etc.Daily)
	assert.Equal(t, prune.Unbounded, etc.Weekly)
	assert.Equal(t, prune.Unbounded, etc.Monthly)

	other := cfg.Prune.PolicyFor("other")
	assert.Equal(t, prune.Policy{}, other)

	// The monthly quota key is "montly"; the conventional spelling is
	// not recognized and leaves the tier unbounded.
	home := cfg.Prune.PolicyFor("home")
	assert.Equal(t, 3, home.Daily)
	assert.Equal(t, prune.Unbounded, home.Monthly)
}

func TestLoadNegativeQuota(t *testing.T) {
	path := writeConfig(t, `{
		"backends": [{"type": "mock", "name": "offsite"}],
		"backups": [{
			"name": "etc",
			"paths": {"/etc": "etc"},
			"timespec": "daily",
			"backends": ["offsite"]
		}],
		"prune": {"etc": {"daily": -1}}
	}`)

	_, err := NewLoader(testRegistry(t)).WithConfigPath(path).Load()
	require.Error(t, err)
	assert.True(t, domain.IsExpected(err))
	assert.Contains(t, err.Error(), "daily")
}

func TestLoadUnknownBackendType(t *testing.T) {
	path := writeConfig(t, `{
		"backends": [{"type": "zfs", "name": "offsite"}],
		"backups": [{
			"name": "etc",
			"paths": {"/etc": "etc"},
			"timespec": "daily",
			"backends": ["offsite"]
		}]
	}`)

	_, err := NewLoader(testRegistry(t)).WithConfigPath(path).Load()
	require.Error(t, err)
	assert.True(t, domain.IsExpected(err))
	assert.Contains(t, err.Error(), "zfs")
}

func TestLoadUnknownBackendReference(t *testing.T) {
	path := writeConfig(t, `{
		"backends": [{"type": "mock", "name": "offsite"}],
		"backups": [{
			"name": "etc",
			"paths": {"/etc": "etc"},
			"timespec": "daily",
			"backends": ["elsewhere"]
		}]
	}`)

	_, err := NewLoader(testRegistry(t)).WithConfigPath(path).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "elsewhere")
}

func TestLoadDuplicateBackupNames(t *testing.T) {
	path := writeConfig(t, `{
		"backends": [{"type": "mock", "name": "offsite"}],
		"backups": [
			{"name": "etc", "paths": {"/etc": "etc"}, "timespec": "daily", "backends": ["offsite"]},
			{"name": "etc", "paths": {"/srv": "srv"}, "timespec": "daily", "backends": ["offsite"]}
		]
	}`)

	_, err := NewLoader(testRegistry(t)).WithConfigPath(path).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate backup")
}

func TestLoadDuplicateBackendNames(t *testing.T) {
	path := writeConfig(t, `{
		"backends": [
			{"type": "mock", "name": "offsite"},
			{"type": "mock", "name": "offsite"}
		],
		"backups": [{
			"name": "etc",
			"paths": {"/etc": "etc"},
			"timespec": "daily",
			"backends": ["offsite"]
		}]
	}`)

	_, err := NewLoader(testRegistry(t)).WithConfigPath(path).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate backend")
}

func TestLoadRelativePathRejected(t *testing.T) {
	path := writeConfig(t, `{
		"backends": [{"type": "mock", "name": "offsite"}],
		"backups": [{
			"name": "etc",
			"paths": {"etc": "etc"},
			"timespec": "daily",
			"backends": ["offsite"]
		}]
	}`)

	_, err := NewLoader(testRegistry(t)).WithConfigPath(path).Load()
	require.Error(t, err)
	assert.True(t, domain.IsExpected(err))
}

func TestLoadInvalidTimespec(t *testing.T) {
	path := writeConfig(t, `{
		"backends": [{"type": "mock", "name": "offsite"}],
		"backups": [{
			"name": "etc",
			"paths": {"/etc": "etc"},
			"timespec": "fortnightly",
			"backends": ["offsite"]
		}]
	}`)

	_, err := NewLoader(testRegistry(t)).WithConfigPath(path).Load()
	require.Error(t, err)
	assert.True(t, domain.IsExpected(err))
}

func TestLoadInvalidNotifyLevel(t *testing.T) {
	path := writeConfig(t, `{
		"notify": {"level": "sometimes"},
		"backends": [{"type": "mock", "name": "offsite"}],
		"backups": [{
			"name": "etc",
			"paths": {"/etc": "etc"},
			"timespec": "daily",
			"backends": ["offsite"]
		}]
	}`)

	_, err := NewLoader(testRegistry(t)).WithConfigPath(path).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notify.level")
}

func TestLoadMetricsRequiresURL(t *testing.T) {
	path := writeConfig(t, `{
		"metrics": {"enabled": true},
		"backends": [{"type": "mock", "name": "offsite"}],
		"backups": [{
			"name": "etc",
			"paths": {"/etc": "etc"},
			"timespec": "daily",
			"backends": ["offsite"]
		}]
	}`)

	_, err := NewLoader(testRegistry(t)).WithConfigPath(path).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pushgateway_url")
}

func TestConfigBackupLookup(t *testing.T) {
	path := writeConfig(t, validConfig)

	cfg, err := NewLoader(testRegistry(t)).WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.NotNil(t, cfg.Backup("home"))
	assert.Nil(t, cfg.Backup("nope"))
}
