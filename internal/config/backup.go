package config

import (
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"backupmgr/internal/backend"
	"backupmgr/internal/domain"
	"backupmgr/internal/schedule"
)

// Backup is one configured unit of paths archived on a schedule to one
// or more backends. Immutable after load.
type Backup struct {
	// Name uniquely identifies the backup and keys its run state.
	Name string

	// Paths maps absolute source paths to the name each takes inside
	// an archive.
	Paths map[string]string

	// InstanceTemplate is the configured backup_name template. It may
	// embed {hostname} and {timestamp} placeholders.
	InstanceTemplate string

	// TimeSpec is the backup's cadence.
	TimeSpec schedule.TimeSpec

	// Backends are the storage adapters the backup writes to, in
	// configuration order.
	Backends []backend.Backend
}

// ShouldRun reports whether the backup is due at now given its last
// successful run.
func (b *Backup) ShouldRun(lastRun, now time.Time) bool {
	return schedule.ShouldRun(b.TimeSpec, lastRun, now)
}

// BackendNames returns the configured backend names in order.
func (b *Backup) BackendNames() []string {
	names := make([]string, len(b.Backends))
	for i, be := range b.Backends {
		names[i] = be.Name()
	}
	return names
}

// InstanceName expands the backup_name template for a run at now on the
// given host. The {timestamp} placeholder renders as epoch seconds.
func (b *Backup) InstanceName(hostname string, now time.Time) string {
	name := b.InstanceTemplate
	if name == "" {
		return b.Name
	}
	name = strings.ReplaceAll(name, "{hostname}", hostname)
	name = strings.ReplaceAll(name, "{timestamp}", strconv.FormatInt(now.Unix(), 10))
	return name
}

// validatePaths enforces the path map rules: absolute source paths and
// archive member names that are non-empty, contain no path separators,
// are not "..", and are unique within the backup.
func validatePaths(paths map[string]string) error {
	if len(paths) == 0 {
		return domain.NewConfigError("paths should be a non-empty path -> name map")
	}

	names := make(map[string]bool)
	for path, name := range paths {
		if !filepath.IsAbs(path) {
			return domain.NewConfigError("%s was not an absolute path", path)
		}
		if name == "" || strings.ContainsAny(name, `/\`) || name == ".." {
			return domain.NewConfigError("invalid name: %q", name)
		}
		if names[name] {
			return domain.NewConfigError("name collision: %q", name)
		}
		names[name] = true
	}
	return nil
}
