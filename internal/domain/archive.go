// Package domain defines core business types shared across the application.
package domain

import (
	"fmt"
	"math"
	"time"
)

// Archive is one stored snapshot discovered by listing a backend. Archives
// are never fabricated locally; one exists only as long as the backend's
// underlying store has it.
type Archive struct {
	// BackendName is the configured name of the owning backend.
	BackendName string

	// Timestamp is the creation time in seconds since the epoch.
	// Fractional seconds are allowed.
	Timestamp float64

	// Fullname is the backend-specific opaque identifier used to restore
	// or destroy the archive.
	Fullname string

	// BackupName is the configured backup this archive belongs to.
	BackupName string
}

// Time converts the archive timestamp into a time.Time in loc.
func (a Archive) Time(loc *time.Location) time.Time {
	sec, frac := math.Modf(a.Timestamp)
	return time.Unix(int64(sec), int64(frac*float64(time.Second))).In(loc)
}

// HumanTime renders the archive timestamp for display, in loc.
func (a Archive) HumanTime(loc *time.Location) string {
	return a.Time(loc).Format("2006-01-02 15:04:05")
}

// String identifies the archive in log output.
func (a Archive) String() string {
	return fmt.Sprintf("%s/%s@%s", a.BackendName, a.BackupName, a.Fullname)
}
