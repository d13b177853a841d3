// Package app orchestrates backup execution: deciding what is due,
// driving backends, persisting run state and reporting outcomes.
package app

import (
	"log/slog"
	"time"

	"backupmgr/internal/config"
	"backupmgr/internal/state"
)

// BackupSet pairs the configured backups with their persisted run state
// and decides which are due.
type BackupSet struct {
	backups       []*config.Backup
	state         state.State
	configModTime time.Time
	stateModTime  time.Time
	logger        *slog.Logger
}

// BackupSetOption configures a BackupSet.
type BackupSetOption func(*BackupSet)

// WithSetLogger sets the logger.
func WithSetLogger(logger *slog.Logger) BackupSetOption {
	return func(s *BackupSet) {
		s.logger = logger
	}
}

// NewBackupSet builds a set from the loaded configuration and state.
// The two modification times feed the staleness rule in Due.
func NewBackupSet(backups []*config.Backup, st state.State, configModTime, stateModTime time.Time, opts ...BackupSetOption) *BackupSet {
	s := &BackupSet{
		backups:       backups,
		state:         st,
		configModTime: configModTime,
		stateModTime:  stateModTime,
		logger:        slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Backups returns all backups in configuration order.
func (s *BackupSet) Backups() []*config.Backup {
	return s.backups
}

// Due returns the backups due at now, in configuration order.
//
// A configuration file newer than the state file forces every backup
// due: an edited configuration may have changed paths or schedules, and
// rerunning everything once is cheaper than reasoning about which
// entries the edit touched.
func (s *BackupSet) Due(now time.Time) []*config.Backup {
	if !s.configModTime.IsZero() && s.configModTime.After(s.stateModTime) {
		s.logger.Info("configuration changed since last run, all backups due")
		return s.backups
	}

	var due []*config.Backup
	for _, b := range s.backups {
		lastRun := s.state.LastRun(b.Name, now.Location())
		if b.ShouldRun(lastRun, now) {
			due = append(due, b)
		} else {
			s.logger.Debug("backup not due", "backup", b.Name, "last_run", lastRun)
		}
	}
	return due
}

// StateAfterRun returns a new state with the given backups stamped as
// run at now. Timestamps for backups not named are carried over.
func (s *BackupSet) StateAfterRun(succeeded []string, now time.Time) state.State {
	next := s.state.Clone()
	ts := float64(now.UnixNano()) / float64(time.Second)
	for _, name := range succeeded {
		next[name] = ts
	}
	return next
}
