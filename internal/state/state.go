// Package state persists the last-successful-run time of each backup.
package state

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"
)

// State maps backup names to the Unix timestamp of their last successful
// run. A missing entry means the backup has never run.
type State map[string]float64

// LastRun returns a backup's last successful run in loc, defaulting to
// the epoch for backups that have never run.
func (s State) LastRun(backupName string, loc *time.Location) time.Time {
	ts := s[backupName]
	sec, frac := math.Modf(ts)
	return time.Unix(int64(sec), int64(frac*float64(time.Second))).In(loc)
}

// Clone returns a copy of the state.
func (s State) Clone() State {
	clone := make(State, len(s))
	for name, ts := range s {
		clone[name] = ts
	}
	return clone
}

// Store reads and writes the state file. Writes are not transactional
// with backup execution: concurrent invocations race with last-writer-
// wins, and a crash between execution and save retries those backups on
// the next run.
type Store struct {
	path   string
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// NewStore creates a Store for the given state file path.
func NewStore(path string, opts ...Option) *Store {
	s := &Store{
		path:   path,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Path returns the state file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the persisted state. An unreadable or malformed state file
// is not fatal: the default empty state is assumed, which makes every
// backup due.
func (s *Store) Load() State {
	data, err := os.ReadFile(s.path)
	if err != nil {
		s.logger.Warn("could not read state, assuming default state", "path", s.path, "error", err)
		return State{}
	}

	var loaded State
	if err := json.Unmarshal(data, &loaded); err != nil {
		s.logger.Warn("could not parse state, assuming default state", "path", s.path, "error", err)
		return State{}
	}
	if loaded == nil {
		loaded = State{}
	}
	return loaded
}

// Save writes the state file, creating its directory if needed.
func (s *Store) Save(state State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create state directory: %w", err)
		}
	}
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write state: %w", err)
	}
	return nil
}

// ModTime returns the state file's modification time, or the zero time
// if the file does not exist yet.
func (s *Store) ModTime() time.Time {
	info, err := os.Stat(s.path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}
