// Package prune partitions an archive history into keep and prune sets
// under daily/weekly/monthly retention quotas.
package prune

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"time"

	"backupmgr/internal/backend"
	"backupmgr/internal/clock"
	"backupmgr/internal/domain"
)

// Unbounded disables the quota of a retention tier.
const Unbounded = math.MaxInt

// freshWindow shields just-created archives from quota accounting.
const freshWindow = 24 * time.Hour

// Policy is the retention quota triple for one backup: how many daily,
// weekly and monthly representatives to keep.
type Policy struct {
	Daily   int
	Weekly  int
	Monthly int
}

// DefaultPolicy retains everything.
func DefaultPolicy() Policy {
	return Policy{Daily: Unbounded, Weekly: Unbounded, Monthly: Unbounded}
}

// Config maps backup names to policies. Backups without an entry are
// never pruned.
type Config map[string]Policy

// PolicyFor returns the policy for a backup, defaulting to unbounded.
func (c Config) PolicyFor(backupName string) Policy {
	if policy, ok := c[backupName]; ok {
		return policy
	}
	return DefaultPolicy()
}

// Engine computes and executes pruning decisions.
type Engine struct {
	config Config
	clock  clock.Clock
	logger *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the clock.
func WithClock(c clock.Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// NewEngine creates an Engine for the given retention config.
func NewEngine(config Config, opts ...Option) *Engine {
	e := &Engine{
		config: config,
		clock:  clock.System{},
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Prunable returns the archives of one backup that fail retention.
//
// Archives are visited most recent first. Anything younger than 24
// hours is retained outright and takes part in no quota. Older archives
// claim at most one time bucket, tried in priority order daily, weekly,
// monthly: a claim succeeds when that bucket has no representative yet
// and the tier's quota is not exhausted. Whatever claims nothing is
// prunable. Greedy most-recent-first traversal makes each bucket's
// representative the newest archive in it.
func (e *Engine) Prunable(backupName string, archives []domain.Archive) []domain.Archive {
	policy := e.config.PolicyFor(backupName)
	now := e.clock.Now()
	loc := e.clock.Location()

	sorted := make([]domain.Archive, len(archives))
	copy(sorted, archives)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Timestamp > sorted[j].Timestamp
	})

	dailySaved := make(map[time.Time]bool)
	weeklySaved := make(map[time.Time]bool)
	monthlySaved := make(map[time.Time]bool)
	kept := make(map[string]bool)

	for _, archive := range sorted {
		at := archive.Time(loc)

		if now.Sub(at) < freshWindow {
			e.logger.Info("retaining archive performed in the last 24 hours", "archive", archive.String())
			kept[archive.Fullname] = true
			continue
		}

		day := clock.Day(at, loc)
		week := clock.Week(at, loc)
		month := clock.Month(at, loc)

		switch {
		case len(dailySaved) < policy.Daily && !dailySaved[day]:
			e.logger.Info("retaining archive as a daily backup", "archive", archive.String())
			dailySaved[day] = true
			kept[archive.Fullname] = true
		case len(weeklySaved) < policy.Weekly && !weeklySaved[week]:
			e.logger.Info("retaining archive as a weekly backup", "archive", archive.String())
			weeklySaved[week] = true
			kept[archive.Fullname] = true
		case len(monthlySaved) < policy.Monthly && !monthlySaved[month]:
			e.logger.Info("retaining archive as a monthly backup", "archive", archive.String())
			monthlySaved[month] = true
			kept[archive.Fullname] = true
		}
	}

	var prunable []domain.Archive
	for _, archive := range sorted {
		if !kept[archive.Fullname] {
			prunable = append(prunable, archive)
		}
	}
	return prunable
}

// Prune destroys each archive on its backend. A destroy failure is
// logged and counted but does not stop the remaining archives from
// being processed.
func (e *Engine) Prune(ctx context.Context, be backend.Backend, archives []domain.Archive) *domain.PruneResult {
	result := &domain.PruneResult{Examined: len(archives)}

	for _, archive := range archives {
		if err := be.Destroy(ctx, archive); err != nil {
			e.logger.Error("failed to destroy archive", "archive", archive.String(), "error", err)
			result.Failures = append(result.Failures, archive)
			continue
		}
		result.Pruned = append(result.Pruned, archive)
	}
	return result
}
