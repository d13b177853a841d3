package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"backupmgr/internal/backend"
	"backupmgr/internal/clock"
	"backupmgr/internal/config"
	"backupmgr/internal/domain"
	"backupmgr/internal/prune"
	"backupmgr/internal/specifier"
	"backupmgr/internal/state"
)

// Runner executes the application verbs against a loaded configuration.
type Runner struct {
	cfg      *config.Config
	store    *state.Store
	clk      clock.Clock
	notifier domain.Notifier
	pusher   domain.MetricsPusher
	logger   *slog.Logger
	hostname string
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithClock sets the clock.
func WithClock(c clock.Clock) RunnerOption {
	return func(r *Runner) {
		r.clk = c
	}
}

// WithStore sets the state store.
func WithStore(store *state.Store) RunnerOption {
	return func(r *Runner) {
		r.store = store
	}
}

// WithNotifier sets the notifier.
func WithNotifier(n domain.Notifier) RunnerOption {
	return func(r *Runner) {
		r.notifier = n
	}
}

// WithMetricsPusher sets the metrics pusher.
func WithMetricsPusher(p domain.MetricsPusher) RunnerOption {
	return func(r *Runner) {
		r.pusher = p
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithHostname overrides the reported hostname.
func WithHostname(hostname string) RunnerOption {
	return func(r *Runner) {
		r.hostname = hostname
	}
}

// NewRunner creates a Runner for the given configuration.
func NewRunner(cfg *config.Config, opts ...RunnerOption) *Runner {
	hostname, _ := os.Hostname()

	r := &Runner{
		cfg:      cfg,
		store:    state.NewStore(cfg.Statefile),
		clk:      clock.System{},
		notifier: &domain.NopNotifier{},
		pusher:   nil,
		logger:   slog.Default(),
		hostname: hostname,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// RunBackups performs every due backup on each of its backends and
// persists the new run state. A backend failure marks the backup failed
// but never aborts the run: the remaining backends and backups are
// still attempted.
func (r *Runner) RunBackups(ctx context.Context) (*domain.RunResult, error) {
	now := r.clk.Now()
	result := domain.NewRunResult(now)

	st := r.store.Load()
	set := NewBackupSet(r.cfg.Backups, st, r.cfg.ModTime, r.store.ModTime(), WithSetLogger(r.logger))

	due := set.Due(now)
	r.logger.Info("starting backup run", "due", len(due), "configured", len(r.cfg.Backups))

	for _, b := range due {
		result.RecordBackup(b.Name, r.performBackup(ctx, b, now))
	}

	result.Complete(r.clk.Now())

	if result.Due() > 0 {
		next := set.StateAfterRun(result.Succeeded, now)
		if err := r.store.Save(next); err != nil {
			return result, fmt.Errorf("backups ran but state was not saved: %w", err)
		}
	}

	r.report(ctx, result)

	r.logger.Info(fmt.Sprintf("successfully completed %d/%d backups", len(result.Succeeded), result.Due()),
		"duration", result.Duration,
	)
	return result, nil
}

// performBackup writes one backup to every configured backend and
// reports whether all of them succeeded.
func (r *Runner) performBackup(ctx context.Context, b *config.Backup, now time.Time) bool {
	ok := true
	instance := b.InstanceName(r.hostname, now)
	for _, be := range b.Backends {
		logger := r.logger.With("backup", b.Name, "backend", be.Name(), "instance", instance)
		logger.Info("performing backup")

		if err := be.Perform(ctx, b.Paths, b.Name, now); err != nil {
			logger.Error("backup failed", "error", err)
			ok = false
			continue
		}
		logger.Info("backup complete")
	}
	return ok
}

// ArchiveFilter narrows a listing by timestamp.
type ArchiveFilter struct {
	// Before excludes archives at or after this time, when set.
	Before time.Time

	// After excludes archives at or before this time, when set.
	After time.Time
}

func (f ArchiveFilter) match(a domain.Archive, loc *time.Location) bool {
	t := a.Time(loc)
	if !f.Before.IsZero() && !t.Before(f.Before) {
		return false
	}
	if !f.After.IsZero() && !t.After(f.After) {
		return false
	}
	return true
}

// ListedArchive pairs an archive with its position in its backend's
// full ascending listing. The position remains a valid ordinal
// specifier for restore even when a filter narrows the display.
type ListedArchive struct {
	Position int
	Archive  domain.Archive
}

// BackendListing is one backend's archives for a backup, ascending by
// timestamp.
type BackendListing struct {
	BackendName string
	Archives    []ListedArchive
}

// ListArchives enumerates the archives of one backup, grouped per
// backend in configuration order. Backends holding no matching archive
// are omitted. backupName must name a configured backup.
func (r *Runner) ListArchives(ctx context.Context, backupName string, filter ArchiveFilter) ([]BackendListing, error) {
	b := r.cfg.Backup(backupName)
	if b == nil {
		return nil, domain.Errorf("no backup named %q", backupName)
	}

	loc := r.clk.Location()
	var listings []BackendListing
	for _, be := range b.Backends {
		archives, err := be.Archives(ctx, b.Name, nil)
		if err != nil {
			return nil, fmt.Errorf("listing %s on %s: %w", b.Name, be.Name(), err)
		}
		sort.Slice(archives, func(i, j int) bool { return archives[i].Timestamp < archives[j].Timestamp })

		var kept []ListedArchive
		for i, a := range archives {
			if filter.match(a, loc) {
				kept = append(kept, ListedArchive{Position: i, Archive: a})
			}
		}
		if len(kept) == 0 {
			continue
		}
		listings = append(listings, BackendListing{BackendName: be.Name(), Archives: kept})
	}
	return listings, nil
}

// Restore resolves spec against the backup's archives on the named
// backend and unpacks the match into destination.
func (r *Runner) Restore(ctx context.Context, backupName, backendName, spec, destination string) (domain.Archive, error) {
	b := r.cfg.Backup(backupName)
	if b == nil {
		return domain.Archive{}, domain.Errorf("no backup named %q", backupName)
	}

	var be backend.Backend
	for _, candidate := range b.Backends {
		if candidate.Name() == backendName {
			be = candidate
			break
		}
	}
	if be == nil {
		return domain.Archive{}, domain.Errorf("backup %q has no backend named %q", backupName, backendName)
	}

	loc := r.clk.Location()
	parsed, err := specifier.Parse(spec, loc)
	if err != nil {
		return domain.Archive{}, err
	}

	archives, err := be.Archives(ctx, b.Name, nil)
	if err != nil {
		return domain.Archive{}, fmt.Errorf("listing %s on %s: %w", b.Name, be.Name(), err)
	}
	// Resolution positions are defined over the ascending listing.
	sort.Slice(archives, func(i, j int) bool { return archives[i].Timestamp < archives[j].Timestamp })

	archive, err := specifier.Resolve(parsed, archives, loc)
	if err != nil {
		return domain.Archive{}, err
	}

	r.logger.Info("restoring archive", "archive", archive.Fullname, "destination", destination)
	if err := be.Restore(ctx, archive, destination); err != nil {
		return archive, fmt.Errorf("restoring %s: %w", archive.Fullname, err)
	}
	return archive, nil
}

// Prune applies the retention policies to every backup on every
// backend. With dryRun set, the prunable archives are reported but
// nothing is destroyed. Each backend's full listing is fetched once
// and shared across the backups stored on it.
func (r *Runner) Prune(ctx context.Context, dryRun bool) (*domain.PruneResult, error) {
	engine := prune.NewEngine(r.cfg.Prune, prune.WithClock(r.clk), prune.WithLogger(r.logger))
	total := &domain.PruneResult{}

	tokens := make(map[string]backend.ListToken)
	for _, b := range r.cfg.Backups {
		for _, be := range b.Backends {
			token, ok := tokens[be.Name()]
			if !ok {
				var err error
				token, err = be.PrimedListToken(ctx)
				if err != nil {
					return total, fmt.Errorf("listing archives on %s: %w", be.Name(), err)
				}
				tokens[be.Name()] = token
			}

			archives, err := be.Archives(ctx, b.Name, token)
			if err != nil {
				return total, fmt.Errorf("listing %s on %s: %w", b.Name, be.Name(), err)
			}
			total.Examined += len(archives)

			prunable := engine.Prunable(b.Name, archives)
			if len(prunable) == 0 {
				continue
			}

			if dryRun {
				total.Pruned = append(total.Pruned, prunable...)
				continue
			}

			partial := engine.Prune(ctx, be, prunable)
			total.Pruned = append(total.Pruned, partial.Pruned...)
			total.Failures = append(total.Failures, partial.Failures...)
		}
	}

	if !dryRun {
		r.reportPrune(ctx, total)
	}

	r.logger.Info("prune complete",
		"examined", total.Examined,
		"pruned", len(total.Pruned),
		"failures", len(total.Failures),
		"dry_run", dryRun,
	)
	return total, nil
}

// Validate checks every backend whose implementation supports it, plus
// the deliverability of the configured notification and metrics
// endpoints.
func (r *Runner) Validate(ctx context.Context) error {
	for _, name := range r.cfg.BackendOrder {
		v, ok := r.cfg.Backends[name].(interface{ Validate(context.Context) error })
		if !ok {
			continue
		}
		if err := v.Validate(ctx); err != nil {
			return fmt.Errorf("backend %s: %w", name, err)
		}
	}
	if err := r.notifier.Validate(ctx); err != nil {
		return err
	}
	if r.pusher != nil {
		return r.pusher.Validate(ctx)
	}
	return nil
}

// report delivers the digest and metrics for a completed backup run.
// Delivery failures are logged, never propagated: the run itself
// already happened.
func (r *Runner) report(ctx context.Context, result *domain.RunResult) {
	if result.Due() > 0 && r.shouldNotify(result) {
		if err := r.notifier.Notify(ctx, digestNotification(result, r.hostname)); err != nil {
			r.logger.Error("failed to send run digest", "error", err)
		}
	}

	if r.pusher != nil {
		m := domain.NewMetrics(r.hostname)
		m.ServiceUp = true
		m.AddRunResult(result)
		if err := r.pusher.Push(ctx, m); err != nil {
			r.logger.Error("failed to push metrics", "error", err)
		}
	}
}

func (r *Runner) reportPrune(ctx context.Context, result *domain.PruneResult) {
	if r.pusher == nil {
		return
	}
	m := domain.NewMetrics(r.hostname)
	m.ServiceUp = true
	m.AddPruneResult(result)
	if err := r.pusher.Push(ctx, m); err != nil {
		r.logger.Error("failed to push metrics", "error", err)
	}
}

func (r *Runner) shouldNotify(result *domain.RunResult) bool {
	switch r.cfg.Notify.Level {
	case config.NotifyAlways:
		return true
	case config.NotifyError:
		return !result.Success()
	default:
		return false
	}
}

// digestNotification renders a run outcome as a notification.
func digestNotification(result *domain.RunResult, hostname string) *domain.Notification {
	var b strings.Builder
	fmt.Fprintf(&b, "Backup run on %s finished at %s.\n\n",
		hostname, result.EndTime.Format("2006-01-02 15:04:05"))

	if len(result.Succeeded) > 0 {
		fmt.Fprintf(&b, "Succeeded: %s\n", strings.Join(result.Succeeded, ", "))
	}
	if len(result.Failed) > 0 {
		fmt.Fprintf(&b, "Failed: %s\n", strings.Join(result.Failed, ", "))
	}
	fmt.Fprintf(&b, "\nDuration: %s\n", result.Duration.Round(time.Second))

	if result.Success() {
		return domain.InfoNotification(
			fmt.Sprintf("Backup report for %s", hostname), b.String())
	}
	return domain.ErrorNotification(
		fmt.Sprintf("Backup FAILURE on %s", hostname), b.String())
}
