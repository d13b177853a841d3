package domain

import "context"

// Metrics holds the gauges reported after a run.
type Metrics struct {
	// Hostname identifies the machine the run happened on.
	Hostname string

	// ServiceUp is true while the process is alive; the scheduler pushes
	// a final false on shutdown.
	ServiceUp bool

	// BackupsDue is the number of backups the last run attempted.
	BackupsDue int

	// BackupsSucceeded is how many of those completed on every backend.
	BackupsSucceeded int

	// BackupsFailed is how many had at least one backend failure.
	BackupsFailed int

	// ArchivesPruned is the number of archives destroyed by the last
	// prune pass.
	ArchivesPruned int

	// LastRunUnix is the completion time of the last run, in epoch
	// seconds. Zero if no run has completed.
	LastRunUnix float64
}

// NewMetrics creates a Metrics value for the given host.
func NewMetrics(hostname string) *Metrics {
	return &Metrics{Hostname: hostname}
}

// AddRunResult folds a backup run into the metrics.
func (m *Metrics) AddRunResult(result *RunResult) {
	m.BackupsDue = result.Due()
	m.BackupsSucceeded = len(result.Succeeded)
	m.BackupsFailed = len(result.Failed)
	m.LastRunUnix = float64(result.EndTime.Unix())
}

// AddPruneResult folds a prune pass into the metrics.
func (m *Metrics) AddPruneResult(result *PruneResult) {
	m.ArchivesPruned = len(result.Pruned)
}

// MetricsPusher defines the interface for publishing metrics.
type MetricsPusher interface {
	// Push publishes the metrics.
	Push(ctx context.Context, metrics *Metrics) error

	// Validate checks if the pusher is properly configured.
	Validate(ctx context.Context) error
}
