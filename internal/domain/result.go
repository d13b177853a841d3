package domain

import "time"

// RunResult summarizes one invocation of the backup verb: which backups
// were due and how each fared across its backends.
type RunResult struct {
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Succeeded []string      `json:"succeeded,omitempty"`
	Failed    []string      `json:"failed,omitempty"`
}

// NewRunResult creates a RunResult stamped with the given start time.
func NewRunResult(start time.Time) *RunResult {
	return &RunResult{StartTime: start}
}

// RecordBackup records the overall outcome of one backup.
func (r *RunResult) RecordBackup(name string, success bool) {
	if success {
		r.Succeeded = append(r.Succeeded, name)
	} else {
		r.Failed = append(r.Failed, name)
	}
}

// Complete stamps the end of the run.
func (r *RunResult) Complete(end time.Time) {
	r.EndTime = end
	r.Duration = end.Sub(r.StartTime)
}

// Due is the number of backups that were attempted.
func (r *RunResult) Due() int {
	return len(r.Succeeded) + len(r.Failed)
}

// Success reports whether every due backup completed on all its backends.
func (r *RunResult) Success() bool {
	return len(r.Failed) == 0
}

// PruneResult summarizes one invocation of the prune verb.
type PruneResult struct {
	Examined int       `json:"examined"`
	Pruned   []Archive `json:"pruned,omitempty"`
	Failures []Archive `json:"failures,omitempty"`
}

// Success reports whether every prunable archive was destroyed.
func (p *PruneResult) Success() bool {
	return len(p.Failures) == 0
}
