package app

import (
	"context"
	"log/slog"
	"time"

	"backupmgr/internal/domain"
)

// Scheduler runs the backup and prune cycle on a fixed interval until
// its context is cancelled.
type Scheduler struct {
	runner   *Runner
	interval time.Duration
	logger   *slog.Logger
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithSchedulerLogger sets the logger.
func WithSchedulerLogger(logger *slog.Logger) SchedulerOption {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// NewScheduler creates a Scheduler driving the given runner.
func NewScheduler(runner *Runner, interval time.Duration, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		runner:   runner,
		interval: interval,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Run executes an immediate cycle, then one per interval, until ctx is
// cancelled. Cycle failures are logged and the loop keeps going; only
// cancellation ends it. On shutdown a final service-down metric is
// pushed so dashboards see the process leave.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("scheduler started", "interval", s.interval)

	s.cycle(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopping")
			s.shutdown()
			return ctx.Err()
		case <-ticker.C:
			s.cycle(ctx)
		}
	}
}

func (s *Scheduler) cycle(ctx context.Context) {
	if _, err := s.runner.RunBackups(ctx); err != nil {
		s.logger.Error("backup cycle failed", "error", err)
	}
	if _, err := s.runner.Prune(ctx, false); err != nil {
		s.logger.Error("prune cycle failed", "error", err)
	}
}

// shutdown pushes the final service-down gauge. The parent context is
// already cancelled, so the push gets its own short deadline.
func (s *Scheduler) shutdown() {
	if s.runner.pusher == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	m := domain.NewMetrics(s.runner.hostname)
	m.ServiceUp = false
	if err := s.runner.pusher.Push(ctx, m); err != nil {
		s.logger.Error("failed to push shutdown metrics", "error", err)
	}
}
