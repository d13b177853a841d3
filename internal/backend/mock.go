package backend

import (
	"context"
	"time"

	"backupmgr/internal/domain"
)

// Mock is a mock implementation of Backend for testing.
type Mock struct {
	BackendName string

	PerformFunc         func(ctx context.Context, paths map[string]string, backupName string, now time.Time) error
	ArchivesFunc        func(ctx context.Context, backupName string, token ListToken) ([]domain.Archive, error)
	PrimedListTokenFunc func(ctx context.Context) (ListToken, error)
	RestoreFunc         func(ctx context.Context, archive domain.Archive, destination string) error
	DestroyFunc         func(ctx context.Context, archive domain.Archive) error

	// Performed records the backup names passed to Perform.
	Performed []string
	// Destroyed records all archives passed to Destroy.
	Destroyed []domain.Archive
	// Restored records all archives passed to Restore.
	Restored []domain.Archive
	// PrimedCalls counts PrimedListToken invocations.
	PrimedCalls int
}

// Name returns the mock backend name.
func (m *Mock) Name() string {
	if m.BackendName == "" {
		return "mock"
	}
	return m.BackendName
}

// Perform calls the mock PerformFunc and records the backup name.
func (m *Mock) Perform(ctx context.Context, paths map[string]string, backupName string, now time.Time) error {
	m.Performed = append(m.Performed, backupName)
	if m.PerformFunc != nil {
		return m.PerformFunc(ctx, paths, backupName, now)
	}
	return nil
}

// Archives calls the mock ArchivesFunc.
func (m *Mock) Archives(ctx context.Context, backupName string, token ListToken) ([]domain.Archive, error) {
	if m.ArchivesFunc != nil {
		return m.ArchivesFunc(ctx, backupName, token)
	}
	return nil, nil
}

// PrimedListToken calls the mock PrimedListTokenFunc.
func (m *Mock) PrimedListToken(ctx context.Context) (ListToken, error) {
	m.PrimedCalls++
	if m.PrimedListTokenFunc != nil {
		return m.PrimedListTokenFunc(ctx)
	}
	return ListToken(struct{}{}), nil
}

// Restore calls the mock RestoreFunc and records the archive.
func (m *Mock) Restore(ctx context.Context, archive domain.Archive, destination string) error {
	m.Restored = append(m.Restored, archive)
	if m.RestoreFunc != nil {
		return m.RestoreFunc(ctx, archive, destination)
	}
	return nil
}

// Destroy calls the mock DestroyFunc and records the archive.
func (m *Mock) Destroy(ctx context.Context, archive domain.Archive) error {
	m.Destroyed = append(m.Destroyed, archive)
	if m.DestroyFunc != nil {
		return m.DestroyFunc(ctx, archive)
	}
	return nil
}

// Ensure Mock implements Backend.
var _ Backend = (*Mock)(nil)
