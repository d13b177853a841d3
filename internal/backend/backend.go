// Package backend defines the capability contract a storage backend must
// satisfy and the registry through which configured backend types are
// resolved.
package backend

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"backupmgr/internal/domain"
)

// ListToken is an opaque snapshot of a backend's full archive listing.
// It is produced by PrimedListToken and handed back to Archives so that
// enumerating archives for many backups sharing one backend costs a
// single remote listing. A nil token means "enumerate now".
type ListToken any

// Backend is a storage technology adapter capable of creating, listing,
// restoring and destroying archives. Every operation blocks on an
// external process; a failure is reported as an error and absorbed by
// the caller, never treated as fatal to the whole run.
type Backend interface {
	// Name returns the configured backend name.
	Name() string

	// Perform creates exactly one archive covering all source paths,
	// named deterministically from the backup name and now. The map
	// goes from absolute source path to the name the path takes inside
	// the archive.
	Perform(ctx context.Context, paths map[string]string, backupName string, now time.Time) error

	// Archives lists the archives belonging to backupName on this
	// backend, served from token if one is supplied.
	Archives(ctx context.Context, backupName string, token ListToken) ([]domain.Archive, error)

	// PrimedListToken performs one remote enumeration of all archives
	// on the backend and returns a reusable snapshot.
	PrimedListToken(ctx context.Context) (ListToken, error)

	// Restore unpacks the archive into the destination directory.
	Restore(ctx context.Context, archive domain.Archive, destination string) error

	// Destroy deletes the archive from the backend's store.
	Destroy(ctx context.Context, archive domain.Archive) error
}

// Factory constructs a backend from its configured name and raw
// type-specific settings.
type Factory func(name string, settings map[string]any, logger *slog.Logger) (Backend, error)

// Registry maps backend type names to factories. It is populated by
// explicit Register calls at process startup and injected into
// configuration loading; there is no global registry.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a backend type. Registering the same type name twice is
// a programming error and is reported as such.
func (r *Registry) Register(typeName string, factory Factory) error {
	if _, exists := r.factories[typeName]; exists {
		return domain.Errorf("backend type name collision: %s", typeName)
	}
	r.factories[typeName] = factory
	return nil
}

// New constructs a backend of the given type. An unknown type string is
// a fatal configuration error.
func (r *Registry) New(typeName, name string, settings map[string]any, logger *slog.Logger) (Backend, error) {
	factory, ok := r.factories[typeName]
	if !ok {
		return nil, domain.NewConfigError("missing or invalid type for backend: %q", typeName)
	}
	return factory(name, settings, logger)
}

// Types returns the registered type names, sorted.
func (r *Registry) Types() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry returns a Registry with all built-in backend types.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	// Collisions among built-ins cannot happen.
	_ = r.Register("tarsnap", NewTarsnap)
	return r
}
