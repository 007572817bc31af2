// Package backend selects and wires the persistence adapter behind the
// engine's ports based on configuration.
package backend

import (
	"context"

	"obras/internal/config"
	"obras/internal/ports"
)

// Backend bundles every port the engine needs from one storage adapter.
// Both the SQLite repository and the in-memory store satisfy it.
type Backend interface {
	ports.BudgetRepository
	ports.SettingsStore
	ports.StageStore
	ports.TaskStore
	ports.FinanceReader
}

// CleanupFunc releases backend resources on shutdown.
type CleanupFunc func() error

// Result contains the backend instance and optional cleanup function.
type Result struct {
	Backend Backend
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration.
type Factory interface {
	CreateBackend(ctx context.Context, cfg *config.Config) (*Result, error)
}

// Type represents the kind of storage backend.
type Type string

const (
	SQLiteBackend Type = "sqlite"
	MemoryBackend Type = "memory"
)

// String implements fmt.Stringer.
func (t Type) String() string {
	return string(t)
}

// IsValid returns true if the backend type is known.
func (t Type) IsValid() bool {
	switch t {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
