package backend

import (
	"context"

	"tradeflow/internal/journal"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the journal store and its lifecycle hooks. Store is
// nil for the none backend, which keeps every session in guest mode.
type BackendResult struct {
	Store   journal.Store
	Cleanup CleanupFunc
	// Ping reports store health; nil when there is nothing to check.
	Ping func(ctx context.Context) error
}

// Close runs Cleanup when one is set.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a backend instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}
