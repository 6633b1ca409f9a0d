// Package storage persists built semantic maps.
//
// It defines the Backend protocol that all storage implementations must
// satisfy. The unit of persistence is the whole map: builds replace the
// stored map atomically, and loads reconstruct the full aggregate with
// its secondary indexes.
package storage

import (
	"context"

	"github.com/cartograph-dev/semamap/internal/semantic"
)

// Backend defines the interface for map persistence implementations.
//
// Implementations must be safe for concurrent use.
type Backend interface {
	// Initialize opens or creates the store at the given path. If
	// readOnly is true, the store is opened in read-only mode.
	Initialize(path string, readOnly bool) error

	// Close releases all resources held by the backend.
	Close() error

	// SaveMap replaces the stored map with the given one.
	SaveMap(ctx context.Context, m *semantic.SemanticMap) error

	// LoadMap reconstructs the stored map. Returns (nil, nil) when no
	// map has been saved.
	LoadMap(ctx context.Context) (*semantic.SemanticMap, error)
}
