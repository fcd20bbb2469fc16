// Package sqlite provides the public API for the SQLite catalog backend.
// This package exposes the factory function for creating backends while
// keeping implementation details internal.
package sqlite

import (
	"github.com/mesh-intelligence/fumetti/internal/sqlite"
	"github.com/mesh-intelligence/fumetti/pkg/types"
)

// NewBackend creates a new SQLite catalog instance.
// The catalog is not attached; call Attach with a Config to initialize.
//
// Example:
//
//	catalog := sqlite.NewBackend()
//	err := catalog.Attach(types.Config{
//	    Store:   types.StoreBolt,
//	    DataDir: ".fumetti-db",
//	})
//	defer catalog.Detach()
func NewBackend() types.Catalog {
	return sqlite.NewBackend()
}
