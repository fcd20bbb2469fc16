package types

import (
	"context"
	"errors"
)

// Catalog is the storage-agnostic entry point used by the CLI. Callers
// attach to a backend, run operations, and detach when done. Every mutating
// operation persists the database before returning (or marks it dirty when
// the sync strategy is on_close).
type Catalog interface {
	// Attach loads the persisted database described by config, falling back
	// to an empty database when nothing valid is stored.
	// Returns ErrAlreadyAttached if called while attached.
	Attach(config Config) error

	// Detach flushes pending changes and releases resources. Idempotent.
	Detach() error

	List(ctx context.Context) ([]Collection, error)
	Get(ctx context.Context, id int64) (Collection, error)
	Add(ctx context.Context, m Metadata) (Collection, error)
	SetOwnership(ctx context.Context, id int64, owned []bool) error

	PlanMetadataUpdate(ctx context.Context, id int64, m Metadata) (MetadataPlan, error)
	ApplyMetadataUpdate(ctx context.Context, plan MetadataPlan, confirmed bool) error
	// UpdateMetadata plans and applies in one call; shrinking the issue
	// count needs confirmTruncate.
	UpdateMetadata(ctx context.Context, id int64, m Metadata, confirmTruncate bool) error

	CreateBackup(ctx context.Context) (BackupDocument, error)
	PlanRestore(ctx context.Context, doc BackupDocument) (RestorePlan, error)
	ApplyRestore(ctx context.Context, plan RestorePlan, confirmed bool) error
	// Restore validates and applies a backup in one call, discarding every
	// stored collection.
	Restore(ctx context.Context, doc BackupDocument) error
}

// Catalog lifecycle errors.
var (
	ErrDetached        = errors.New("catalog is detached")
	ErrAlreadyAttached = errors.New("catalog is already attached")
)
