// Package sqlite implements the catalog on an in-memory SQLite database
// whose binary image is persisted, base64 encoded, under one key of a
// key-value store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/mesh-intelligence/fumetti/internal/kv"
	"github.com/mesh-intelligence/fumetti/pkg/types"
)

// Compile-time interface check: Backend must implement Catalog.
var _ types.Catalog = (*Backend)(nil)

// Backend is the application state: the one database handle, the store the
// image is flushed to, and the flush policy. All methods are safe for
// concurrent use; there is still only one logical writer.
type Backend struct {
	mu       sync.Mutex
	attached bool
	config   types.Config
	store    kv.Store
	db       *sql.DB
	repo     *Repository

	syncStrategy string
	storageKey   string
	// dirty is set when the in-memory database has changes that are not
	// in the store yet.
	dirty bool

	now func() time.Time
}

// NewBackend creates a new backend instance.
// The backend is not attached; call Attach with a Config to initialize.
func NewBackend() *Backend {
	return &Backend{now: time.Now}
}

// Attach opens the key-value store and loads the persisted database. A
// missing, undecodable, or structurally invalid image is replaced by an
// empty database with the canonical schema; the store is not touched until
// the first flush. Store read errors fail Attach so that a transient I/O
// problem never leads to overwriting good data.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	store, err := kv.Open(config)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}

	b.storageKey = config.GetStorageKey()
	b.syncStrategy = config.GetSyncStrategy()

	ctx := context.Background()
	db, err := b.load(ctx, store, dataDir)
	if err != nil {
		store.Close()
		return err
	}

	b.config = config
	b.store = store
	b.db = db
	b.repo = NewRepository(db)
	b.dirty = false
	b.attached = true

	slog.Debug("catalog attached", "store", config.Store, "data_dir", dataDir, "sync_strategy", b.syncStrategy)
	return nil
}

// load returns the persisted database or a fresh one. The image is staged
// in dataDir while it is copied into memory.
func (b *Backend) load(ctx context.Context, store kv.Store, dataDir string) (*sql.DB, error) {
	text, ok, err := store.Get(b.storageKey)
	if err != nil {
		return nil, fmt.Errorf("%w: reading stored database: %v", types.ErrPersistence, err)
	}
	if !ok {
		return freshDatabase(ctx)
	}

	image, err := DecodeImage(text)
	if err != nil {
		slog.Warn("stored database is unreadable, starting empty", "key", b.storageKey, "error", err)
		return freshDatabase(ctx)
	}

	db, err := openImage(ctx, dataDir, image)
	if err != nil {
		slog.Warn("stored database cannot be opened, starting empty", "key", b.storageKey, "error", err)
		return freshDatabase(ctx)
	}

	if !ValidateSchema(ctx, db) {
		db.Close()
		slog.Warn("stored database has an unexpected schema, starting empty", "key", b.storageKey)
		return freshDatabase(ctx)
	}

	if err := CheckIntegrity(ctx, db); err != nil {
		db.Close()
		slog.Warn("stored database is corrupt, starting empty", "key", b.storageKey, "error", err)
		return freshDatabase(ctx)
	}
	return db, nil
}

// freshDatabase opens an empty database with the canonical schema.
func freshDatabase(ctx context.Context) (*sql.DB, error) {
	db, err := openMemory()
	if err != nil {
		return nil, err
	}
	if err := EnsureSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Detach flushes pending changes and releases all resources. After Detach,
// all operations return ErrDetached. Detach is idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}

	var errs []error
	if b.dirty {
		if err := b.flushLocked(context.Background()); err != nil {
			errs = append(errs, fmt.Errorf("flush pending changes: %w", err))
		}
	}
	if err := b.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing database: %w", err))
	}
	if err := b.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing store: %w", err))
	}

	b.db = nil
	b.repo = nil
	b.store = nil
	b.attached = false
	return errors.Join(errs...)
}

// Flush writes the current database image to the store.
func (b *Backend) Flush(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return types.ErrDetached
	}
	return b.flushLocked(ctx)
}

// flushLocked serializes the database and stores it under the storage key.
// The caller must hold b.mu.
func (b *Backend) flushLocked(ctx context.Context) error {
	image, err := exportImage(ctx, b.db)
	if err != nil {
		return err
	}
	if err := b.store.Set(b.storageKey, EncodeImage(image)); err != nil {
		return fmt.Errorf("%w: storing database: %v", types.ErrPersistence, err)
	}
	b.dirty = false
	slog.Debug("database flushed", "key", b.storageKey, "bytes", len(image))
	return nil
}

// mutated records a change and flushes it according to the sync strategy.
// The caller must hold b.mu.
func (b *Backend) mutated(ctx context.Context) error {
	b.dirty = true
	if b.syncStrategy == types.SyncOnClose {
		return nil
	}
	return b.flushLocked(ctx)
}

// List returns every readable collection in storage order.
func (b *Backend) List(ctx context.Context) ([]types.Collection, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil, types.ErrDetached
	}
	return b.repo.ListAll(ctx)
}

// Get returns one collection.
func (b *Backend) Get(ctx context.Context, id int64) (types.Collection, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return types.Collection{}, types.ErrDetached
	}
	return b.repo.Get(ctx, id)
}

// Exists reports whether a collection with this series and title exists.
func (b *Backend) Exists(ctx context.Context, collana, nomeFumetto string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return false, types.ErrDetached
	}
	return b.repo.Exists(ctx, collana, nomeFumetto)
}

// Add creates a collection and persists the database.
func (b *Backend) Add(ctx context.Context, m types.Metadata) (types.Collection, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return types.Collection{}, types.ErrDetached
	}
	c, err := b.repo.Insert(ctx, m)
	if err != nil {
		return types.Collection{}, err
	}
	slog.Info("collection added", "id", c.ID, "collana", c.Collana, "nomeFumetto", c.NomeFumetto, "numeri", c.Numeri)
	return c, b.mutated(ctx)
}

// SetOwnership replaces the ownership bitmap of a collection and persists
// the database.
func (b *Backend) SetOwnership(ctx context.Context, id int64, owned []bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return types.ErrDetached
	}
	if err := b.repo.UpdateOwnership(ctx, id, owned); err != nil {
		return err
	}
	return b.mutated(ctx)
}

// PlanMetadataUpdate reports what a metadata update would change.
func (b *Backend) PlanMetadataUpdate(ctx context.Context, id int64, m types.Metadata) (types.MetadataPlan, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return types.MetadataPlan{}, types.ErrDetached
	}
	return b.repo.PlanMetadataUpdate(ctx, id, m)
}

// ApplyMetadataUpdate writes a plan and persists the database.
func (b *Backend) ApplyMetadataUpdate(ctx context.Context, plan types.MetadataPlan, confirmed bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return types.ErrDetached
	}
	if err := b.repo.ApplyMetadataUpdate(ctx, plan, confirmed); err != nil {
		return err
	}
	if plan.Truncates() {
		slog.Info("collection truncated", "id", plan.ID, "from", plan.CurrentNumeri, "to", plan.Metadata.Numeri, "owned_dropped", plan.DroppedOwned)
	}
	return b.mutated(ctx)
}

// UpdateMetadata plans and applies a metadata update in one call.
func (b *Backend) UpdateMetadata(ctx context.Context, id int64, m types.Metadata, confirmTruncate bool) error {
	plan, err := b.PlanMetadataUpdate(ctx, id, m)
	if err != nil {
		return err
	}
	return b.ApplyMetadataUpdate(ctx, plan, confirmTruncate)
}
