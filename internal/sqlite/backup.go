package sqlite

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mesh-intelligence/fumetti/pkg/types"
)

// CreateBackup snapshots every readable collection into a backup document.
func (b *Backend) CreateBackup(ctx context.Context) (types.BackupDocument, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return types.BackupDocument{}, types.ErrDetached
	}
	collections, err := b.repo.ListAll(ctx)
	if err != nil {
		return types.BackupDocument{}, fmt.Errorf("creating backup: %w", err)
	}
	return types.NewBackupDocument(collections, b.now()), nil
}

// PlanRestore validates doc and reports how many collections a restore
// would replace. Nothing is written.
func (b *Backend) PlanRestore(ctx context.Context, doc types.BackupDocument) (types.RestorePlan, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return types.RestorePlan{}, types.ErrDetached
	}
	return b.planRestoreLocked(ctx, doc)
}

func (b *Backend) planRestoreLocked(ctx context.Context, doc types.BackupDocument) (types.RestorePlan, error) {
	if err := doc.Validate(); err != nil {
		return types.RestorePlan{}, err
	}
	existing, err := b.repo.Count(ctx)
	if err != nil {
		return types.RestorePlan{}, err
	}
	return types.RestorePlan{
		Document:  doc,
		Incoming:  len(doc.Collections),
		Discarded: existing,
	}, nil
}

// ApplyRestore replaces every collection with the contents of the plan's
// document, in document order, and persists the database immediately
// regardless of the sync strategy. Discarding existing collections needs
// confirmed. The replacement runs in one transaction; on any error the
// previous collections are kept.
func (b *Backend) ApplyRestore(ctx context.Context, plan types.RestorePlan, confirmed bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return types.ErrDetached
	}
	return b.applyRestoreLocked(ctx, plan, confirmed)
}

func (b *Backend) applyRestoreLocked(ctx context.Context, plan types.RestorePlan, confirmed bool) error {
	doc := plan.Document
	if err := doc.Validate(); err != nil {
		return err
	}
	if plan.Discarded > 0 && !confirmed {
		return fmt.Errorf("%w: restoring %d collections overwrites the %d stored collections",
			types.ErrConfirmationRequired, plan.Incoming, plan.Discarded)
	}

	existing, err := b.repo.Count(ctx)
	if err != nil {
		return err
	}
	if existing != plan.Discarded {
		return fmt.Errorf("%w: %d collections are stored, plan expected %d",
			types.ErrStalePlan, existing, plan.Discarded)
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning restore transaction: %w", err)
	}
	defer tx.Rollback()

	if err := ResetSchema(ctx, tx); err != nil {
		return err
	}
	repo := NewRepository(tx)
	for i, e := range doc.Collections {
		owned := types.ReconcileOwned(e.Owned, e.Numeri)
		if _, err := repo.InsertRaw(ctx, e.Metadata(), owned); err != nil {
			return fmt.Errorf("restoring collection %d: %w", i+1, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing restore: %w", err)
	}

	slog.Info("backup restored", "collections", plan.Incoming, "discarded", plan.Discarded, "timestamp", doc.Timestamp)

	b.dirty = true
	return b.flushLocked(ctx)
}

// Restore validates doc and replaces every collection with its contents.
// The caller is responsible for having confirmed the overwrite.
func (b *Backend) Restore(ctx context.Context, doc types.BackupDocument) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return types.ErrDetached
	}
	plan, err := b.planRestoreLocked(ctx, doc)
	if err != nil {
		return err
	}
	return b.applyRestoreLocked(ctx, plan, true)
}
