package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mesh-intelligence/fumetti/pkg/types"
)

// Querier is the subset of *sql.DB and *sql.Tx the repository needs.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repository runs CRUD statements against the collections table. It never
// persists the database image; the Backend flushes after each mutation so
// that bulk operations such as restore flush once.
type Repository struct {
	q Querier
}

// NewRepository returns a Repository running its statements on q.
func NewRepository(q Querier) *Repository {
	return &Repository{q: q}
}

const selectCollections = "SELECT id, collana, nomeFumetto, numeri, owned, copertina FROM collections"

// collectionRow is the typed form of one collections row. Every column
// except id may be NULL in images written by other tools.
type collectionRow struct {
	ID          int64
	Collana     sql.NullString
	NomeFumetto sql.NullString
	Numeri      sql.NullInt64
	Owned       sql.NullString
	Copertina   sql.NullString
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRow(s scanner) (collectionRow, error) {
	var r collectionRow
	err := s.Scan(&r.ID, &r.Collana, &r.NomeFumetto, &r.Numeri, &r.Owned, &r.Copertina)
	return r, err
}

// hydrateCollection maps a row to a Collection. An owned column that is not
// a JSON array of booleans yields types.ErrCorruptRow.
func hydrateCollection(r collectionRow) (types.Collection, error) {
	owned, err := decodeOwned(r.Owned.String)
	if err != nil || !r.Owned.Valid {
		return types.Collection{}, fmt.Errorf("%w: collection %d: owned is not a boolean array", types.ErrCorruptRow, r.ID)
	}
	// Rows written without numeri take the bitmap length.
	numeri := int(r.Numeri.Int64)
	if !r.Numeri.Valid || numeri < 1 {
		numeri = len(owned)
	}
	if numeri < 1 {
		return types.Collection{}, fmt.Errorf("%w: collection %d: has no issues", types.ErrCorruptRow, r.ID)
	}
	return types.Collection{
		ID:          r.ID,
		Collana:     r.Collana.String,
		NomeFumetto: r.NomeFumetto.String,
		Numeri:      numeri,
		Owned:       owned,
		Copertina:   r.Copertina.String,
	}, nil
}

func decodeOwned(text string) ([]bool, error) {
	var owned []bool
	if err := json.Unmarshal([]byte(text), &owned); err != nil {
		return nil, err
	}
	if owned == nil {
		return nil, errors.New("owned is null")
	}
	return owned, nil
}

func encodeOwned(owned []bool) string {
	if owned == nil {
		owned = []bool{}
	}
	b, _ := json.Marshal(owned) // []bool always marshals
	return string(b)
}

// ListAll returns every collection in storage order. Rows that cannot be
// mapped are logged and skipped so one corrupt row does not hide the rest.
func (r *Repository) ListAll(ctx context.Context) ([]types.Collection, error) {
	rows, err := r.q.QueryContext(ctx, selectCollections+" ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("querying collections: %w", err)
	}
	defer rows.Close()

	collections := []types.Collection{}
	for rows.Next() {
		row, err := scanRow(rows)
		if err != nil {
			slog.Warn("skipping unreadable collection row", "error", err)
			continue
		}
		c, err := hydrateCollection(row)
		if err != nil {
			slog.Warn("skipping corrupt collection row", "id", row.ID, "error", err)
			continue
		}
		collections = append(collections, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating collections: %w", err)
	}
	return collections, nil
}

// Get returns the collection with the given id.
func (r *Repository) Get(ctx context.Context, id int64) (types.Collection, error) {
	row, err := scanRow(r.q.QueryRowContext(ctx, selectCollections+" WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return types.Collection{}, fmt.Errorf("%w: id %d", types.ErrNotFound, id)
	}
	if err != nil {
		return types.Collection{}, fmt.Errorf("getting collection %d: %w", id, err)
	}
	return hydrateCollection(row)
}

// Count returns the number of stored rows, including corrupt ones.
func (r *Repository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM collections").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting collections: %w", err)
	}
	return n, nil
}

// Exists reports whether a collection with this series and title is stored.
func (r *Repository) Exists(ctx context.Context, collana, nomeFumetto string) (bool, error) {
	return r.existsExcept(ctx, collana, nomeFumetto, 0)
}

// existsExcept is Exists ignoring the row with id except.
func (r *Repository) existsExcept(ctx context.Context, collana, nomeFumetto string, except int64) (bool, error) {
	var n int
	err := r.q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM collections WHERE collana = ? AND nomeFumetto = ? AND id != ?",
		collana, nomeFumetto, except,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking for duplicates: %w", err)
	}
	return n > 0, nil
}

// Insert creates a collection with every issue marked as not owned.
// Returns types.ErrValidation for invalid metadata and types.ErrDuplicate
// when the series and title are already stored.
func (r *Repository) Insert(ctx context.Context, m types.Metadata) (types.Collection, error) {
	if err := m.Validate(); err != nil {
		return types.Collection{}, err
	}
	m = m.Normalize()

	exists, err := r.Exists(ctx, m.Collana, m.NomeFumetto)
	if err != nil {
		return types.Collection{}, err
	}
	if exists {
		return types.Collection{}, fmt.Errorf("%w: %s / %s", types.ErrDuplicate, m.Collana, m.NomeFumetto)
	}

	owned := make([]bool, m.Numeri)
	id, err := r.insertRow(ctx, m, owned)
	if err != nil {
		return types.Collection{}, err
	}
	return types.Collection{
		ID:          id,
		Collana:     m.Collana,
		NomeFumetto: m.NomeFumetto,
		Numeri:      m.Numeri,
		Owned:       owned,
		Copertina:   m.Copertina,
	}, nil
}

// InsertRaw inserts a row without the duplicate check. Restore uses it
// after validating the whole document.
func (r *Repository) InsertRaw(ctx context.Context, m types.Metadata, owned []bool) (int64, error) {
	return r.insertRow(ctx, m.Normalize(), owned)
}

func (r *Repository) insertRow(ctx context.Context, m types.Metadata, owned []bool) (int64, error) {
	res, err := r.q.ExecContext(ctx,
		"INSERT INTO collections (collana, nomeFumetto, numeri, owned, copertina) VALUES (?, ?, ?, ?, ?)",
		m.Collana, m.NomeFumetto, m.Numeri, encodeOwned(owned), m.Copertina,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting collection: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading new collection id: %w", err)
	}
	return id, nil
}

// UpdateOwnership overwrites the ownership bitmap of one collection. The
// bitmap must have one entry per issue; metadata is left untouched.
func (r *Repository) UpdateOwnership(ctx context.Context, id int64, owned []bool) error {
	if id < 1 {
		return fmt.Errorf("%w: collection id is required", types.ErrValidation)
	}
	if owned == nil {
		return fmt.Errorf("%w: owned must be a boolean sequence", types.ErrValidation)
	}

	var numeri sql.NullInt64
	err := r.q.QueryRowContext(ctx, "SELECT numeri FROM collections WHERE id = ?", id).Scan(&numeri)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: id %d", types.ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("getting collection %d: %w", id, err)
	}
	if int64(len(owned)) != numeri.Int64 {
		return fmt.Errorf("%w: owned has %d entries, collection %d has %d issues",
			types.ErrValidation, len(owned), id, numeri.Int64)
	}

	if _, err := r.q.ExecContext(ctx,
		"UPDATE collections SET owned = ? WHERE id = ?",
		encodeOwned(owned), id,
	); err != nil {
		return fmt.Errorf("updating ownership of collection %d: %w", id, err)
	}
	return nil
}

// currentOwned reads and decodes the stored bitmap of one collection.
func (r *Repository) currentOwned(ctx context.Context, id int64) ([]bool, error) {
	var text sql.NullString
	err := r.q.QueryRowContext(ctx, "SELECT owned FROM collections WHERE id = ?", id).Scan(&text)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", types.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting collection %d: %w", id, err)
	}
	owned, err := decodeOwned(text.String)
	if err != nil || !text.Valid {
		return nil, fmt.Errorf("%w: collection %d: owned is not a boolean array", types.ErrCorruptRow, id)
	}
	return owned, nil
}

// PlanMetadataUpdate computes what replacing the metadata of collection id
// would do to its ownership bitmap, without writing anything.
func (r *Repository) PlanMetadataUpdate(ctx context.Context, id int64, m types.Metadata) (types.MetadataPlan, error) {
	if id < 1 {
		return types.MetadataPlan{}, fmt.Errorf("%w: collection id is required", types.ErrValidation)
	}
	if err := m.Validate(); err != nil {
		return types.MetadataPlan{}, err
	}
	m = m.Normalize()

	owned, err := r.currentOwned(ctx, id)
	if err != nil {
		return types.MetadataPlan{}, err
	}

	dup, err := r.existsExcept(ctx, m.Collana, m.NomeFumetto, id)
	if err != nil {
		return types.MetadataPlan{}, err
	}
	if dup {
		return types.MetadataPlan{}, fmt.Errorf("%w: %s / %s", types.ErrDuplicate, m.Collana, m.NomeFumetto)
	}

	return types.NewMetadataPlan(id, owned, m), nil
}

// ApplyMetadataUpdate writes a plan. The bitmap is reconciled again from
// the one stored now, so ownership changes made after planning survive. A
// plan that truncates the bitmap needs confirmed; otherwise
// types.ErrConfirmationRequired is returned and nothing is written.
// types.ErrStalePlan is returned when the stored bitmap changed length, or
// now holds more owned issues in the dropped range, since the plan was made.
func (r *Repository) ApplyMetadataUpdate(ctx context.Context, plan types.MetadataPlan, confirmed bool) error {
	if plan.Truncates() && !confirmed {
		return fmt.Errorf("%w: reducing issues from %d to %d discards the state of %d issues (%d owned)",
			types.ErrConfirmationRequired, plan.CurrentNumeri, plan.Metadata.Numeri, plan.Dropped, plan.DroppedOwned)
	}
	if err := plan.Metadata.Validate(); err != nil {
		return err
	}
	m := plan.Metadata.Normalize()

	owned, err := r.currentOwned(ctx, plan.ID)
	if err != nil {
		return err
	}
	if len(owned) != plan.CurrentNumeri {
		return fmt.Errorf("%w: collection %d now has %d issues, plan expected %d",
			types.ErrStalePlan, plan.ID, len(owned), plan.CurrentNumeri)
	}
	current := types.NewMetadataPlan(plan.ID, owned, m)
	if current.DroppedOwned > plan.DroppedOwned {
		return fmt.Errorf("%w: collection %d now owns %d of the dropped issues, plan expected %d",
			types.ErrStalePlan, plan.ID, current.DroppedOwned, plan.DroppedOwned)
	}

	dup, err := r.existsExcept(ctx, m.Collana, m.NomeFumetto, plan.ID)
	if err != nil {
		return err
	}
	if dup {
		return fmt.Errorf("%w: %s / %s", types.ErrDuplicate, m.Collana, m.NomeFumetto)
	}

	if _, err := r.q.ExecContext(ctx,
		"UPDATE collections SET collana = ?, nomeFumetto = ?, numeri = ?, owned = ?, copertina = ? WHERE id = ?",
		m.Collana, m.NomeFumetto, m.Numeri, encodeOwned(current.Owned), m.Copertina, plan.ID,
	); err != nil {
		return fmt.Errorf("updating collection %d: %w", plan.ID, err)
	}
	return nil
}

// UpdateMetadata replaces the metadata of collection id, reconciling the
// bitmap with the new issue count. Shrinking needs confirmTruncate.
func (r *Repository) UpdateMetadata(ctx context.Context, id int64, m types.Metadata, confirmTruncate bool) error {
	plan, err := r.PlanMetadataUpdate(ctx, id, m)
	if err != nil {
		return err
	}
	return r.ApplyMetadataUpdate(ctx, plan, confirmTruncate)
}
