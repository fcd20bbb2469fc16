package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
)

// collectionsTable is the only table of the catalog.
const collectionsTable = "collections"

// createCollections is the canonical schema. It matches databases written
// by earlier versions of the catalog, so their images load unchanged.
const createCollections = `CREATE TABLE IF NOT EXISTS collections (
    id INTEGER PRIMARY KEY,
    collana TEXT,
    nomeFumetto TEXT,
    numeri INTEGER,
    owned TEXT,
    copertina TEXT
)`

// requiredColumns lists the columns ValidateSchema insists on.
var requiredColumns = []string{"id", "collana", "nomeFumetto", "numeri", "owned", "copertina"}

// EnsureSchema creates the collections table if it does not exist.
func EnsureSchema(ctx context.Context, q Querier) error {
	if _, err := q.ExecContext(ctx, createCollections); err != nil {
		return fmt.Errorf("creating %s table: %w", collectionsTable, err)
	}
	return nil
}

// ResetSchema drops the collections table with all its rows and creates it
// again.
func ResetSchema(ctx context.Context, q Querier) error {
	if _, err := q.ExecContext(ctx, "DROP TABLE IF EXISTS "+collectionsTable); err != nil {
		return fmt.Errorf("dropping %s table: %w", collectionsTable, err)
	}
	return EnsureSchema(ctx, q)
}

// ValidateSchema reports whether the database has the collections table with
// every required column. Introspection failures, such as a database image
// that is not SQLite at all, report false.
func ValidateSchema(ctx context.Context, q Querier) bool {
	var name string
	err := q.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?",
		collectionsTable,
	).Scan(&name)
	if err != nil {
		if err != sql.ErrNoRows {
			slog.Debug("schema introspection failed", "error", err)
		}
		return false
	}

	columns, err := tableColumns(ctx, q, collectionsTable)
	if err != nil {
		slog.Debug("schema introspection failed", "error", err)
		return false
	}
	for _, col := range requiredColumns {
		if !columns[col] {
			slog.Debug("schema is missing a column", "table", collectionsTable, "column", col)
			return false
		}
	}
	return true
}

// CheckIntegrity runs PRAGMA quick_check over the whole database and returns
// an error listing the problems it reports.
func CheckIntegrity(ctx context.Context, q Querier) error {
	rows, err := q.QueryContext(ctx, "PRAGMA quick_check")
	if err != nil {
		return fmt.Errorf("integrity check: %w", err)
	}
	defer rows.Close()

	var problems []string
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return fmt.Errorf("integrity check: %w", err)
		}
		if line != "ok" {
			problems = append(problems, line)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("integrity check: %w", err)
	}
	if len(problems) > 0 {
		return fmt.Errorf("integrity check: %s", strings.Join(problems, "; "))
	}
	return nil
}

// tableColumns returns the set of column names of table.
func tableColumns(ctx context.Context, q Querier, table string) (map[string]bool, error) {
	rows, err := q.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns := make(map[string]bool)
	for rows.Next() {
		var (
			cid          int
			name         string
			ctype        string
			notNull      int
			defaultValue any
			pk           int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &defaultValue, &pk); err != nil {
			return nil, err
		}
		columns[name] = true
	}
	return columns, rows.Err()
}
