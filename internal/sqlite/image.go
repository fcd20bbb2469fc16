package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	"modernc.org/sqlite"

	"github.com/mesh-intelligence/fumetti/pkg/types"
)

// serializer is implemented by the modernc.org/sqlite driver connection.
type serializer interface {
	Serialize() ([]byte, error)
}

// restorer is implemented by the modernc.org/sqlite driver connection.
// Do not load images with the driver's Deserialize: SQLite frees a buffer
// the driver allocated elsewhere and the database is corrupted on close.
type restorer interface {
	NewRestore(srcURI string) (*sqlite.Backup, error)
}

var (
	errNoSerializer = errors.New("sqlite driver connection does not support serialization")
	errNoRestorer   = errors.New("sqlite driver connection does not support restore")
)

// openMemory opens an empty in-memory database. The pool is limited to one
// connection that is never recycled, because every connection to :memory:
// is a separate database.
func openMemory() (*sql.DB, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("opening in-memory database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("opening in-memory database: %w", err)
	}
	return db, nil
}

// withDriverConn runs fn with the driver connection behind db.
func withDriverConn(ctx context.Context, db *sql.DB, fn func(driverConn any) error) error {
	conn, err := db.Conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	return conn.Raw(fn)
}

// exportImage returns the binary image of the main database.
// Errors wrap types.ErrPersistence.
func exportImage(ctx context.Context, db *sql.DB) ([]byte, error) {
	var image []byte
	err := withDriverConn(ctx, db, func(driverConn any) error {
		s, ok := driverConn.(serializer)
		if !ok {
			return errNoSerializer
		}
		b, err := s.Serialize()
		if err != nil {
			return err
		}
		image = append([]byte(nil), b...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: exporting database image: %v", types.ErrPersistence, err)
	}
	return image, nil
}

// openImage opens an in-memory database holding a copy of image. The image
// is written to a temporary file in dir and copied page by page with the
// backup API; the file is removed before returning. The image is not
// checked; run ValidateSchema and CheckIntegrity before trusting it.
// Errors wrap types.ErrPersistence.
func openImage(ctx context.Context, dir string, image []byte) (*sql.DB, error) {
	path, err := writeImageFile(dir, image)
	if err != nil {
		return nil, fmt.Errorf("%w: staging database image: %v", types.ErrPersistence, err)
	}
	defer os.Remove(path)

	db, err := openMemory()
	if err != nil {
		return nil, err
	}
	err = withDriverConn(ctx, db, func(driverConn any) error {
		r, ok := driverConn.(restorer)
		if !ok {
			return errNoRestorer
		}
		return restoreFrom(r, path)
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: loading database image: %v", types.ErrPersistence, err)
	}
	return db, nil
}

// restoreFrom copies every page of the database file at path into the
// connection behind r.
func restoreFrom(r restorer, path string) error {
	backup, err := r.NewRestore(path)
	if err != nil {
		return err
	}
	_, stepErr := backup.Step(-1)
	return errors.Join(stepErr, backup.Finish())
}

// writeImageFile writes image to a new temporary file in dir and returns
// its path.
func writeImageFile(dir string, image []byte) (string, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	f, err := os.CreateTemp(dir, ".fumetti-image-*.db")
	if err != nil {
		return "", err
	}
	path := f.Name()
	if _, err := f.Write(image); err != nil {
		f.Close()
		os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}
