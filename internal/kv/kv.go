// Package kv provides the string key-value stores the catalog persists its
// database image into. Two backends exist: a bbolt file and a directory
// holding one file per key.
package kv

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mesh-intelligence/fumetti/pkg/types"
)

// Store gets and sets string values by key.
type Store interface {
	// Get returns the value stored under key. ok is false when the key has
	// never been set.
	Get(key string) (value string, ok bool, err error)
	// Set replaces the value stored under key.
	Set(key, value string) error
	Close() error
}

// ErrInvalidKey is returned for keys that are empty or contain path
// separators.
var ErrInvalidKey = errors.New("invalid key")

// File names inside the data directory.
const (
	BoltFileName = "fumetti.bolt"
	FileStoreDir = "kv"
)

// Open opens the store selected by config.Store inside config.DataDir.
func Open(config types.Config) (Store, error) {
	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	switch config.Store {
	case types.StoreBolt:
		return OpenBolt(filepath.Join(dataDir, BoltFileName))
	case types.StoreFile:
		return OpenFile(filepath.Join(dataDir, FileStoreDir))
	default:
		return nil, fmt.Errorf("%w: %q", types.ErrStoreUnknown, config.Store)
	}
}

func checkKey(key string) error {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}
