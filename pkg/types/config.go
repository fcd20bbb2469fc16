package types

import "errors"

// Config holds key-value store selection and persistence parameters for
// Catalog.Attach.
type Config struct {
	Store        string `json:"store" yaml:"store"`
	DataDir      string `json:"data_dir" yaml:"data_dir"`
	SyncStrategy string `json:"sync_strategy,omitempty" yaml:"sync_strategy,omitempty"`
	StorageKey   string `json:"storage_key,omitempty" yaml:"storage_key,omitempty"`
}

// Supported key-value store names.
const (
	StoreBolt = "bolt"
	StoreFile = "file"
)

// Sync strategies. Immediate flushes the database image after every
// mutation; OnClose flushes once when the catalog detaches.
const (
	SyncImmediate = "immediate"
	SyncOnClose   = "on_close"
)

// DefaultStorageKey is the key the database image is stored under.
const DefaultStorageKey = "comicsDatabase"

// Config validation errors.
var (
	ErrStoreEmpty          = errors.New("store must not be empty")
	ErrStoreUnknown        = errors.New("unknown store")
	ErrSyncStrategyUnknown = errors.New("unknown sync strategy")
)

var knownStores = map[string]bool{
	StoreBolt: true,
	StoreFile: true,
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.Store == "" {
		return ErrStoreEmpty
	}
	if !knownStores[c.Store] {
		return ErrStoreUnknown
	}
	switch c.SyncStrategy {
	case "", SyncImmediate, SyncOnClose:
	default:
		return ErrSyncStrategyUnknown
	}
	return nil
}

// GetSyncStrategy returns the effective sync strategy, defaulting to
// immediate.
func (c Config) GetSyncStrategy() string {
	if c.SyncStrategy == "" {
		return SyncImmediate
	}
	return c.SyncStrategy
}

// GetStorageKey returns the effective storage key.
func (c Config) GetStorageKey() string {
	if c.StorageKey == "" {
		return DefaultStorageKey
	}
	return c.StorageKey
}
