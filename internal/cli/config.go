package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/mesh-intelligence/fumetti/internal/paths"
	"github.com/mesh-intelligence/fumetti/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	envPrefix = "FUMETTI"

	cfgKeyStore        = "store"
	cfgKeyDataDir      = "data_dir"
	cfgKeySyncStrategy = "sync_strategy"
	cfgKeyStorageKey   = "storage_key"
	cfgKeyLogLevel     = "log_level"
	cfgKeyDefaultSort  = "default_sort"
)

// defaultConfigYAML is the content written to config.yaml on first run.
const defaultConfigYAML = `# Fumetti configuration

# Key-value store holding the database: bolt or file
store: bolt

# Data directory (optional; overridable by --data-dir flag)
# data_dir:

# When to persist changes: immediate or on_close
sync_strategy: immediate

# Log level: debug, info, warn, error
log_level: warn

# Default order for list: alphabetical, completion, recent
default_sort: alphabetical
`

// loadConfig reads config.yaml from configDir using Viper. It creates the
// directory and a default config.yaml on first run. FUMETTI_* environment
// variables override file values.
func loadConfig(configDir string) (*viper.Viper, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := ensureDefaultConfigFile(configDir); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	v.SetDefault(cfgKeyStore, types.StoreBolt)
	v.SetDefault(cfgKeySyncStrategy, types.SyncImmediate)
	v.SetDefault(cfgKeyStorageKey, types.DefaultStorageKey)
	v.SetDefault(cfgKeyLogLevel, "warn")
	v.SetDefault(cfgKeyDefaultSort, types.SortAlphabetical)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// ensureDefaultConfigFile creates a default config.yaml if the file does not
// exist in the config directory.
func ensureDefaultConfigFile(configDir string) error {
	path := filepath.Join(configDir, configFileExt)

	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}

// catalogConfig builds the backend configuration from flags and config.yaml.
func catalogConfig() (types.Config, error) {
	dataDir, err := paths.ResolveDataDir(flags.dataDir, cfg.GetString(cfgKeyDataDir), configDir)
	if err != nil {
		return types.Config{}, fmt.Errorf("resolve data dir: %w", err)
	}
	c := types.Config{
		Store:        cfg.GetString(cfgKeyStore),
		DataDir:      dataDir,
		SyncStrategy: cfg.GetString(cfgKeySyncStrategy),
		StorageKey:   cfg.GetString(cfgKeyStorageKey),
	}
	if err := c.Validate(); err != nil {
		return types.Config{}, fmt.Errorf("config.yaml: %w", err)
	}
	return c, nil
}
