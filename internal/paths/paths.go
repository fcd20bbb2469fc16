// Package paths resolves configuration and data directory locations.
package paths

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

// AppName is the directory name used under the platform base directories.
const AppName = "fumetti"

// Environment variable names for directory overrides.
const (
	EnvConfigDir = "FUMETTI_CONFIG_DIR"
	EnvDataDir   = "FUMETTI_DATA_DIR"
)

// platformDir holds base-directory lookups that can be overridden in tests.
var platformDir = struct {
	configHome func() string
	dataHome   func() string
}{
	configHome: func() string { return xdg.ConfigHome },
	dataHome:   func() string { return xdg.DataHome },
}

// DefaultConfigDir returns the platform-specific default configuration directory.
//
// Linux:   $XDG_CONFIG_HOME/fumetti (fallback ~/.config/fumetti)
// macOS:   ~/Library/Application Support/fumetti
// Windows: %LOCALAPPDATA%/fumetti
func DefaultConfigDir() string {
	return filepath.Join(platformDir.configHome(), AppName)
}

// DefaultDataDir returns the platform-specific default data directory.
//
// Linux:   $XDG_DATA_HOME/fumetti (fallback ~/.local/share/fumetti)
// macOS:   ~/Library/Application Support/fumetti
// Windows: %LOCALAPPDATA%/fumetti
func DefaultDataDir() string {
	return filepath.Join(platformDir.dataHome(), AppName)
}

// ResolveConfigDir returns the configuration directory following the precedence
// chain: flag > FUMETTI_CONFIG_DIR env > DefaultConfigDir().
func ResolveConfigDir(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return filepath.Abs(env)
	}
	return DefaultConfigDir(), nil
}

// ResolveDataDir returns the data directory following the precedence chain:
// flag > configYAMLValue > FUMETTI_DATA_DIR env > DefaultDataDir().
//
// A relative configYAMLValue is taken relative to configDir, so a config
// file keeps pointing at the same place wherever the command runs.
func ResolveDataDir(flag, configYAMLValue, configDir string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if configYAMLValue != "" {
		if !filepath.IsAbs(configYAMLValue) && configDir != "" {
			return filepath.Join(configDir, configYAMLValue), nil
		}
		return filepath.Abs(configYAMLValue)
	}
	if env := os.Getenv(EnvDataDir); env != "" {
		return filepath.Abs(env)
	}
	return DefaultDataDir(), nil
}
