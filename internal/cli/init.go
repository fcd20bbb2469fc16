package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// configFile holds the structure written to config.yaml by init.
type configFile struct {
	Store        string `yaml:"store"`
	DataDir      string `yaml:"data_dir,omitempty"`
	SyncStrategy string `yaml:"sync_strategy"`
	LogLevel     string `yaml:"log_level"`
	DefaultSort  string `yaml:"default_sort"`
}

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize fumetti storage",
		Long: "Create the configuration and data directories, record the data directory in\n" +
			"config.yaml, and write an empty catalog if none is stored yet.",
		Args: usageArgs(cobra.NoArgs),
		RunE: runInit,
	}
}

func runInit(cmd *cobra.Command, args []string) (err error) {
	c, err := catalogConfig()
	if err != nil {
		return err
	}

	configPath := filepath.Join(configDir, configFileExt)
	if flags.dataDir != "" {
		if err := writeConfig(configPath, configFile{
			Store:        c.Store,
			DataDir:      c.DataDir,
			SyncStrategy: c.GetSyncStrategy(),
			LogLevel:     cfg.GetString(cfgKeyLogLevel),
			DefaultSort:  cfg.GetString(cfgKeyDefaultSort),
		}); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
	}

	backend, err := attachBackend()
	if err != nil {
		return err
	}
	defer detach(backend, &err)

	if err := backend.Flush(cmd.Context()); err != nil {
		return fmt.Errorf("initialize storage: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Fumetti initialized in %s\n", c.DataDir)
	return nil
}

// writeConfig replaces config.yaml with file.
func writeConfig(path string, file configFile) error {
	data, err := yaml.Marshal(&file)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
