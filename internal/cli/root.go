// Package cli implements the fumetti command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mesh-intelligence/fumetti/internal/paths"
	"github.com/mesh-intelligence/fumetti/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// errUsage marks command-line mistakes: bad flags, arguments, or values.
var errUsage = errors.New("usage")

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	jsonMode  bool
	logLevel  string
}

var flags rootFlags

// cfg is the configuration loaded by the root command before any subcommand
// runs.
var cfg *viper.Viper

// configDir is the resolved configuration directory.
var configDir string

// NewRootCmd creates the top-level "fumetti" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	flags = rootFlags{}
	cfg = nil
	configDir = ""

	root := &cobra.Command{
		Use:   "fumetti",
		Short: "Track which issues of your comic series you own",
		Long: "Fumetti keeps a catalog of comic series and the issues you own.\n" +
			"The catalog is a SQLite database stored in a local key-value store.",
		Version: Version,
		// Do not print usage on errors returned by subcommands.
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			dir, err := paths.ResolveConfigDir(flags.configDir)
			if err != nil {
				return fmt.Errorf("resolve config dir: %w", err)
			}
			v, err := loadConfig(dir)
			if err != nil {
				return err
			}
			level := flags.logLevel
			if level == "" {
				level = v.GetString(cfgKeyLogLevel)
			}
			if err := setupLogging(cmd.ErrOrStderr(), level); err != nil {
				return err
			}
			configDir = dir
			cfg = v
			return nil
		},
	}

	root.PersistentFlags().StringVar(&flags.configDir, "config-dir", "", "configuration directory (default: $XDG_CONFIG_HOME/fumetti)")
	root.PersistentFlags().StringVar(&flags.dataDir, "data-dir", "", "data directory (default: $XDG_DATA_HOME/fumetti)")
	root.PersistentFlags().BoolVar(&flags.jsonMode, "json", false, "output in JSON format")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn, error (default: warn)")

	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return fmt.Errorf("%w: %v", errUsage, err)
	})

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd())
	root.AddCommand(newAddCmd())
	root.AddCommand(newListCmd())
	root.AddCommand(newShowCmd())
	root.AddCommand(newOwnCmd())
	root.AddCommand(newEditCmd())
	root.AddCommand(newBackupCmd())
	root.AddCommand(newRestoreCmd())

	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the command line and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := NewRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return exitSuccess
	}
	fmt.Fprintln(stderr, "fumetti:", err)
	if errors.Is(err, types.ErrCorruptRow) {
		fmt.Fprintln(stderr, "fumetti: restore a backup to replace the damaged collection")
	}
	return exitCode(err)
}

// exitCode maps an error to 1 when the user can fix the input or the data
// and 2 for storage or system failures.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitSuccess
	case errors.Is(err, errUsage),
		types.IsUserError(err),
		errors.Is(err, types.ErrCorruptRow),
		errors.Is(err, types.ErrStoreEmpty),
		errors.Is(err, types.ErrStoreUnknown),
		errors.Is(err, types.ErrSyncStrategyUnknown):
		return exitUserError
	default:
		return exitSysError
	}
}

// usageArgs wraps a cobra argument validator so its errors count as usage
// errors.
func usageArgs(fn cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := fn(cmd, args); err != nil {
			return fmt.Errorf("%w: %v", errUsage, err)
		}
		return nil
	}
}
