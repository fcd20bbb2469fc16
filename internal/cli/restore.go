package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/fumetti/pkg/types"
)

func newRestoreCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "restore <file.json>",
		Short: "Replace every collection with the contents of a backup",
		Long: "Validate a JSON backup and replace the whole catalog with it. Collection ids\n" +
			"are reassigned. Overwriting existing collections requires --yes.",
		Args: usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			path := args[0]
			if err := types.CheckBackupFileName(path); err != nil {
				return err
			}

			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("%w: %v", errUsage, err)
			}
			doc, err := types.DecodeBackup(f)
			f.Close()
			if err != nil {
				return err
			}

			backend, err := attachBackend()
			if err != nil {
				return err
			}
			defer detach(backend, &err)

			plan, err := backend.PlanRestore(cmd.Context(), doc)
			if err != nil {
				return err
			}
			if plan.Discarded > 0 && !yes {
				fmt.Fprintf(cmd.ErrOrStderr(),
					"Restoring %s replaces the %d stored collections with %d from the backup.\nRun again with --yes to confirm.\n",
					path, plan.Discarded, plan.Incoming)
			}
			if err := backend.ApplyRestore(cmd.Context(), plan, yes); err != nil {
				return err
			}

			if flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"restored":  plan.Incoming,
					"discarded": plan.Discarded,
					"timestamp": doc.Timestamp,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restored %d collections from %s\n", plan.Incoming, path)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm replacing the stored collections")
	return cmd
}
