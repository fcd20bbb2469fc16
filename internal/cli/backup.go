package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/fumetti/pkg/types"
)

func newBackupCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Export every collection to a JSON backup file",
		Long: "Write a versioned JSON snapshot of the catalog. The default file name is\n" +
			"fumetti_backup_<date>.json in the current directory; --out - writes to stdout.",
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			backend, err := attachBackend()
			if err != nil {
				return err
			}
			defer detach(backend, &err)

			doc, err := backend.CreateBackup(cmd.Context())
			if err != nil {
				return err
			}

			if out == "-" {
				return types.EncodeBackup(cmd.OutOrStdout(), doc)
			}
			if out == "" {
				out = types.BackupFileName(clock())
			}
			if err := writeBackupFile(out, doc); err != nil {
				return err
			}

			if flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"file":        out,
					"collections": len(doc.Collections),
					"timestamp":   doc.Timestamp,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Backed up %d collections to %s\n", len(doc.Collections), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file, - for stdout")
	return cmd
}

func writeBackupFile(path string, doc types.BackupDocument) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create backup file: %w", err)
	}
	if err := types.EncodeBackup(f, doc); err != nil {
		f.Close()
		return fmt.Errorf("write backup file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write backup file: %w", err)
	}
	return nil
}
