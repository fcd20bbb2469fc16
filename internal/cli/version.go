package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is the fumetti release version.
const Version = "0.1.0"

const modulePath = "github.com/mesh-intelligence/fumetti"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the fumetti version",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "fumetti v%s\nmodule: %s\n", Version, modulePath)
			return nil
		},
	}
}
