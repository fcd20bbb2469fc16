package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/fumetti/internal/cover"
	"github.com/mesh-intelligence/fumetti/pkg/types"
)

func newAddCmd() *cobra.Command {
	var (
		m         types.Metadata
		coverPath string
	)
	cmd := &cobra.Command{
		Use:   "add --collana <series> --nome <title> --numeri <n>",
		Short: "Add a collection with every issue missing",
		Example: `  fumetti add --collana "Bonelli" --nome "Tex" --numeri 700
  fumetti add --collana "Star Comics" --nome "One Piece" --numeri 100 --cover one-piece.jpg`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			if coverPath != "" {
				if m.Copertina, err = cover.FromFile(coverPath); err != nil {
					return err
				}
			}

			backend, err := attachBackend()
			if err != nil {
				return err
			}
			defer detach(backend, &err)

			c, err := backend.Add(cmd.Context(), m)
			if err != nil {
				return err
			}

			if flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), c)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added collection %d: %s - %s (%d issues)\n",
				c.ID, c.Collana, c.NomeFumetto, c.Numeri)
			return nil
		},
	}
	cmd.Flags().StringVar(&m.Collana, "collana", "", "series or publisher line (required)")
	cmd.Flags().StringVar(&m.NomeFumetto, "nome", "", "comic title (required)")
	cmd.Flags().IntVar(&m.Numeri, "numeri", 0, "number of issues (required)")
	cmd.Flags().StringVar(&coverPath, "cover", "", "cover image file")
	return cmd
}
