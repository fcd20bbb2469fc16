package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/fumetti/internal/cover"
	"github.com/mesh-intelligence/fumetti/pkg/types"
)

func newEditCmd() *cobra.Command {
	var (
		collana, nome, coverPath string
		numeri                   int
		noCover, yes             bool
	)
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change the series, title, issue count or cover of a collection",
		Long: "Change the metadata of a collection. Flags that are not given keep their\n" +
			"current value. Growing the issue count adds missing issues; shrinking it\n" +
			"discards the trailing issues and requires --yes.",
		Example: `  fumetti edit 3 --nome "Tex Willer"
  fumetti edit 3 --numeri 120 --yes`,
		Args: usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if noCover && coverPath != "" {
				return fmt.Errorf("%w: --cover and --no-cover are mutually exclusive", errUsage)
			}

			backend, err := attachBackend()
			if err != nil {
				return err
			}
			defer detach(backend, &err)

			c, err := backend.Get(cmd.Context(), id)
			if err != nil {
				return err
			}

			m := types.Metadata{
				Collana:     c.Collana,
				NomeFumetto: c.NomeFumetto,
				Numeri:      c.Numeri,
				Copertina:   c.Copertina,
			}
			fs := cmd.Flags()
			if fs.Changed("collana") {
				m.Collana = collana
			}
			if fs.Changed("nome") {
				m.NomeFumetto = nome
			}
			if fs.Changed("numeri") {
				m.Numeri = numeri
			}
			switch {
			case noCover:
				m.Copertina = ""
			case coverPath != "":
				if m.Copertina, err = cover.FromFile(coverPath); err != nil {
					return err
				}
			}

			plan, err := backend.PlanMetadataUpdate(cmd.Context(), id, m)
			if err != nil {
				return err
			}
			if plan.Truncates() && !yes {
				fmt.Fprintf(cmd.ErrOrStderr(),
					"Reducing %s - %s from %d to %d issues discards issues %d-%d (%d owned).\nRun again with --yes to confirm.\n",
					c.Collana, c.NomeFumetto, plan.CurrentNumeri, plan.Metadata.Numeri,
					plan.Metadata.Numeri+1, plan.CurrentNumeri, plan.DroppedOwned)
			}
			if err := backend.ApplyMetadataUpdate(cmd.Context(), plan, yes); err != nil {
				return err
			}

			updated, err := backend.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			if flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), listRow{Collection: updated, Stats: updated.Stats()})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated collection %d: %s - %s (%d issues)\n",
				updated.ID, updated.Collana, updated.NomeFumetto, updated.Numeri)
			return nil
		},
	}
	cmd.Flags().StringVar(&collana, "collana", "", "new series")
	cmd.Flags().StringVar(&nome, "nome", "", "new title")
	cmd.Flags().IntVar(&numeri, "numeri", 0, "new number of issues")
	cmd.Flags().StringVar(&coverPath, "cover", "", "new cover image file")
	cmd.Flags().BoolVar(&noCover, "no-cover", false, "remove the cover")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm discarding issues")
	return cmd
}
