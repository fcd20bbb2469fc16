package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newOwnCmd() *cobra.Command {
	var unset, toggle, all bool
	cmd := &cobra.Command{
		Use:   "own <id> [issue...]",
		Short: "Mark issues of a collection as owned",
		Long: "Mark the given issues as owned. --unset marks them missing instead and\n" +
			"--toggle flips each one. --all applies to every issue of the collection.",
		Example: `  fumetti own 3 1 2 5
  fumetti own 3 5 --toggle
  fumetti own 3 --all --unset`,
		Args: usageArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			switch {
			case unset && toggle:
				return fmt.Errorf("%w: --unset and --toggle are mutually exclusive", errUsage)
			case all && toggle:
				return fmt.Errorf("%w: --all cannot be combined with --toggle", errUsage)
			case all && len(args) > 1:
				return fmt.Errorf("%w: --all takes no issue numbers", errUsage)
			case !all && len(args) == 1:
				return fmt.Errorf("%w: give issue numbers or --all", errUsage)
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

			owned := append([]bool(nil), c.Owned...)
			if all {
				for i := range owned {
					owned[i] = !unset
				}
			} else {
				issues, err := parseIssues(args[1:], len(owned))
				if err != nil {
					return err
				}
				for _, n := range issues {
					switch {
					case toggle:
						owned[n-1] = !owned[n-1]
					default:
						owned[n-1] = !unset
					}
				}
			}

			if err := backend.SetOwnership(cmd.Context(), id, owned); err != nil {
				return err
			}
			c.Owned = owned

			if flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), listRow{Collection: c, Stats: c.Stats()})
			}
			s := c.Stats()
			fmt.Fprintf(cmd.OutOrStdout(), "%s - %s: %d/%d owned (%d%%)\n",
				c.Collana, c.NomeFumetto, s.Owned, s.Total, s.Percentage)
			return nil
		},
	}
	cmd.Flags().BoolVar(&unset, "unset", false, "mark the issues as missing")
	cmd.Flags().BoolVar(&toggle, "toggle", false, "flip the state of each issue")
	cmd.Flags().BoolVar(&all, "all", false, "apply to every issue")
	return cmd
}
