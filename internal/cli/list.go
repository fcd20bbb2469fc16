package cli

import (
	"fmt"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/fumetti/pkg/types"
)

// maxColumnWidth bounds the series and title columns of the list table.
const maxColumnWidth = 32

// listRow is the JSON form of one listed collection.
type listRow struct {
	types.Collection
	Stats types.CollectionStats `json:"stats"`
}

func newListCmd() *cobra.Command {
	var q types.Query
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List collections with completion statistics",
		Example: `  fumetti list
  fumetti list --search tex --filter incomplete
  fumetti list --sort completion --json`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			if q.Sort == "" {
				q.Sort = cfg.GetString(cfgKeyDefaultSort)
			}
			if err := q.Validate(); err != nil {
				return err
			}

			backend, err := attachBackend()
			if err != nil {
				return err
			}
			defer detach(backend, &err)

			all, err := backend.List(cmd.Context())
			if err != nil {
				return err
			}
			collections := q.Apply(all)

			if flags.jsonMode {
				rows := make([]listRow, 0, len(collections))
				for _, c := range collections {
					rows = append(rows, listRow{Collection: c, Stats: c.Stats()})
				}
				return printJSON(cmd.OutOrStdout(), rows)
			}

			if len(collections) == 0 {
				if len(all) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No collections yet. Add one with: fumetti add")
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "No collections match.")
				}
				return nil
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"ID", "Collana", "Fumetto", "Owned", "Missing", "Complete"})
			for _, c := range collections {
				s := c.Stats()
				t.AppendRow(table.Row{
					c.ID,
					runewidth.Truncate(c.Collana, maxColumnWidth, "…"),
					runewidth.Truncate(c.NomeFumetto, maxColumnWidth, "…"),
					strconv.Itoa(s.Owned) + "/" + strconv.Itoa(s.Total),
					s.Missing,
					strconv.Itoa(s.Percentage) + "%",
				})
			}
			t.AppendFooter(table.Row{"", "", fmt.Sprintf("%d of %d", len(collections), len(all))})
			t.Render()
			return nil
		},
	}
	cmd.Flags().StringVar(&q.Search, "search", "", "show collections whose series or title contains this text")
	cmd.Flags().StringVar(&q.Filter, "filter", types.FilterAll, "completion filter: all, complete, incomplete")
	cmd.Flags().StringVar(&q.Sort, "sort", "", "order: alphabetical, completion, recent (default from config)")
	return cmd
}
