package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/fumetti/internal/cover"
	"github.com/mesh-intelligence/fumetti/pkg/types"
)

// clock returns the time printed at the bottom of the print view.
var clock = time.Now

// gridColumns is the number of issues per row of the print view.
const gridColumns = 10

const (
	markOwned   = "●"
	markMissing = "○"
)

var italianMonths = [...]string{
	"gennaio", "febbraio", "marzo", "aprile", "maggio", "giugno",
	"luglio", "agosto", "settembre", "ottobre", "novembre", "dicembre",
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print one collection with its issue grid",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			id, err := parseID(args[0])
			if err != nil {
				return err
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

			if flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), listRow{Collection: c, Stats: c.Stats()})
			}
			writePrintView(cmd.OutOrStdout(), c, clock())
			return nil
		},
	}
}

// writePrintView renders the printable sheet of one collection.
func writePrintView(w io.Writer, c types.Collection, printedAt time.Time) {
	s := c.Stats()

	fmt.Fprintln(w, "Collezione Fumetti")
	fmt.Fprintln(w, c.Collana)
	fmt.Fprintln(w)
	fmt.Fprintln(w, c.NomeFumetto)
	if c.Copertina != "" {
		fmt.Fprintf(w, "Copertina: %s\n", cover.MediaType(c.Copertina))
	}
	fmt.Fprintf(w, "Numeri totali: %d\n", c.Numeri)
	fmt.Fprintf(w, "Numeri posseduti: %d\n", s.Owned)
	fmt.Fprintf(w, "Numeri mancanti: %d\n", s.Missing)
	fmt.Fprintf(w, "Completamento: %d%%\n", s.Percentage)
	fmt.Fprintln(w)

	width := len(strconv.Itoa(len(c.Owned)))
	var line strings.Builder
	for i, owned := range c.Owned {
		mark := markMissing
		if owned {
			mark = markOwned
		}
		if line.Len() > 0 {
			line.WriteString("  ")
		}
		fmt.Fprintf(&line, "%*d %s", width, i+1, mark)
		if (i+1)%gridColumns == 0 || i == len(c.Owned)-1 {
			fmt.Fprintln(w, line.String())
			line.Reset()
		}
	}
	fmt.Fprintf(w, "\n%s posseduto  %s mancante\n", markOwned, markMissing)
	fmt.Fprintf(w, "Stampato il %s\n", formatPrintDate(printedAt))
}

// formatPrintDate formats t as an Italian long date with time, for example
// "14 marzo 2025 alle ore 09:26".
func formatPrintDate(t time.Time) string {
	return fmt.Sprintf("%d %s %d alle ore %02d:%02d",
		t.Day(), italianMonths[t.Month()-1], t.Year(), t.Hour(), t.Minute())
}
