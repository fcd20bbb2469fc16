package types

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Completion filters.
const (
	FilterAll        = "all"
	FilterComplete   = "complete"
	FilterIncomplete = "incomplete"
)

// Sort orders. SortRecent keeps storage order, which is insertion order.
const (
	SortAlphabetical = "alphabetical"
	SortCompletion   = "completion"
	SortRecent       = "recent"
)

// Query selects and orders collections for display.
type Query struct {
	Search string // case-insensitive substring of collana or nomeFumetto
	Filter string // one of the Filter constants; empty means all
	Sort   string // one of the Sort constants; empty means alphabetical
}

// Validate checks Filter and Sort. Errors wrap ErrValidation.
func (q Query) Validate() error {
	switch q.Filter {
	case "", FilterAll, FilterComplete, FilterIncomplete:
	default:
		return fmt.Errorf("%w: unknown filter %q (valid: all, complete, incomplete)", ErrValidation, q.Filter)
	}
	switch q.Sort {
	case "", SortAlphabetical, SortCompletion, SortRecent:
	default:
		return fmt.Errorf("%w: unknown sort %q (valid: alphabetical, completion, recent)", ErrValidation, q.Sort)
	}
	return nil
}

// Apply returns the collections matching q in the requested order. The input
// slice is not modified.
func (q Query) Apply(collections []Collection) []Collection {
	term := strings.ToLower(strings.TrimSpace(q.Search))

	out := make([]Collection, 0, len(collections))
	for _, c := range collections {
		if term != "" &&
			!strings.Contains(strings.ToLower(c.Collana), term) &&
			!strings.Contains(strings.ToLower(c.NomeFumetto), term) {
			continue
		}
		switch q.Filter {
		case FilterComplete:
			if !c.Stats().Complete() {
				continue
			}
		case FilterIncomplete:
			if c.Stats().Complete() {
				continue
			}
		}
		out = append(out, c)
	}

	switch q.Sort {
	case "", SortAlphabetical:
		col := collate.New(language.Italian)
		slices.SortStableFunc(out, func(a, b Collection) int {
			if n := col.CompareString(a.Collana, b.Collana); n != 0 {
				return n
			}
			return col.CompareString(a.NomeFumetto, b.NomeFumetto)
		})
	case SortCompletion:
		slices.SortStableFunc(out, func(a, b Collection) int {
			return b.Stats().Percentage - a.Stats().Percentage
		})
	}
	return out
}
