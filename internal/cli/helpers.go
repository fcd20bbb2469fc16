package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mesh-intelligence/fumetti/internal/sqlite"
)

// attachBackend builds the configuration and attaches a SQLite backend.
// The caller must defer backend.Detach().
func attachBackend() (*sqlite.Backend, error) {
	c, err := catalogConfig()
	if err != nil {
		return nil, err
	}
	backend := sqlite.NewBackend()
	if err := backend.Attach(c); err != nil {
		return nil, fmt.Errorf("attach catalog: %w", err)
	}
	return backend, nil
}

// detach releases the backend and reports its error only when the command
// itself succeeded.
func detach(backend *sqlite.Backend, err *error) {
	if derr := backend.Detach(); derr != nil && *err == nil {
		*err = fmt.Errorf("detach catalog: %w", derr)
	}
}

// parseID parses a collection id argument.
func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("%w: invalid collection id %q", errUsage, arg)
	}
	return id, nil
}

// parseIssues parses 1-based issue numbers and checks them against numeri.
func parseIssues(args []string, numeri int) ([]int, error) {
	issues := make([]int, 0, len(args))
	for _, arg := range args {
		n, err := strconv.Atoi(strings.TrimSpace(arg))
		if err != nil {
			return nil, fmt.Errorf("%w: invalid issue number %q", errUsage, arg)
		}
		if n < 1 || n > numeri {
			return nil, fmt.Errorf("%w: issue %d is out of range 1-%d", errUsage, n, numeri)
		}
		issues = append(issues, n)
	}
	return issues, nil
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
