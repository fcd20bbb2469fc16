package cli

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// setupLogging installs a text handler on w as the default slog logger.
func setupLogging(w io.Writer, level string) error {
	level = strings.TrimSpace(level)
	if level == "" {
		level = "warn"
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("%w: invalid log level %q", errUsage, level)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})))
	return nil
}
