// Package logger creates module-scoped structured loggers on log/slog.
//
// Loggers are built from explicit Options and passed to the components
// that need them; nothing in this package holds global state.
//
//	log := logger.New("repository", logger.Options{Level: "debug"})
//	log.Info("loaded", "records", 12)   // ... module=repository records=12
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// ModuleKey is the attribute carrying a logger's name
const ModuleKey = "module"

// Output formats
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Options configures a logger
type Options struct {
	Level  string    // debug, info, warn, error (case-insensitive)
	Format string    // text or json
	Writer io.Writer // defaults to os.Stderr
}

// New creates a logger tagged with module=name.
// An unrecognised level falls back to info.
func New(name string, opts Options) *slog.Logger {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		level = slog.LevelInfo
	}

	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	handlerOpts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.EqualFold(opts.Format, FormatJSON) {
		handler = slog.NewJSONHandler(w, handlerOpts)
	} else {
		handler = slog.NewTextHandler(w, handlerOpts)
	}

	return slog.New(handler).With(slog.String(ModuleKey, name))
}

// Discard returns a logger that drops everything
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// ParseLevel converts a level name to a slog.Level
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}
