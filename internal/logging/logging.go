// Package logging builds the structured diagnostic logger for the token
// generator. Logs never go to stdout, which carries only the token.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/dskow/generate-jwt/internal/config"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// ParseLevel maps a config level string to a slog.Level. Unknown strings
// map to warn.
func ParseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// New returns a logger configured from cfg. stderr is used when cfg.Output
// is "stderr"; otherwise logs are appended to a rotating file. The returned
// Closer must be closed before the process exits.
func New(cfg config.LoggingConfig, stderr io.Writer) (*slog.Logger, io.Closer, error) {
	var (
		w      io.Writer = stderr
		closer io.Closer = nopCloser{}
	)
	if cfg.ToFile() {
		rw, err := NewRotatingWriter(cfg.Output, cfg.MaxSizeMB, cfg.MaxBackups, cfg.MaxAgeDays)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log output: %w", err)
		}
		w, closer = rw, rw
	}
	if w == nil {
		w = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}
	var h slog.Handler
	if cfg.Format == "text" {
		h = slog.NewTextHandler(w, opts)
	} else {
		h = slog.NewJSONHandler(w, opts)
	}
	return slog.New(h), closer, nil
}
