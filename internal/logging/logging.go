// Package logging provides structured logging with slog for
// pinentry-exec.
//
// stdout carries the Assuan protocol, so logs only ever go to stderr or
// a file. Secret material never reaches this package: logging calls
// take no passphrase-carrying types.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Options configures the logger.
type Options struct {
	// Level is debug, info, warn or error. Empty means info.
	Level string

	// Format is text or json. Empty means text.
	Format string

	// File is an optional log file; empty logs to stderr.
	File string
}

// Setup builds the process logger. The returned cleanup closes the log
// file, if any, and is safe to call unconditionally.
func Setup(opts Options) (*slog.Logger, func(), error) {
	level, err := parseLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}

	var sink io.Writer = os.Stderr
	cleanup := func() {}
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o700); err != nil {
			return nil, nil, fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		sink = f
		cleanup = func() { f.Close() }
	}

	hopts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.EqualFold(opts.Format, "json") {
		handler = slog.NewJSONHandler(sink, hopts)
	} else {
		handler = slog.NewTextHandler(sink, hopts)
	}

	return slog.New(handler), cleanup, nil
}

// Discard returns a logger that drops everything, for tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", s)
	}
}
