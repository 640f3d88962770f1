// Package logging sets up the structured logger: records go to an in-memory
// ring for the terminal UI and, when configured, to a rotating JSON log file.
package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Config is the resolved logging configuration.
type Config struct {
	Level      slog.Level
	File       string
	MaxSizeMB  int
	MaxFiles   int
	BufferSize int
}

// ParseLevel parses debug, info, warn or error. The empty string is info.
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
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level: %s", s)
	}
}

// Logger bundles the configured slog.Logger with its sinks.
type Logger struct {
	*slog.Logger
	Ring *RingHandler
	file io.WriteCloser
}

// Setup builds a Logger from cfg. Close it when done.
func Setup(cfg Config) (*Logger, error) {
	ring := NewRingHandler(cfg.BufferSize, cfg.Level)
	l := &Logger{Ring: ring}
	handlers := []slog.Handler{ring}
	if cfg.File != "" {
		w, err := NewRotatingFileWriter(cfg.File, cfg.MaxSizeMB, cfg.MaxFiles)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", cfg.File, err)
		}
		l.file = w
		handlers = append(handlers, slog.NewJSONHandler(w, &slog.HandlerOptions{Level: cfg.Level}))
	}
	l.Logger = slog.New(fanout(handlers))
	return l, nil
}

// Close closes the log file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// fanout sends each record to every handler that accepts it.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if h.Enabled(ctx, r.Level) {
			if err := h.Handle(ctx, r.Clone()); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}
