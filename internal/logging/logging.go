// Package logging builds the process logger. The TUI owns the terminal, so
// interactive commands log to a file; the server logs to stderr.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// maxSize is the size past which the log is rotated to <path>.1 on open.
const maxSize = 5 << 20

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// OpenFile returns a text logger appending to path. The caller closes the
// returned closer on exit.
func OpenFile(path string, level slog.Level) (*slog.Logger, io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log directory: %w", err)
	}
	if fi, err := os.Stat(path); err == nil && fi.Size() > maxSize {
		if err := os.Rename(path, path+".1"); err != nil {
			return nil, nil, fmt.Errorf("rotate log: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	return New(f, level), f, nil
}

// Stderr returns a text logger writing to standard error.
func Stderr(level slog.Level) (*slog.Logger, io.Closer) {
	return New(os.Stderr, level), nopCloser{}
}

func New(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Discard drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
