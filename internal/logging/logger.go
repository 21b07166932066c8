// Package logging configures runtime JSONL logging output.
//
// Writes to an XDG_STATE_HOME-rooted JSONL sink, with a four-level scheme
// (Config.h/Debug.h: nothing logs absent -d/-v/-t, matching the
// original's debugEnabled=false default; -d/-v/-t step through
// Info/Debug/Trace).
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// LevelTrace is more verbose than slog.LevelDebug, for -t/--trace.
const LevelTrace = slog.LevelDebug - 4

// LevelSilent suppresses all output, the default when no debug flag is
// given (Debug::debugEnabled starts false).
const LevelSilent = slog.LevelError + 100

// Runtime bundles the configured logger and its open file handle lifecycle.
type Runtime struct {
	Logger *slog.Logger
	Path   string
	closer io.Closer
}

// Close flushes and closes the logger output sink.
func (r Runtime) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// New builds a JSONL logger rooted at the resolved state path, at the
// given slog level.
func New(level slog.Level) (Runtime, error) {
	path, err := resolveLogPath()
	if err != nil {
		return Runtime{}, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return Runtime{}, err
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return Runtime{}, err
	}

	h := slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level})
	logger := slog.New(h)
	return Runtime{Logger: logger, Path: path, closer: f}, nil
}

// resolveLogPath selects XDG_STATE_HOME when available, otherwise ~/.local/state.
func resolveLogPath() (string, error) {
	if xdg := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); xdg != "" {
		return filepath.Join(xdg, "relaykey", "log.jsonl"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "state", "relaykey", "log.jsonl"), nil
}
