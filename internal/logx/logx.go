// Package logx sets up file-backed structured logging for the data directory.
//
// The hook runs inside the host tool's control flow, so nothing may be
// written to stdout except the hook response; all diagnostics go to
// ~/.sage/sage.log. When the log file cannot be opened, logging degrades
// to a discard handler rather than failing the run.
package logx

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

const logFileName = "sage.log"

// Open returns a logger appending to <dataDir>/sage.log and a close func.
// On any setup failure the returned logger discards everything; a broken
// log destination must never break a pipeline run.
func Open(dataDir string) (*slog.Logger, func()) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return Discard(), func() {}
	}

	f, err := os.OpenFile(filepath.Join(dataDir, logFileName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return Discard(), func() {}
	}

	logger := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelInfo}))
	return logger, func() { _ = f.Close() }
}

// Discard returns a logger that drops all records.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
