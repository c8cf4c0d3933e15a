package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	slogmulti "github.com/samber/slog-multi"
	"github.com/samber/oops"
)

// ParseLevel maps a config level name onto slog. Unknown names mean info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New fans records out to a human-readable handler on console and, when
// logFile is set, a JSON handler appending to that file. The returned
// closer releases the file.
func New(console io.Writer, level, logFile string) (*slog.Logger, func() error, error) {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	handlers := []slog.Handler{slog.NewTextHandler(console, opts)}
	closer := func() error { return nil }

	if logFile != "" {
		if dir := filepath.Dir(logFile); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, oops.With("log_file", logFile).Wrap(err)
			}
		}
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, oops.With("log_file", logFile).Wrap(err)
		}
		handlers = append(handlers, slog.NewJSONHandler(f, opts))
		closer = f.Close
	}

	// Fanout sends every record to all handlers
	return slog.New(slogmulti.Fanout(handlers...)), closer, nil
}
