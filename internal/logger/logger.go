package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

func levelFromString(s string) (l slog.Level, ok bool) {
	switch strings.ToLower(s) {
	case "debug", "dbg":
		return slog.LevelDebug, true
	case "info", "inf":
		return slog.LevelInfo, true
	case "warn", "wrn":
		return slog.LevelWarn, true
	case "error", "err":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

// Init installs a text slog handler writing to w (stderr when nil) at the
// named level as the process default logger.
func Init(w io.Writer, level string) {
	if w == nil {
		w = os.Stderr
	}

	loglevel, _ := levelFromString(level)
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: loglevel})
	slog.SetDefault(slog.New(handler))
}
