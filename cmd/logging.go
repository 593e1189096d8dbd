package cmd

import (
	"io"
	"log/slog"
	"strings"

	"github.com/marcus/checkin/internal/syncconfig"
	"gopkg.in/natefinch/lumberjack.v2"
)

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func newLogHandler(w io.Writer, level, format string) slog.Handler {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	if strings.ToLower(format) == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// setupLogging installs the default logger. When log.file is configured,
// records go to a size-rotated file instead of stderr and the returned
// closer must be closed on exit.
func setupLogging(stderr io.Writer) io.Closer {
	var (
		w      = stderr
		closer io.Closer
	)
	if path := syncconfig.GetLogFile(); path != "" {
		lj := &lumberjack.Logger{
			Filename:   path,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		}
		w, closer = lj, lj
	}
	slog.SetDefault(slog.New(newLogHandler(w, syncconfig.GetLogLevel(), syncconfig.GetLogFormat())))
	return closer
}
