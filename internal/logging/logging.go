package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/mr1hm/safetywatch/internal/config"
)

// Setup installs a JSON slog handler as the default logger. When cfg.File is
// set, records are also written to a size-rotated file. The returned closer
// releases the file and is a no-op otherwise.
func Setup(cfg config.LoggingConfig) io.Closer {
	var out io.Writer = os.Stdout
	var closer io.Closer = nopCloser{}

	if cfg.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
		}
		out = io.MultiWriter(os.Stdout, rotator)
		closer = rotator
	}

	slog.SetDefault(New(out, cfg.Level))
	return closer
}

// New builds a JSON logger writing to w at the given level name.
func New(w io.Writer, level string) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: ParseLevel(level),
	})
	return slog.New(handler)
}

func ParseLevel(level string) slog.Level {
	switch level {
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

func Fatalf(format string, args ...any) {
	slog.Error(fmt.Sprintf(format, args...))
	os.Exit(1)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
