package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/farmhub/farmhub-core/internal/infrastructure/config"
)

// Logger embeds slog.Logger so call sites get Info, Warn, Error and
// Debug directly. Every entry carries the service and version fields
// added at construction. Safe for concurrent use.
type Logger struct {
	*slog.Logger
}

// New builds the application logger from config. Format defaults to
// JSON and output to stdout when the config holds anything
// unrecognised, so a typo degrades to sensible defaults instead of
// silence.
func New(cfg config.LoggingConfig, version string) *Logger {
	var output io.Writer
	switch strings.ToLower(cfg.Output) {
	case "stderr":
		output = os.Stderr
	default:
		output = os.Stdout
	}

	level := parseLevel(cfg.Level)

	var handler slog.Handler
	opts := &slog.HandlerOptions{
		Level: level,
	}

	switch strings.ToLower(cfg.Format) {
	case "text":
		handler = slog.NewTextHandler(output, opts)
	default:
		handler = slog.NewJSONHandler(output, opts)
	}

	handler = handler.WithAttrs([]slog.Attr{
		slog.String("service", "farmhub"),
		slog.String("version", version),
	})

	return &Logger{
		Logger: slog.New(handler),
	}
}

// parseLevel maps the config string to slog.Level, defaulting to info.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// With returns a child logger carrying extra default attributes.
//
//	ingestLog := logger.With("component", "ingest")
//	ingestLog.Info("worker started") // includes component=ingest
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger: l.Logger.With(args...),
	}
}

// Default is the bootstrap logger used before config is loaded, for
// reporting config load failures themselves. JSON to stdout at info.
func Default() *Logger {
	return New(config.LoggingConfig{
		Level:  "info",
		Format: "json",
		Output: "stdout",
	}, "dev")
}
