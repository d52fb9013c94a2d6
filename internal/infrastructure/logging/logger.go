package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/nerrad567/netfield-connect/internal/infrastructure/config"
)

// serviceName is attached to every log entry.
const serviceName = "netfield-connect"

// Logger is the slog.Logger shared by the client, the bootstrap runner and
// the stub server. Its method set satisfies mqtt.Logger, so the broker
// session logs through the same handler.
type Logger struct {
	*slog.Logger
}

// New builds the logger described by the logging section of config.yaml.
//
// Every entry carries service and version fields; the client passes its
// build version so operator logs show which binary ran a session.
func New(cfg config.LoggingConfig, version string) *Logger {
	return NewWithWriter(cfg, version, writerFor(cfg.Output))
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(cfg config.LoggingConfig, version string, output io.Writer) *Logger {
	handler := newHandler(cfg.Format, output, &slog.HandlerOptions{Level: parseLevel(cfg.Level)})

	return &Logger{
		Logger: slog.New(handler.WithAttrs([]slog.Attr{
			slog.String("service", serviceName),
			slog.String("version", version),
		})),
	}
}

// writerFor maps the output setting to a stream. Anything but "stderr"
// goes to stdout.
func writerFor(output string) io.Writer {
	if strings.EqualFold(output, "stderr") {
		return os.Stderr
	}
	return os.Stdout
}

// newHandler returns a JSON handler for "json" and a text handler otherwise.
func newHandler(format string, w io.Writer, opts *slog.HandlerOptions) slog.Handler {
	if strings.EqualFold(format, "json") {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// parseLevel accepts debug, info, warn (or warning) and error. Unknown
// values log at info.
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

// With returns a child logger. The runner hands the broker session
// logger.With("component", "mqtt").
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// Default is the logger main uses until config.yaml has been loaded, so
// configuration errors are still reported in the usual format.
func Default() *Logger {
	return New(config.LoggingConfig{Level: "info", Format: "text", Output: "stdout"}, "dev")
}

// Discard drops everything.
func Discard() *Logger {
	return &Logger{
		Logger: slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1})),
	}
}
