package logging

import (
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
)

// EnvLogLevel selects the minimum level; unset or unknown means info.
const EnvLogLevel = "VESTER_LOG_LEVEL"

// Setup wires structured JSON logging for the tooling and returns the
// logger. Log lines go to stderr so command output on stdout stays parseable.
func Setup(service, env string) *slog.Logger {
	return New(os.Stderr, service, env, LevelFromEnv())
}

// New builds a JSON logger on the given writer, tagged with the service name
// and, when provided, the environment. It also becomes the slog default and
// bridges the standard library logger.
func New(w io.Writer, service, env string, level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: renameCanonicalKeys,
	})

	attrs := []slog.Attr{slog.String("service", strings.TrimSpace(service))}
	if env = strings.TrimSpace(env); env != "" {
		attrs = append(attrs, slog.String("env", env))
	}

	withArgs := make([]any, 0, len(attrs))
	for _, attr := range attrs {
		withArgs = append(withArgs, attr)
	}
	base := slog.New(handler).With(withArgs...)
	slog.SetDefault(base)

	// Dependencies logging through the standard library land in the same
	// stream.
	stdBridge := slog.NewLogLogger(handler.WithAttrs(attrs), slog.LevelInfo)
	stdBridge.SetFlags(0)
	log.SetOutput(stdBridge.Writer())
	log.SetFlags(0)

	return base
}

// renameCanonicalKeys maps slog's default keys onto the field names the rest
// of the tooling and its log consumers expect.
func renameCanonicalKeys(groups []string, attr slog.Attr) slog.Attr {
	switch attr.Key {
	case slog.TimeKey:
		attr.Key = "timestamp"
	case slog.LevelKey:
		return slog.String("severity", strings.ToUpper(attr.Value.String()))
	case slog.MessageKey:
		attr.Key = "message"
	}
	return attr
}

// LevelFromEnv reads the minimum log level from the environment.
func LevelFromEnv() slog.Level {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(EnvLogLevel))) {
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
