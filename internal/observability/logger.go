package observability

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// LoggingConfig controls how the service logger is built.
type LoggingConfig struct {
	// Level is the minimum level to emit (trace through panic).
	Level string

	// Format selects the encoding: "json" for machine consumption,
	// "console" or "pretty" for local development.
	Format string

	// Output selects the destination stream (stdout, stderr).
	Output string

	// AddSource annotates entries with the calling file and line.
	AddSource bool

	// TimeFormat overrides the timestamp layout. Empty means RFC3339.
	TimeFormat string
}

// DefaultLoggingConfig returns the production defaults: JSON to stdout at
// info level.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Level:      "info",
		Format:     "json",
		Output:     "stdout",
		TimeFormat: time.RFC3339,
	}
}

// NewLogger builds the root zerolog logger for the process. The configured
// level is also applied globally so that loggers derived before wiring
// completes respect it.
func NewLogger(cfg LoggingConfig) zerolog.Logger {
	timeFormat := cfg.TimeFormat
	if timeFormat == "" {
		timeFormat = time.RFC3339
	}
	zerolog.TimeFieldFormat = timeFormat

	writer := resolveWriter(cfg.Output)
	switch strings.ToLower(cfg.Format) {
	case "console", "pretty":
		writer = zerolog.ConsoleWriter{Out: writer, TimeFormat: timeFormat}
	}

	ctx := zerolog.New(writer).With().Timestamp()
	if cfg.AddSource {
		ctx = ctx.Caller()
	}

	level := parseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)

	return ctx.Logger().Level(level)
}

// resolveWriter maps an output name to its stream, defaulting to stdout.
func resolveWriter(output string) io.Writer {
	if strings.ToLower(output) == "stderr" {
		return os.Stderr
	}
	return os.Stdout
}

// parseLevel maps a level name to a zerolog level. Unknown names fall back
// to info rather than failing startup.
func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "panic":
		return zerolog.PanicLevel
	default:
		return zerolog.InfoLevel
	}
}

// WithRequestContext tags a logger with the request ID.
func WithRequestContext(logger zerolog.Logger, requestID string) zerolog.Logger {
	return logger.With().Str("request_id", requestID).Logger()
}

// WithSearchContext tags a logger with the query and provider of a source
// search.
func WithSearchContext(logger zerolog.Logger, query, source string) zerolog.Logger {
	return logger.With().Str("query", query).Str("source", source).Logger()
}

// WithPaperContext tags a logger with a library paper and its external
// record identifier.
func WithPaperContext(logger zerolog.Logger, paperID, externalID string) zerolog.Logger {
	return logger.With().Str("paper_id", paperID).Str("external_id", externalID).Logger()
}

// WithCitationContext tags a logger with a citing paper and its reference
// count.
func WithCitationContext(logger zerolog.Logger, paperID string, references int) zerolog.Logger {
	return logger.With().Str("paper_id", paperID).Int("references", references).Logger()
}
