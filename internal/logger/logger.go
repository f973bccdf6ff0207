// Package logger provides structured logging for doccorpus
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog with doccorpus-specific events
type Logger struct {
	zlog zerolog.Logger
}

// Config holds logger configuration
type Config struct {
	Level      string // debug, info, warn, error
	Pretty     bool   // console output for terminals
	Output     io.Writer
	WithCaller bool
}

// ParseLevel maps a level name to a zerolog level, defaulting to info
func ParseLevel(name string) zerolog.Level {
	switch strings.ToLower(name) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// New creates a logger. Output defaults to stderr so stdout stays free
// for the MCP stdio transport.
func New(cfg Config) *Logger {
	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}
	}

	zlog := zerolog.New(output).
		Level(ParseLevel(cfg.Level)).
		With().
		Timestamp().
		Str("service", "doccorpus").
		Logger()

	if cfg.WithCaller {
		zlog = zlog.With().Caller().Logger()
	}
	return &Logger{zlog: zlog}
}

// Nop returns a logger that discards everything
func Nop() *Logger {
	return &Logger{zlog: zerolog.Nop()}
}

// Zerolog returns the underlying zerolog logger
func (l *Logger) Zerolog() *zerolog.Logger {
	return &l.zlog
}

// Component returns a child logger tagged with a component name
func (l *Logger) Component(name string) *Logger {
	return &Logger{zlog: l.zlog.With().Str("component", name).Logger()}
}

// Debug starts a debug event
func (l *Logger) Debug() *zerolog.Event {
	return l.zlog.Debug()
}

// Info starts an info event
func (l *Logger) Info() *zerolog.Event {
	return l.zlog.Info()
}

// Warn starts a warning event
func (l *Logger) Warn() *zerolog.Event {
	return l.zlog.Warn()
}

// Error starts an error event
func (l *Logger) Error() *zerolog.Event {
	return l.zlog.Error()
}

// LogBuildStart logs the start of a corpus build
func (l *Logger) LogBuildStart(groups, fragments, workers int) {
	l.zlog.Info().
		Str("event", "build_start").
		Int("groups", groups).
		Int("fragments", fragments).
		Int("workers", workers).
		Msgf("Reducing %d declarations", groups)
}

// LogGroupFailed logs one symbol whose fragments could not be merged
func (l *Logger) LogGroupFailed(id string, fragments int, err error) {
	l.zlog.Warn().
		Str("event", "group_failed").
		Str("usr", id).
		Int("fragments", fragments).
		Err(err).
		Msg("Failed to merge symbol")
}

// LogBuildDone logs the outcome of a corpus build
func (l *Logger) LogBuildDone(symbols, failed int, duration time.Duration, err error) {
	event := l.zlog.Info()
	if err != nil {
		event = l.zlog.Error().Err(err)
	}
	event.
		Str("event", "build_done").
		Int("symbols", symbols).
		Int("failed", failed).
		Dur("duration_ms", duration).
		Msgf("Collected %d symbols", symbols)
}

// LogServerStart logs MCP server startup
func (l *Logger) LogServerStart(name, version, dbPath string) {
	l.zlog.Info().
		Str("event", "server_start").
		Str("name", name).
		Str("version", version).
		Str("database", dbPath).
		Msg("MCP server starting")
}

// LogServerShutdown logs MCP server shutdown
func (l *Logger) LogServerShutdown() {
	l.zlog.Info().
		Str("event", "server_shutdown").
		Msg("MCP server shutting down")
}
