// Package log provides the zerolog-backed logger every cirrus actor logs through.
package log

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

var (
	// Logger is the global logger instance
	Logger zerolog.Logger
)

func init() {
	// Sane default so packages can log before Init is called, e.g. in tests.
	Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
}

// Level represents log level
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// Config holds logging configuration
type Config struct {
	Level      Level
	JSONOutput bool
	Output     io.Writer
}

// Init initializes the global logger
func Init(cfg Config) {
	var level zerolog.Level
	switch cfg.Level {
	case DebugLevel:
		level = zerolog.DebugLevel
	case InfoLevel:
		level = zerolog.InfoLevel
	case WarnLevel:
		level = zerolog.WarnLevel
	case ErrorLevel:
		level = zerolog.ErrorLevel
	default:
		level = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(level)

	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	if cfg.JSONOutput {
		Logger = zerolog.New(output).With().Timestamp().Logger()
	} else {
		Logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Logger()
	}
}

// WithComponent creates a child logger with a component field (head, scheduler,
// function-manager, storage, bare-metal, ...).
func WithComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}

// WithInvocationID creates a child logger with an invocation_id field.
func WithInvocationID(invocationID string) zerolog.Logger {
	return Logger.With().Str("invocation_id", invocationID).Logger()
}

// WithFunctionName creates a child logger with a function field.
func WithFunctionName(name string) zerolog.Logger {
	return Logger.With().Str("function", name).Logger()
}

// WithHost creates a child logger with a host field (head node or compute node).
func WithHost(host string) zerolog.Logger {
	return Logger.With().Str("host", host).Logger()
}

// Helper functions for common logging patterns

func Info(msg string) {
	Logger.Info().Msg(msg)
}

func Debug(msg string) {
	Logger.Debug().Msg(msg)
}

func Warn(msg string) {
	Logger.Warn().Msg(msg)
}

func Error(msg string) {
	Logger.Error().Msg(msg)
}

func Errorf(format string, err error) {
	Logger.Error().Err(err).Msg(format)
}

func Fatal(msg string) {
	Logger.Fatal().Msg(msg)
}
