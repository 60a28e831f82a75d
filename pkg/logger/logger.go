// Package logger configures the process-wide zerolog logger.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// defaultConsoleTimeFormat is used by the pretty dev-mode writer when the
// config does not name one.
const defaultConsoleTimeFormat = "15:04:05"

// Config holds logger configuration.
type Config struct {
	Level      string // debug, info, warn, error
	Pretty     bool   // human-readable console output for dev mode
	TimeFormat string // console timestamp layout; ignored for JSON output
}

// New creates a structured logger writing JSON to stdout, or colorized
// console lines when Pretty is set. Unknown levels fall back to info.
func New(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))
	zerolog.TimeFieldFormat = time.RFC3339

	return zerolog.New(output(cfg)).
		With().
		Timestamp().
		Caller().
		Logger()
}

// SetGlobalLogger sets the package-level logger.
func SetGlobalLogger(l zerolog.Logger) {
	log.Logger = l
}

func parseLevel(raw string) zerolog.Level {
	level, err := zerolog.ParseLevel(raw)
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

func output(cfg Config) io.Writer {
	if !cfg.Pretty {
		return os.Stdout
	}
	format := cfg.TimeFormat
	if format == "" {
		format = defaultConsoleTimeFormat
	}
	return zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: format}
}
