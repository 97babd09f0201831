/*
Package rlog is Rostra's thin wrapper around zerolog, shaped like the
teacher's pkg/log: a package-global Logger, an Init that switches between
console and JSON output, and a handful of With* helpers that attach the
structured fields every component in this repo logs by.
*/
package rlog

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the global logger instance. Init replaces it; until Init is
// called it logs at info level to a console writer on stdout, so tests and
// short-lived tools get readable output without a separate setup step.
var Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).Level(zerolog.InfoLevel).With().Timestamp().Logger()

// Level is a logging verbosity name, as passed to Init.
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// Config controls Init.
type Config struct {
	Level      Level
	JSONOutput bool
	Output     io.Writer
}

// Init (re)configures the global Logger.
func Init(cfg Config) {
	var level zerolog.Level
	switch cfg.Level {
	case DebugLevel:
		level = zerolog.DebugLevel
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
		Logger = zerolog.New(zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	}
}

// WithComponent returns a child logger tagged with the subsystem name.
func WithComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}

// WithPeer returns a child logger tagged with the remote peer's id.
func WithPeer(logger zerolog.Logger, peer string) zerolog.Logger {
	return logger.With().Str("peer", peer).Logger()
}

// WithAuthor returns a child logger tagged with an event author's id.
func WithAuthor(logger zerolog.Logger, author string) zerolog.Logger {
	return logger.With().Str("author", author).Logger()
}
