// Package logging configures the zerolog logger shared by both normalizer
// binaries.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Format selects the log encoding.
type Format string

const (
	// FormatJSON writes one JSON object per line (Lambda, Glue, containers).
	FormatJSON Format = "json"
	// FormatConsole writes human-readable lines for local runs.
	FormatConsole Format = "console"
)

// New builds a logger writing to stdout. Level is parsed from the given string
// (e.g. "debug", "info", "warn"); unknown values fall back to info.
func New(level string, format Format, service string) zerolog.Logger {
	return NewWithWriter(os.Stdout, level, format, service)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(w io.Writer, level string, format Format, service string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.DurationFieldUnit = time.Millisecond
	zerolog.DurationFieldInteger = true

	if format == FormatConsole {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	return zerolog.New(w).With().
		Timestamp().
		Str("service", service).
		Logger()
}
