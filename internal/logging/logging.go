// Package logging configures the process-wide zerolog logger for the CLI.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Format selects how log lines are written
type Format string

const (
	FormatConsole Format = "console"
	FormatJSON    Format = "json"
)

// Setup points the global logger at w and sets the global level.
// Console output is human-readable with short timestamps; JSON output
// is left untouched for log shippers.
func Setup(w io.Writer, level string, format Format) (zerolog.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return log.Logger, err
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	out := w
	if format != FormatJSON {
		out = zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: "15:04:05.000",
			NoColor:    !isTerminal(w),
		}
	}

	logger := zerolog.New(out).With().Timestamp().Logger()
	log.Logger = logger
	return logger, nil
}

// ParseLevel accepts zerolog level names; empty means info
func ParseLevel(level string) (zerolog.Level, error) {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "" {
		return zerolog.InfoLevel, nil
	}
	return zerolog.ParseLevel(level)
}

// Discard silences the global logger, e.g. while a TUI owns the terminal.
func Discard() {
	log.Logger = zerolog.Nop()
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
