// Package platform holds process-level wiring shared by the CLI and the
// API server.
package platform

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// InitLogger configures the process logger: JSON to stdout for
// production, console writer when pretty is set (dev, CLI). Unknown
// levels fall back to info.
func InitLogger(level string, pretty bool) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if pretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		logger = zerolog.New(os.Stdout)
	}
	return logger.Level(lvl).With().Timestamp().Logger()
}
