package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New initializes the base zerolog.Logger every component derives its
// child logger from. 'devMode' enables human-readable console logging.
func New(devMode bool) zerolog.Logger {
	if devMode {
		consoleWriter := zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		}
		return zerolog.New(consoleWriter).With().Timestamp().Str("service", "splitpot").Logger()
	}

	// JSON output for production.
	return zerolog.New(os.Stderr).With().Timestamp().Str("service", "splitpot").Logger()
}
