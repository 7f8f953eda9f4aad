// Package testutil carries logging helpers shared by the integration
// tests.
package testutil

import (
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// QuietLogs silences global logging for the duration of a test unless
// LOG_LEVEL asks for more.
func QuietLogs(t *testing.T) {
	t.Helper()
	prev := zerolog.GlobalLevel()
	zerolog.SetGlobalLevel(ParseLogLevel(zerolog.ErrorLevel))
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })
}

// InitTestLogger switches the global logger to a console writer, which
// reads better in verbose test output.
func InitTestLogger() {
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
}

// ParseLogLevel reads LOG_LEVEL from the environment, falling back to the
// given default.
func ParseLogLevel(defaultLevel zerolog.Level) zerolog.Level {
	levelStr := os.Getenv("LOG_LEVEL")
	if levelStr == "" {
		return defaultLevel
	}
	level, err := zerolog.ParseLevel(levelStr)
	if err != nil {
		return defaultLevel
	}
	return level
}
