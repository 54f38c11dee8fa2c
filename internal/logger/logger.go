// Package logger configures the global zerolog logger.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup installs the global logger. In development output is human readable
// on stderr; elsewhere it is JSON. An unknown level falls back to info.
func Setup(dev bool, level string) zerolog.Logger {
	return setup(os.Stderr, dev, level)
}

func setup(out io.Writer, dev bool, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	logger := zerolog.New(out).Level(lvl).With().Timestamp().Logger()
	if dev {
		logger = logger.Output(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}).
			With().Caller().Logger()
	}

	zerolog.SetGlobalLevel(lvl)
	log.Logger = logger
	return logger
}
