// Package logging builds the process logger.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// New returns a logger at level. Outside production it writes human-readable
// console lines; in production it writes JSON. It also becomes the global logger.
func New(level string, production bool) zerolog.Logger {
	return newLogger(os.Stderr, level, production)
}

func newLogger(out io.Writer, level string, production bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.TimeFieldFormat = time.RFC3339Nano

	if !production {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}
	logger := zerolog.New(out).Level(lvl).With().Timestamp().Logger()
	log.Logger = logger
	zerolog.DefaultContextLogger = &logger
	return logger
}
