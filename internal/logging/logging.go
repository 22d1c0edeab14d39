package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init configures the global logger. Diagnostics go to stderr so they
// never mix with report output on stdout. Verbose lowers the level to
// debug regardless of level.
func Init(level string, verbose bool) zerolog.Logger {
	return InitWriter(os.Stderr, level, verbose)
}

// InitWriter is Init with an explicit destination.
func InitWriter(w io.Writer, level string, verbose bool) zerolog.Logger {
	lvl := parseLevel(level)
	if verbose && lvl > zerolog.DebugLevel {
		lvl = zerolog.DebugLevel
	}

	logger := zerolog.New(zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.Kitchen,
	}).Level(lvl).With().Timestamp().Logger()

	log.Logger = logger
	zerolog.SetGlobalLevel(lvl)
	return logger
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "quiet", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}
