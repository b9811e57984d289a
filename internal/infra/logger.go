package infra

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ServiceName tags every log line.
const ServiceName = "kfashion-studio"

// NewLogger constructs a zerolog.Logger for the service. Development gets a
// human readable console writer at debug level, everything else JSON at info.
// A parseable level overrides the environment default.
func NewLogger(appEnv, level string) zerolog.Logger {
	lvl := zerolog.InfoLevel
	if appEnv == "development" {
		lvl = zerolog.DebugLevel
	}
	if parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level))); err == nil && level != "" {
		lvl = parsed
	}

	var out io.Writer = os.Stdout
	if appEnv == "development" {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}
	return newLogger(out, appEnv, lvl)
}

func newLogger(out io.Writer, appEnv string, lvl zerolog.Level) zerolog.Logger {
	return zerolog.New(out).
		Level(lvl).
		With().
		Timestamp().
		Str("service", ServiceName).
		Str("env", appEnv).
		Logger()
}

// Logger aliases zerolog.Logger so packages can accept a logger without
// importing zerolog themselves.
type Logger = zerolog.Logger
