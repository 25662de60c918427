package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Fields carries structured context for a log line.
type Fields map[string]interface{}

var base = zerolog.New(os.Stdout).With().Timestamp().Logger()

// Setup configures the global logger. Pretty output goes to stderr through
// zerolog's console writer, otherwise JSON lines are written to stdout.
func Setup(level string, pretty bool) {
	var out io.Writer = os.Stdout
	if pretty {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}
	base = zerolog.New(out).With().Timestamp().Logger()
	zerolog.SetGlobalLevel(parseLevel(level))
}

// SetOutput redirects log output, mainly for tests.
func SetOutput(w io.Writer) {
	base = zerolog.New(w).With().Timestamp().Logger()
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func Debug(msg string, v ...interface{}) {
	base.Debug().Msg(format(msg, v))
}

func Info(msg string, v ...interface{}) {
	base.Info().Msg(format(msg, v))
}

func Warn(msg string, v ...interface{}) {
	base.Warn().Msg(format(msg, v))
}

// Error logs msg with err attached. Any fields maps are merged into the event.
func Error(msg string, err error, fields ...Fields) {
	ev := base.Error()
	if err != nil {
		ev = ev.Err(err)
	}
	for _, f := range fields {
		if f != nil {
			ev = ev.Fields(map[string]interface{}(f))
		}
	}
	ev.Msg(msg)
}

func format(msg string, v []interface{}) string {
	if len(v) == 0 {
		return msg
	}
	return fmt.Sprintf(msg, v...)
}
