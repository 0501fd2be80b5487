package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/coachpro/go-auth"
	"github.com/rs/zerolog"
)

// Logger adapts zerolog to auth.Logger. Calls with a printf verb in the
// message are formatted, otherwise the arguments are key/value pairs
// turned into fields.
type Logger struct {
	log zerolog.Logger
}

var _ auth.Logger = Logger{}

// NewZerolog creates a logger writing JSON to w at level. An unknown
// level falls back to info.
func NewZerolog(w io.Writer, level string) Logger {
	if w == nil {
		w = os.Stderr
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return Logger{
		log: zerolog.New(w).Level(lvl).With().Timestamp().Logger(),
	}
}

// NewConsole creates a human readable logger for local runs
func NewConsole(level string) Logger {
	l := NewZerolog(os.Stderr, level)
	l.log = l.log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	return l
}

// Named returns a logger tagging every line with component
func (l Logger) Named(component string) Logger {
	return Logger{log: l.log.With().Str("component", component).Logger()}
}

// Zerolog exposes the wrapped logger
func (l Logger) Zerolog() zerolog.Logger {
	return l.log
}

func (l Logger) Debug(format string, args ...any) { emit(l.log.Debug(), format, args) }
func (l Logger) Info(format string, args ...any)  { emit(l.log.Info(), format, args) }
func (l Logger) Warn(format string, args ...any)  { emit(l.log.Warn(), format, args) }
func (l Logger) Error(format string, args ...any) { emit(l.log.Error(), format, args) }

func emit(ev *zerolog.Event, format string, args []any) {
	if ev == nil {
		return
	}
	if strings.Contains(format, "%") {
		ev.Msgf(format, args...)
		return
	}

	for i := 0; i < len(args); i += 2 {
		if i+1 >= len(args) {
			ev.Interface("extra", args[i])
			break
		}
		key := fmt.Sprint(args[i])
		switch v := args[i+1].(type) {
		case error:
			ev.AnErr(key, v)
		case string:
			ev.Str(key, v)
		case time.Duration:
			ev.Dur(key, v)
		case int:
			ev.Int(key, v)
		case bool:
			ev.Bool(key, v)
		default:
			ev.Interface(key, v)
		}
	}
	ev.Msg(format)
}
