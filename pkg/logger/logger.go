package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the structured logger handed to use cases. Fields are passed as
// alternating key/value pairs.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

type Config struct {
	Level  string // debug, info, warn, error
	Pretty bool
	Output io.Writer
}

type zeroLogger struct {
	zl zerolog.Logger
}

var std = New(Config{Level: "info"})

// New builds a zerolog-backed Logger.
func New(cfg Config) Logger {
	return &zeroLogger{zl: newZerolog(cfg)}
}

// Nop discards everything. Used by tests.
func Nop() Logger {
	return &zeroLogger{zl: zerolog.Nop()}
}

// SetDefault replaces the logger behind the package-level helpers.
func SetDefault(l Logger) {
	std = l
}

func newZerolog(cfg Config) zerolog.Logger {
	level := zerolog.InfoLevel
	switch cfg.Level {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.TimeFieldFormat = time.RFC3339

	var output io.Writer = os.Stdout
	if cfg.Output != nil {
		output = cfg.Output
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: "15:04:05"}
	}

	return zerolog.New(output).Level(level).With().Timestamp().Logger()
}

func (l *zeroLogger) Debug(msg string, keysAndValues ...interface{}) {
	withFields(l.zl.Debug(), keysAndValues).Msg(msg)
}

func (l *zeroLogger) Info(msg string, keysAndValues ...interface{}) {
	withFields(l.zl.Info(), keysAndValues).Msg(msg)
}

func (l *zeroLogger) Warn(msg string, keysAndValues ...interface{}) {
	withFields(l.zl.Warn(), keysAndValues).Msg(msg)
}

func (l *zeroLogger) Error(msg string, keysAndValues ...interface{}) {
	withFields(l.zl.Error(), keysAndValues).Msg(msg)
}

func withFields(ev *zerolog.Event, kv []interface{}) *zerolog.Event {
	for i := 0; i < len(kv); i += 2 {
		key := fmt.Sprint(kv[i])
		if i+1 >= len(kv) {
			ev = ev.Str(key, "MISSING")
			break
		}
		switch v := kv[i+1].(type) {
		case error:
			ev = ev.AnErr(key, v)
		case string:
			ev = ev.Str(key, v)
		case int:
			ev = ev.Int(key, v)
		case int64:
			ev = ev.Int64(key, v)
		case bool:
			ev = ev.Bool(key, v)
		case time.Duration:
			ev = ev.Dur(key, v)
		default:
			ev = ev.Interface(key, v)
		}
	}
	return ev
}

func Info(format string, v ...interface{}) {
	std.Info(fmt.Sprintf(format, v...))
}

func Error(format string, v ...interface{}) {
	std.Error(fmt.Sprintf(format, v...))
}

func Debug(format string, v ...interface{}) {
	std.Debug(fmt.Sprintf(format, v...))
}

func Warn(format string, v ...interface{}) {
	std.Warn(fmt.Sprintf(format, v...))
}
