// Package telemetry wraps zerolog into the leveled, structured logger
// every other package in this module takes as an explicit collaborator:
// spec.md's design notes rule out a process-level singleton, so there is
// no package-level logger here, only constructors and child loggers.
package telemetry

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Level names the recognized logging verbosity, matching the "debug"
// config key spec.md §6 defines plus the usual info/warn/error tiers.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Format selects the on-wire rendering: "console" for a human-readable
// CLI session, "json" for machine-parseable log shipping.
type Format string

const (
	FormatConsole Format = "console"
	FormatJSON    Format = "json"
)

// Config controls one Logger construction.
type Config struct {
	Level  Level
	Format Format
	Output io.Writer // defaults to os.Stderr
}

// Logger is a thin structured-logging facade built and used by the CLI
// commands; the netlist/fsim/dtpg packages take no Logger and do not log.
// WithField(s) derives a child logger carrying a key/value pair through
// the rest of a call's log lines.
type Logger struct {
	zl zerolog.Logger
}

// New builds a Logger from cfg.
func New(cfg Config) *Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Format == FormatConsole || cfg.Format == "" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}
	zl := zerolog.New(out).With().Timestamp().Logger()
	switch cfg.Level {
	case LevelDebug:
		zl = zl.Level(zerolog.DebugLevel)
	case LevelWarn:
		zl = zl.Level(zerolog.WarnLevel)
	case LevelError:
		zl = zl.Level(zerolog.ErrorLevel)
	default:
		zl = zl.Level(zerolog.InfoLevel)
	}
	return &Logger{zl: zl}
}

// Nop returns a Logger that discards everything, for callers (library
// use, tests) that don't want a CLI-bound destination.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

func (l *Logger) Debug(msg string, fields ...any) { l.log(l.zl.Debug(), msg, fields) }
func (l *Logger) Info(msg string, fields ...any)  { l.log(l.zl.Info(), msg, fields) }
func (l *Logger) Warn(msg string, fields ...any)  { l.log(l.zl.Warn(), msg, fields) }
func (l *Logger) Error(msg string, fields ...any) { l.log(l.zl.Error(), msg, fields) }

func (l *Logger) log(event *zerolog.Event, msg string, fields []any) {
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		event = event.Interface(key, fields[i+1])
	}
	event.Msg(msg)
}

// WithField returns a child logger that always carries key=value.
func (l *Logger) WithField(key string, value any) *Logger {
	return &Logger{zl: l.zl.With().Interface(key, value).Logger()}
}

// WithFields returns a child logger carrying every key/value pair.
func (l *Logger) WithFields(fields map[string]any) *Logger {
	ctx := l.zl.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return &Logger{zl: ctx.Logger()}
}
