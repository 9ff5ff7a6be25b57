package logger

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
)

type Logger struct {
	zl zerolog.Logger
}

func New(level string) *Logger {
	return NewWithWriter(level, os.Stdout)
}

func NewWithWriter(level string, w io.Writer) *Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	return &Logger{
		zl: zerolog.New(w).With().Timestamp().Logger().Level(lvl),
	}
}

// Nop discards everything. Used by tests.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// With returns a child logger carrying an extra field on every entry.
func (l *Logger) With(key string, value interface{}) *Logger {
	return &Logger{zl: l.zl.With().Interface(key, value).Logger()}
}

func (l *Logger) Info(msg string, args ...interface{}) {
	l.zl.Info().Msg(format(msg, args))
}

func (l *Logger) Debug(msg string, args ...interface{}) {
	l.zl.Debug().Msg(format(msg, args))
}

func (l *Logger) Warn(msg string, args ...interface{}) {
	l.zl.Warn().Msg(format(msg, args))
}

func (l *Logger) Error(msg string, args ...interface{}) {
	l.zl.Error().Msg(format(msg, args))
}

func (l *Logger) Fatal(msg string, args ...interface{}) {
	l.zl.WithLevel(zerolog.FatalLevel).Msg(format(msg, args))
	os.Exit(1)
}

// Zerolog exposes the underlying logger for structured call sites.
func (l *Logger) Zerolog() *zerolog.Logger {
	return &l.zl
}

func format(msg string, args []interface{}) string {
	if len(args) == 0 {
		return msg
	}
	return fmt.Sprintf(msg, args...)
}
