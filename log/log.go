// Package log provides leveled, structured logging on top of [log/slog].
package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
)

type (
	Attr    = slog.Attr
	Handler = slog.Handler
)

var DiscardHandler = slog.DiscardHandler

// Logger is implemented by loggers accepting printf style messages, such
// as [mqtt.Logger].
type Logger interface {
	Println(v ...any)
	Printf(format string, v ...any)
}

type logger struct {
	*slog.Logger
	with  []any
	group string
}

var level slog.LevelVar

var defaultLogger = &logger{
	Logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: &level})),
}

// With adds the given attributes to every following log message.
func With(args ...any) {
	defaultLogger.Logger = defaultLogger.Logger.With(args...)
	defaultLogger.with = append(defaultLogger.with, args...)
}

// WithGroup qualifies the keys of every following log message with name.
func WithGroup(name string) {
	defaultLogger.Logger = defaultLogger.Logger.WithGroup(name)
	defaultLogger.group = name
}

func DefaultLogger() Logger {
	return defaultLogger
}

// SetLogLevel sets the minimum level of logged messages.
func SetLogLevel(l Level) {
	level.Set(slog.Level(l))
}

// LogLevel returns the minimum level of logged messages.
func LogLevel() Level {
	return Level(level.Level())
}

// SetOutput sets the output of the default text handler to w.
func SetOutput(w io.Writer) {
	SetTextHandler(w)
}

// SetTextHandler logs to w with a [slog.TextHandler].
func SetTextHandler(w io.Writer) {
	SetHandler(slog.NewTextHandler(w, &slog.HandlerOptions{Level: &level}))
}

// SetJSONHandler logs to w with a [slog.JSONHandler].
func SetJSONHandler(w io.Writer) {
	SetHandler(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: &level}))
}

func withGroup(l *slog.Logger) *slog.Logger {
	if len(defaultLogger.with) > 0 {
		l = l.With(defaultLogger.with...)
	}
	if defaultLogger.group != "" {
		l = l.WithGroup(defaultLogger.group)
	}
	return l
}

// Error logs msg at [LevelError] with err as the "cause" attribute.
func Error(msg string, err error, args ...any) {
	if err != nil {
		args = append([]any{"cause", err}, args...)
	}
	defaultLogger.Error(msg, args...)
}

// Fatal logs like [Error] and exits with status 1.
func Fatal(msg string, err error, args ...any) {
	Error(msg, err, args...)
	os.Exit(1)
}

func Warn(msg string, args ...any) {
	defaultLogger.Warn(msg, args...)
}

// WarnError logs msg at [LevelWarn] with err as the "cause" attribute.
func WarnError(msg string, err error, args ...any) {
	if err != nil {
		args = append([]any{"cause", err}, args...)
	}
	defaultLogger.Warn(msg, args...)
}

func Info(msg string, args ...any) {
	defaultLogger.Info(msg, args...)
}

func Println(v ...any) {
	defaultLogger.Info(fmt.Sprintln(v...))
}

func Printf(format string, v ...any) {
	defaultLogger.Info(fmt.Sprintf(format, v...))
}

func (l *logger) Println(v ...any) {
	l.Info(fmt.Sprintln(v...))
}

func (l *logger) Printf(format string, v ...any) {
	l.Info(fmt.Sprintf(format, v...))
}

func (l *logger) Log(ctx context.Context, level Level, msg string, args ...any) {
	l.Logger.Log(ctx, slog.Level(level), msg, args...)
}

func (l *logger) LogAttrs(ctx context.Context, level Level, msg string, attrs ...Attr) {
	l.Logger.LogAttrs(ctx, slog.Level(level), msg, attrs...)
}

type warnLogger struct{}

// WarnLogger returns a [Logger] that logs at [LevelWarn].
func WarnLogger() Logger {
	return warnLogger{}
}
func (warnLogger) Println(v ...any)               { Warn(fmt.Sprintln(v...)) }
func (warnLogger) Printf(format string, v ...any) { Warn(fmt.Sprintf(format, v...)) }

type errorLogger struct{}

// ErrorLogger returns a [Logger] that logs at [LevelError].
func ErrorLogger() Logger {
	return errorLogger{}
}
func (errorLogger) Println(v ...any)               { defaultLogger.Error(fmt.Sprintln(v...)) }
func (errorLogger) Printf(format string, v ...any) { defaultLogger.Error(fmt.Sprintf(format, v...)) }
