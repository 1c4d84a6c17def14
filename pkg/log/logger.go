package log

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/klwxsrx/go-auth-client/pkg/config"
)

const (
	LevelDisabled Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
)

type (
	Logger interface {
		With(fields Fields) Logger
		WithField(name string, value any) Logger
		WithError(err error) Logger
		WithContext(ctx context.Context, fields Fields) context.Context
		Log(ctx context.Context, lvl Level, msg string)
		Debug(ctx context.Context, msg string)
		Info(ctx context.Context, msg string)
		Warn(ctx context.Context, msg string)
		Error(ctx context.Context, msg string)
	}

	Fields map[string]any
	Level  int

	contextKey int
)

const fieldsContextKey contextKey = iota

var zerologLevelMap = map[Level]zerolog.Level{
	LevelDebug: zerolog.DebugLevel,
	LevelInfo:  zerolog.InfoLevel,
	LevelWarn:  zerolog.WarnLevel,
	LevelError: zerolog.ErrorLevel,
}

type logger struct {
	impl zerolog.Logger
}

// New returns a JSON logger writing to stdout.
func New(level Level) Logger {
	return NewWithWriter(os.Stdout, level)
}

// NewConsole returns a human-readable logger.
func NewConsole(w io.Writer, level Level) Logger {
	return NewWithWriter(zerolog.ConsoleWriter{Out: w, NoColor: true, TimeFormat: time.RFC3339}, level)
}

// ForMode picks console output in the dev deployment mode and JSON otherwise.
func ForMode(cfg config.Config, w io.Writer, level Level) Logger {
	if cfg.IsDev() {
		return NewConsole(w, level)
	}
	return NewWithWriter(w, level)
}

func NewWithWriter(w io.Writer, level Level) Logger {
	if level == LevelDisabled {
		return stub{}
	}

	impl := zerolog.New(w).
		Level(zerologLevelMap[level]).
		With().
		Timestamp().
		Logger()

	return logger{impl}
}

func (l logger) With(fields Fields) Logger {
	if len(fields) == 0 {
		return l
	}

	l.impl = l.impl.With().Fields(map[string]any(fields)).Logger()
	return l
}

func (l logger) WithField(name string, v any) Logger {
	l.impl = l.impl.With().Interface(name, v).Logger()
	return l
}

func (l logger) WithError(err error) Logger {
	if err == nil {
		return l
	}

	l.impl = l.impl.With().Str("error", err.Error()).Logger()
	return l
}

func (l logger) WithContext(ctx context.Context, fields Fields) context.Context {
	if len(fields) == 0 {
		return ctx
	}

	ctxFields := getContextFields(ctx)
	result := make(Fields, len(ctxFields)+len(fields))
	for key, value := range ctxFields {
		result[key] = value
	}
	for key, value := range fields {
		result[key] = value
	}

	return context.WithValue(ctx, fieldsContextKey, result)
}

func (l logger) Debug(ctx context.Context, str string) {
	l.Log(ctx, LevelDebug, str)
}

func (l logger) Info(ctx context.Context, str string) {
	l.Log(ctx, LevelInfo, str)
}

func (l logger) Warn(ctx context.Context, str string) {
	l.Log(ctx, LevelWarn, str)
}

func (l logger) Error(ctx context.Context, str string) {
	l.Log(ctx, LevelError, str)
}

func (l logger) Log(ctx context.Context, level Level, str string) {
	if level == LevelDisabled {
		return
	}

	event := l.impl.WithLevel(zerologLevelMap[level])
	if fields := getContextFields(ctx); len(fields) > 0 {
		event = event.Fields(map[string]any(fields))
	}
	event.Msg(str)
}

func getContextFields(ctx context.Context) Fields {
	fields, _ := ctx.Value(fieldsContextKey).(Fields)
	return fields
}
