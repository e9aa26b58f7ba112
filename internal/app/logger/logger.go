package logger

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger wraps zerolog with the component helpers used across the app.
type Logger struct {
	zerolog.Logger
}

// Component is implemented by types that name their own logger component.
type Component interface {
	LoggerComponent() string
}

// New constructor
func New(verbose, pretty bool) Logger {
	logLevel := zerolog.InfoLevel
	if verbose {
		logLevel = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(logLevel)
	if pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}
	return Logger{log.Logger}
}

// Global returns current global logger
func Global() *Logger {
	return &Logger{log.Logger}
}

// Get returns context logger for component
func Get(ctx context.Context, c interface{}) Logger {
	return Ctx(ctx).Component(c)
}

// Ctx creates context logger
func Ctx(ctx context.Context) Logger {
	return Logger{Logger: *zerolog.Ctx(ctx)}
}

// Component creates logger for specified component or returns current logger
func (l Logger) Component(c interface{}) Logger {
	switch v := c.(type) {
	case Component:
		return l.WithComponent(v.LoggerComponent())
	case string:
		return l.WithComponent(v)
	}
	return l
}

// WithComponent creates child logger for named component
func (l Logger) WithComponent(name string) Logger {
	return Logger{Logger: l.With().Str("component", name).Logger()}
}
