package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Logger wraps logrus with a component name attached to every entry
type Logger struct {
	*logrus.Entry
}

// Options configures a logger
type Options struct {
	Level  string
	JSON   bool
	Output io.Writer
}

// New creates a component logger
func New(component string, opts Options) *Logger {
	base := logrus.New()
	base.SetOutput(os.Stdout)
	if opts.Output != nil {
		base.SetOutput(opts.Output)
	}

	level, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	base.SetLevel(level)

	if opts.JSON {
		base.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
	} else {
		base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "2006-01-02 15:04:05"})
	}

	return &Logger{Entry: base.WithField("component", component)}
}

// Discard returns a logger that drops everything, for tests
func Discard() *Logger {
	return New("discard", Options{Output: io.Discard})
}

// Named returns a child logger for another component sharing the same sink
func (l *Logger) Named(component string) *Logger {
	return &Logger{Entry: l.Entry.WithField("component", component)}
}
