// Package util provides low-level helpers shared by all other packages.
package util

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// LogLevel controls output verbosity.
type LogLevel int

const (
	LogQuiet   LogLevel = 0
	LogNormal  LogLevel = 1
	LogVerbose LogLevel = 2
	LogDebug   LogLevel = 3
)

// levelVerbose sits between slog's Info and Debug.
const levelVerbose = slog.Level(-2)

var levelNames = map[slog.Level]string{
	slog.LevelError: "ERR",
	slog.LevelWarn:  "WRN",
	slog.LevelInfo:  "INF",
	levelVerbose:    "VRB",
	slog.LevelDebug: "DBG",
}

// Logger writes levelled, printf-style messages through a slog text
// handler.  Attributes added with [Logger.With] are appended to every
// record, which is how a session tags its lines.
type Logger struct {
	level      LogLevel
	output     io.Writer
	timestamps bool
	attrs      []any
	sl         *slog.Logger
}

// NewLogger returns a Logger that prints messages at or below the given
// verbosity (0 = errors only, 1 = normal, 2 = verbose, 3 = debug).
func NewLogger(verbosity int) *Logger {
	l := &Logger{
		level:      LogLevel(verbosity),
		output:     os.Stderr,
		timestamps: verbosity >= 3, // auto-enable timestamps in debug mode
	}
	l.rebuild()
	return l
}

// SetTimestamps enables or disables timestamps.
func (l *Logger) SetTimestamps(on bool) {
	l.timestamps = on
	l.rebuild()
}

// SetOutput overrides the output writer (default: os.Stderr).
func (l *Logger) SetOutput(w io.Writer) {
	l.output = w
	l.rebuild()
}

// Level returns the current log level.
func (l *Logger) Level() LogLevel { return l.level }

// With returns a child logger that adds the given key/value pairs to
// every record.  Later SetOutput calls on the parent do not propagate.
func (l *Logger) With(args ...any) *Logger {
	child := &Logger{
		level:      l.level,
		output:     l.output,
		timestamps: l.timestamps,
		attrs:      append(append([]any(nil), l.attrs...), args...),
	}
	child.sl = l.sl.With(args...)
	return child
}

// Info prints when verbosity ≥ 1.
func (l *Logger) Info(format string, args ...interface{}) {
	l.write(slog.LevelInfo, format, args...)
}

// Warn prints when verbosity ≥ 1.
func (l *Logger) Warn(format string, args ...interface{}) {
	l.write(slog.LevelWarn, format, args...)
}

// Verbose prints when verbosity ≥ 2.
func (l *Logger) Verbose(format string, args ...interface{}) {
	l.write(levelVerbose, format, args...)
}

// Debug prints when verbosity ≥ 3.
func (l *Logger) Debug(format string, args ...interface{}) {
	l.write(slog.LevelDebug, format, args...)
}

// Error always prints regardless of verbosity.
func (l *Logger) Error(format string, args ...interface{}) {
	l.write(slog.LevelError, format, args...)
}

func (l *Logger) write(level slog.Level, format string, args ...interface{}) {
	ctx := context.Background()
	if !l.sl.Enabled(ctx, level) {
		return
	}
	l.sl.Log(ctx, level, fmt.Sprintf(format, args...))
}

func (l *Logger) threshold() slog.Level {
	switch {
	case l.level >= LogDebug:
		return slog.LevelDebug
	case l.level == LogVerbose:
		return levelVerbose
	case l.level == LogNormal:
		return slog.LevelInfo
	default:
		return slog.LevelError
	}
}

func (l *Logger) rebuild() {
	timestamps := l.timestamps
	h := slog.NewTextHandler(l.output, &slog.HandlerOptions{
		Level: l.threshold(),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) > 0 {
				return a
			}
			switch a.Key {
			case slog.TimeKey:
				if !timestamps {
					return slog.Attr{}
				}
				return slog.String(slog.TimeKey, a.Value.Time().Format("15:04:05.000"))
			case slog.LevelKey:
				if name, ok := levelNames[a.Value.Any().(slog.Level)]; ok {
					return slog.String(slog.LevelKey, name)
				}
			}
			return a
		},
	})
	l.sl = slog.New(h).With(l.attrs...)
}
