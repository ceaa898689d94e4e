package utils

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"
)

// Level orders log severities; messages below the logger's level are dropped.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel maps a LOG_LEVEL value to a Level, defaulting to LevelInfo.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Logger provides leveled, timestamped logging throughout the application.
type Logger struct {
	level Level
	out   *log.Logger
	err   *log.Logger
	color bool
}

// NewLogger creates a Logger at info level writing to stdout/stderr.
func NewLogger() *Logger {
	return &Logger{
		level: LevelInfo,
		out:   log.New(os.Stdout, "", 0),
		err:   log.New(os.Stderr, "", 0),
		color: true,
	}
}

// NewLoggerTo creates a Logger that sends every level to w without ANSI colors.
func NewLoggerTo(w io.Writer, level Level) *Logger {
	l := log.New(w, "", 0)
	return &Logger{level: level, out: l, err: l}
}

// Discard returns a Logger that drops everything. Handy in tests.
func Discard() *Logger {
	return NewLoggerTo(io.Discard, LevelError+1)
}

// WithLevel returns a copy of the logger filtering at level.
func (l *Logger) WithLevel(level Level) *Logger {
	cp := *l
	cp.level = level
	return &cp
}

func (l *Logger) timestamp() string {
	return time.Now().Format("2006-01-02 15:04:05")
}

func (l *Logger) tag(name, ansi string) string {
	if !l.color {
		return fmt.Sprintf("%-5s", name)
	}
	return fmt.Sprintf("\033[%sm%-5s\033[0m", ansi, name)
}

func (l *Logger) emit(dst *log.Logger, level Level, tag, format string, args ...any) {
	if level < l.level {
		return
	}
	dst.Printf("[%s] %s %s", l.timestamp(), tag, fmt.Sprintf(format, args...))
}

func (l *Logger) Info(format string, args ...any) {
	l.emit(l.out, LevelInfo, l.tag("INFO", "32"), format, args...)
}

func (l *Logger) Warn(format string, args ...any) {
	l.emit(l.out, LevelWarn, l.tag("WARN", "33"), format, args...)
}

func (l *Logger) Error(format string, args ...any) {
	l.emit(l.err, LevelError, l.tag("ERROR", "31"), format, args...)
}

func (l *Logger) Debug(format string, args ...any) {
	l.emit(l.out, LevelDebug, l.tag("DEBUG", "36"), format, args...)
}
