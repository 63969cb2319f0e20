// Package klog is a thin leveled wrapper over the standard log.Logger,
// in the same spirit as the adjacent five82/reel project's
// internal/logging: no third-party structured-logging dependency,
// just enough level filtering to keep firmware-side traces quiet by
// default.
package klog

import (
	"io"
	"log"
	"os"
)

// Level selects which calls actually reach the underlying writer.
type Level int

const (
	LevelInfo Level = iota
	LevelDebug
)

// Logger is safe to use as a nil *Logger: every method no-ops on a nil
// receiver, so callers can wire an optional logger through without a
// presence check at every call site.
type Logger struct {
	level  Level
	logger *log.Logger
}

// New wraps w at the given level. Each line carries log.LstdFlags'
// date and time prefix, followed by the level tag that
// Info/Debug/Warn/Error add.
func New(w io.Writer, level Level) *Logger {
	return &Logger{level: level, logger: log.New(w, "", log.LstdFlags)}
}

// Default returns a Logger writing to stderr at LevelInfo.
func Default() *Logger {
	return New(os.Stderr, LevelInfo)
}

// Info logs unconditionally (subject only to the writer existing).
func (l *Logger) Info(format string, args ...any) {
	if l == nil {
		return
	}
	l.logger.Printf("[INFO] "+format, args...)
}

// Warn logs a recoverable anomaly, such as dropped frames.
func (l *Logger) Warn(format string, args ...any) {
	if l == nil {
		return
	}
	l.logger.Printf("[WARN] "+format, args...)
}

// Error logs a failure that is about to be surfaced to the console as
// ERR_TOKEN or to the player as a state transition to Error.
func (l *Logger) Error(format string, args ...any) {
	if l == nil {
		return
	}
	l.logger.Printf("[ERROR] "+format, args...)
}

// Debug logs only when the logger was constructed at LevelDebug.
func (l *Logger) Debug(format string, args ...any) {
	if l == nil || l.level < LevelDebug {
		return
	}
	l.logger.Printf("[DEBUG] "+format, args...)
}
