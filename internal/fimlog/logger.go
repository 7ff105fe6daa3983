// Package fimlog provides the engine's logging facility: a minimal,
// prefix-based logger that components obtain via Sublogger so that log lines
// read as e.g. "[engine.walk] skipping /etc/shadow: permission denied".
package fimlog

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync/atomic"

	"github.com/fatih/color"
)

// root is the process-wide minimum level; messages below it are dropped
// before formatting to avoid paying for string construction.
var root atomic.Uint32

// SetLevel sets the process-wide logging level.
func SetLevel(level Level) {
	root.Store(uint32(level))
}

func currentLevel() Level {
	return Level(root.Load())
}

func init() {
	SetLevel(LevelInfo)
	log.SetFlags(log.Ldate | log.Ltime)
	log.SetOutput(os.Stderr)
}

// Logger is the main logger type. A nil *Logger is valid and silently
// discards everything, so components can be constructed with an optional
// logger without nil-checking at every call site.
type Logger struct {
	prefix string
}

// RootLogger is the base logger from which every sublogger descends.
var RootLogger = &Logger{}

// Sublogger creates a new logger that prefixes its output with name, nested
// under the receiver's existing prefix.
func (l *Logger) Sublogger(name string) *Logger {
	if l == nil {
		return nil
	}
	prefix := name
	if l.prefix != "" {
		prefix = l.prefix + "." + name
	}
	return &Logger{prefix: prefix}
}

func (l *Logger) output(level Level, line string) {
	if l == nil || level > currentLevel() {
		return
	}
	if l.prefix != "" {
		line = fmt.Sprintf("[%s] %s", l.prefix, line)
	}
	log.Output(3, line)
}

// Info logs an informational message.
func (l *Logger) Info(v ...interface{}) {
	l.output(LevelInfo, fmt.Sprint(v...))
}

// Infof logs a formatted informational message.
func (l *Logger) Infof(format string, v ...interface{}) {
	l.output(LevelInfo, fmt.Sprintf(format, v...))
}

// Debug logs a debug-level message.
func (l *Logger) Debug(v ...interface{}) {
	l.output(LevelDebug, fmt.Sprint(v...))
}

// Debugf logs a formatted debug-level message.
func (l *Logger) Debugf(format string, v ...interface{}) {
	l.output(LevelDebug, fmt.Sprintf(format, v...))
}

// Warn logs a warning, colorized the way the teacher's CLI output is.
func (l *Logger) Warn(err error) {
	l.output(LevelWarn, color.YellowString("warning: %v", err))
}

// Warnf logs a formatted warning.
func (l *Logger) Warnf(format string, v ...interface{}) {
	l.Warn(fmt.Errorf(format, v...))
}

// Error logs an error.
func (l *Logger) Error(err error) {
	l.output(LevelError, color.RedString("error: %v", err))
}

// Writer returns an io.Writer that logs each line it receives at info level.
// Returned writer discards everything for a nil logger.
func (l *Logger) Writer() io.Writer {
	if l == nil {
		return io.Discard
	}
	return &lineWriter{callback: func(s string) { l.Info(s) }}
}

// lineWriter splits an input stream into lines and forwards each complete
// line to callback, buffering any trailing partial line (ported from the
// teacher's pkg/logging writer type).
type lineWriter struct {
	callback func(string)
	buffer   []byte
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.buffer = append(w.buffer, p...)
	start := 0
	for i, b := range w.buffer {
		if b == '\n' {
			w.callback(string(w.buffer[start:i]))
			start = i + 1
		}
	}
	w.buffer = append(w.buffer[:0], w.buffer[start:]...)
	return len(p), nil
}
