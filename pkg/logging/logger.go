// Package logging provides a small leveled, colorized logger used throughout
// the server, client, scanner, and watcher. A *Logger is nil-safe (a nil
// logger discards everything) so components can be constructed with an
// optional logger without callers needing to guard every call site.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// colorEnabled is set once at startup: color escapes are only emitted when
// standard error is attached to a terminal.
var colorEnabled = isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())

// Logger writes leveled, prefixed log lines to an underlying *log.Logger. The
// zero value is not usable; construct one with New or derive one with
// Sublogger.
type Logger struct {
	level  Level
	prefix string
	output *log.Logger
}

// New creates a root logger at the given level, writing to w (os.Stderr is
// the usual choice).
func New(level Level, w io.Writer) *Logger {
	return &Logger{
		level:  level,
		output: log.New(w, "", log.LstdFlags),
	}
}

// Sublogger derives a child logger that prefixes its output with name,
// joined to any existing prefix with a dot, and inherits the parent's level.
// Calling Sublogger on a nil *Logger returns nil, so a component that was
// handed no logger can still create subloggers for its own children without
// a nil check.
func (l *Logger) Sublogger(name string) *Logger {
	if l == nil {
		return nil
	}
	prefix := name
	if l.prefix != "" {
		prefix = l.prefix + "." + name
	}
	return &Logger{level: l.level, prefix: prefix, output: l.output}
}

func (l *Logger) enabled(level Level) bool {
	return l != nil && l.level >= level
}

func (l *Logger) line(tag string, v ...any) string {
	msg := fmt.Sprint(v...)
	if l.prefix != "" {
		return fmt.Sprintf("%s[%s] %s", tag, l.prefix, msg)
	}
	return fmt.Sprintf("%s%s", tag, msg)
}

func colorize(paint func(format string, a ...any) string, tag string) string {
	if !colorEnabled {
		return tag
	}
	return paint("%s", tag)
}

// Error logs a message at LevelError.
func (l *Logger) Error(v ...any) {
	if l.enabled(LevelError) {
		l.output.Output(2, l.line(colorize(color.RedString, "ERROR ")+" ", v...))
	}
}

// Warn logs a message at LevelWarn.
func (l *Logger) Warn(v ...any) {
	if l.enabled(LevelWarn) {
		l.output.Output(2, l.line(colorize(color.YellowString, "WARN ")+" ", v...))
	}
}

// Info logs a message at LevelInfo.
func (l *Logger) Info(v ...any) {
	if l.enabled(LevelInfo) {
		l.output.Output(2, l.line(colorize(color.CyanString, "INFO ")+" ", v...))
	}
}

// Debug logs a message at LevelDebug.
func (l *Logger) Debug(v ...any) {
	if l.enabled(LevelDebug) {
		l.output.Output(2, l.line("DEBUG  ", v...))
	}
}

// Trace logs a message at LevelTrace, for the highest-volume, lowest-level
// detail (individual scan entries, per-event watcher activity).
func (l *Logger) Trace(v ...any) {
	if l.enabled(LevelTrace) {
		l.output.Output(2, l.line("TRACE  ", v...))
	}
}
