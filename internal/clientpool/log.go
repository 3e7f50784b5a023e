package clientpool

import (
	"log"
	"os"
)

// Level is the host-provided diagnostic verbosity, per spec.md §6
// ("recognized levels: error, warn, info, debug, trace").
type Level int

const (
	LevelError Level = iota
	LevelWarn
	LevelInfo
	LevelDebug
	LevelTrace
)

// ParseLevel accepts the recognized verbosity strings; anything else
// defaults to LevelInfo, matching the teacher's "silent by default" bias
// (internal/tools/debug_logger.go) rather than erroring on an unknown flag.
func ParseLevel(s string) Level {
	switch s {
	case "error":
		return LevelError
	case "warn":
		return LevelWarn
	case "debug":
		return LevelDebug
	case "trace":
		return LevelTrace
	default:
		return LevelInfo
	}
}

// Logger is the bracketed-tag diagnostic sink shared by clientpool, catalog,
// sandbox and downstream. It writes to stderr, never stdout, since stdout
// carries the MCP wire protocol.
type Logger struct {
	level Level
	std   *log.Logger
}

// NewLogger returns a Logger writing to stderr at the given verbosity.
func NewLogger(level Level) *Logger {
	return &Logger{level: level, std: log.New(os.Stderr, "", log.LstdFlags)}
}

func (l *Logger) log(at Level, tag, format string, args ...any) {
	if l == nil || l.level < at {
		return
	}
	l.std.Printf("["+tag+"] "+format, args...)
}

func (l *Logger) Warnf(tag, format string, args ...any)  { l.log(LevelWarn, tag, format, args...) }
func (l *Logger) Infof(tag, format string, args ...any)  { l.log(LevelInfo, tag, format, args...) }
func (l *Logger) Debugf(tag, format string, args ...any) { l.log(LevelDebug, tag, format, args...) }
func (l *Logger) Tracef(tag, format string, args ...any) { l.log(LevelTrace, tag, format, args...) }
