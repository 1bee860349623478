// Package logging provides the leveled logger used across the browser core.
// It recognizes four levels (err, wrn, inf, dbg); dbg entries are dropped
// unless debug output has been switched on.
package logging

import (
	"fmt"
	"io"
	"os"

	charmlog "github.com/charmbracelet/log"
)

// Level is one of the four reporting levels.
type Level string

const (
	LevelErr Level = "err"
	LevelWrn Level = "wrn"
	LevelInf Level = "inf"
	LevelDbg Level = "dbg"
)

// ParseLevel maps a level name to a Level. An empty string means inf.
func ParseLevel(s string) (Level, error) {
	switch Level(s) {
	case "":
		return LevelInf, nil
	case LevelErr, LevelWrn, LevelInf, LevelDbg:
		return Level(s), nil
	default:
		return LevelInf, fmt.Errorf("invalid log level %q: supported levels are err, wrn, inf, dbg", s)
	}
}

func (l Level) charm() charmlog.Level {
	switch l {
	case LevelErr:
		return charmlog.ErrorLevel
	case LevelWrn:
		return charmlog.WarnLevel
	case LevelDbg:
		return charmlog.DebugLevel
	default:
		return charmlog.InfoLevel
	}
}

// Logger wraps a charmbracelet logger with the err/wrn/inf/dbg vocabulary.
type Logger struct {
	base  *charmlog.Logger
	level Level
	debug bool
}

// New returns a Logger writing to w at inf level with debug output off.
// A nil writer means stderr.
func New(w io.Writer) *Logger {
	if w == nil {
		w = os.Stderr
	}
	l := &Logger{
		base: charmlog.NewWithOptions(w, charmlog.Options{
			Prefix:          "cfacdb",
			ReportTimestamp: true,
		}),
		level: LevelInf,
	}
	l.apply()
	return l
}

// Discard returns a Logger that writes nowhere.
func Discard() *Logger {
	return New(io.Discard)
}

// SetLevel sets the minimum level reported. Choosing dbg also turns debug on.
func (l *Logger) SetLevel(level Level) {
	l.level = level
	if level == LevelDbg {
		l.debug = true
	}
	l.apply()
}

// SetDebug toggles dbg output without touching the other levels.
func (l *Logger) SetDebug(on bool) {
	l.debug = on
	if !on && l.level == LevelDbg {
		l.level = LevelInf
	}
	l.apply()
}

// Debug reports whether dbg entries are emitted.
func (l *Logger) Debug() bool {
	return l.debug
}

// apply opens the base logger wide enough for dbg when debug is on; Log
// still holds err, wrn and inf to the chosen level.
func (l *Logger) apply() {
	if l.debug {
		l.base.SetLevel(charmlog.DebugLevel)
		return
	}
	l.base.SetLevel(l.level.charm())
}

// Log writes msg at level. keyvals are alternating key/value pairs.
func (l *Logger) Log(level Level, msg string, keyvals ...any) {
	if l == nil || !l.enabled(level) {
		return
	}
	switch level {
	case LevelErr:
		l.base.Error(msg, keyvals...)
	case LevelWrn:
		l.base.Warn(msg, keyvals...)
	case LevelDbg:
		l.base.Debug(msg, keyvals...)
	default:
		l.base.Info(msg, keyvals...)
	}
}

// enabled reports whether an entry at level passes. dbg depends only on
// the debug toggle.
func (l *Logger) enabled(level Level) bool {
	if level == LevelDbg {
		return l.debug
	}
	return level.charm() >= l.level.charm()
}

func (l *Logger) Err(msg string, keyvals ...any) { l.Log(LevelErr, msg, keyvals...) }
func (l *Logger) Wrn(msg string, keyvals ...any) { l.Log(LevelWrn, msg, keyvals...) }
func (l *Logger) Inf(msg string, keyvals ...any) { l.Log(LevelInf, msg, keyvals...) }
func (l *Logger) Dbg(msg string, keyvals ...any) { l.Log(LevelDbg, msg, keyvals...) }
