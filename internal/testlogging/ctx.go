// Package testlogging implements logger that writes to testing.T log.
package testlogging

import (
	"context"
	"fmt"
	"strings"

	"github.com/kopia/treediff/internal/logging"
)

// Level specifies log level.
type Level int

// log levels.
const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarning
	LevelError
)

// TestingT is the subset of testing.TB used by the logger.
type TestingT interface {
	Helper()
	Errorf(msg string, args ...interface{})
	Logf(msg string, args ...interface{})
}

type testLogger struct {
	t        TestingT
	prefix   string
	minLevel Level
}

func (l *testLogger) Debugf(msg string, args ...interface{}) {
	if l.minLevel > LevelDebug {
		return
	}

	l.t.Helper()
	l.t.Logf(l.prefix+msg, args...)
}

func (l *testLogger) Debugw(msg string, keyValuePairs ...interface{}) {
	if l.minLevel > LevelDebug {
		return
	}

	l.t.Helper()
	l.t.Logf("%v%v%v", l.prefix, msg, formatKeyValuePairs(keyValuePairs))
}

func formatKeyValuePairs(kv []interface{}) string {
	var sb strings.Builder

	for i := 0; i+1 < len(kv); i += 2 {
		fmt.Fprintf(&sb, " %v=%v", kv[i], kv[i+1])
	}

	return sb.String()
}

func (l *testLogger) Infof(msg string, args ...interface{}) {
	if l.minLevel > LevelInfo {
		return
	}

	l.t.Helper()
	l.t.Logf(l.prefix+msg, args...)
}

func (l *testLogger) Warnf(msg string, args ...interface{}) {
	if l.minLevel > LevelWarning {
		return
	}

	l.t.Helper()
	l.t.Logf(l.prefix+"warning: "+msg, args...)
}

func (l *testLogger) Errorf(msg string, args ...interface{}) {
	if l.minLevel > LevelError {
		return
	}

	l.t.Helper()
	l.t.Errorf(l.prefix+msg, args...)
}

var _ logging.Logger = &testLogger{}

// Context returns a context with attached logger that emits all log entries to go testing.T log output.
func Context(t TestingT) context.Context {
	return ContextWithLevel(t, LevelDebug)
}

// ContextWithLevel returns a context with attached logger that emits all log entries with given log level or above.
func ContextWithLevel(t TestingT, level Level) context.Context {
	return logging.WithLogger(context.Background(), func(module string) logging.Logger {
		return &testLogger{t, "[" + module + "] ", level}
	})
}
