// Package logging provides module-scoped loggers carried in context.Context.
package logging

import "context"

// Logger is the interface used for logging throughout the codebase.
// *zap.SugaredLogger satisfies it.
type Logger interface {
	Debugf(msg string, args ...interface{})
	Debugw(msg string, keyValuePairs ...interface{})
	Infof(msg string, args ...interface{})
	Warnf(msg string, args ...interface{})
	Errorf(msg string, args ...interface{})
}

// LoggerForModuleFunc returns a logger for a given module.
type LoggerForModuleFunc func(module string) Logger

// Module returns a function that returns a logger for a given module when provided with a context.
func Module(module string) func(ctx context.Context) Logger {
	return func(ctx context.Context) Logger {
		if l, ok := ctx.Value(loggerKey).(LoggerForModuleFunc); ok {
			return l(module)
		}

		return nullLogger{}
	}
}
