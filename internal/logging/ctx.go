package logging

import "context"

type contextKey string

const loggerKey contextKey = "logger"

// WithLogger returns a derived context with associated logger.
func WithLogger(ctx context.Context, l LoggerForModuleFunc) context.Context {
	if l == nil {
		l = getNullLogger
	}

	return context.WithValue(ctx, loggerKey, l)
}

// WithAdditionalLogger returns a context where all logging is emitted to the original logger and the provided one.
func WithAdditionalLogger(ctx context.Context, fn LoggerForModuleFunc) context.Context {
	current, ok := ctx.Value(loggerKey).(LoggerForModuleFunc)
	if !ok {
		return WithLogger(ctx, fn)
	}

	return WithLogger(ctx, func(module string) Logger {
		return Broadcast{current(module), fn(module)}
	})
}
