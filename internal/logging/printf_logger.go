package logging

import (
	"fmt"
	"strings"
)

type printfLogger struct {
	printf func(msg string, args ...interface{})
	prefix string
}

func (l *printfLogger) Debugf(msg string, args ...interface{}) { l.printf(l.prefix+msg, args...) }
func (l *printfLogger) Infof(msg string, args ...interface{})  { l.printf(l.prefix+msg, args...) }
func (l *printfLogger) Warnf(msg string, args ...interface{})  { l.printf(l.prefix+msg, args...) }
func (l *printfLogger) Errorf(msg string, args ...interface{}) { l.printf(l.prefix+msg, args...) }

func (l *printfLogger) Debugw(msg string, keyValuePairs ...interface{}) {
	l.printf(l.prefix+msg+formatKeyValuePairs(keyValuePairs), nil...)
}

func formatKeyValuePairs(kv []interface{}) string {
	if len(kv) == 0 {
		return ""
	}

	var sb strings.Builder

	sb.WriteString("\t")

	for i := 0; i+1 < len(kv); i += 2 {
		if i > 0 {
			sb.WriteString(" ")
		}

		fmt.Fprintf(&sb, "%v=%v", kv[i], kv[i+1])
	}

	return strings.ReplaceAll(sb.String(), "%", "%%")
}

// Printf returns LoggerForModuleFunc that uses given printf-style function to print log output.
func Printf(printf func(msg string, args ...interface{}), prefix string) LoggerForModuleFunc {
	return func(module string) Logger {
		return &printfLogger{printf, prefix + "[" + module + "] "}
	}
}
