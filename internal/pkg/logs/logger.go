// Package logs contains structured JSON logger used by grader.
package logs

import (
	"fmt"
	"io"
	"runtime"

	"github.com/labstack/gommon/log"
)

const jsonHeader = `{"time":"${time_rfc3339_nano}","level":"${level}"}`

type Logger struct {
	*log.Logger
	fields []any
}

// NewLogger creates a new instance of JSON logger with specified level.
func NewLogger(level log.Lvl) *Logger {
	logger := log.New("")
	logger.SetHeader(jsonHeader)
	logger.SetLevel(level)
	return &Logger{Logger: logger}
}

// NewTestLogger creates logger that writes into specified writer.
func NewTestLogger(w io.Writer) *Logger {
	logger := NewLogger(log.DEBUG)
	logger.SetOutput(w)
	return logger
}

// With returns logger with additional fields.
func (l *Logger) With(args ...any) *Logger {
	fields := make([]any, 0, len(args)+len(l.fields))
	fields = append(fields, l.fields...)
	fields = append(fields, args...)
	return &Logger{Logger: l.Logger, fields: fields}
}

func (l *Logger) Debug(args ...any) {
	l.logj(log.DEBUG, newLine(args...))
}

func (l *Logger) Info(args ...any) {
	l.logj(log.INFO, newLine(args...))
}

func (l *Logger) Warn(args ...any) {
	l.logj(log.WARN, newLine(args...))
}

func (l *Logger) Error(args ...any) {
	l.logj(log.ERROR, newLine(args...))
}

func (l *Logger) Fatal(args ...any) {
	l.logj(log.OFF, newLine(args...))
}

func (l *Logger) Debugf(format string, args ...any) {
	l.logj(log.DEBUG, newLine(fmt.Sprintf(format, args...)))
}

func (l *Logger) Infof(format string, args ...any) {
	l.logj(log.INFO, newLine(fmt.Sprintf(format, args...)))
}

func (l *Logger) Warnf(format string, args ...any) {
	l.logj(log.WARN, newLine(fmt.Sprintf(format, args...)))
}

func (l *Logger) Errorf(format string, args ...any) {
	l.logj(log.ERROR, newLine(fmt.Sprintf(format, args...)))
}

func (l *Logger) Fatalf(format string, args ...any) {
	l.logj(log.OFF, newLine(fmt.Sprintf(format, args...)))
}

func (l *Logger) Debugj(j log.JSON) {
	l.logj(log.DEBUG, j)
}

func (l *Logger) Infoj(j log.JSON) {
	l.logj(log.INFO, j)
}

func (l *Logger) Warnj(j log.JSON) {
	l.logj(log.WARN, j)
}

func (l *Logger) Errorj(j log.JSON) {
	l.logj(log.ERROR, j)
}

func (l *Logger) Fatalj(j log.JSON) {
	l.logj(log.OFF, j)
}

// logj should be called only from exported methods, because
// caller depth is fixed.
func (l *Logger) logj(level log.Lvl, j log.JSON) {
	_, file, line, _ := runtime.Caller(2)
	j["file"] = fmt.Sprintf("%s:%d", file, line)
	setLogLine(j, l.fields...)
	switch level {
	case log.DEBUG:
		l.Logger.Debugj(j)
	case log.INFO:
		l.Logger.Infoj(j)
	case log.WARN:
		l.Logger.Warnj(j)
	case log.ERROR:
		l.Logger.Errorj(j)
	default:
		l.Logger.Fatalj(j)
	}
}

type LogField struct {
	Name  string
	Value any
}

func Any(name string, value any) LogField {
	return LogField{Name: name, Value: value}
}

func newLine(args ...any) log.JSON {
	j := log.JSON{}
	setLogLine(j, args...)
	return j
}

func setLogLine(j log.JSON, args ...any) {
	for _, arg := range args {
		switch v := arg.(type) {
		case nil:
		case string:
			j["message"] = v
		case LogField:
			j[v.Name] = v.Value
		case error:
			j["error"] = v.Error()
		default:
			panic(fmt.Errorf("unsupported type: %T", arg))
		}
	}
}
