package log

import (
	"io"
	stdL "log"
)

// Discard returns a no-op handler that will discard all generated output.
// Useful as the default logger for components constructed without an
// explicit one, so nil checks are never required.
func Discard() Logger {
	return WithStandard(stdL.New(io.Discard, "", 0))
}

// WithStandard provides a log handler using only standard library packages.
func WithStandard(log *stdL.Logger) Logger {
	return &stdLogger{log: log}
}

type stdLogger struct {
	log    *stdL.Logger
	lvl    Level
	fields Fields
}

func (sl *stdLogger) SetLevel(lvl Level) {
	sl.lvl = lvl
}

func (sl *stdLogger) Sub(tags Fields) Logger {
	return &stdLogger{log: sl.log, lvl: sl.lvl, fields: mergeFields(tags)}
}

func (sl *stdLogger) WithFields(fields Fields) Logger {
	sl.fields = mergeFields(sl.fields, fields)
	return sl
}

func (sl *stdLogger) WithField(key string, value any) Logger {
	return sl.WithFields(Fields{key: value})
}

func (sl *stdLogger) output(lvl Level, args ...any) {
	sl.fields = nil
	if sl.lvl > lvl {
		return
	}
	sl.log.Print(append([]any{lvl.String() + ": "}, args...)...)
}

func (sl *stdLogger) outputf(lvl Level, format string, args ...any) {
	sl.fields = nil
	if sl.lvl > lvl {
		return
	}
	sl.log.Printf(lvl.String()+": "+format, args...)
}

func (sl *stdLogger) Debug(args ...any)                 { sl.output(Debug, sanitize(args...)...) }
func (sl *stdLogger) Debugf(format string, args ...any) { sl.outputf(Debug, format, sanitize(args...)...) }
func (sl *stdLogger) Info(args ...any)                  { sl.output(Info, sanitize(args...)...) }
func (sl *stdLogger) Infof(format string, args ...any)  { sl.outputf(Info, format, sanitize(args...)...) }
func (sl *stdLogger) Warning(args ...any)               { sl.output(Warning, sanitize(args...)...) }
func (sl *stdLogger) Warningf(format string, args ...any) {
	sl.outputf(Warning, format, sanitize(args...)...)
}
func (sl *stdLogger) Error(args ...any)                 { sl.output(Error, sanitize(args...)...) }
func (sl *stdLogger) Errorf(format string, args ...any) { sl.outputf(Error, format, sanitize(args...)...) }
func (sl *stdLogger) Panic(args ...any)                 { sl.output(Panic, sanitize(args...)...) }
func (sl *stdLogger) Panicf(format string, args ...any) { sl.outputf(Panic, format, sanitize(args...)...) }
func (sl *stdLogger) Fatal(args ...any)                 { sl.output(Fatal, sanitize(args...)...) }
func (sl *stdLogger) Fatalf(format string, args ...any) { sl.outputf(Fatal, format, sanitize(args...)...) }
func (sl *stdLogger) Print(level Level, args ...any)    { lPrint(sl, level, args...) }
func (sl *stdLogger) Printf(level Level, format string, args ...any) {
	lPrintf(sl, level, format, args...)
}
