package log

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// WithLogrus provides a log handler using the flexibility-oriented "logrus" library.
func WithLogrus(log logrus.FieldLogger) Logger {
	return &logrusHandler{log: log}
}

type logrusHandler struct {
	log    logrus.FieldLogger
	lvl    Level
	fields Fields
	mu     sync.Mutex
}

func (lh *logrusHandler) SetLevel(lvl Level) {
	lh.mu.Lock()
	lh.lvl = lvl
	lh.mu.Unlock()
}

func (lh *logrusHandler) Sub(tags Fields) Logger {
	return &logrusHandler{
		log: lh.log.WithFields(logrus.Fields(tags)),
		lvl: lh.lvl,
	}
}

func (lh *logrusHandler) WithFields(fields Fields) Logger {
	lh.mu.Lock()
	lh.fields = mergeFields(lh.fields, fields)
	lh.mu.Unlock()
	return lh
}

func (lh *logrusHandler) WithField(key string, value any) Logger {
	return lh.WithFields(Fields{key: value})
}

func (lh *logrusHandler) entry() *logrus.Entry {
	lh.mu.Lock()
	fields := lh.fields
	lh.fields = nil
	lh.mu.Unlock()
	return lh.log.WithFields(logrus.Fields(fields))
}

func (lh *logrusHandler) Debug(args ...any) {
	if lh.lvl > Debug {
		lh.WithFields(nil)
		return
	}
	lh.entry().Debug(sanitize(args...)...)
}

func (lh *logrusHandler) Debugf(format string, args ...any) {
	if lh.lvl > Debug {
		lh.WithFields(nil)
		return
	}
	lh.entry().Debugf(format, sanitize(args...)...)
}

func (lh *logrusHandler) Info(args ...any) {
	if lh.lvl > Info {
		lh.WithFields(nil)
		return
	}
	lh.entry().Info(sanitize(args...)...)
}

func (lh *logrusHandler) Infof(format string, args ...any) {
	if lh.lvl > Info {
		lh.WithFields(nil)
		return
	}
	lh.entry().Infof(format, sanitize(args...)...)
}

func (lh *logrusHandler) Warning(args ...any) {
	if lh.lvl > Warning {
		lh.WithFields(nil)
		return
	}
	lh.entry().Warning(sanitize(args...)...)
}

func (lh *logrusHandler) Warningf(format string, args ...any) {
	if lh.lvl > Warning {
		lh.WithFields(nil)
		return
	}
	lh.entry().Warnf(format, sanitize(args...)...)
}

func (lh *logrusHandler) Error(args ...any) {
	if lh.lvl > Error {
		lh.WithFields(nil)
		return
	}
	lh.entry().Error(sanitize(args...)...)
}

func (lh *logrusHandler) Errorf(format string, args ...any) {
	if lh.lvl > Error {
		lh.WithFields(nil)
		return
	}
	lh.entry().Errorf(format, sanitize(args...)...)
}

func (lh *logrusHandler) Panic(args ...any) {
	if lh.lvl > Panic {
		lh.WithFields(nil)
		return
	}
	lh.entry().Panic(sanitize(args...)...)
}

func (lh *logrusHandler) Panicf(format string, args ...any) {
	if lh.lvl > Panic {
		lh.WithFields(nil)
		return
	}
	lh.entry().Panicf(format, sanitize(args...)...)
}

func (lh *logrusHandler) Fatal(args ...any) {
	if lh.lvl > Fatal {
		lh.WithFields(nil)
		return
	}
	lh.entry().Fatal(sanitize(args...)...)
}

func (lh *logrusHandler) Fatalf(format string, args ...any) {
	if lh.lvl > Fatal {
		lh.WithFields(nil)
		return
	}
	lh.entry().Fatalf(format, sanitize(args...)...)
}

func (lh *logrusHandler) Print(level Level, args ...any) {
	lPrint(lh, level, sanitize(args...)...)
}

func (lh *logrusHandler) Printf(level Level, format string, args ...any) {
	lPrintf(lh, level, format, sanitize(args...)...)
}
