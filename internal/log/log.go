// Package log provides the process-wide logger behind a narrow interface,
// so packages never import the logging backend directly.
package log

import (
	"sync"
)

type Logger interface {
	Print(args ...interface{})
	Printf(format string, args ...interface{})

	Trace(args ...interface{})
	Tracef(format string, args ...interface{})

	Debug(args ...interface{})
	Debugf(format string, args ...interface{})

	Info(args ...interface{})
	Infof(format string, args ...interface{})

	Warn(args ...interface{})
	Warnf(format string, args ...interface{})

	Error(args ...interface{})
	Errorf(format string, args ...interface{})

	Fatal(args ...interface{})
	Fatalf(format string, args ...interface{})

	WithField(field string, value interface{}) Logger
	WithFields(fields map[string]interface{}) Logger
	WithError(err error) Logger

	IsTraceEnabled() bool
	IsDebugEnabled() bool
	IsInfoEnabled() bool
}

var (
	once   sync.Once
	logger Logger
)

// GetLogger returns the process logger. Init must run first; before that a
// default console logger is installed lazily so early code paths still log.
func GetLogger() Logger {
	if logger == nil {
		Init(DefaultConfig())
	}
	return logger
}

func Init(cfg *LoggerConfig) {
	once.Do(func() {
		if err := initByConfig(cfg); err != nil {
			panic(err)
		}
	})
}
