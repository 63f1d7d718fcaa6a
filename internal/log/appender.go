package log

import (
	"io"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// MultiWriter fans log output out to every configured appender. A failed
// appender does not block the others; the last error is reported.
type MultiWriter struct {
	writers []io.Writer
}

func NewMultiWriter() *MultiWriter {
	return &MultiWriter{writers: make([]io.Writer, 0)}
}

func (m *MultiWriter) Write(p []byte) (n int, err error) {
	for _, w := range m.writers {
		if _, e := w.Write(p); e != nil {
			err = e
		}
	}
	return len(p), err
}

func (m *MultiWriter) Add(writer io.Writer) *MultiWriter {
	m.writers = append(m.writers, writer)
	return m
}

func (m *MultiWriter) AddFileAppender(options FileAppenderOpt) *MultiWriter {
	return m.Add(&lumberjack.Logger{
		Filename:   options.Filename,
		MaxSize:    options.MaxSize,    // megabytes
		MaxBackups: options.MaxBackups, // number of backups
		MaxAge:     options.MaxAge,     // days
		Compress:   options.Compress,
	})
}

// buildOutput assembles the MultiWriter from appender configs. With no
// appenders configured, console output is used.
func buildOutput(appenders []AppenderConfig) (*MultiWriter, error) {
	mw := NewMultiWriter()
	for _, a := range appenders {
		switch a.Type {
		case "console":
			mw.Add(os.Stdout)
		case "file":
			fo, err := decodeFileOpt(a.Options)
			if err != nil {
				return nil, err
			}
			mw.AddFileAppender(fo)
		default:
			return nil, errUnknownAppender(a.Type)
		}
	}
	if len(mw.writers) == 0 {
		mw.Add(os.Stdout)
	}
	return mw, nil
}
