package logger

import (
	"log"
	"strings"
)

// LoggerAdapter routes writes from standard library loggers into a
// ColoredLogger at a fixed level
type LoggerAdapter struct {
	logger *ColoredLogger
	level  LogLevel
}

// NewLoggerAdapter creates a new logger adapter
func NewLoggerAdapter(logger *ColoredLogger, level LogLevel) *LoggerAdapter {
	return &LoggerAdapter{logger: logger, level: level}
}

// Write implements io.Writer, one log line per call
func (l *LoggerAdapter) Write(p []byte) (int, error) {
	msg := strings.TrimRight(string(p), "\n")
	switch l.level {
	case DEBUG:
		l.logger.Debug("%s", msg)
	case INFO:
		l.logger.Info("%s", msg)
	case WARN:
		l.logger.Warn("%s", msg)
	default:
		l.logger.Error("%s", msg)
	}
	return len(p), nil
}

// StdLogger returns a *log.Logger that writes through the colored logger,
// for APIs such as http.Server.ErrorLog
func StdLogger(logger *ColoredLogger, level LogLevel) *log.Logger {
	return log.New(NewLoggerAdapter(logger, level), "", 0)
}
