package logger

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// ANSI color codes
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorBlue   = "\033[34m"
	ColorPurple = "\033[35m"
	ColorCyan   = "\033[36m"
	ColorGray   = "\033[90m"

	ColorBrightRed    = "\033[91m"
	ColorBrightGreen  = "\033[92m"
	ColorBrightYellow = "\033[93m"
	ColorBrightBlue   = "\033[94m"
	ColorBrightPurple = "\033[95m"
	ColorBrightCyan   = "\033[96m"
)

// LogLevel orders log severities
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

var levelStyles = [...]struct {
	name  string
	color string
}{
	DEBUG: {"DEBUG", ColorGray},
	INFO:  {"INFO", ColorBlue},
	WARN:  {"WARN", ColorYellow},
	ERROR: {"ERROR", ColorRed},
	FATAL: {"FATAL", ColorBrightRed},
}

func (l LogLevel) String() string {
	if l < DEBUG || l > FATAL {
		return "UNKNOWN"
	}
	return levelStyles[l].name
}

// ParseLevel maps a config/flag string to a LogLevel, defaulting to INFO
func ParseLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DEBUG
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	case "fatal":
		return FATAL
	default:
		return INFO
	}
}

// ColoredLogger writes `[time] [CONTEXT] [LEVEL] message` lines through the
// standard log package
type ColoredLogger struct {
	context    string
	color      string
	level      LogLevel
	showCaller bool
}

// NewColoredLogger creates a logger at INFO for one context
func NewColoredLogger(context, color string) *ColoredLogger {
	return &ColoredLogger{context: context, color: color, level: INFO}
}

// SetLevel sets the minimum log level
func (l *ColoredLogger) SetLevel(level LogLevel) {
	l.level = level
}

// SetShowCaller appends file:line of the logging call site
func (l *ColoredLogger) SetShowCaller(show bool) {
	l.showCaller = show
}

func (l *ColoredLogger) log(level LogLevel, format string, args ...interface{}) {
	if level < l.level {
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s[%s]%s %s[%s]%s %s[%s]%s %s",
		ColorGray, time.Now().Format("15:04:05.000"), ColorReset,
		l.color, l.context, ColorReset,
		levelStyles[level].color, levelStyles[level].name, ColorReset,
		fmt.Sprintf(format, args...))
	if l.showCaller {
		// log <- Debug/Info/... <- caller
		if _, file, line, ok := runtime.Caller(2); ok {
			fmt.Fprintf(&b, " %s%s:%d%s", ColorGray, filepath.Base(file), line, ColorReset)
		}
	}
	log.Println(b.String())

	if level == FATAL {
		os.Exit(1)
	}
}

// Debug logs a debug message
func (l *ColoredLogger) Debug(format string, args ...interface{}) {
	l.log(DEBUG, format, args...)
}

// Info logs an info message
func (l *ColoredLogger) Info(format string, args ...interface{}) {
	l.log(INFO, format, args...)
}

// Warn logs a warning message
func (l *ColoredLogger) Warn(format string, args ...interface{}) {
	l.log(WARN, format, args...)
}

// Error logs an error message
func (l *ColoredLogger) Error(format string, args ...interface{}) {
	l.log(ERROR, format, args...)
}

// Fatal logs and exits the process
func (l *ColoredLogger) Fatal(format string, args ...interface{}) {
	l.log(FATAL, format, args...)
}

// Predefined loggers for different components
var (
	ServerLogger   = NewColoredLogger("SERVER", ColorBrightGreen)
	ContentLogger  = NewColoredLogger("CONTENT", ColorBrightCyan)
	EconomyLogger  = NewColoredLogger("ECONOMY", ColorBrightPurple)
	DatabaseLogger = NewColoredLogger("DATABASE", ColorBrightBlue)
	SimLogger      = NewColoredLogger("SIM", ColorBrightYellow)
)

var (
	defaultLevel      = INFO
	defaultShowCaller = false
)

// InitLoggers applies level and caller settings to the predefined loggers
// and to every logger later created with NewComponentLogger
func InitLoggers(level LogLevel, showCaller bool) {
	defaultLevel = level
	defaultShowCaller = showCaller
	for _, l := range []*ColoredLogger{ServerLogger, ContentLogger, EconomyLogger, DatabaseLogger, SimLogger} {
		l.SetLevel(level)
		l.SetShowCaller(showCaller)
	}
}

// NewComponentLogger creates a logger for a single component using the
// process-wide settings from InitLoggers
func NewComponentLogger(component, color string) *ColoredLogger {
	l := NewColoredLogger(component, color)
	l.SetLevel(defaultLevel)
	l.SetShowCaller(defaultShowCaller)
	return l
}
