package logger

import (
	"bytes"
	"log"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })
	return &buf
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLevel("Debug"))
	assert.Equal(t, WARN, ParseLevel(" warning "))
	assert.Equal(t, ERROR, ParseLevel("error"))
	assert.Equal(t, INFO, ParseLevel(""))
	assert.Equal(t, INFO, ParseLevel("verbose"))
}

func TestLevelFiltering(t *testing.T) {
	buf := captureOutput(t)
	l := NewColoredLogger("TEST", ColorCyan)
	l.SetLevel(WARN)

	l.Info("hidden %d", 1)
	l.Warn("shown %d", 2)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown 2")
	assert.Contains(t, out, "[TEST]")
}

func TestShowCallerPointsAtCallSite(t *testing.T) {
	buf := captureOutput(t)
	l := NewColoredLogger("TEST", ColorCyan)
	l.SetShowCaller(true)

	l.Warn("with caller")

	assert.Contains(t, buf.String(), "logger_test.go:")
}

func TestStdLoggerWritesThroughAdapter(t *testing.T) {
	buf := captureOutput(t)
	l := NewColoredLogger("HTTP", ColorGreen)

	StdLogger(l, WARN).Printf("http: TLS handshake error from %s", "127.0.0.1")

	out := buf.String()
	assert.Contains(t, out, "[WARN]")
	assert.Contains(t, out, "TLS handshake error from 127.0.0.1")
	assert.Equal(t, 1, strings.Count(out, "TLS handshake"))
}
