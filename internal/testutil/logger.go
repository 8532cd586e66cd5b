// Package testutil provides test helpers shared by the adapter, catalog and
// CLI packages: loggers that write through t.Log and a host driver fake
// that records what interactions asked the host to do.
package testutil

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

// NewTestLogger returns a logger that writes to t.Log().
// Logs only appear on test failure or when running with -v.
func NewTestLogger(t testing.TB) *slog.Logger {
	t.Helper()
	logger, _ := NewCapturingLogger(t)
	return logger
}

// LogCapture holds everything a capturing logger wrote.
type LogCapture struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

// String returns the captured text handler output.
func (c *LogCapture) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.String()
}

// Contains reports whether any captured line contains s.
func (c *LogCapture) Contains(s string) bool {
	return strings.Contains(c.String(), s)
}

// NewCapturingLogger returns a debug-level logger that mirrors to t.Log and
// keeps a copy of the output for assertions.
func NewCapturingLogger(t testing.TB) (*slog.Logger, *LogCapture) {
	t.Helper()
	capture := &LogCapture{}
	w := testWriter{t: t, capture: capture}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})), capture
}

type testWriter struct {
	t       testing.TB
	capture *LogCapture
}

func (w testWriter) Write(p []byte) (n int, err error) {
	w.t.Helper()
	w.capture.mu.Lock()
	w.capture.buf.Write(p)
	w.capture.mu.Unlock()
	w.t.Log(string(p))
	return len(p), nil
}
