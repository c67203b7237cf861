package argstore

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

type logEntry struct {
	level string
	msg   string
	args  []any
}

type captureLogger struct {
	entries []logEntry
}

func (c *captureLogger) Debug(msg string, args ...any) { c.add("debug", msg, args) }
func (c *captureLogger) Info(msg string, args ...any)  { c.add("info", msg, args) }
func (c *captureLogger) Warn(msg string, args ...any)  { c.add("warn", msg, args) }
func (c *captureLogger) Error(msg string, args ...any) { c.add("error", msg, args) }

func (c *captureLogger) add(level, msg string, args []any) {
	c.entries = append(c.entries, logEntry{level: level, msg: msg, args: args})
}

func (c *captureLogger) has(level, msg string) bool {
	for _, entry := range c.entries {
		if entry.level == level && entry.msg == msg {
			return true
		}
	}
	return false
}

func TestStoreLogsMutations(t *testing.T) {
	logger := &captureLogger{}
	store := New(WithLogger(logger))
	store.SetFuncArg(Named("f"), "a", 1)
	store.PatchFuncArgs(Named("f"), Record{"b": 2})

	if !logger.has("debug", "args set") || !logger.has("debug", "args patched") {
		t.Fatalf("expected debug logs, got %+v", logger.entries)
	}
}

func TestSlogLoggerWritesStructuredOutput(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	store := New(WithLogger(NewSlogLogger(slog.New(handler))))

	store.SetFuncArg(Wildcard, "color", "red")

	out := buf.String()
	if !strings.Contains(out, `"msg":"args set"`) || !strings.Contains(out, `"key":"_"`) {
		t.Fatalf("unexpected log output %s", out)
	}
}

func TestNopLoggerDefaults(t *testing.T) {
	if New().Logger() == nil {
		t.Fatalf("store logger should never be nil")
	}
	if NewSlogLogger(nil) == nil {
		t.Fatalf("nil slog logger should fall back to default")
	}
	NopLogger().Error("ignored")
}
