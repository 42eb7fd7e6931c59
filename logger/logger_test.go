package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestJSONOutput(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l, err := New(&Config{Level: "info", Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l.Debug("hidden")
	l.With(String("curve", "USD")).Info("calibrated",
		Int("nodes", 7),
		Float("rate", 0.0125),
		Duration("elapsed", 1500*time.Millisecond),
		Error(errors.New("none")),
	)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1: %q", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	want := map[string]any{
		"level":   "info",
		"message": "calibrated",
		"curve":   "USD",
		"nodes":   float64(7),
		"rate":    0.0125,
		"elapsed": float64(1500),
		"error":   "none",
	}
	for k, v := range want {
		if entry[k] != v {
			t.Fatalf("%s = %v, want %v", k, entry[k], v)
		}
	}
}

func TestConsoleOutput(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l, err := New(&Config{Level: "warn", Format: "console", Writer: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l.Info("hidden")
	l.Warn("arbitrage", Int("node", 2))
	if out := buf.String(); !strings.Contains(out, "arbitrage") || !strings.Contains(out, "node=2") || strings.Contains(out, "hidden") {
		t.Fatalf("console output %q", out)
	}
}

func TestFileOutput(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cds.log")
	l, err := New(&Config{Level: "debug", Output: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l.Debug("written")
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil || !bytes.Contains(b, []byte("written")) {
		t.Fatalf("log file %q, %v", b, err)
	}
}

func TestInvalidLevel(t *testing.T) {
	t.Parallel()

	if _, err := New(&Config{Level: "loud"}); err == nil {
		t.Fatalf("expected an error for an unknown level")
	}
	if err := Nop().Close(); err != nil {
		t.Fatalf("Nop Close: %v", err)
	}
}
