package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"":      slog.LevelInfo,
		"debug": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestSetupJSON(t *testing.T) {
	t.Setenv("DOCINTEL_LOG_LEVEL", "")
	var buf bytes.Buffer
	if err := Setup(&buf, "warn", "json"); err != nil {
		t.Fatal(err)
	}
	slog.Info("hidden")
	slog.Warn("shown", "path", "a.pdf")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d: %q", len(lines), buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("expected JSON log line: %v", err)
	}
	if rec["msg"] != "shown" || rec["path"] != "a.pdf" {
		t.Errorf("unexpected record %v", rec)
	}
}

func TestSetupEnvOverride(t *testing.T) {
	t.Setenv("DOCINTEL_LOG_LEVEL", "DEBUG")
	var buf bytes.Buffer
	if err := Setup(&buf, "error", "text"); err != nil {
		t.Fatal(err)
	}
	slog.Debug("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Errorf("expected debug output, got %q", buf.String())
	}
}

func TestSetupUnknownFormat(t *testing.T) {
	t.Setenv("DOCINTEL_LOG_LEVEL", "")
	if err := Setup(&bytes.Buffer{}, "info", "xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}
