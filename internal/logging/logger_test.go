package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNewReturnsLogger(t *testing.T) {
	for _, cfg := range []Config{
		{Level: "info", Format: "json", Output: "stdout"},
		{Level: "debug", Format: "text", Output: "stderr"},
	} {
		if New(cfg, "1.0.0") == nil {
			t.Fatalf("expected non-nil logger for %+v", cfg)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.input); got != tt.expected {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
		}
	}
}

func TestJSONOutputCarriesDefaultFields(t *testing.T) {
	var buf bytes.Buffer
	logger := newWithWriter(&buf, Config{Level: "info", Format: "json"}, "2.3.4")

	logger.Info("auth event", "scheme", "SESSION")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", buf.String(), err)
	}
	if record["service"] != "shiftauthd" {
		t.Errorf("service = %v, want shiftauthd", record["service"])
	}
	if record["version"] != "2.3.4" {
		t.Errorf("version = %v, want 2.3.4", record["version"])
	}
	if record["scheme"] != "SESSION" {
		t.Errorf("scheme = %v, want SESSION", record["scheme"])
	}
}

func TestLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger := newWithWriter(&buf, Config{Level: "warn", Format: "text"}, "dev")

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info record should be filtered, got %q", out)
	}
	if !strings.Contains(out, "shown") {
		t.Errorf("warn record missing, got %q", out)
	}
}
