package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/arnowe/homewire/internal/infrastructure/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewFormats(t *testing.T) {
	for _, format := range []string{"json", "text"} {
		cfg := config.LoggingConfig{Level: "info", Format: format, Output: "stdout"}
		if New(cfg, "test") == nil {
			t.Errorf("New() with format %q = nil", format)
		}
	}
}

func TestDefault(t *testing.T) {
	if Default() == nil {
		t.Fatal("Default() = nil")
	}
}

func TestWithReturnsChild(t *testing.T) {
	log := Default()
	child := log.With("component", "pipeline")
	if child == nil || child == log {
		t.Fatal("With() must return a distinct child logger")
	}
}

func TestRecordCarriesDefaultFields(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}).
		WithAttrs([]slog.Attr{
			slog.String("service", "homewire"),
			slog.String("version", "1.2.3"),
		})
	log := &Logger{Logger: slog.New(handler)}

	log.Info("device discovered", "name", "PLUG1")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if record["service"] != "homewire" || record["version"] != "1.2.3" {
		t.Errorf("default fields missing from record: %v", record)
	}
	if record["msg"] != "device discovered" || record["name"] != "PLUG1" {
		t.Errorf("record fields wrong: %v", record)
	}
}
