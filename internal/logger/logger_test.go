package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"off", zerolog.Disabled},
		{"", zerolog.InfoLevel},
		{"verbose", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	l := Component(NewWithWriter(Config{Level: "info", Format: "json", Service: "test"}, &buf), "pipeline")
	l.Debug().Msg("hidden")
	l.Info().Int("clusters", 3).Msg("aggregated")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1: %q", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("not json: %v", err)
	}
	if entry["service"] != "test" || entry["component"] != "pipeline" || entry["message"] != "aggregated" {
		t.Errorf("unexpected entry %v", entry)
	}
	if entry["clusters"] != float64(3) {
		t.Errorf("clusters = %v", entry["clusters"])
	}
}

func TestTextOutput(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(Config{Level: "debug", Format: "text"}, &buf)
	l.Debug().Msg("hello")
	if !strings.Contains(buf.String(), "hello") {
		t.Errorf("text output missing message: %q", buf.String())
	}
}
