package util

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "warn", "json")

	logger.Info("dropped")
	logger.Warn("kept", "periods", 3)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d log lines, want 1: %q", len(lines), buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if rec["msg"] != "kept" || rec["periods"] != float64(3) {
		t.Errorf("log record = %v", rec)
	}
}

func TestNewLoggerText(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, "info", "text").Info("backtest complete", "run", "abc")
	if !strings.Contains(buf.String(), "msg=\"backtest complete\"") || !strings.Contains(buf.String(), "run=abc") {
		t.Errorf("text log = %q", buf.String())
	}
}

func TestParseDate(t *testing.T) {
	want := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for _, s := range []string{"2024-03-01", "20240301", "2024/03/01"} {
		got, err := ParseDate(s)
		if err != nil {
			t.Errorf("ParseDate(%q): %v", s, err)
			continue
		}
		if !got.Equal(want) {
			t.Errorf("ParseDate(%q) = %v, want %v", s, got, want)
		}
	}
	if _, err := ParseDate("March 1"); err == nil {
		t.Error("ParseDate should reject unknown layouts")
	}
}

func TestParseRange(t *testing.T) {
	from, to, err := ParseRange("2012-01-01", "2025-09-30")
	if err != nil {
		t.Fatalf("ParseRange: %v", err)
	}
	if !InRange(time.Date(2012, 1, 1, 15, 0, 0, 0, time.UTC), from, to) {
		t.Error("start date should be in range")
	}
	if !InRange(time.Date(2025, 9, 30, 23, 0, 0, 0, time.UTC), from, to) {
		t.Error("end date should be in range")
	}
	if InRange(time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC), from, to) {
		t.Error("day after end should be out of range")
	}

	if _, _, err := ParseRange("2020-01-01", "2019-01-01"); err == nil {
		t.Error("ParseRange should reject end before start")
	}
	if _, to, err := ParseRange("2020-01-01", ""); err != nil || to.Year() != 9999 {
		t.Errorf("open range end = %v err = %v", to, err)
	}
}
