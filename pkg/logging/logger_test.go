package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []LogEntry {
	t.Helper()
	var entries []LogEntry
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry LogEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("Failed to decode log line %q: %v", line, err)
		}
		entries = append(entries, entry)
	}
	return entries
}

func TestJSONLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, WarnLevel)

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	entries := decodeLines(t, &buf)
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries above WARN, got %d", len(entries))
	}
	if entries[0].Level != "WARN" || entries[1].Level != "ERROR" {
		t.Errorf("Unexpected levels: %s, %s", entries[0].Level, entries[1].Level)
	}
}

func TestJSONLogger_Fields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, InfoLevel)

	logger.Info("route installed", Prefix("10.0.0.0/24"), NextHop("192.0.2.1"), Attempt(1))

	entries := decodeLines(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}
	if entries[0].Fields["prefix"] != "10.0.0.0/24" {
		t.Errorf("Expected prefix field, got %v", entries[0].Fields["prefix"])
	}
	if entries[0].Fields["next_hop"] != "192.0.2.1" {
		t.Errorf("Expected next_hop field, got %v", entries[0].Fields["next_hop"])
	}
}

func TestJSONLogger_With(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, InfoLevel)

	child := logger.With(Component("ingest"), Peer("198.51.100.7"))
	child.Info("event applied")

	entries := decodeLines(t, &buf)
	if entries[0].Fields["component"] != "ingest" {
		t.Errorf("Expected component field from parent, got %v", entries[0].Fields["component"])
	}
	if entries[0].Fields["peer"] != "198.51.100.7" {
		t.Errorf("Expected peer field from parent, got %v", entries[0].Fields["peer"])
	}

	// Parent must not inherit the child's fields
	buf.Reset()
	logger.Info("plain")
	entries = decodeLines(t, &buf)
	if _, ok := entries[0].Fields["component"]; ok {
		t.Error("Parent logger should not carry child fields")
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   DebugLevel,
		"INFO":    InfoLevel,
		"warning": WarnLevel,
		"ERROR":   ErrorLevel,
		"bogus":   InfoLevel,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
