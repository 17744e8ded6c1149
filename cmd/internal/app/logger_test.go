package app

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNewLogger_FiltersByLevel(t *testing.T) {
	t.Parallel()

	cases := []struct {
		level string
		emit  slog.Level
		want  bool
	}{
		{level: "debug", emit: slog.LevelDebug, want: true},
		{level: " INFO ", emit: slog.LevelDebug, want: false},
		{level: "info", emit: slog.LevelInfo, want: true},
		{level: "warning", emit: slog.LevelInfo, want: false},
		{level: "warn", emit: slog.LevelWarn, want: true},
		{level: "error", emit: slog.LevelWarn, want: false},
		{level: "bogus", emit: slog.LevelInfo, want: true},
		{level: "", emit: slog.LevelDebug, want: false},
	}

	for _, tc := range cases {
		var buf bytes.Buffer
		log := newLogger(&buf, tc.level)
		log.Log(t.Context(), tc.emit, "purge tick")

		if got := buf.Len() > 0; got != tc.want {
			t.Fatalf("level=%q emit=%v: logged=%v want=%v", tc.level, tc.emit, got, tc.want)
		}
	}
}

func TestNewLogger_WritesJSONWithSource(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := newLogger(&buf, "info")
	log.Warn("accept failed", "group", "ateam")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	if rec["level"] != "WARN" || rec["msg"] != "accept failed" || rec["group"] != "ateam" {
		t.Fatalf("unexpected record: %v", rec)
	}
	src, ok := rec["source"].(map[string]any)
	if !ok {
		t.Fatalf("missing source: %v", rec)
	}
	if file, _ := src["file"].(string); !strings.HasSuffix(file, "logger_test.go") {
		t.Fatalf("source file=%v", src["file"])
	}
}
