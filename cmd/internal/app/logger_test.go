package app

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want slog.Level
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: "INFO", want: slog.LevelInfo},
		{in: "warn", want: slog.LevelWarn},
		{in: "warning", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "unknown", want: slog.LevelInfo},
		{in: "", want: slog.LevelInfo},
	}

	for _, tc := range cases {
		got := parseLogLevel(tc.in)
		if got != tc.want {
			t.Fatalf("parseLogLevel(%q)=%v want=%v", tc.in, got, tc.want)
		}
	}
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger("info", "json", &buf)
	log.Debug("hidden")
	log.Info("auth.login", "outcome", "success")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %d: %q", len(lines), buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("not JSON: %v", err)
	}
	if rec["msg"] != "auth.login" || rec["outcome"] != "success" {
		t.Fatalf("record = %v", rec)
	}
}

func TestPrettyHandler_PlainOutput(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(newPrettyHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}, false))
	log.With("request_id", "r1").WithGroup("http").Warn("http.request",
		"method", "post",
		"status", 404,
		"duration_ms", 12,
		"err", "not found",
	)

	out := buf.String()
	for _, want := range []string{
		"lvl=[WARN]",
		"msg=http.request",
		"request_id=r1",
		"http.method=post",
		"http.status=404",
		"http.duration_ms=12",
		`http.err="not found"`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in %q", want, out)
		}
	}
	if strings.Contains(out, "\x1b[") {
		t.Fatalf("color codes in plain output: %q", out)
	}
}

func TestPrettyHandler_ColorAndKeys(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(newPrettyHandler(&buf, nil, true))
	log.Info("http.request", "method", "get", "status", 503, "duration_ms", 3)

	out := buf.String()
	if !strings.Contains(out, "method="+ansiMagenta+"GET"+ansiReset) {
		t.Fatalf("method not colorized: %q", out)
	}
	if !strings.Contains(out, "status="+ansiRed+"503"+ansiReset) {
		t.Fatalf("5xx status not red: %q", out)
	}
	if !strings.Contains(out, "duration=3") {
		t.Fatalf("duration_ms not remapped: %q", out)
	}
}

func TestQuoteIfNeeded(t *testing.T) {
	cases := map[string]string{"": `""`, "plain": "plain", "a b": `"a b"`, "k=v": `"k=v"`}
	for in, want := range cases {
		if got := quoteIfNeeded(in); got != want {
			t.Fatalf("quoteIfNeeded(%q)=%q want %q", in, got, want)
		}
	}
}
