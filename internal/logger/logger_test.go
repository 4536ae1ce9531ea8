package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRedactAttr(t *testing.T) {
	tests := []struct {
		attr slog.Attr
		want string
	}{
		{slog.String("file", "abc"), "[REDACTED]"},
		{slog.String("preview", "data:image/png;base64,AAAA"), "[REDACTED]"},
		{slog.String("filename", "cat.png"), "cat.png"},
		{slog.Int("size", 42), "42"},
	}
	for _, tt := range tests {
		got := RedactAttr(nil, tt.attr)
		if got.Value.String() != tt.want {
			t.Errorf("RedactAttr(%s) = %q, want %q", tt.attr.Key, got.Value.String(), tt.want)
		}
	}
}

func TestPrettyHandlerFormatsAttrs(t *testing.T) {
	var buf bytes.Buffer
	h := NewPrettyHandler(&buf, &slog.HandlerOptions{Level: LevelDebug, ReplaceAttr: RedactAttr}, false)
	l := slog.New(h).With("session", "s1").WithGroup("asset")
	l.Info("file selected", "name", "cat.png", "data", "secret")

	out := buf.String()
	for _, want := range []string{"INFO", "file selected", "session=s1", "asset.name=cat.png", "asset.data=[REDACTED]"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output %q missing %q", out, want)
		}
	}
}

func TestPrettyHandlerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	h := NewPrettyHandler(&buf, &slog.HandlerOptions{Level: LevelWarn}, false)
	if h.Enabled(context.Background(), LevelInfo) {
		t.Fatalf("info should be disabled at warn level")
	}
	if !h.Enabled(context.Background(), LevelError) {
		t.Fatalf("error should be enabled at warn level")
	}
}

func TestInitWritesJSONFile(t *testing.T) {
	var file bytes.Buffer
	Init(LevelDebug, &file)
	t.Cleanup(func() { Init(LevelInfo, nil) })

	Debug("analysis started", "attempt", 1)

	line := strings.TrimSpace(file.String())
	var rec map[string]any
	if err := json.Unmarshal([]byte(line), &rec); err != nil {
		t.Fatalf("json line %q: %v", line, err)
	}
	if rec["msg"] != "analysis started" {
		t.Fatalf("msg = %v", rec["msg"])
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   LevelDebug,
		" WARN ":  LevelWarn,
		"error":   LevelError,
		"":        LevelInfo,
		"verbose": LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestSetupAppendsToLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deepguard.log")
	closeLog, err := Setup("warn", path)
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	t.Cleanup(func() { Init(LevelInfo, nil) })

	Info("dropped below level")
	Warn("analysis failed", "kind", "transport")
	if err := closeLog(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if strings.Contains(string(data), "dropped below level") {
		t.Error("info record written at warn level")
	}
	if !strings.Contains(string(data), `"msg":"analysis failed"`) {
		t.Errorf("log file = %q", data)
	}
}
