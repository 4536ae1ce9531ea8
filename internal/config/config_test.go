package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/kdimtricp/deepguard/internal/analysis"
	"github.com/kdimtricp/deepguard/internal/media"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reflect.DeepEqual(cfg, Default()) {
		t.Fatalf("Load() = %+v, want defaults", cfg)
	}
	if got := cfg.WebPolicy().Describe(); got != media.WebPolicy().Describe() {
		t.Errorf("web policy = %q", got)
	}
	if p := cfg.PopupPolicy(); p.MaxSize != 0 || len(p.Extensions) != 0 {
		t.Errorf("popup policy = %+v, want unrestricted", p)
	}
}

func TestLoadOverridesAndTrims(t *testing.T) {
	path := writeConfig(t, `
[server]
addr = " :9090 "
session_idle = "5m"

[web]
max_size_mb = 10
extensions = [" PNG ", ".mp4"]

[popup]
max_size_mb = 25
mode = "simulated"
latency = "250ms"
website_url = "https://deepguard.example"

[analysis]
mode = "http"
endpoint = "http://localhost:9999/detect"
timeout = "10s"

[log]
level = "  "
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Addr != ":9090" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
	if cfg.Server.SessionIdle != 5*time.Minute {
		t.Errorf("session idle = %v", cfg.Server.SessionIdle)
	}
	if cfg.Web.MaxSize != 10*1024*1024 {
		t.Errorf("web max = %d", cfg.Web.MaxSize)
	}
	if want := []string{".png", ".mp4"}; !reflect.DeepEqual(cfg.Web.Extensions, want) {
		t.Errorf("web extensions = %v, want %v", cfg.Web.Extensions, want)
	}
	if cfg.Popup.Intake.MaxSize != 25*1024*1024 {
		t.Errorf("popup max = %d", cfg.Popup.Intake.MaxSize)
	}
	if cfg.Popup.Mode != analysis.ModeSimulated || cfg.Popup.Latency != 250*time.Millisecond {
		t.Errorf("popup = %+v", cfg.Popup)
	}
	if cfg.Popup.WebsiteURL != "https://deepguard.example" {
		t.Errorf("website = %q", cfg.Popup.WebsiteURL)
	}
	if cfg.Analysis.Mode != analysis.ModeHTTP || cfg.Analysis.Timeout != 10*time.Second {
		t.Errorf("analysis = %+v", cfg.Analysis)
	}
	if cfg.Analysis.Latency != defaultWebLatency {
		t.Errorf("latency = %v, want default", cfg.Analysis.Latency)
	}
	if cfg.Log.Level != defaultLogLevel {
		t.Errorf("blank log level should keep default, got %q", cfg.Log.Level)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "bad toml", body: "[server", want: "parse config"},
		{name: "bad duration", body: "[analysis]\ntimeout = \"soon\"", want: "analysis.timeout"},
		{name: "bad mode", body: "[analysis]\nmode = \"gpu\"", want: "unsupported mode"},
		{name: "negative size", body: "[web]\nmax_size_mb = -1", want: "negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Load() error = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"PORT":              "3000",
		"MAX_UPLOAD_SIZE":   "1048576",
		"ANALYSIS_MODE":     "messaging",
		"ANALYSIS_ENDPOINT": "",
		"ANALYSIS_TIMEOUT":  "2s",
		"LOG_LEVEL":         "debug",
	}
	cfg := Default()
	if err := cfg.ApplyEnv(func(k string) string { return env[k] }); err != nil {
		t.Fatalf("ApplyEnv() error = %v", err)
	}

	if cfg.Server.Addr != ":3000" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
	if cfg.Web.MaxSize != 1048576 {
		t.Errorf("max size = %d", cfg.Web.MaxSize)
	}
	if cfg.Analysis.Mode != analysis.ModeMessaging || cfg.Analysis.Timeout != 2*time.Second {
		t.Errorf("analysis = %+v", cfg.Analysis)
	}
	if cfg.Analysis.Endpoint != defaultEndpoint {
		t.Errorf("empty env must not clear endpoint, got %q", cfg.Analysis.Endpoint)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level = %q", cfg.Log.Level)
	}
}

func TestApplyEnvInvalidSize(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(func(k string) string {
		if k == "MAX_UPLOAD_SIZE" {
			return "big"
		}
		return ""
	})
	if err == nil {
		t.Fatal("ApplyEnv() error = nil, want error")
	}
}

func TestExpandPathTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home dir: %v", err)
	}
	got, err := expandPath("~/deepguard.toml")
	if err != nil {
		t.Fatalf("expandPath() error = %v", err)
	}
	if want := filepath.Join(home, "deepguard.toml"); got != want {
		t.Errorf("expandPath() = %q, want %q", got, want)
	}
}
