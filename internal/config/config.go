package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/kdimtricp/deepguard/internal/analysis"
	"github.com/kdimtricp/deepguard/internal/media"
)

type Config struct {
	Server   ServerConfig
	Web      IntakeConfig
	Popup    PopupConfig
	Analysis AnalysisConfig
	Log      LogConfig
}

type ServerConfig struct {
	Addr        string
	SessionIdle time.Duration
}

// IntakeConfig is the file policy of one shell. Zero MaxSize means no cap,
// empty Extensions accepts any image or video.
type IntakeConfig struct {
	MaxSize    int64
	Extensions []string
}

type PopupConfig struct {
	Intake     IntakeConfig
	Mode       string
	Latency    time.Duration
	Timeout    time.Duration
	WebsiteURL string
}

type AnalysisConfig struct {
	Mode     string
	Endpoint string
	Timeout  time.Duration
	Latency  time.Duration
}

type LogConfig struct {
	Level string
	File  string
}

const (
	defaultConfigPath   = "~/.config/deepguard/config.toml"
	defaultAddr         = ":8080"
	defaultSessionIdle  = 30 * time.Minute
	defaultEndpoint     = "https://api.example.com/deepfake-detection"
	defaultTimeout      = 30 * time.Second
	defaultWebLatency   = 3 * time.Second
	defaultPopupLatency = 2 * time.Second
	defaultWebsiteURL   = "http://localhost:8080"
	defaultLogLevel     = "info"
	mb                  = 1024 * 1024
)

// Default returns the configuration used when no file exists.
func Default() Config {
	web := media.WebPolicy()
	return Config{
		Server: ServerConfig{Addr: defaultAddr, SessionIdle: defaultSessionIdle},
		Web:    IntakeConfig{MaxSize: web.MaxSize, Extensions: web.Extensions},
		Popup: PopupConfig{
			Mode:       analysis.ModeMessaging,
			Latency:    defaultPopupLatency,
			Timeout:    defaultTimeout,
			WebsiteURL: defaultWebsiteURL,
		},
		Analysis: AnalysisConfig{
			Mode:     analysis.ModeSimulated,
			Endpoint: defaultEndpoint,
			Timeout:  defaultTimeout,
			Latency:  defaultWebLatency,
		},
		Log: LogConfig{Level: defaultLogLevel},
	}
}

type rawIntake struct {
	MaxSizeMB  *int64   `toml:"max_size_mb"`
	Extensions []string `toml:"extensions"`
}

type rawConfig struct {
	Server struct {
		Addr        string `toml:"addr"`
		SessionIdle string `toml:"session_idle"`
	} `toml:"server"`
	Web   rawIntake `toml:"web"`
	Popup struct {
		MaxSizeMB  *int64   `toml:"max_size_mb"`
		Extensions []string `toml:"extensions"`
		Mode       string   `toml:"mode"`
		Latency    string   `toml:"latency"`
		Timeout    string   `toml:"timeout"`
		WebsiteURL string   `toml:"website_url"`
	} `toml:"popup"`
	Analysis struct {
		Mode     string `toml:"mode"`
		Endpoint string `toml:"endpoint"`
		Timeout  string `toml:"timeout"`
		Latency  string `toml:"latency"`
	} `toml:"analysis"`
	Log struct {
		Level string `toml:"level"`
		File  string `toml:"file"`
	} `toml:"log"`
}

// Load reads the config at path (or the default location), falling back to
// defaults when the file is missing.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw rawConfig
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.apply(raw); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) apply(raw rawConfig) error {
	setString(&c.Server.Addr, raw.Server.Addr)
	if err := setDuration(&c.Server.SessionIdle, raw.Server.SessionIdle, "server.session_idle"); err != nil {
		return err
	}

	applyIntake(&c.Web, raw.Web)
	applyIntake(&c.Popup.Intake, rawIntake{MaxSizeMB: raw.Popup.MaxSizeMB, Extensions: raw.Popup.Extensions})

	setString(&c.Popup.Mode, raw.Popup.Mode)
	setString(&c.Popup.WebsiteURL, raw.Popup.WebsiteURL)
	if err := setDuration(&c.Popup.Latency, raw.Popup.Latency, "popup.latency"); err != nil {
		return err
	}
	if err := setDuration(&c.Popup.Timeout, raw.Popup.Timeout, "popup.timeout"); err != nil {
		return err
	}

	setString(&c.Analysis.Mode, raw.Analysis.Mode)
	setString(&c.Analysis.Endpoint, raw.Analysis.Endpoint)
	if err := setDuration(&c.Analysis.Timeout, raw.Analysis.Timeout, "analysis.timeout"); err != nil {
		return err
	}
	if err := setDuration(&c.Analysis.Latency, raw.Analysis.Latency, "analysis.latency"); err != nil {
		return err
	}

	setString(&c.Log.Level, raw.Log.Level)
	if file := strings.TrimSpace(raw.Log.File); file != "" {
		c.Log.File = mustExpand(file)
	}
	return nil
}

func applyIntake(dst *IntakeConfig, raw rawIntake) {
	if raw.MaxSizeMB != nil {
		dst.MaxSize = *raw.MaxSizeMB * mb
	}
	if raw.Extensions != nil {
		dst.Extensions = media.NormalizeExtensions(raw.Extensions)
	}
}

// ApplyEnv overrides fields from environment variables.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if port := strings.TrimSpace(getenv("PORT")); port != "" {
		c.Server.Addr = ":" + port
	}
	if size := strings.TrimSpace(getenv("MAX_UPLOAD_SIZE")); size != "" {
		n, err := strconv.ParseInt(size, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid MAX_UPLOAD_SIZE: %w", err)
		}
		c.Web.MaxSize = n
	}
	setString(&c.Analysis.Mode, getenv("ANALYSIS_MODE"))
	setString(&c.Analysis.Endpoint, getenv("ANALYSIS_ENDPOINT"))
	if err := setDuration(&c.Analysis.Timeout, getenv("ANALYSIS_TIMEOUT"), "ANALYSIS_TIMEOUT"); err != nil {
		return err
	}
	setString(&c.Log.Level, getenv("LOG_LEVEL"))
	return c.Validate()
}

func (c Config) Validate() error {
	if err := validateMode(c.Analysis.Mode, "analysis.mode"); err != nil {
		return err
	}
	if err := validateMode(c.Popup.Mode, "popup.mode"); err != nil {
		return err
	}
	if strings.EqualFold(c.Analysis.Mode, analysis.ModeHTTP) && strings.TrimSpace(c.Analysis.Endpoint) == "" {
		return fmt.Errorf("analysis.endpoint is required when analysis.mode is http")
	}
	if c.Web.MaxSize < 0 || c.Popup.Intake.MaxSize < 0 {
		return fmt.Errorf("max_size_mb must not be negative")
	}
	if c.Analysis.Timeout < 0 || c.Popup.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	return nil
}

func validateMode(mode, field string) error {
	switch strings.ToLower(mode) {
	case analysis.ModeSimulated, analysis.ModeHTTP, analysis.ModeMessaging:
		return nil
	default:
		return fmt.Errorf("%s: unsupported mode %q", field, mode)
	}
}

func (c Config) WebPolicy() media.Policy {
	return media.Policy{MaxSize: c.Web.MaxSize, Extensions: c.Web.Extensions}
}

func (c Config) PopupPolicy() media.Policy {
	return media.Policy{MaxSize: c.Popup.Intake.MaxSize, Extensions: c.Popup.Intake.Extensions}
}

// WebAnalysis returns the strategy options for the web shell.
func (c Config) WebAnalysis() analysis.Options {
	return analysis.Options{
		Mode:     c.Analysis.Mode,
		Endpoint: c.Analysis.Endpoint,
		Latency:  c.Analysis.Latency,
	}
}

// PopupAnalysis returns the strategy options for the popup shell.
func (c Config) PopupAnalysis() analysis.Options {
	return analysis.Options{
		Mode:     c.Popup.Mode,
		Endpoint: c.Analysis.Endpoint,
		Latency:  c.Popup.Latency,
	}
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v, field string) error {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", field, err)
	}
	*dst = d
	return nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
