// Package config loads DeepGuard settings from a TOML file.
//
// A missing file is not an error: every field has a default, so both shells
// run out of the box. Empty or whitespace-only values also fall back to the
// defaults. Paths starting with "~" are expanded to the home directory.
//
// Example config.toml:
//
//	[server]
//	addr = ":8080"
//	session_idle = "30m"
//
//	[web]
//	max_size_mb = 50
//	extensions = ["jpeg", "jpg", "png", "mp4", "webm", "mov"]
//
//	[popup]
//	mode = "messaging"
//	latency = "2s"
//	website_url = "http://localhost:8080"
//
//	[analysis]
//	mode = "simulated"
//	endpoint = "https://api.example.com/deepfake-detection"
//	timeout = "30s"
//	latency = "3s"
//
//	[log]
//	level = "info"
//
// The server binary additionally honors PORT, MAX_UPLOAD_SIZE (bytes),
// ANALYSIS_MODE, ANALYSIS_ENDPOINT, ANALYSIS_TIMEOUT and LOG_LEVEL through
// ApplyEnv.
package config
