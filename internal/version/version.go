package version

import "fmt"

// Version is the release version embedded in the binary.
// It can be overridden at build time via:
// go build -ldflags "-X github.com/kdimtricp/deepguard/internal/version.Version=0.2.0"
var Version = "0.1.0"

// Commit is the git commit hash embedded in the binary.
var Commit = "unknown"

// Info returns a version string for CLI output.
func Info() string {
	return fmt.Sprintf("deepguard %s (commit %s)", Version, Commit)
}
