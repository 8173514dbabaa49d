// Package version holds HostPulse build metadata. The release build sets it
// through ldflags:
//
//	go build -ldflags "-X github.com/HerbHall/hostpulse/internal/version.Version=0.2.0"
package version

import (
	"fmt"
	"runtime"

	"go.uber.org/zap"
)

// Set at link time.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Header carries Short() on every HTTP view response.
const Header = "X-HostPulse-Version"

// Build describes the running binary. It is embedded in the health response.
type Build struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// Current reports the metadata of this binary.
func Current() Build {
	return Build{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// Info is the line printed by `hostpulse version` and `--version`.
func Info() string {
	b := Current()
	return fmt.Sprintf("HostPulse %s (commit: %s, built: %s, %s %s)",
		b.Version, b.GitCommit, b.BuildDate, b.GoVersion, b.Platform)
}

// Short returns the bare version, e.g. "0.2.0" or "dev".
func Short() string {
	return Version
}

// Fields returns the build metadata as log fields for the startup line.
func Fields() []zap.Field {
	b := Current()
	return []zap.Field{
		zap.String("version", b.Version),
		zap.String("commit", b.GitCommit),
		zap.String("platform", b.Platform),
	}
}
