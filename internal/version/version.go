// Package version reports the build of the wane binary.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string    `json:"version" yaml:"version"`
	GitCommit string    `json:"git_commit" yaml:"git_commit"`
	BuildTime time.Time `json:"build_time" yaml:"build_time"`
	GoVersion string    `json:"go_version" yaml:"go_version"`
	Platform  string    `json:"platform" yaml:"platform"`
	Dirty     bool      `json:"dirty,omitempty" yaml:"dirty,omitempty"`
}

// These variables are set at build time using -ldflags
var (
	// Version is the semantic version of the application
	Version = "dev"

	// GitCommit is the git commit hash when the binary was built
	GitCommit = "unknown"

	// BuildTime is the time when the binary was built (RFC3339 format)
	BuildTime = "unknown"
)

// readBuildInfo is replaced in tests.
var readBuildInfo = debug.ReadBuildInfo

// GetBuildInfo returns comprehensive build information
func GetBuildInfo() *BuildInfo {
	return &BuildInfo{
		Version:   GetVersion(),
		GitCommit: GetGitCommit(),
		BuildTime: parseISOTime(BuildTime),
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
		Dirty:     buildSetting("vcs.modified") == "true",
	}
}

// GetVersion returns the application version
func GetVersion() string {
	if Version != "" && Version != "dev" {
		return Version
	}

	if info, ok := readBuildInfo(); ok {
		if info.Main.Version != "(devel)" && info.Main.Version != "" {
			return info.Main.Version
		}
	}
	if rev := buildSetting("vcs.revision"); len(rev) >= 7 {
		return fmt.Sprintf("dev-%s", rev[:7])
	}

	return "dev"
}

// GetGitCommit returns the git commit hash
func GetGitCommit() string {
	if GitCommit != "" && GitCommit != "unknown" {
		return GitCommit
	}
	if rev := buildSetting("vcs.revision"); rev != "" {
		return rev
	}
	return "unknown"
}

// GetShortVersion returns a short version string suitable for display
func GetShortVersion() string {
	version := GetVersion()
	commit := GetGitCommit()

	if commit != "unknown" && len(commit) >= 7 {
		shortCommit := commit[:7]
		if version == "dev" || strings.HasPrefix(version, "dev-") {
			return fmt.Sprintf("dev-%s", shortCommit)
		}
		return fmt.Sprintf("%s (%s)", version, shortCommit)
	}

	return version
}

// GetDetailedVersion returns a detailed version string with all build info
func GetDetailedVersion() string {
	info := GetBuildInfo()

	parts := []string{fmt.Sprintf("Version: %s", info.Version)}
	if info.GitCommit != "unknown" {
		commit := info.GitCommit
		if info.Dirty {
			commit += " (dirty)"
		}
		parts = append(parts, fmt.Sprintf("Commit: %s", commit))
	}
	if !info.BuildTime.IsZero() {
		parts = append(parts, fmt.Sprintf("Built: %s", info.BuildTime.Format(time.RFC3339)))
	}
	parts = append(parts,
		fmt.Sprintf("Go: %s", info.GoVersion),
		fmt.Sprintf("Platform: %s", info.Platform),
	)

	return strings.Join(parts, "\n")
}

// IsRelease returns true if this is a release build (not dev)
func IsRelease() bool {
	version := GetVersion()
	return version != "dev" && !strings.HasPrefix(version, "dev-")
}

func buildSetting(key string) string {
	info, ok := readBuildInfo()
	if !ok {
		return ""
	}
	for _, setting := range info.Settings {
		if setting.Key == key {
			return setting.Value
		}
	}
	return ""
}

// parseISOTime parses an ISO 8601 time string, returns zero time on error
func parseISOTime(timeStr string) time.Time {
	if timeStr == "" || timeStr == "unknown" {
		return time.Time{}
	}

	formats := []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
	}
	for _, format := range formats {
		if t, err := time.Parse(format, timeStr); err == nil {
			return t
		}
	}

	return time.Time{}
}
