// Package versions reports which build of acheron is running. The values are
// stamped with -ldflags at release time; development builds fall back to the
// VCS data the Go toolchain embeds.
package versions

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

const (
	unknownStr = "unknown"

	// BuildTypeRelease marks official release builds
	BuildTypeRelease = "release"

	commitDisplayLen = 8
	buildDateLayout  = "2006-01-02 15:04:05 MST"
)

// Stamped by the release build with -ldflags "-X ...versions.Version=v1.2.0"
var (
	Version = "dev"
	//nolint:goconst // placeholder replaced at build time
	Commit = unknownStr
	//nolint:goconst // placeholder replaced at build time
	BuildDate = unknownStr
	// BuildType is "release" for official builds, anything else is development
	BuildType = "development"
)

// VersionInfo is what `acheron version --format json` prints
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	BuildType string `json:"build_type"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// GetVersionInfo returns the version of the running binary
func GetVersionInfo() VersionInfo {
	return resolve(Version, Commit, BuildDate, BuildType, vcsSettings())
}

// IsRelease reports whether this is an official release build
func (v VersionInfo) IsRelease() bool {
	return v.BuildType == BuildTypeRelease
}

// String is the single line `acheron version` prints
func (v VersionInfo) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "acheron %s (commit %.*s, built %s, %s %s)",
		v.Version, commitDisplayLen, v.Commit, v.BuildDate, v.GoVersion, v.Platform)
	if !v.IsRelease() {
		b.WriteString(" [development build]")
	}
	return b.String()
}

// UserAgent identifies this build in requests to Charon
func (v VersionInfo) UserAgent() string {
	return "acheron/" + v.Version
}

// vcsSettings returns the vcs.* build settings embedded by the toolchain
func vcsSettings() map[string]string {
	out := map[string]string{}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return out
	}
	for _, s := range info.Settings {
		if strings.HasPrefix(s.Key, "vcs.") {
			out[s.Key] = s.Value
		}
	}
	return out
}

func resolve(version, commit, buildDate, buildType string, vcs map[string]string) VersionInfo {
	if strings.HasPrefix(version, "dev") {
		if commit == unknownStr && vcs["vcs.revision"] != "" {
			commit = vcs["vcs.revision"]
		}
		if buildDate == unknownStr && vcs["vcs.time"] != "" {
			buildDate = vcs["vcs.time"]
		}
	}

	if t, err := time.Parse(time.RFC3339, buildDate); err == nil {
		buildDate = t.UTC().Format(buildDateLayout)
	}

	// dev builds are named after their commit, with a marker for local edits
	if version == "dev" {
		version = fmt.Sprintf("build-%.*s", commitDisplayLen, commit)
		if vcs["vcs.modified"] == "true" {
			version += "-dirty"
		}
	}

	return VersionInfo{
		Version:   version,
		Commit:    commit,
		BuildDate: buildDate,
		BuildType: buildType,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}
