// Package version provides build and version information for symheap, read from the VCS metadata the Go toolchain
// embeds in the binary unless it was set through ldflags.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

// These variables can be set via ldflags at build time.
var (
	// Version is the semantic version of the build.
	Version = "0.3.0"
	// GitCommit is the git commit hash.
	GitCommit = ""
	// GitCommitTime is the timestamp of the git commit, in RFC 3339 format.
	GitCommitTime = ""
	// GitTreeDirty is "true" if the git tree had uncommitted changes at build time.
	GitTreeDirty = ""
)

// ScenarioFormat is the newest scenario format version this build runs. Scenario files declare the format they were
// written for, and the default project configuration accepts any compatible format.
const ScenarioFormat = "1.0.0"

// Info contains the full version information for the build.
type Info struct {
	Version        string `json:"version"`
	ScenarioFormat string `json:"scenarioFormat"`
	GitCommit      string `json:"gitCommit,omitempty"`
	GitCommitTime  string `json:"gitCommitTime,omitempty"`
	GitTreeDirty   bool   `json:"gitTreeDirty"`
	GoVersion      string `json:"goVersion"`
}

func init() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	settings := map[string]*string{
		"vcs.revision": &GitCommit,
		"vcs.time":     &GitCommitTime,
		"vcs.modified": &GitTreeDirty,
	}
	for _, kv := range info.Settings {
		if target, ok := settings[kv.Key]; ok && *target == "" {
			*target = kv.Value
		}
	}
}

// GetInfo returns the complete version information.
func GetInfo() Info {
	return Info{
		Version:        Version,
		ScenarioFormat: ScenarioFormat,
		GitCommit:      GitCommit,
		GitCommitTime:  GitCommitTime,
		GitTreeDirty:   GitTreeDirty == "true",
		GoVersion:      runtime.Version(),
	}
}

// revision returns the abbreviated commit hash, marked if the tree was dirty.
func (i Info) revision() string {
	commit := i.GitCommit
	if len(commit) > 7 {
		commit = commit[:7]
	}
	if commit != "" && i.GitTreeDirty {
		commit += "-dirty"
	}
	return commit
}

// String returns a formatted multi-line version string.
func (i Info) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "symheap version %s\n", i.Version)
	if revision := i.revision(); revision != "" {
		fmt.Fprintf(&sb, "  Commit:          %s\n", revision)
	}
	if i.GitCommitTime != "" {
		built := i.GitCommitTime
		if t, err := time.Parse(time.RFC3339, i.GitCommitTime); err == nil {
			built = t.Format("2006-01-02 15:04:05 MST")
		}
		fmt.Fprintf(&sb, "  Built:           %s\n", built)
	}
	fmt.Fprintf(&sb, "  Scenario format: %s\n", i.ScenarioFormat)
	fmt.Fprintf(&sb, "  Go version:      %s\n", i.GoVersion)
	return sb.String()
}

// Short returns a single-line version string suitable for --version output.
func (i Info) Short() string {
	if revision := i.revision(); revision != "" {
		return i.Version + "+" + revision
	}
	return i.Version
}
